package trend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// CohortReader provides the dimension-backed reads the cohort aggregates
// need. *store.Store satisfies this.
type CohortReader interface {
	PatientAdherence(ctx context.Context, f adherence.EventFilter) ([]adherence.PatientAdherence, error)
	ConditionAdherence(ctx context.Context) ([]adherence.ConditionAdherence, error)
	MedicationCounts(ctx context.Context) ([]adherence.DrugCount, error)
	Patients(ctx context.Context) ([]adherence.Patient, error)
	CountEvents(ctx context.Context) (int64, error)
}

// CategoryCount is the number of patients in one adherence category.
type CategoryCount struct {
	Category adherence.Category `json:"category"`
	Count    int                `json:"count"`
}

// CategoryBreakdown counts patients per adherence category. The result
// always lists every category in display order (best first), including
// empty ones, so charts and tables have a stable shape.
func CategoryBreakdown(patients []adherence.PatientAdherence) []CategoryCount {
	byCategory := make(map[adherence.Category]int)
	for _, p := range patients {
		byCategory[adherence.CategoryFor(p.MeanPct)]++
	}

	breakdown := make([]CategoryCount, 0, 4)
	for _, cat := range adherence.Categories() {
		breakdown = append(breakdown, CategoryCount{Category: cat, Count: byCategory[cat]})
	}
	return breakdown
}

// InterventionCandidates returns the patients whose mean adherence falls
// below threshold, worst first, capped at limit. Pass limit <= 0 for no
// cap. The input order does not matter; candidates are re-sorted by mean
// adherence ascending with patient id as tiebreaker.
func InterventionCandidates(patients []adherence.PatientAdherence, threshold float64, limit int) []adherence.PatientAdherence {
	candidates := make([]adherence.PatientAdherence, 0)
	for _, p := range patients {
		if p.MeanPct < threshold {
			candidates = append(candidates, p)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MeanPct != candidates[j].MeanPct {
			return candidates[i].MeanPct < candidates[j].MeanPct
		}
		return candidates[i].PatientID < candidates[j].PatientID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// AgeBand is the patient count within one ten-year age band.
type AgeBand struct {
	Label string `json:"label"` // "60-69"
	Low   int    `json:"low"`
	Count int    `json:"count"`
}

// ageBandWidth fixes the histogram granularity at ten-year bands.
const ageBandWidth = 10

// AgeHistogram groups patients into contiguous ten-year age bands from
// the lowest to the highest observed band, empty bands included so the
// chart axis has no gaps. Patients with age 0 (unknown) are excluded.
func AgeHistogram(patients []adherence.Patient) []AgeBand {
	low, high := -1, -1
	counts := make(map[int]int)
	for _, p := range patients {
		if p.Age <= 0 {
			continue
		}
		band := (p.Age / ageBandWidth) * ageBandWidth
		counts[band]++
		if low == -1 || band < low {
			low = band
		}
		if band > high {
			high = band
		}
	}
	if low == -1 {
		return []AgeBand{}
	}

	bands := make([]AgeBand, 0, (high-low)/ageBandWidth+1)
	for b := low; b <= high; b += ageBandWidth {
		bands = append(bands, AgeBand{
			Label: bandLabel(b),
			Low:   b,
			Count: counts[b],
		})
	}
	return bands
}

func bandLabel(low int) string {
	return fmt.Sprintf("%d-%d", low, low+ageBandWidth-1)
}

// CohortSummary bundles the cohort-level aggregates that feed the
// dashboard's dimension charts.
type CohortSummary struct {
	Conditions []adherence.ConditionAdherence `json:"conditions"`
	AgeBands   []AgeBand                      `json:"age_bands"`
	Drugs      []adherence.DrugCount          `json:"drugs"`
	Categories []CategoryCount                `json:"categories"`
}

// ComputeCohortSummary reads dimensions and events and derives the
// cohort aggregates. Works with whatever dimensions are present; absent
// dimension tables simply produce empty sections.
func ComputeCohortSummary(ctx context.Context, reader CohortReader) (CohortSummary, error) {
	var summary CohortSummary

	conditions, err := reader.ConditionAdherence(ctx)
	if err != nil {
		return summary, err
	}
	summary.Conditions = conditions

	patients, err := reader.Patients(ctx)
	if err != nil {
		return summary, err
	}
	summary.AgeBands = AgeHistogram(patients)

	drugs, err := reader.MedicationCounts(ctx)
	if err != nil {
		return summary, err
	}
	summary.Drugs = drugs

	perPatient, err := reader.PatientAdherence(ctx, adherence.EventFilter{})
	if err != nil {
		return summary, err
	}
	summary.Categories = CategoryBreakdown(perPatient)

	return summary, nil
}

// RunSummary is the end-of-run report: what landed, what was skipped,
// and the headline adherence numbers. Every skipped record or chart is
// counted here - the pipeline never fails silently.
type RunSummary struct {
	TotalPatients     int           `json:"total_patients"`
	TotalEvents       int64         `json:"total_events"`
	MeanAdherencePct  float64       `json:"mean_adherence_pct"`
	InterventionCount int           `json:"intervention_count"`
	RecordsLoaded     int           `json:"records_loaded"`
	RecordsSkipped    int           `json:"records_skipped"`
	ChartsWritten     int           `json:"charts_written"`
	ChartsSkipped     int           `json:"charts_skipped"`
	Elapsed           time.Duration `json:"elapsed"`
}

// ComputeRunSummary derives the adherence headline numbers for a run.
// Load and render counters are filled in by the caller as phases finish.
func ComputeRunSummary(ctx context.Context, reader CohortReader) (RunSummary, error) {
	var summary RunSummary

	events, err := reader.CountEvents(ctx)
	if err != nil {
		return summary, err
	}
	summary.TotalEvents = events

	perPatient, err := reader.PatientAdherence(ctx, adherence.EventFilter{})
	if err != nil {
		return summary, err
	}
	summary.TotalPatients = len(perPatient)

	if len(perPatient) > 0 {
		var total float64
		for _, p := range perPatient {
			total += p.MeanPct
		}
		summary.MeanAdherencePct = total / float64(len(perPatient))
	}

	summary.InterventionCount = len(InterventionCandidates(perPatient, adherence.InterventionThreshold, 0))

	return summary, nil
}
