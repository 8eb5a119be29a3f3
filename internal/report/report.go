// Package report builds the adherence report: per-patient summaries,
// category breakdown, and the intervention shortlist, rendered as
// terminal tables or an XLSX workbook.
package report

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/output"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// Report is one adherence report, derived entirely from the store.
type Report struct {
	Patients   []adherence.PatientAdherence `json:"patients"`
	Breakdown  []trend.CategoryCount        `json:"breakdown"`
	Candidates []adherence.PatientAdherence `json:"candidates"`
	Threshold  float64                      `json:"threshold"`
}

// Options bounds the report.
type Options struct {
	Threshold float64 // intervention threshold; default adherence.InterventionThreshold
	Limit     int     // intervention shortlist cap; default 20
}

func (o Options) defaults() Options {
	if o.Threshold == 0 {
		o.Threshold = adherence.InterventionThreshold
	}
	if o.Limit == 0 {
		o.Limit = 20
	}
	return o
}

// Build derives a report from the store.
func Build(ctx context.Context, reader trend.CohortReader, opts Options) (Report, error) {
	opts = opts.defaults()

	patients, err := reader.PatientAdherence(ctx, adherence.EventFilter{})
	if err != nil {
		return Report{}, err
	}

	return Report{
		Patients:   patients,
		Breakdown:  trend.CategoryBreakdown(patients),
		Candidates: trend.InterventionCandidates(patients, opts.Threshold, opts.Limit),
		Threshold:  opts.Threshold,
	}, nil
}

// numbers formats counts with locale-aware separators so a 12000-patient
// cohort reads as 12,000.
var numbers = message.NewPrinter(language.English)

// WriteText renders the report as terminal tables.
func WriteText(w io.Writer, r Report) {
	fmt.Fprintln(w, "Patient adherence")
	patientTable := output.NewTable(w, []string{"patient", "condition", "scheduled", "taken", "rate", "category"})
	for _, p := range r.Patients {
		patientTable.AddRow([]string{
			p.PatientID,
			p.ChronicCondition,
			numbers.Sprintf("%d", p.Scheduled),
			numbers.Sprintf("%d", p.Taken),
			fmt.Sprintf("%.1f%%", p.MeanPct),
			string(adherence.CategoryFor(p.MeanPct)),
		})
	}
	patientTable.Render()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Category breakdown")
	categoryTable := output.NewTable(w, []string{"category", "patients"})
	for _, c := range r.Breakdown {
		categoryTable.AddRow([]string{string(c.Category), numbers.Sprintf("%d", c.Count)})
	}
	categoryTable.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Intervention candidates (mean adherence below %.0f%%)\n", r.Threshold)
	if len(r.Candidates) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	candidateTable := output.NewTable(w, []string{"patient", "condition", "rate"})
	for _, p := range r.Candidates {
		candidateTable.AddRow([]string{
			p.PatientID,
			p.ChronicCondition,
			fmt.Sprintf("%.1f%%", p.MeanPct),
		})
	}
	candidateTable.Render()
}
