package adherence

import (
	"math"
	"time"
)

// AdherenceEvent is one patient-medication dose observation.
// A nil TakenAt means the scheduled dose was missed.
// Events are immutable once recorded.
type AdherenceEvent struct {
	// ID is the auto-assigned row identifier. Zero until stored.
	// Insertion order is the tiebreaker for equal scheduled timestamps.
	ID int64 `json:"id,omitempty"`

	PatientID    string     `json:"patient_id" validate:"required"`
	MedicationID string     `json:"medication_id" validate:"required"`
	ScheduledAt  time.Time  `json:"scheduled_at" validate:"required"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`

	// Source tags the ingestion channel (csv, seed, manual).
	Source string `json:"source,omitempty"`

	// BatchID links the event to its ingest batch for provenance.
	BatchID string `json:"batch_id,omitempty"`
}

// Taken reports whether the scheduled dose was actually taken.
func (e AdherenceEvent) Taken() bool {
	return e.TakenAt != nil
}

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Span returns End - Start.
func (r DateRange) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls within [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// IsZero reports whether both endpoints are unset.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// WindowCount returns the number of fixed-size windows needed to cover the
// range: ceil(span / window). Zero when the range or window is degenerate.
func (r DateRange) WindowCount(window time.Duration) int {
	if window <= 0 || !r.End.After(r.Start) {
		return 0
	}
	return int(math.Ceil(float64(r.Span()) / float64(window)))
}

// EventFilter selects stored events. Zero-valued fields match everything.
// From/To bound the scheduled timestamp as a half-open interval [From, To).
type EventFilter struct {
	MedicationID string    `json:"medication_id,omitempty"`
	PatientID    string    `json:"patient_id,omitempty"`
	Source       string    `json:"source,omitempty"`
	From         time.Time `json:"from,omitempty"`
	To           time.Time `json:"to,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// TrendBucket is a time-windowed adherence aggregate for one medication
// (or the whole store when MedicationID is empty). Derived data only:
// always recomputed from the event set, never persisted.
type TrendBucket struct {
	MedicationID string    `json:"medication_id,omitempty"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	Scheduled    int       `json:"scheduled"`
	Taken        int       `json:"taken"`

	// Rate is taken/scheduled. nil when Scheduled == 0 so that "no
	// activity" stays distinguishable from "zero adherence".
	Rate *float64 `json:"rate"`
}

// Patient is optional cohort dimension data keyed by PatientID.
type Patient struct {
	PatientID        string    `json:"patient_id" validate:"required"`
	Age              int       `json:"age" validate:"omitempty,gte=0,lte=130"`
	Gender           string    `json:"gender,omitempty"`
	ChronicCondition string    `json:"chronic_condition,omitempty"`
	RegisteredAt     time.Time `json:"registered_at,omitempty"`
}

// Medication is a prescription row linking a drug to a patient.
type Medication struct {
	MedicationID string    `json:"medication_id" validate:"required"`
	PatientID    string    `json:"patient_id" validate:"required"`
	DrugName     string    `json:"drug_name" validate:"required"`
	Dosage       string    `json:"dosage,omitempty"`
	PrescribedAt time.Time `json:"prescribed_at,omitempty"`
}

// IngestBatch records the provenance of one load run.
type IngestBatch struct {
	BatchID    string    `json:"batch_id"`
	SourcePath string    `json:"source_path"`
	StartedAt  time.Time `json:"started_at"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
}

// PatientAdherence is the per-patient adherence summary used by reports.
// MeanPct is 100 * taken / scheduled over all of the patient's events.
type PatientAdherence struct {
	PatientID        string  `json:"patient_id"`
	ChronicCondition string  `json:"chronic_condition,omitempty"`
	Scheduled        int     `json:"scheduled"`
	Taken            int     `json:"taken"`
	MeanPct          float64 `json:"mean_pct"`
}

// ConditionAdherence is mean adherence grouped by chronic condition.
type ConditionAdherence struct {
	Condition string  `json:"condition"`
	Patients  int     `json:"patients"`
	MeanPct   float64 `json:"mean_pct"`
}

// DrugCount is the number of prescriptions recorded for one drug.
type DrugCount struct {
	DrugName string `json:"drug_name"`
	Count    int    `json:"count"`
}

// Category buckets a patient-level mean adherence percentage.
type Category string

const (
	CategoryExcellent Category = "Excellent"
	CategoryGood      Category = "Good"
	CategoryFair      Category = "Fair"
	CategoryPoor      Category = "Poor"
)

// CategoryFor maps a mean adherence percentage to its category.
// Thresholds: >= 90 Excellent, >= 75 Good, >= 50 Fair, below that Poor.
func CategoryFor(pct float64) Category {
	switch {
	case pct >= 90:
		return CategoryExcellent
	case pct >= 75:
		return CategoryGood
	case pct >= 50:
		return CategoryFair
	default:
		return CategoryPoor
	}
}

// Categories returns all categories in display order, best first.
func Categories() []Category {
	return []Category{CategoryExcellent, CategoryGood, CategoryFair, CategoryPoor}
}

// InterventionThreshold is the default mean adherence percentage below
// which a patient is flagged for follow-up.
const InterventionThreshold = 75.0

// Rate returns a pointer to r. Convenience for building TrendBucket
// literals in tests and callers.
func Rate(r float64) *float64 {
	return &r
}
