// Package seed generates a deterministic synthetic cohort for demos and
// pipeline testing. The same seed always produces the same rows, so a
// seeded store is reproducible byte for byte.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/store"
)

// Writer is the slice of the store the seeder writes through.
type Writer interface {
	InsertEvents(ctx context.Context, events []adherence.AdherenceEvent, batchID string) (store.InsertResult, error)
	WritePatients(ctx context.Context, patients []adherence.Patient) (store.InsertResult, error)
	WriteMedications(ctx context.Context, meds []adherence.Medication) (store.InsertResult, error)
	WriteBatch(ctx context.Context, batch adherence.IngestBatch) error
}

// Cohort vocabulary. Matches the pharmacovigilance review data the tool
// was built around.
var (
	drugs      = []string{"Lisinopril", "Metformin", "Atorvastatin", "Amlodipine", "Albuterol"}
	conditions = []string{"Hypertension", "Diabetes", "Heart Disease", "Asthma"}
	genders    = []string{"F", "M", "Other"}
	dosages    = []string{"5mg", "10mg", "20mg", "50mg"}
)

// Options controls cohort generation. Zero values take the defaults.
type Options struct {
	Seed     int64     // RNG seed; default 42
	Patients int       // cohort size; default 500
	Days     int       // daily scheduled doses per medication; default 30
	Start    time.Time // first scheduled day; default 2025-01-01 UTC
}

// defaults fills unset options. The epoch is fixed rather than "now" so
// that the same seed produces identical rows on any day.
func (o Options) defaults() Options {
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.Patients == 0 {
		o.Patients = 500
	}
	if o.Days == 0 {
		o.Days = 30
	}
	if o.Start.IsZero() {
		o.Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return o
}

// Result reports what the seeder wrote.
type Result struct {
	BatchID     string `json:"batch_id"`
	Patients    int    `json:"patients"`
	Medications int    `json:"medications"`
	Events      int    `json:"events"`
}

// Run generates and stores the synthetic cohort: patients with ages,
// genders and chronic conditions, one to three medications each, and
// daily dose events with roughly 75% adherence.
func Run(ctx context.Context, w Writer, opts Options) (Result, error) {
	opts = opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	// Batch id derives from the seed, not a UUID: replaying the same
	// seed must produce an identical store, provenance row included.
	batchID := fmt.Sprintf("seed-%d", opts.Seed)
	result := Result{BatchID: batchID}

	var (
		patients []adherence.Patient
		meds     []adherence.Medication
		events   []adherence.AdherenceEvent
	)

	medSerial := 0
	for i := 0; i < opts.Patients; i++ {
		patientID := fmt.Sprintf("p-%04d", i+1)
		patients = append(patients, adherence.Patient{
			PatientID:        patientID,
			Age:              18 + rng.Intn(72),
			Gender:           genders[rng.Intn(len(genders))],
			ChronicCondition: conditions[rng.Intn(len(conditions))],
			RegisteredAt:     opts.Start.AddDate(0, 0, -rng.Intn(365)),
		})

		for m := 0; m < 1+rng.Intn(3); m++ {
			medSerial++
			medicationID := fmt.Sprintf("med-%05d", medSerial)
			meds = append(meds, adherence.Medication{
				MedicationID: medicationID,
				PatientID:    patientID,
				DrugName:     drugs[rng.Intn(len(drugs))],
				Dosage:       dosages[rng.Intn(len(dosages))],
				PrescribedAt: opts.Start,
			})

			for d := 0; d < opts.Days; d++ {
				scheduled := opts.Start.AddDate(0, 0, d).Add(9 * time.Hour)
				ev := adherence.AdherenceEvent{
					PatientID:    patientID,
					MedicationID: medicationID,
					ScheduledAt:  scheduled,
					Source:       "seed",
				}
				// Three in four doses get taken, up to two hours late
				if rng.Intn(4) != 0 {
					takenAt := scheduled.Add(time.Duration(rng.Intn(120)) * time.Minute)
					ev.TakenAt = &takenAt
				}
				events = append(events, ev)
			}
		}
	}

	pr, err := w.WritePatients(ctx, patients)
	if err != nil {
		return result, err
	}
	result.Patients = pr.Inserted

	mr, err := w.WriteMedications(ctx, meds)
	if err != nil {
		return result, err
	}
	result.Medications = mr.Inserted

	er, err := w.InsertEvents(ctx, events, batchID)
	if err != nil {
		return result, err
	}
	result.Events = er.Inserted

	batch := adherence.IngestBatch{
		BatchID:    batchID,
		SourcePath: fmt.Sprintf("seed:%d", opts.Seed),
		StartedAt:  opts.Start,
		Inserted:   er.Inserted,
		Skipped:    er.Skipped,
	}
	if err := w.WriteBatch(ctx, batch); err != nil {
		return result, err
	}

	return result, nil
}
