package store

import (
	"context"
	"fmt"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// EventError records why one event in a batch was rejected.
// Index is the event's position in the input slice.
type EventError struct {
	Index int
	Err   error
}

// InsertResult summarizes a batch insert: how many rows landed, how many
// were skipped, and why each skip happened.
type InsertResult struct {
	Inserted int
	Skipped  int
	Errors   []EventError
}

// InsertEvent validates and appends a single event, returning its
// auto-assigned row ID.
//
// Validation failures are ValidationError and leave the store unchanged.
// Database failures are StorageError.
func (s *Store) InsertEvent(ctx context.Context, ev adherence.AdherenceEvent) (int64, error) {
	if err := s.validator.Validate(ev); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(patient_id, medication_id, scheduled_at, taken_at, source, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		ev.PatientID,
		ev.MedicationID,
		marshalTime(ev.ScheduledAt),
		marshalNullTime(ev.TakenAt),
		defaultSource(ev.Source),
		ev.BatchID,
	)
	if err != nil {
		return 0, adherence.NewStorageError("insert event", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, adherence.NewStorageError("insert event: last insert id", err)
	}
	return id, nil
}

// InsertEvents appends a batch of events in a single transaction, stamping
// each row with batchID. Invalid events are skipped and counted; valid
// events all land or none do. Database failures abort the whole batch
// with StorageError.
func (s *Store) InsertEvents(ctx context.Context, events []adherence.AdherenceEvent, batchID string) (InsertResult, error) {
	var result InsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, adherence.NewStorageError("insert events: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(patient_id, medication_id, scheduled_at, taken_at, source, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return result, adherence.NewStorageError("insert events: prepare", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		if err := s.validator.Validate(ev); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, EventError{Index: i, Err: err})
			continue
		}

		_, err := stmt.ExecContext(ctx,
			ev.PatientID,
			ev.MedicationID,
			marshalTime(ev.ScheduledAt),
			marshalNullTime(ev.TakenAt),
			defaultSource(ev.Source),
			batchID,
		)
		if err != nil {
			return InsertResult{}, adherence.NewStorageError(
				fmt.Sprintf("insert events: row %d", i), err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, adherence.NewStorageError("insert events: commit", err)
	}

	return result, nil
}

// WritePatients inserts patient dimension rows in one transaction.
// Uses ON CONFLICT(patient_id) DO NOTHING for idempotency - dimensions are
// reference data, first write wins, re-loads are safe. Invalid rows are
// skipped and counted like events.
func (s *Store) WritePatients(ctx context.Context, patients []adherence.Patient) (InsertResult, error) {
	var result InsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, adherence.NewStorageError("write patients: begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patients
		(patient_id, age, gender, chronic_condition, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(patient_id) DO NOTHING
	`)
	if err != nil {
		return result, adherence.NewStorageError("write patients: prepare", err)
	}
	defer stmt.Close()

	for i, p := range patients {
		if err := s.validator.Validate(p); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, EventError{Index: i, Err: err})
			continue
		}

		registered := ""
		if !p.RegisteredAt.IsZero() {
			registered = marshalTime(p.RegisteredAt)
		}
		_, err := stmt.ExecContext(ctx, p.PatientID, p.Age, p.Gender, p.ChronicCondition, registered)
		if err != nil {
			return InsertResult{}, adherence.NewStorageError(
				fmt.Sprintf("write patients: row %d", i), err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, adherence.NewStorageError("write patients: commit", err)
	}

	return result, nil
}

// WriteMedications inserts medication dimension rows in one transaction.
// Uses ON CONFLICT(medication_id) DO NOTHING for idempotency, same policy
// as WritePatients.
func (s *Store) WriteMedications(ctx context.Context, meds []adherence.Medication) (InsertResult, error) {
	var result InsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, adherence.NewStorageError("write medications: begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO medications
		(medication_id, patient_id, drug_name, dosage, prescribed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(medication_id) DO NOTHING
	`)
	if err != nil {
		return result, adherence.NewStorageError("write medications: prepare", err)
	}
	defer stmt.Close()

	for i, m := range meds {
		if err := s.validator.Validate(m); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, EventError{Index: i, Err: err})
			continue
		}

		prescribed := ""
		if !m.PrescribedAt.IsZero() {
			prescribed = marshalTime(m.PrescribedAt)
		}
		_, err := stmt.ExecContext(ctx, m.MedicationID, m.PatientID, m.DrugName, m.Dosage, prescribed)
		if err != nil {
			return InsertResult{}, adherence.NewStorageError(
				fmt.Sprintf("write medications: row %d", i), err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, adherence.NewStorageError("write medications: commit", err)
	}

	return result, nil
}

// WriteBatch records the provenance row for one ingest run.
// Uses ON CONFLICT(batch_id) DO NOTHING - batch IDs are UUIDv7, so a
// conflict only happens when the same load is replayed.
func (s *Store) WriteBatch(ctx context.Context, batch adherence.IngestBatch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_batches
		(batch_id, source_path, started_at, inserted, skipped)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO NOTHING
	`,
		batch.BatchID,
		batch.SourcePath,
		marshalTime(batch.StartedAt),
		batch.Inserted,
		batch.Skipped,
	)
	if err != nil {
		return adherence.NewStorageError("write batch", err)
	}
	return nil
}

// defaultSource substitutes the manual channel tag for blank sources.
func defaultSource(source string) string {
	if source == "" {
		return "manual"
	}
	return source
}
