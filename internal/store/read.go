package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

const eventColumns = "id, patient_id, medication_id, scheduled_at, taken_at, source, batch_id"

// QueryEvents returns events matching the filter with deterministic
// ordering: scheduled_at ASC, ties broken by insertion order (id ASC).
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) QueryEvents(ctx context.Context, f adherence.EventFilter) ([]adherence.AdherenceEvent, error) {
	events := []adherence.AdherenceEvent{}
	err := s.ScanEvents(ctx, f, func(ev adherence.AdherenceEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ScanEvents streams events matching the filter to fn, one at a time, in
// the same deterministic order as QueryEvents. The aggregator uses this to
// bucket large event sets without materializing them. fn returning an
// error stops the scan and propagates the error.
func (s *Store) ScanEvents(ctx context.Context, f adherence.EventFilter, fn func(adherence.AdherenceEvent) error) error {
	where, args := buildEventWhere(f, "")

	query := "SELECT " + eventColumns + " FROM events" + where +
		" ORDER BY scheduled_at ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return adherence.NewStorageError("query events", err)
	}
	defer rows.Close()

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return adherence.NewStorageError("iterate events", err)
	}

	return nil
}

// EventSpan returns the scheduled-timestamp range covered by events
// matching the filter: [earliest, latest + 1s), half-open so the latest
// event stays inside the range. ok is false when nothing matches.
func (s *Store) EventSpan(ctx context.Context, f adherence.EventFilter) (adherence.DateRange, bool, error) {
	where, args := buildEventWhere(f, "")

	var minAt, maxAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(scheduled_at), MAX(scheduled_at) FROM events"+where, args...,
	).Scan(&minAt, &maxAt)
	if err != nil {
		return adherence.DateRange{}, false, adherence.NewStorageError("event span", err)
	}
	if !minAt.Valid || !maxAt.Valid {
		return adherence.DateRange{}, false, nil
	}

	start, err := unmarshalTime(minAt.String)
	if err != nil {
		return adherence.DateRange{}, false, adherence.NewStorageError("event span", err)
	}
	end, err := unmarshalTime(maxAt.String)
	if err != nil {
		return adherence.DateRange{}, false, adherence.NewStorageError("event span", err)
	}

	return adherence.DateRange{Start: start, End: end.Add(time.Second)}, true, nil
}

// CountEvents returns the total number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, adherence.NewStorageError("count events", err)
	}
	return count, nil
}

// Medications returns the distinct medication IDs observed in events,
// sorted ascending.
func (s *Store) Medications(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT medication_id FROM events
		ORDER BY medication_id ASC
	`)
	if err != nil {
		return nil, adherence.NewStorageError("query medications", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, adherence.NewStorageError("scan medication id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate medication ids", err)
	}

	return ids, nil
}

// PatientAdherence returns one summary row per patient matching the
// filter: scheduled count, taken count, and mean adherence percentage.
// Ordered worst adherence first, ties broken by patient_id ASC, so the
// head of the slice is the intervention shortlist.
func (s *Store) PatientAdherence(ctx context.Context, f adherence.EventFilter) ([]adherence.PatientAdherence, error) {
	where, args := buildEventWhere(f, "e.")

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.patient_id,
		       COALESCE(p.chronic_condition, ''),
		       COUNT(*) AS scheduled,
		       SUM(CASE WHEN e.taken_at IS NOT NULL THEN 1 ELSE 0 END) AS taken,
		       100.0 * SUM(CASE WHEN e.taken_at IS NOT NULL THEN 1 ELSE 0 END) / COUNT(*) AS mean_pct
		FROM events e
		LEFT JOIN patients p ON p.patient_id = e.patient_id
	`+where+`
		GROUP BY e.patient_id
		ORDER BY mean_pct ASC, e.patient_id ASC
	`, args...)
	if err != nil {
		return nil, adherence.NewStorageError("query patient adherence", err)
	}
	defer rows.Close()

	summaries := []adherence.PatientAdherence{}
	for rows.Next() {
		var pa adherence.PatientAdherence
		if err := rows.Scan(&pa.PatientID, &pa.ChronicCondition, &pa.Scheduled, &pa.Taken, &pa.MeanPct); err != nil {
			return nil, adherence.NewStorageError("scan patient adherence", err)
		}
		summaries = append(summaries, pa)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate patient adherence", err)
	}

	return summaries, nil
}

// ConditionAdherence returns mean adherence per chronic condition for
// patients that have dimension rows. Ordered by condition name.
func (s *Store) ConditionAdherence(ctx context.Context) ([]adherence.ConditionAdherence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.chronic_condition,
		       COUNT(DISTINCT e.patient_id) AS patients,
		       100.0 * SUM(CASE WHEN e.taken_at IS NOT NULL THEN 1 ELSE 0 END) / COUNT(*) AS mean_pct
		FROM events e
		JOIN patients p ON p.patient_id = e.patient_id
		WHERE p.chronic_condition <> ''
		GROUP BY p.chronic_condition
		ORDER BY p.chronic_condition ASC
	`)
	if err != nil {
		return nil, adherence.NewStorageError("query condition adherence", err)
	}
	defer rows.Close()

	conditions := []adherence.ConditionAdherence{}
	for rows.Next() {
		var ca adherence.ConditionAdherence
		if err := rows.Scan(&ca.Condition, &ca.Patients, &ca.MeanPct); err != nil {
			return nil, adherence.NewStorageError("scan condition adherence", err)
		}
		conditions = append(conditions, ca)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate condition adherence", err)
	}

	return conditions, nil
}

// MedicationCounts returns prescription counts per drug name, most
// prescribed first, ties broken by drug name ASC.
func (s *Store) MedicationCounts(ctx context.Context) ([]adherence.DrugCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT drug_name, COUNT(*) AS n
		FROM medications
		GROUP BY drug_name
		ORDER BY n DESC, drug_name ASC
	`)
	if err != nil {
		return nil, adherence.NewStorageError("query medication counts", err)
	}
	defer rows.Close()

	counts := []adherence.DrugCount{}
	for rows.Next() {
		var dc adherence.DrugCount
		if err := rows.Scan(&dc.DrugName, &dc.Count); err != nil {
			return nil, adherence.NewStorageError("scan medication count", err)
		}
		counts = append(counts, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate medication counts", err)
	}

	return counts, nil
}

// Patients returns all patient dimension rows ordered by patient_id.
func (s *Store) Patients(ctx context.Context) ([]adherence.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, age, gender, chronic_condition, registered_at
		FROM patients
		ORDER BY patient_id ASC
	`)
	if err != nil {
		return nil, adherence.NewStorageError("query patients", err)
	}
	defer rows.Close()

	patients := []adherence.Patient{}
	for rows.Next() {
		var (
			p          adherence.Patient
			registered string
		)
		if err := rows.Scan(&p.PatientID, &p.Age, &p.Gender, &p.ChronicCondition, &registered); err != nil {
			return nil, adherence.NewStorageError("scan patient", err)
		}
		if registered != "" {
			t, err := unmarshalTime(registered)
			if err != nil {
				return nil, adherence.NewStorageError("scan patient", err)
			}
			p.RegisteredAt = t
		}
		patients = append(patients, p)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate patients", err)
	}

	return patients, nil
}

// ListBatches returns ingest provenance rows, oldest first.
func (s *Store) ListBatches(ctx context.Context) ([]adherence.IngestBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, source_path, started_at, inserted, skipped
		FROM ingest_batches
		ORDER BY started_at ASC, batch_id ASC
	`)
	if err != nil {
		return nil, adherence.NewStorageError("query batches", err)
	}
	defer rows.Close()

	batches := []adherence.IngestBatch{}
	for rows.Next() {
		var (
			b       adherence.IngestBatch
			started string
		)
		if err := rows.Scan(&b.BatchID, &b.SourcePath, &started, &b.Inserted, &b.Skipped); err != nil {
			return nil, adherence.NewStorageError("scan batch", err)
		}
		t, err := unmarshalTime(started)
		if err != nil {
			return nil, adherence.NewStorageError("scan batch", err)
		}
		b.StartedAt = t
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("iterate batches", err)
	}

	return batches, nil
}

// scanEvent scans a row into an AdherenceEvent.
func scanEvent(rows *sql.Rows) (adherence.AdherenceEvent, error) {
	var (
		ev        adherence.AdherenceEvent
		scheduled string
		taken     sql.NullString
	)

	if err := rows.Scan(
		&ev.ID, &ev.PatientID, &ev.MedicationID, &scheduled, &taken, &ev.Source, &ev.BatchID,
	); err != nil {
		return adherence.AdherenceEvent{}, adherence.NewStorageError("scan event", err)
	}

	scheduledAt, err := unmarshalTime(scheduled)
	if err != nil {
		return adherence.AdherenceEvent{}, adherence.NewStorageError("scan event", err)
	}
	ev.ScheduledAt = scheduledAt

	takenAt, err := unmarshalNullTime(taken)
	if err != nil {
		return adherence.AdherenceEvent{}, adherence.NewStorageError("scan event", err)
	}
	ev.TakenAt = takenAt

	return ev, nil
}

// buildEventWhere translates an EventFilter into a WHERE clause and its
// arguments. prefix qualifies event columns ("e." in joined queries, ""
// otherwise). Returns the empty string when the filter matches everything.
func buildEventWhere(f adherence.EventFilter, prefix string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.MedicationID != "" {
		conds = append(conds, prefix+"medication_id = ?")
		args = append(args, f.MedicationID)
	}
	if f.PatientID != "" {
		conds = append(conds, prefix+"patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.Source != "" {
		conds = append(conds, prefix+"source = ?")
		args = append(args, f.Source)
	}
	if !f.From.IsZero() {
		conds = append(conds, prefix+"scheduled_at >= ?")
		args = append(args, marshalTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, prefix+"scheduled_at < ?")
		args = append(args, marshalTime(f.To))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
