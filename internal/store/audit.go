package store

import (
	"context"
	"database/sql"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// BatchAudit compares one ingest batch's recorded insert count against the
// events actually carrying its batch ID.
type BatchAudit struct {
	BatchID    string `json:"batch_id"`
	SourcePath string `json:"source_path"`
	Recorded   int    `json:"recorded"`
	Actual     int    `json:"actual"`
}

// Consistent reports whether the provenance row matches the event log.
func (b BatchAudit) Consistent() bool {
	return b.Recorded == b.Actual
}

// AuditReport summarizes an integrity check over the whole store.
// The event log is append-only, so any inconsistency points at external
// tampering or a crash between event insert and provenance write.
type AuditReport struct {
	Events              int64        `json:"events"`
	Batches             int          `json:"batches"`
	OrphanEvents        int64        `json:"orphan_events"`
	MalformedTimestamps int64        `json:"malformed_timestamps"`
	Inconsistent        []BatchAudit `json:"inconsistent,omitempty"`
}

// Clean reports whether the audit found nothing wrong.
func (r AuditReport) Clean() bool {
	return r.OrphanEvents == 0 && r.MalformedTimestamps == 0 && len(r.Inconsistent) == 0
}

// Audit verifies the event log against its ingest provenance:
//
//   - every batch's recorded insert count matches the events carrying it
//   - no event references a batch that has no provenance row
//   - every stored timestamp parses back
//
// Audit never modifies the store.
func (s *Store) Audit(ctx context.Context) (AuditReport, error) {
	var report AuditReport

	events, err := s.CountEvents(ctx)
	if err != nil {
		return report, err
	}
	report.Events = events

	batches, err := s.ListBatches(ctx)
	if err != nil {
		return report, err
	}
	report.Batches = len(batches)

	// Per-batch actual counts in one pass
	actual, err := s.eventCountsByBatch(ctx)
	if err != nil {
		return report, err
	}

	for _, b := range batches {
		audit := BatchAudit{
			BatchID:    b.BatchID,
			SourcePath: b.SourcePath,
			Recorded:   b.Inserted,
			Actual:     actual[b.BatchID],
		}
		if !audit.Consistent() {
			report.Inconsistent = append(report.Inconsistent, audit)
		}
		delete(actual, b.BatchID)
	}

	// Events whose batch has no provenance row. Blank batch IDs are
	// direct inserts, not orphans.
	for batchID, count := range actual {
		if batchID == "" {
			continue
		}
		report.OrphanEvents += int64(count)
	}

	malformed, err := s.countMalformedTimestamps(ctx)
	if err != nil {
		return report, err
	}
	report.MalformedTimestamps = malformed

	return report, nil
}

// eventCountsByBatch returns event counts grouped by batch ID.
func (s *Store) eventCountsByBatch(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, COUNT(*) FROM events GROUP BY batch_id
	`)
	if err != nil {
		return nil, adherence.NewStorageError("audit: count events by batch", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			batchID string
			n       int
		)
		if err := rows.Scan(&batchID, &n); err != nil {
			return nil, adherence.NewStorageError("audit: scan batch count", err)
		}
		counts[batchID] = n
	}

	if err := rows.Err(); err != nil {
		return nil, adherence.NewStorageError("audit: iterate batch counts", err)
	}

	return counts, nil
}

// countMalformedTimestamps scans raw timestamp TEXT and counts rows that
// no longer parse. Reads the raw columns directly: scanEvent would abort
// on the first bad row, and the audit wants a total.
func (s *Store) countMalformedTimestamps(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT scheduled_at, taken_at FROM events`)
	if err != nil {
		return 0, adherence.NewStorageError("audit: query timestamps", err)
	}
	defer rows.Close()

	var malformed int64
	for rows.Next() {
		var (
			scheduled string
			taken     sql.NullString
		)
		if err := rows.Scan(&scheduled, &taken); err != nil {
			return 0, adherence.NewStorageError("audit: scan timestamps", err)
		}

		if _, err := unmarshalTime(scheduled); err != nil {
			malformed++
			continue
		}
		if _, err := unmarshalNullTime(taken); err != nil {
			malformed++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, adherence.NewStorageError("audit: iterate timestamps", err)
	}

	return malformed, nil
}
