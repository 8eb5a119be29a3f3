package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// createTestStore creates a file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// day1 is the base timestamp used across store tests.
var day1 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// createTestEvent creates a taken event with minimal required fields.
func createTestEvent(patientID, medicationID string, scheduled time.Time) adherence.AdherenceEvent {
	taken := scheduled.Add(5 * time.Minute)
	return adherence.AdherenceEvent{
		PatientID:    patientID,
		MedicationID: medicationID,
		ScheduledAt:  scheduled,
		TakenAt:      &taken,
		Source:       "csv",
	}
}

// createMissedEvent creates an event whose dose was never taken.
func createMissedEvent(patientID, medicationID string, scheduled time.Time) adherence.AdherenceEvent {
	return adherence.AdherenceEvent{
		PatientID:    patientID,
		MedicationID: medicationID,
		ScheduledAt:  scheduled,
		Source:       "csv",
	}
}

// mustInsert inserts an event or fails the test.
func mustInsert(t *testing.T, s *Store, ev adherence.AdherenceEvent) int64 {
	t.Helper()
	id, err := s.InsertEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("InsertEvent() failed: %v", err)
	}
	return id
}

// countRows counts rows in a table directly, bypassing Store methods.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return count
}
