package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// EventReader streams stored events in deterministic order
// (scheduled_at ASC, insertion order as tiebreaker). *store.Store
// satisfies this; tests substitute in-memory readers.
type EventReader interface {
	ScanEvents(ctx context.Context, f adherence.EventFilter, fn func(adherence.AdherenceEvent) error) error
}

// ComputeTrends buckets matching events into fixed-size windows aligned
// to dateRange.Start and computes per-window scheduled count, taken
// count, and adherence rate.
//
// The result covers the whole range with no gaps: ceil(span/windowSize)
// buckets, in window order, empty windows included. The final window may
// extend past dateRange.End so that every window has the same size;
// events at or after dateRange.End are still excluded.
//
// medicationID filters to one medication; empty means all medications,
// and the returned buckets carry an empty MedicationID.
func ComputeTrends(ctx context.Context, reader EventReader, medicationID string, windowSize time.Duration, dateRange adherence.DateRange) ([]adherence.TrendBucket, error) {
	if windowSize <= 0 {
		return nil, adherence.NewFieldError("window_size", fmt.Sprintf("must be positive, got %s", windowSize))
	}
	if dateRange.Start.IsZero() || dateRange.End.IsZero() {
		return nil, adherence.NewFieldError("date_range", "start and end are required")
	}
	if !dateRange.End.After(dateRange.Start) {
		return nil, adherence.NewFieldError("date_range", fmt.Sprintf("end %s is not after start %s",
			dateRange.End.Format(time.RFC3339), dateRange.Start.Format(time.RFC3339)))
	}

	n := dateRange.WindowCount(windowSize)
	buckets := make([]adherence.TrendBucket, n)
	for i := range buckets {
		start := dateRange.Start.Add(time.Duration(i) * windowSize)
		buckets[i] = adherence.TrendBucket{
			MedicationID: medicationID,
			WindowStart:  start,
			WindowEnd:    start.Add(windowSize),
		}
	}

	filter := adherence.EventFilter{
		MedicationID: medicationID,
		From:         dateRange.Start,
		To:           dateRange.End,
	}
	err := reader.ScanEvents(ctx, filter, func(ev adherence.AdherenceEvent) error {
		idx := int(ev.ScheduledAt.Sub(dateRange.Start) / windowSize)
		if idx < 0 || idx >= n {
			// The store filter already bounds [Start, End); an event
			// landing outside the window grid means a corrupt read.
			return adherence.NewStorageError("compute trends",
				fmt.Errorf("event %d at %s outside requested range", ev.ID, ev.ScheduledAt.Format(time.RFC3339)))
		}
		buckets[idx].Scheduled++
		if ev.Taken() {
			buckets[idx].Taken++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range buckets {
		if buckets[i].Scheduled > 0 {
			buckets[i].Rate = adherence.Rate(float64(buckets[i].Taken) / float64(buckets[i].Scheduled))
		}
	}

	return buckets, nil
}
