package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/chart"
)

// fakeStore serves canned events and cohort data for suite execution.
type fakeStore struct {
	events     []adherence.AdherenceEvent
	patients   []adherence.Patient
	perPatient []adherence.PatientAdherence
	conditions []adherence.ConditionAdherence
	drugs      []adherence.DrugCount
}

func (f *fakeStore) ScanEvents(_ context.Context, filter adherence.EventFilter, fn func(adherence.AdherenceEvent) error) error {
	for _, ev := range f.events {
		if filter.MedicationID != "" && ev.MedicationID != filter.MedicationID {
			continue
		}
		if !filter.From.IsZero() && ev.ScheduledAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !ev.ScheduledAt.Before(filter.To) {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) PatientAdherence(context.Context, adherence.EventFilter) ([]adherence.PatientAdherence, error) {
	return f.perPatient, nil
}

func (f *fakeStore) ConditionAdherence(context.Context) ([]adherence.ConditionAdherence, error) {
	return f.conditions, nil
}

func (f *fakeStore) MedicationCounts(context.Context) ([]adherence.DrugCount, error) {
	return f.drugs, nil
}

func (f *fakeStore) Patients(context.Context) ([]adherence.Patient, error) {
	return f.patients, nil
}

func (f *fakeStore) CountEvents(context.Context) (int64, error) {
	return int64(len(f.events)), nil
}

func populatedStore() *fakeStore {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	takenAt := start.Add(9 * time.Hour)
	return &fakeStore{
		events: []adherence.AdherenceEvent{
			{PatientID: "p-1", MedicationID: "med-A", ScheduledAt: start.Add(9 * time.Hour), TakenAt: &takenAt},
			{PatientID: "p-1", MedicationID: "med-A", ScheduledAt: start.Add(33 * time.Hour)},
		},
		patients: []adherence.Patient{
			{PatientID: "p-1", Age: 60, ChronicCondition: "Hypertension"},
		},
		perPatient: []adherence.PatientAdherence{
			{PatientID: "p-1", Scheduled: 2, Taken: 1, MeanPct: 50},
		},
		conditions: []adherence.ConditionAdherence{
			{Condition: "Hypertension", Patients: 1, MeanPct: 50},
		},
		drugs: []adherence.DrugCount{{DrugName: "Lisinopril", Count: 1}},
	}
}

func testSuite(charts ...ChartSpec) Suite {
	return Suite{
		Name: "test-suite",
		Range: adherence.DateRange{
			Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
		},
		Window: 24 * time.Hour,
		Charts: charts,
	}
}

func TestExecute_MixedSuite(t *testing.T) {
	renderer, err := chart.NewRenderer(t.TempDir())
	require.NoError(t, err)

	suite := testSuite(
		ChartSpec{Type: "line", Medication: "med-A"},
		ChartSpec{Type: "bar", Medication: "all"},
		ChartSpec{Type: "category-pie"},
		ChartSpec{Type: "condition-bar"},
	)

	result, err := Execute(context.Background(), populatedStore(), renderer, suite)
	require.NoError(t, err)

	assert.Equal(t, "test-suite", result.Suite)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Written, 4)

	for _, artifact := range result.Written {
		info, err := os.Stat(artifact.Path)
		require.NoError(t, err, artifact.Path)
		assert.Greater(t, info.Size(), int64(0))
	}

	assert.Equal(t, filepath.Join(renderer.OutDir(), "line_med-a_1d.html"), result.Written[0].Path)
	assert.Equal(t, filepath.Join(renderer.OutDir(), "bar_all_1d.html"), result.Written[1].Path)
}

func TestExecute_FailingChartSkippedOthersProceed(t *testing.T) {
	renderer, err := chart.NewRenderer(t.TempDir())
	require.NoError(t, err)

	// No medication dimensions loaded: drug-bar cannot render
	st := populatedStore()
	st.drugs = nil

	suite := testSuite(
		ChartSpec{Type: "drug-bar"},
		ChartSpec{Type: "line"},
	)

	result, err := Execute(context.Background(), st, renderer, suite)
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "drug-bar", result.Skipped[0].Type)
	assert.NotEmpty(t, result.Skipped[0].Reason)

	require.Len(t, result.Written, 1)
	assert.Equal(t, "line", result.Written[0].ChartType)
}

func TestExecute_EmptySuiteResult(t *testing.T) {
	renderer, err := chart.NewRenderer(t.TempDir())
	require.NoError(t, err)

	result, err := Execute(context.Background(), populatedStore(), renderer, testSuite())
	require.NoError(t, err)
	assert.NotNil(t, result.Written)
	assert.Empty(t, result.Written)
	assert.Empty(t, result.Skipped)
}

func TestExecute_EndToEndFromYAML(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`suite: weekly
range:
  start: 2025-06-01
  end: 2025-06-08
window: 24h
charts:
  - type: line
    medication: med-A
  - type: age-hist
`), 0o644))

	suite, err := Load(suitePath)
	require.NoError(t, err)

	renderer, err := chart.NewRenderer(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)

	result, err := Execute(context.Background(), populatedStore(), renderer, suite)
	require.NoError(t, err)
	assert.Len(t, result.Written, 2)
	assert.Empty(t, result.Skipped)
}
