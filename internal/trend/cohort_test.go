package trend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

func pa(id string, scheduled, taken int) adherence.PatientAdherence {
	pct := 0.0
	if scheduled > 0 {
		pct = 100 * float64(taken) / float64(scheduled)
	}
	return adherence.PatientAdherence{PatientID: id, Scheduled: scheduled, Taken: taken, MeanPct: pct}
}

func TestCategoryBreakdown_FixedOrderIncludingEmpty(t *testing.T) {
	patients := []adherence.PatientAdherence{
		pa("p-1", 10, 10), // 100 -> Excellent
		pa("p-2", 10, 8),  // 80 -> Good
		pa("p-3", 10, 8),  // 80 -> Good
		pa("p-4", 10, 2),  // 20 -> Poor
	}

	breakdown := CategoryBreakdown(patients)
	require.Len(t, breakdown, 4)

	assert.Equal(t, adherence.CategoryExcellent, breakdown[0].Category)
	assert.Equal(t, 1, breakdown[0].Count)
	assert.Equal(t, adherence.CategoryGood, breakdown[1].Category)
	assert.Equal(t, 2, breakdown[1].Count)
	assert.Equal(t, adherence.CategoryFair, breakdown[2].Category)
	assert.Equal(t, 0, breakdown[2].Count, "empty category still listed")
	assert.Equal(t, adherence.CategoryPoor, breakdown[3].Category)
	assert.Equal(t, 1, breakdown[3].Count)
}

func TestCategoryBreakdown_Thresholds(t *testing.T) {
	cases := []struct {
		pct  float64
		want adherence.Category
	}{
		{100, adherence.CategoryExcellent},
		{90, adherence.CategoryExcellent},
		{89.9, adherence.CategoryGood},
		{75, adherence.CategoryGood},
		{74.9, adherence.CategoryFair},
		{50, adherence.CategoryFair},
		{49.9, adherence.CategoryPoor},
		{0, adherence.CategoryPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, adherence.CategoryFor(tc.pct), "pct %v", tc.pct)
	}
}

func TestInterventionCandidates_WorstFirstCapped(t *testing.T) {
	patients := []adherence.PatientAdherence{
		pa("p-fine", 10, 9),  // 90, above threshold
		pa("p-bad", 10, 3),   // 30
		pa("p-worst", 10, 1), // 10
		pa("p-edge", 4, 3),   // 75, not below threshold
		pa("p-mid", 10, 6),   // 60
	}

	candidates := InterventionCandidates(patients, adherence.InterventionThreshold, 2)
	require.Len(t, candidates, 2)
	assert.Equal(t, "p-worst", candidates[0].PatientID)
	assert.Equal(t, "p-bad", candidates[1].PatientID)
}

func TestInterventionCandidates_NoCap(t *testing.T) {
	patients := []adherence.PatientAdherence{
		pa("p-b", 10, 3),
		pa("p-a", 10, 3), // tie resolves by patient id
		pa("p-c", 10, 10),
	}

	candidates := InterventionCandidates(patients, adherence.InterventionThreshold, 0)
	require.Len(t, candidates, 2)
	assert.Equal(t, "p-a", candidates[0].PatientID)
	assert.Equal(t, "p-b", candidates[1].PatientID)
}

func TestInterventionCandidates_EmptyInput(t *testing.T) {
	candidates := InterventionCandidates(nil, adherence.InterventionThreshold, 20)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestAgeHistogram_ContiguousBands(t *testing.T) {
	patients := []adherence.Patient{
		{PatientID: "p-1", Age: 25},
		{PatientID: "p-2", Age: 29},
		{PatientID: "p-3", Age: 61},
		{PatientID: "p-4", Age: 0}, // unknown age: excluded
	}

	bands := AgeHistogram(patients)
	require.Len(t, bands, 5, "20s through 60s, gaps included")

	assert.Equal(t, "20-29", bands[0].Label)
	assert.Equal(t, 2, bands[0].Count)
	assert.Equal(t, "30-39", bands[1].Label)
	assert.Equal(t, 0, bands[1].Count)
	assert.Equal(t, "60-69", bands[4].Label)
	assert.Equal(t, 1, bands[4].Count)
}

func TestAgeHistogram_Empty(t *testing.T) {
	assert.Empty(t, AgeHistogram(nil))
	assert.Empty(t, AgeHistogram([]adherence.Patient{{PatientID: "p-1"}}))
}

// fakeCohortReader serves canned cohort data.
type fakeCohortReader struct {
	patients   []adherence.Patient
	perPatient []adherence.PatientAdherence
	conditions []adherence.ConditionAdherence
	drugs      []adherence.DrugCount
	events     int64
}

func (f *fakeCohortReader) PatientAdherence(context.Context, adherence.EventFilter) ([]adherence.PatientAdherence, error) {
	return f.perPatient, nil
}

func (f *fakeCohortReader) ConditionAdherence(context.Context) ([]adherence.ConditionAdherence, error) {
	return f.conditions, nil
}

func (f *fakeCohortReader) MedicationCounts(context.Context) ([]adherence.DrugCount, error) {
	return f.drugs, nil
}

func (f *fakeCohortReader) Patients(context.Context) ([]adherence.Patient, error) {
	return f.patients, nil
}

func (f *fakeCohortReader) CountEvents(context.Context) (int64, error) {
	return f.events, nil
}

func TestComputeCohortSummary(t *testing.T) {
	reader := &fakeCohortReader{
		patients: []adherence.Patient{
			{PatientID: "p-1", Age: 64, ChronicCondition: "Hypertension"},
			{PatientID: "p-2", Age: 48, ChronicCondition: "Diabetes"},
		},
		perPatient: []adherence.PatientAdherence{pa("p-1", 10, 9), pa("p-2", 10, 4)},
		conditions: []adherence.ConditionAdherence{
			{Condition: "Diabetes", Patients: 1, MeanPct: 40},
			{Condition: "Hypertension", Patients: 1, MeanPct: 90},
		},
		drugs:  []adherence.DrugCount{{DrugName: "Lisinopril", Count: 3}},
		events: 20,
	}

	summary, err := ComputeCohortSummary(context.Background(), reader)
	require.NoError(t, err)

	assert.Len(t, summary.Conditions, 2)
	assert.Len(t, summary.Drugs, 1)
	require.Len(t, summary.Categories, 4)
	assert.Equal(t, 1, summary.Categories[0].Count) // Excellent: p-1 at 90
	assert.Equal(t, 1, summary.Categories[3].Count) // Poor: p-2 at 40
	require.NotEmpty(t, summary.AgeBands)
	assert.Equal(t, "40-49", summary.AgeBands[0].Label)
}

func TestComputeRunSummary(t *testing.T) {
	reader := &fakeCohortReader{
		perPatient: []adherence.PatientAdherence{
			pa("p-1", 10, 10), // 100
			pa("p-2", 10, 5),  // 50: intervention candidate
		},
		events: 20,
	}

	summary, err := ComputeRunSummary(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalPatients)
	assert.Equal(t, int64(20), summary.TotalEvents)
	assert.Equal(t, 75.0, summary.MeanAdherencePct)
	assert.Equal(t, 1, summary.InterventionCount)
}

func TestComputeRunSummary_EmptyStore(t *testing.T) {
	summary, err := ComputeRunSummary(context.Background(), &fakeCohortReader{})
	require.NoError(t, err)
	assert.Zero(t, summary.TotalPatients)
	assert.Zero(t, summary.MeanAdherencePct)
}
