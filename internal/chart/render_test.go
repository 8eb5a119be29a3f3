package chart

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/trend"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(t.TempDir())
	require.NoError(t, err)
	return r
}

func testBuckets() []adherence.TrendBucket {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	buckets := make([]adherence.TrendBucket, 3)
	for i := range buckets {
		buckets[i] = adherence.TrendBucket{
			MedicationID: "med-A",
			WindowStart:  start.Add(time.Duration(i) * window),
			WindowEnd:    start.Add(time.Duration(i+1) * window),
		}
	}
	buckets[0].Scheduled, buckets[0].Taken, buckets[0].Rate = 4, 3, adherence.Rate(0.75)
	// buckets[1] stays empty: nil rate, must render as a gap
	buckets[2].Scheduled, buckets[2].Taken, buckets[2].Rate = 2, 0, adherence.Rate(0)
	return buckets
}

func readArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	return string(data)
}

func TestRender_EmptyBucketsFails(t *testing.T) {
	r := testRenderer(t)

	_, err := r.Render(nil, TypeLine)
	require.Error(t, err)
	assert.True(t, adherence.IsRenderError(err), "want RenderError, got %v", err)

	_, err = r.Render([]adherence.TrendBucket{}, TypeBar)
	require.Error(t, err)
	assert.True(t, adherence.IsRenderError(err))
}

func TestRender_UnknownChartType(t *testing.T) {
	r := testRenderer(t)

	_, err := r.Render(testBuckets(), "sparkline")
	require.Error(t, err)
	assert.True(t, adherence.IsRenderError(err))
}

func TestRender_LineWritesExpectedPath(t *testing.T) {
	r := testRenderer(t)

	artifact, err := r.Render(testBuckets(), TypeLine)
	require.NoError(t, err)

	wantPath := filepath.Join(r.OutDir(), "line_med-a_1d.html")
	assert.Equal(t, wantPath, artifact.Path)
	assert.Equal(t, TypeLine, artifact.ChartType)

	html := readArtifact(t, artifact)
	assert.Contains(t, html, "line_med-a_1d", "deterministic chart id embedded")
	assert.Contains(t, html, "adherence rate")
	// The empty middle bucket must be null (a gap), never 0
	assert.Contains(t, html, "null")
}

func TestRender_LineDoesNotMutateInput(t *testing.T) {
	r := testRenderer(t)
	buckets := testBuckets()

	_, err := r.Render(buckets, TypeLine)
	require.NoError(t, err)

	assert.Nil(t, buckets[1].Rate)
	assert.Equal(t, 4, buckets[0].Scheduled)
}

func TestRender_BarHasBothSeries(t *testing.T) {
	r := testRenderer(t)

	artifact, err := r.Render(testBuckets(), TypeBar)
	require.NoError(t, err)

	html := readArtifact(t, artifact)
	assert.Contains(t, html, "scheduled")
	assert.Contains(t, html, "taken")
}

func TestRender_Reproducible(t *testing.T) {
	r := testRenderer(t)

	first, err := r.Render(testBuckets(), TypeLine)
	require.NoError(t, err)
	firstBytes := readArtifact(t, first)

	second, err := r.Render(testBuckets(), TypeLine)
	require.NoError(t, err)
	secondBytes := readArtifact(t, second)

	assert.Equal(t, first.Path, second.Path, "same parameters, same path")
	assert.Equal(t, firstBytes, secondBytes, "same parameters, same bytes")
}

// chartSnapshot captures the deterministic inputs a bucket chart is
// built from: artifact name, embedded id, axis labels, series values.
// The golden fixtures pin these across changes; byte stability of the
// full HTML within a build is covered by TestRender_Reproducible.
type chartSnapshot struct {
	Artifact  string     `json:"artifact"`
	ChartID   string     `json:"chart_id"`
	Labels    []string   `json:"labels"`
	Rates     []*float64 `json:"rates,omitempty"`
	Scheduled []int      `json:"scheduled,omitempty"`
	Taken     []int      `json:"taken,omitempty"`
}

func assertSnapshot(t *testing.T, name string, snap chartSnapshot) {
	t.Helper()
	data, err := json.MarshalIndent(snap, "", "  ")
	require.NoError(t, err)
	data = append(data, '\n')

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, name, data)
}

func TestRender_LineGolden(t *testing.T) {
	r := testRenderer(t)
	buckets := testBuckets()

	artifact, err := r.Render(buckets, TypeLine)
	require.NoError(t, err)

	snap := chartSnapshot{
		Artifact: filepath.Base(artifact.Path),
		ChartID:  chartID(filepath.Base(artifact.Path)),
		Labels:   windowLabels(buckets),
	}
	for _, b := range buckets {
		snap.Rates = append(snap.Rates, b.Rate)
	}
	assertSnapshot(t, "line_chart", snap)
}

func TestRender_BarGolden(t *testing.T) {
	r := testRenderer(t)
	buckets := testBuckets()

	artifact, err := r.Render(buckets, TypeBar)
	require.NoError(t, err)

	snap := chartSnapshot{
		Artifact: filepath.Base(artifact.Path),
		ChartID:  chartID(filepath.Base(artifact.Path)),
		Labels:   windowLabels(buckets),
	}
	for _, b := range buckets {
		snap.Scheduled = append(snap.Scheduled, b.Scheduled)
		snap.Taken = append(snap.Taken, b.Taken)
	}
	assertSnapshot(t, "bar_chart", snap)
}

func testSummary() trend.CohortSummary {
	return trend.CohortSummary{
		Conditions: []adherence.ConditionAdherence{
			{Condition: "Asthma", Patients: 2, MeanPct: 80},
			{Condition: "Diabetes", Patients: 3, MeanPct: 65},
		},
		AgeBands: []trend.AgeBand{
			{Label: "40-49", Low: 40, Count: 2},
			{Label: "50-59", Low: 50, Count: 3},
		},
		Drugs: []adherence.DrugCount{
			{DrugName: "Metformin", Count: 3},
			{DrugName: "Albuterol", Count: 2},
		},
		Categories: []trend.CategoryCount{
			{Category: adherence.CategoryExcellent, Count: 1},
			{Category: adherence.CategoryGood, Count: 2},
			{Category: adherence.CategoryFair, Count: 0},
			{Category: adherence.CategoryPoor, Count: 2},
		},
	}
}

func TestRenderCohort_AllTypes(t *testing.T) {
	r := testRenderer(t)
	summary := testSummary()

	for _, chartType := range CohortTypes {
		artifact, err := r.RenderCohort(summary, chartType)
		require.NoError(t, err, chartType)

		wantPath := filepath.Join(r.OutDir(), CohortArtifactName(chartType))
		assert.Equal(t, wantPath, artifact.Path, chartType)

		info, err := os.Stat(artifact.Path)
		require.NoError(t, err, chartType)
		assert.Greater(t, info.Size(), int64(0), chartType)
	}
}

func TestRenderCohort_MissingDimensionsFail(t *testing.T) {
	r := testRenderer(t)
	empty := trend.CohortSummary{
		// Categories present but all zero: nothing to slice
		Categories: []trend.CategoryCount{
			{Category: adherence.CategoryExcellent, Count: 0},
			{Category: adherence.CategoryGood, Count: 0},
			{Category: adherence.CategoryFair, Count: 0},
			{Category: adherence.CategoryPoor, Count: 0},
		},
	}

	for _, chartType := range CohortTypes {
		_, err := r.RenderCohort(empty, chartType)
		require.Error(t, err, chartType)
		assert.True(t, adherence.IsRenderError(err), "%s: want RenderError, got %v", chartType, err)
	}
}

func TestRenderCohort_PieSkipsZeroSlices(t *testing.T) {
	r := testRenderer(t)

	artifact, err := r.RenderCohort(testSummary(), TypeCategoryPie)
	require.NoError(t, err)

	html := readArtifact(t, artifact)
	assert.Contains(t, html, "Excellent")
	assert.Contains(t, html, "Poor")
	assert.NotContains(t, html, "Fair", "zero-count category left off the pie")
}
