package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// Artifact describes one rendered chart file.
type Artifact struct {
	Path      string `json:"path"`
	ChartType string `json:"chart_type"`
}

// Renderer writes chart artifacts into a fixed output directory.
type Renderer struct {
	outDir string
}

// NewRenderer creates a renderer targeting outDir, creating the
// directory if needed.
func NewRenderer(outDir string) (*Renderer, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outDir, err)
	}
	return &Renderer{outDir: outDir}, nil
}

// OutDir returns the artifact output directory.
func (r *Renderer) OutDir() string {
	return r.outDir
}

// Render maps a trend bucket sequence to a chart artifact and writes it.
// Input is never mutated. Fails with RenderError when buckets is empty
// or the chart type is unknown.
func (r *Renderer) Render(buckets []adherence.TrendBucket, chartType string) (Artifact, error) {
	if len(buckets) == 0 {
		return Artifact{}, adherence.NewRenderError(chartType, "no buckets to render")
	}

	window := buckets[0].WindowEnd.Sub(buckets[0].WindowStart)
	name := ArtifactName(chartType, buckets[0].MedicationID, window)

	switch chartType {
	case TypeLine:
		return r.write(name, chartType, lineChart(buckets, name))
	case TypeBar:
		return r.write(name, chartType, barChart(buckets, name))
	default:
		return Artifact{}, adherence.NewRenderError(chartType, "unknown chart type")
	}
}

// RenderCohort maps one section of a cohort summary to a chart artifact.
// Fails with RenderError when the section is empty or the chart type is
// not a cohort type.
func (r *Renderer) RenderCohort(summary trend.CohortSummary, chartType string) (Artifact, error) {
	name := CohortArtifactName(chartType)

	switch chartType {
	case TypeConditionBar:
		if len(summary.Conditions) == 0 {
			return Artifact{}, adherence.NewRenderError(chartType, "no condition data (patient dimensions not loaded)")
		}
		return r.write(name, chartType, conditionBar(summary.Conditions, name))
	case TypeAgeHist:
		if len(summary.AgeBands) == 0 {
			return Artifact{}, adherence.NewRenderError(chartType, "no age data (patient dimensions not loaded)")
		}
		return r.write(name, chartType, ageHist(summary.AgeBands, name))
	case TypeCategoryPie:
		if countTotal(summary.Categories) == 0 {
			return Artifact{}, adherence.NewRenderError(chartType, "no patients to categorize")
		}
		return r.write(name, chartType, categoryPie(summary.Categories, name))
	case TypeDrugBar:
		if len(summary.Drugs) == 0 {
			return Artifact{}, adherence.NewRenderError(chartType, "no medication data (medication dimensions not loaded)")
		}
		return r.write(name, chartType, drugBar(summary.Drugs, name))
	default:
		return Artifact{}, adherence.NewRenderError(chartType, "unknown cohort chart type")
	}
}

// renderable is the slice of the go-echarts chart API the writer needs.
type renderable interface {
	Render(w io.Writer) error
}

func (r *Renderer) write(name, chartType string, c renderable) (Artifact, error) {
	path := filepath.Join(r.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create artifact %s: %w", path, err)
	}
	defer f.Close()

	if err := c.Render(f); err != nil {
		return Artifact{}, fmt.Errorf("render artifact %s: %w", path, err)
	}
	return Artifact{Path: path, ChartType: chartType}, nil
}

// chartID strips the extension so the HTML element id matches the
// parameter set. Deterministic ids keep re-rendered artifact bytes
// reproducible.
func chartID(name string) string {
	return strings.TrimSuffix(name, ".html")
}

func windowLabels(buckets []adherence.TrendBucket) []string {
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.WindowStart.UTC().Format("2006-01-02")
	}
	return labels
}

func lineChart(buckets []adherence.TrendBucket, name string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Adherence rate"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Adherence rate over time",
			Subtitle: subtitleFor(buckets[0]),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "rate", Min: 0, Max: 1}),
	)

	data := make([]opts.LineData, len(buckets))
	for i, b := range buckets {
		if b.Rate == nil {
			// null point, rendered as a gap
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: *b.Rate}
	}

	line.SetXAxis(windowLabels(buckets)).
		AddSeries("adherence rate", data)
	return line
}

func barChart(buckets []adherence.TrendBucket, name string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Scheduled vs taken"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Scheduled vs taken doses",
			Subtitle: subtitleFor(buckets[0]),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	scheduled := make([]opts.BarData, len(buckets))
	takenData := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		scheduled[i] = opts.BarData{Value: b.Scheduled}
		takenData[i] = opts.BarData{Value: b.Taken}
	}

	bar.SetXAxis(windowLabels(buckets)).
		AddSeries("scheduled", scheduled).
		AddSeries("taken", takenData)
	return bar
}

func conditionBar(conditions []adherence.ConditionAdherence, name string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Adherence by condition"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean adherence by chronic condition"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%", Min: 0, Max: 100}),
	)

	labels := make([]string, len(conditions))
	data := make([]opts.BarData, len(conditions))
	for i, c := range conditions {
		labels[i] = c.Condition
		data[i] = opts.BarData{Value: c.MeanPct}
	}

	bar.SetXAxis(labels).AddSeries("mean adherence %", data)
	return bar
}

func ageHist(bands []trend.AgeBand, name string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Age distribution"}),
		charts.WithTitleOpts(opts.Title{Title: "Patient age distribution"}),
	)

	labels := make([]string, len(bands))
	data := make([]opts.BarData, len(bands))
	for i, b := range bands {
		labels[i] = b.Label
		data[i] = opts.BarData{Value: b.Count}
	}

	bar.SetXAxis(labels).AddSeries("patients", data)
	return bar
}

func categoryPie(categories []trend.CategoryCount, name string) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Adherence categories"}),
		charts.WithTitleOpts(opts.Title{Title: "Adherence category shares"}),
	)

	data := make([]opts.PieData, 0, len(categories))
	for _, c := range categories {
		if c.Count == 0 {
			continue
		}
		data = append(data, opts.PieData{Name: string(c.Category), Value: c.Count})
	}

	pie.AddSeries("categories", data)
	return pie
}

func drugBar(drugs []adherence.DrugCount, name string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: chartID(name), PageTitle: "Medications"}),
		charts.WithTitleOpts(opts.Title{Title: "Prescriptions by drug"}),
	)

	// Horizontal bars, least prescribed at the top
	labels := make([]string, len(drugs))
	data := make([]opts.BarData, len(drugs))
	for i, d := range drugs {
		j := len(drugs) - 1 - i
		labels[j] = d.DrugName
		data[j] = opts.BarData{Value: d.Count}
	}

	bar.SetXAxis(labels).AddSeries("prescriptions", data)
	bar.XYReversal()
	return bar
}

func subtitleFor(b adherence.TrendBucket) string {
	med := b.MedicationID
	if med == "" {
		med = "all medications"
	}
	return fmt.Sprintf("%s, %s windows", med, formatWindow(b.WindowEnd.Sub(b.WindowStart)))
}

func countTotal(categories []trend.CategoryCount) int {
	total := 0
	for _, c := range categories {
		total += c.Count
	}
	return total
}
