package dashboard

import (
	"context"
	"log/slog"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/chart"
	"github.com/pharmetric/rxtrend/internal/trend"
)

// StoreReader is the read surface suite execution needs: streamed events
// for bucket charts, dimension aggregates for cohort charts.
type StoreReader interface {
	trend.EventReader
	trend.CohortReader
}

// ChartSkip records one chart that failed to render and was skipped.
type ChartSkip struct {
	Type       string `json:"type"`
	Medication string `json:"medication,omitempty"`
	Reason     string `json:"reason"`
}

// SuiteResult summarizes one suite execution: what was written, what was
// skipped and why.
type SuiteResult struct {
	Suite   string           `json:"suite"`
	Written []chart.Artifact `json:"written"`
	Skipped []ChartSkip      `json:"skipped,omitempty"`
}

// Execute renders every chart in the suite. Charts fail independently:
// a RenderError (or a validation failure for one chart's parameters)
// skips that chart and the rest proceed. Storage failures abort the
// whole run.
func Execute(ctx context.Context, reader StoreReader, renderer *chart.Renderer, suite Suite) (SuiteResult, error) {
	result := SuiteResult{
		Suite:   suite.Name,
		Written: []chart.Artifact{},
	}

	// Cohort aggregates are shared by every cohort chart in the suite;
	// computed at most once.
	var (
		summary       trend.CohortSummary
		summaryLoaded bool
	)

	for _, spec := range suite.Charts {
		var (
			artifact chart.Artifact
			err      error
		)

		switch {
		case chart.IsBucketType(spec.Type):
			var buckets []adherence.TrendBucket
			buckets, err = trend.ComputeTrends(ctx, reader, spec.MedicationFilter(), suite.Window, suite.Range)
			if err == nil {
				artifact, err = renderer.Render(buckets, spec.Type)
			}
		case chart.IsCohortType(spec.Type):
			if !summaryLoaded {
				summary, err = trend.ComputeCohortSummary(ctx, reader)
				if err != nil {
					return result, err
				}
				summaryLoaded = true
			}
			artifact, err = renderer.RenderCohort(summary, spec.Type)
		default:
			err = adherence.NewRenderError(spec.Type, "unknown chart type")
		}

		if err != nil {
			if adherence.IsStorageError(err) {
				return result, err
			}
			slog.Warn("chart skipped",
				"suite", suite.Name,
				"type", spec.Type,
				"medication", spec.Medication,
				"error", err)
			result.Skipped = append(result.Skipped, ChartSkip{
				Type:       spec.Type,
				Medication: spec.Medication,
				Reason:     err.Error(),
			})
			continue
		}

		slog.Debug("chart written", "suite", suite.Name, "type", spec.Type, "path", artifact.Path)
		result.Written = append(result.Written, artifact)
	}

	return result, nil
}
