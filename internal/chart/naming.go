package chart

import (
	"fmt"
	"strings"
	"time"
)

// Chart types over trend buckets.
const (
	TypeLine = "line" // adherence rate over time, nil rates as gaps
	TypeBar  = "bar"  // scheduled vs taken counts per window
)

// Cohort chart types (dimension data, no time window).
const (
	TypeConditionBar = "condition-bar" // mean adherence by chronic condition
	TypeAgeHist      = "age-hist"      // patient count by age band
	TypeCategoryPie  = "category-pie"  // adherence category shares
	TypeDrugBar      = "drug-bar"      // prescription counts by drug, horizontal
)

// BucketTypes lists the chart types rendered from trend buckets.
var BucketTypes = []string{TypeLine, TypeBar}

// CohortTypes lists the chart types rendered from cohort summaries.
var CohortTypes = []string{TypeConditionBar, TypeAgeHist, TypeCategoryPie, TypeDrugBar}

// IsBucketType reports whether chartType renders from trend buckets.
func IsBucketType(chartType string) bool {
	return chartType == TypeLine || chartType == TypeBar
}

// IsCohortType reports whether chartType renders from a cohort summary.
func IsCohortType(chartType string) bool {
	switch chartType {
	case TypeConditionBar, TypeAgeHist, TypeCategoryPie, TypeDrugBar:
		return true
	}
	return false
}

// cohortDimension maps a cohort chart type to the dimension it plots,
// used in artifact names: {chartType}_{dimension}.html.
var cohortDimension = map[string]string{
	TypeConditionBar: "condition",
	TypeAgeHist:      "age",
	TypeCategoryPie:  "category",
	TypeDrugBar:      "drug",
}

// ArtifactName builds the deterministic file name for a bucket chart:
// {chartType}_{medicationID}_{windowSize}.html. The medication id is
// slug-sanitised; an empty id (no filter) becomes "all".
func ArtifactName(chartType, medicationID string, windowSize time.Duration) string {
	med := slugify(medicationID)
	if med == "" {
		med = "all"
	}
	return fmt.Sprintf("%s_%s_%s.html", chartType, med, formatWindow(windowSize))
}

// CohortArtifactName builds the deterministic file name for a cohort
// chart: {chartType}_{dimension}.html.
func CohortArtifactName(chartType string) string {
	return fmt.Sprintf("%s_%s.html", chartType, cohortDimension[chartType])
}

// slugify lowercases and replaces everything outside [a-z0-9-] with a
// hyphen, collapsing runs. Keeps file names portable across filesystems.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// formatWindow renders a window size compactly: whole days as "7d",
// whole hours as "36h", anything else via Duration.String.
func formatWindow(d time.Duration) string {
	if d <= 0 {
		return d.String()
	}
	if d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return d.String()
}
