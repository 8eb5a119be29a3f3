// Package dashboard executes declarative chart suites.
//
// A suite is a YAML file naming a set of charts to render in one batch:
// a shared date range and window, then one entry per chart. Suite files
// are strict-parsed (unknown keys are errors) and validated against an
// embedded CUE schema before anything touches the store, so a typoed
// chart type fails up front with the file and field named - not halfway
// through a render run.
//
// Execution applies the pipeline's render policy: a chart that fails
// with RenderError is skipped and counted, the remaining charts proceed.
package dashboard
