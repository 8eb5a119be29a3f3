// Package trend computes adherence aggregates from the event log.
//
// The aggregator is the middle phase of the pipeline: it reads events
// through the store's streaming interface, buckets them into fixed-size
// time windows, and produces derived series for the renderer and the
// report builders. Nothing here is persisted - every aggregate is
// recomputed from the event set on demand, so results are always
// reproducible.
//
// The one policy decision that matters: a bucket with zero scheduled
// doses reports a nil rate, never 0. "No activity" and "zero adherence"
// are different findings and downstream charts must be able to tell
// them apart.
package trend
