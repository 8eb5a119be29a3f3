// Package chart renders trend and cohort aggregates as self-contained
// interactive HTML artifacts.
//
// Artifacts are disposable: they carry no state of their own and can be
// regenerated from the store at any time. File names are deterministic
// functions of the chart parameters, so re-rendering overwrites the
// previous artifact instead of accumulating copies.
//
// Rendering policy follows the pipeline's error taxonomy: an empty or
// unrenderable input is a RenderError, which callers treat as "skip this
// chart, keep going".
package chart
