// Package adherence provides the shared domain types for rxtrend.
//
// This package contains type definitions, validation, and the error
// taxonomy. All other internal packages import adherence; adherence
// imports nothing internal. This keeps the domain model the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - AdherenceEvent rows are immutable once recorded (append-only audit trail)
//   - TrendBucket.Rate is nil when no doses were scheduled, never 0
//   - All JSON tags use snake_case
//   - Timestamps are UTC, truncated to second precision
package adherence
