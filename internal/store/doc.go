// Package store provides SQLite-backed durable storage for adherence
// event logs.
//
// The store implements an append-only log plus reference data:
//   - Events: raw patient-medication dose observations (never updated or deleted)
//   - Ingest Batches: provenance rows, one per load run
//   - Patients / Medications: optional dimension tables for cohort reporting
//
// # Critical Patterns
//
// Append-Only Events
//   - No UPDATE or DELETE paths exist for events
//   - Preserves the audit trail pharmacovigilance review expects
//
// Deterministic Query Results
//   - Event reads always order by: scheduled_at ASC, id ASC
//   - id is the insertion-order tiebreaker, so equal timestamps come back
//     in the order they were recorded
//
// Validation Before Write
//   - Every insert validates required fields first
//   - A ValidationError leaves the store untouched
//
// Time Encoding
//   - Timestamps are TEXT, RFC 3339 UTC, second precision
//   - Fixed-width encoding makes lexicographic order chronological
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
