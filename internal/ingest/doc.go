// Package ingest loads adherence records from CSV files into the store.
//
// Loading is the pipeline's first phase. A malformed row is reported
// and skipped, loading continues, and every skip is counted in the
// result. A malformed header is different - the file's schema is
// validated before any row is read, and a schema mismatch rejects the
// whole file.
//
// Every load run gets a UUIDv7 batch id stamped onto its events and a
// provenance row in ingest_batches, so the audit command can later
// verify the log against what each load claimed to insert.
package ingest
