package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmetric/rxtrend/internal/adherence"
	"github.com/pharmetric/rxtrend/internal/store"
)

// EventWriter is the slice of the store the loader writes through.
type EventWriter interface {
	InsertEvents(ctx context.Context, events []adherence.AdherenceEvent, batchID string) (store.InsertResult, error)
	WritePatients(ctx context.Context, patients []adherence.Patient) (store.InsertResult, error)
	WriteMedications(ctx context.Context, meds []adherence.Medication) (store.InsertResult, error)
	WriteBatch(ctx context.Context, batch adherence.IngestBatch) error
}

// RowError records why one CSV row was skipped. Line is 1-based and
// counts the header, matching what an editor shows.
type RowError struct {
	Line int   `json:"line"`
	Err  error `json:"-"`
}

// Message renders the row error for reports and JSON output.
func (r RowError) Message() string {
	return fmt.Sprintf("line %d: %v", r.Line, r.Err)
}

// LoadResult summarizes one load run.
type LoadResult struct {
	BatchID    string     `json:"batch_id,omitempty"`
	SourcePath string     `json:"source_path"`
	Inserted   int        `json:"inserted"`
	Skipped    int        `json:"skipped"`
	RowErrors  []RowError `json:"row_errors,omitempty"`
}

// Loader reads CSV files and writes their rows through the store.
type Loader struct {
	writer EventWriter
	now    func() time.Time
}

// NewLoader creates a Loader writing through w.
func NewLoader(w EventWriter) *Loader {
	return &Loader{writer: w, now: time.Now}
}

// eventColumns is the required CSV schema for adherence events, in
// canonical order. Header matching is order-insensitive.
var eventColumns = []string{"patient_id", "medication_id", "scheduled_at", "taken_at", "source"}

// eventRequired marks columns that must be present; taken_at and source
// may be omitted entirely.
var eventRequired = map[string]bool{
	"patient_id":    true,
	"medication_id": true,
	"scheduled_at":  true,
}

// LoadEvents loads an adherence-event CSV. Malformed rows are skipped
// and counted; the run continues. Header problems and store failures
// abort the load.
func (l *Loader) LoadEvents(ctx context.Context, path string) (LoadResult, error) {
	result := LoadResult{SourcePath: path}

	f, err := os.Open(path)
	if err != nil {
		return result, adherence.NewStorageError("open input", err)
	}
	defer f.Close()

	cols, records, rowErrs, err := readTable(f, eventColumns, eventRequired)
	if err != nil {
		return result, err
	}

	started := l.now().UTC()
	batchID, err := newBatchID()
	if err != nil {
		return result, err
	}
	result.BatchID = batchID

	events := make([]adherence.AdherenceEvent, 0, len(records))
	lines := make([]int, 0, len(records)) // input line per parsed event
	for _, rec := range records {
		ev, err := parseEvent(cols, rec.fields)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: rec.line, Err: err})
			continue
		}
		events = append(events, ev)
		lines = append(lines, rec.line)
	}

	insert, err := l.writer.InsertEvents(ctx, events, batchID)
	if err != nil {
		return result, err
	}
	for _, ee := range insert.Errors {
		rowErrs = append(rowErrs, RowError{Line: lines[ee.Index], Err: ee.Err})
	}

	result.Inserted = insert.Inserted
	result.Skipped = len(rowErrs)
	result.RowErrors = rowErrs

	batch := adherence.IngestBatch{
		BatchID:    batchID,
		SourcePath: path,
		StartedAt:  started,
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
	}
	if err := l.writer.WriteBatch(ctx, batch); err != nil {
		return result, err
	}

	return result, nil
}

var patientColumns = []string{"patient_id", "age", "gender", "chronic_condition", "registered_at"}
var patientRequired = map[string]bool{"patient_id": true}

// LoadPatients loads a patient dimension CSV. Dimension loads carry no
// batch id - they are idempotent reference data, not audit trail.
func (l *Loader) LoadPatients(ctx context.Context, path string) (LoadResult, error) {
	result := LoadResult{SourcePath: path}

	f, err := os.Open(path)
	if err != nil {
		return result, adherence.NewStorageError("open input", err)
	}
	defer f.Close()

	cols, records, rowErrs, err := readTable(f, patientColumns, patientRequired)
	if err != nil {
		return result, err
	}

	patients := make([]adherence.Patient, 0, len(records))
	lines := make([]int, 0, len(records))
	for _, rec := range records {
		p, err := parsePatient(cols, rec.fields)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: rec.line, Err: err})
			continue
		}
		patients = append(patients, p)
		lines = append(lines, rec.line)
	}

	insert, err := l.writer.WritePatients(ctx, patients)
	if err != nil {
		return result, err
	}
	for _, ee := range insert.Errors {
		rowErrs = append(rowErrs, RowError{Line: lines[ee.Index], Err: ee.Err})
	}

	result.Inserted = insert.Inserted
	result.Skipped = len(rowErrs)
	result.RowErrors = rowErrs
	return result, nil
}

var medicationColumns = []string{"medication_id", "patient_id", "drug_name", "dosage", "prescribed_at"}
var medicationRequired = map[string]bool{
	"medication_id": true,
	"patient_id":    true,
	"drug_name":     true,
}

// LoadMedications loads a medication dimension CSV.
func (l *Loader) LoadMedications(ctx context.Context, path string) (LoadResult, error) {
	result := LoadResult{SourcePath: path}

	f, err := os.Open(path)
	if err != nil {
		return result, adherence.NewStorageError("open input", err)
	}
	defer f.Close()

	cols, records, rowErrs, err := readTable(f, medicationColumns, medicationRequired)
	if err != nil {
		return result, err
	}

	meds := make([]adherence.Medication, 0, len(records))
	lines := make([]int, 0, len(records))
	for _, rec := range records {
		m, err := parseMedication(cols, rec.fields)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: rec.line, Err: err})
			continue
		}
		meds = append(meds, m)
		lines = append(lines, rec.line)
	}

	insert, err := l.writer.WriteMedications(ctx, meds)
	if err != nil {
		return result, err
	}
	for _, ee := range insert.Errors {
		rowErrs = append(rowErrs, RowError{Line: lines[ee.Index], Err: ee.Err})
	}

	result.Inserted = insert.Inserted
	result.Skipped = len(rowErrs)
	result.RowErrors = rowErrs
	return result, nil
}

// record is one raw CSV row with its source line number.
type record struct {
	line   int
	fields []string
}

// readTable reads and validates a CSV table: the header is checked
// against the known schema up front (unknown or missing-required
// columns reject the file), then rows with the wrong field count are
// collected as row errors.
//
// Returns the column-name -> index mapping, the raw data rows, and any
// per-row errors found while reading.
func readTable(r io.Reader, known []string, required map[string]bool) (map[string]int, []record, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width checked per row so one bad row doesn't kill the file

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil, adherence.NewValidationError("input file is empty")
	}
	if err != nil {
		return nil, nil, nil, adherence.NewValidationError(fmt.Sprintf("read header: %v", err))
	}

	knownSet := make(map[string]bool, len(known))
	for _, c := range known {
		knownSet[c] = true
	}

	cols := make(map[string]int, len(header))
	for i, raw := range header {
		name := normalizeHeader(raw)
		if !knownSet[name] {
			return nil, nil, nil, adherence.NewFieldError(name, fmt.Sprintf("unknown column (expected %s)", strings.Join(known, ", ")))
		}
		if _, dup := cols[name]; dup {
			return nil, nil, nil, adherence.NewFieldError(name, "duplicate column")
		}
		cols[name] = i
	}
	for name, req := range required {
		if !req {
			continue
		}
		if _, ok := cols[name]; !ok {
			return nil, nil, nil, adherence.NewFieldError(name, "missing required column")
		}
	}

	var (
		records []record
		rowErrs []RowError
	)
	line := 1 // header was line 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: adherence.NewValidationError(err.Error())})
			continue
		}
		if len(fields) != len(header) {
			rowErrs = append(rowErrs, RowError{
				Line: line,
				Err:  adherence.NewValidationError(fmt.Sprintf("expected %d fields, got %d", len(header), len(fields))),
			})
			continue
		}
		records = append(records, record{line: line, fields: fields})
	}

	return cols, records, rowErrs, nil
}

// normalizeHeader is tolerant of case and surrounding space:
// " Patient ID " matches patient_id.
func normalizeHeader(s string) string {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// field returns the trimmed cell for a column, or "" when the column is
// absent from this file.
func field(cols map[string]int, fields []string, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func parseEvent(cols map[string]int, fields []string) (adherence.AdherenceEvent, error) {
	var ev adherence.AdherenceEvent

	ev.PatientID = field(cols, fields, "patient_id")
	ev.MedicationID = field(cols, fields, "medication_id")
	ev.Source = field(cols, fields, "source")
	if ev.Source == "" {
		ev.Source = "csv"
	}

	scheduled := field(cols, fields, "scheduled_at")
	if scheduled == "" {
		return ev, adherence.NewFieldError("scheduled_at", "is required")
	}
	t, err := adherence.ParseTime(scheduled)
	if err != nil {
		return ev, err
	}
	ev.ScheduledAt = t

	// Blank taken_at means the dose was missed
	if taken := field(cols, fields, "taken_at"); taken != "" {
		tt, err := adherence.ParseTime(taken)
		if err != nil {
			return ev, err
		}
		ev.TakenAt = &tt
	}

	return ev, nil
}

func parsePatient(cols map[string]int, fields []string) (adherence.Patient, error) {
	var p adherence.Patient

	p.PatientID = field(cols, fields, "patient_id")
	p.Gender = field(cols, fields, "gender")
	p.ChronicCondition = field(cols, fields, "chronic_condition")

	if age := field(cols, fields, "age"); age != "" {
		n, err := parseAge(age)
		if err != nil {
			return p, err
		}
		p.Age = n
	}
	if reg := field(cols, fields, "registered_at"); reg != "" {
		t, err := adherence.ParseTime(reg)
		if err != nil {
			return p, err
		}
		p.RegisteredAt = t
	}

	return p, nil
}

func parseMedication(cols map[string]int, fields []string) (adherence.Medication, error) {
	var m adherence.Medication

	m.MedicationID = field(cols, fields, "medication_id")
	m.PatientID = field(cols, fields, "patient_id")
	m.DrugName = field(cols, fields, "drug_name")
	m.Dosage = field(cols, fields, "dosage")

	if pres := field(cols, fields, "prescribed_at"); pres != "" {
		t, err := adherence.ParseTime(pres)
		if err != nil {
			return m, err
		}
		m.PrescribedAt = t
	}

	return m, nil
}

func parseAge(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, adherence.NewFieldError("age", "must be a non-negative whole number, got "+s)
	}
	return n, nil
}

func newBatchID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate batch id: %w", err)
	}
	return id.String(), nil
}
