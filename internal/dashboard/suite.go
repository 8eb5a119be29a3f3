package dashboard

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

//go:embed schema.cue
var schemaCUE string

// DefaultWindow applies when a suite omits its window: weekly buckets.
const DefaultWindow = 168 * time.Hour

// ChartSpec names one chart in a suite. Medication applies to bucket
// charts only; "all" (or omitting it) means no medication filter.
type ChartSpec struct {
	Type       string `yaml:"type" json:"type"`
	Medication string `yaml:"medication,omitempty" json:"medication,omitempty"`
}

// MedicationFilter translates the suite notation to a store filter:
// "all" and "" both mean unfiltered.
func (c ChartSpec) MedicationFilter() string {
	if c.Medication == "all" {
		return ""
	}
	return c.Medication
}

// suiteFile is the raw YAML shape, schema-validated before any field is
// interpreted.
type suiteFile struct {
	Suite  string `yaml:"suite" json:"suite"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	Range  struct {
		Start string `yaml:"start" json:"start"`
		End   string `yaml:"end" json:"end"`
	} `yaml:"range" json:"range"`
	Window string      `yaml:"window,omitempty" json:"window,omitempty"`
	Charts []ChartSpec `yaml:"charts" json:"charts"`
}

// Suite is a parsed, validated chart suite ready to execute.
type Suite struct {
	Name   string
	Output string
	Range  adherence.DateRange
	Window time.Duration
	Charts []ChartSpec
}

// Load reads, schema-validates, and parses a suite file. Violations are
// ValidationError carrying the suite path and offending field.
func Load(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, adherence.NewStorageError("read suite", err)
	}
	return Parse(path, data)
}

// Parse validates and parses suite file contents. path is used only in
// error messages.
func Parse(path string, data []byte) (Suite, error) {
	var raw suiteFile

	// Strict decode: unknown keys are schema errors, not silence
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return Suite{}, adherence.NewValidationError(fmt.Sprintf("%s: %v", path, err))
	}

	if err := validateSchema(path, raw); err != nil {
		return Suite{}, err
	}

	suite := Suite{
		Name:   raw.Suite,
		Output: raw.Output,
		Window: DefaultWindow,
		Charts: raw.Charts,
	}

	if raw.Window != "" {
		w, err := time.ParseDuration(raw.Window)
		if err != nil {
			return Suite{}, adherence.NewFieldError("window", fmt.Sprintf("%s: %v", path, err))
		}
		if w <= 0 {
			return Suite{}, adherence.NewFieldError("window", path+": must be positive")
		}
		suite.Window = w
	}

	start, err := adherence.ParseTime(raw.Range.Start)
	if err != nil {
		return Suite{}, adherence.NewFieldError("range.start", fmt.Sprintf("%s: %v", path, err))
	}
	end, err := adherence.ParseTime(raw.Range.End)
	if err != nil {
		return Suite{}, adherence.NewFieldError("range.end", fmt.Sprintf("%s: %v", path, err))
	}
	if !end.After(start) {
		return Suite{}, adherence.NewFieldError("range", path+": end must be after start")
	}
	suite.Range = adherence.DateRange{Start: start, End: end}

	return suite, nil
}

// validateSchema unifies the suite document with the embedded CUE schema.
// The YAML has already strict-decoded, so the document is re-encoded to
// JSON for CUE; field names survive via matching json tags.
func validateSchema(path string, raw suiteFile) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode suite for validation: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile suite schema: %w", err)
	}

	expr, err := cuejson.Extract(path, doc)
	if err != nil {
		return adherence.NewValidationError(fmt.Sprintf("%s: %v", path, err))
	}
	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return adherence.NewValidationError(fmt.Sprintf("%s: %v", path, err))
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return adherence.NewValidationError(fmt.Sprintf("%s: %v", path, err))
	}
	return nil
}
