// Package schema validates scene documents against a CUE schema before
// they reach the viewer. It is an upstream gate: the hub never calls it.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/Mr-Dark-debug/vantage/internal/logging"
)

// DefaultSchema is the built-in document schema.
//
//go:embed document.cue
var DefaultSchema []byte

// DefinitionName is the definition documents are checked against.
const DefinitionName = "#Document"

// ErrNotInitialized is reported when Validate runs before Init.
var ErrNotInitialized = errors.New("schema: validator not initialized")

// ValidationError is one schema violation.
type ValidationError struct {
	// InstancePath is a JSON pointer into the document ("" for the root).
	InstancePath string `json:"instancePath"`
	// Keyword classifies the failure: type, required, constraint,
	// additionalProperties, oneOf, syntax or schema.
	Keyword string `json:"keyword"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	path := e.InstancePath
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s [%s] %s", path, e.Keyword, e.Message)
}

// Validator checks documents against a CUE definition. It is safe for
// concurrent use; Errors reports the most recent Validate call.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	ready  bool
	errs   []ValidationError
}

// New returns an uninitialized validator.
func New() *Validator {
	return &Validator{ctx: cuecontext.New()}
}

// NewDefault returns a validator initialized with DefaultSchema.
func NewDefault() (*Validator, error) {
	v := New()
	if err := v.Init(DefaultSchema); err != nil {
		return nil, err
	}
	return v, nil
}

// Init compiles schemaSource, which must define #Document.
func (v *Validator) Init(schemaSource []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	def := val.LookupPath(cue.ParsePath(DefinitionName))
	if !def.Exists() {
		return fmt.Errorf("schema does not define %s", DefinitionName)
	}
	if err := def.Err(); err != nil {
		return fmt.Errorf("building %s: %w", DefinitionName, err)
	}
	v.schema = def
	v.ready = true
	v.errs = nil
	return nil
}

// Validate reports whether doc, a JSON document, satisfies the schema.
// The violations are available from Errors.
func (v *Validator) Validate(doc []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.errs = nil
	if !v.ready {
		v.errs = []ValidationError{{Keyword: "schema", Message: ErrNotInitialized.Error()}}
		return false
	}

	expr, err := cuejson.Extract("document.json", doc)
	if err != nil {
		v.errs = []ValidationError{{Keyword: "syntax", Message: err.Error()}}
		return false
	}
	inst := v.ctx.BuildExpr(expr)
	if err := inst.Err(); err != nil {
		v.errs = convert(err)
		return false
	}

	if err := v.schema.Unify(inst).Validate(cue.Concrete(true)); err != nil {
		v.errs = convert(err)
		logging.For("schema").Debug("document rejected", "errors", len(v.errs))
		return false
	}
	return true
}

// ValidateValue marshals doc to JSON and validates it.
func (v *Validator) ValidateValue(doc any) bool {
	data, err := json.Marshal(doc)
	if err != nil {
		v.mu.Lock()
		v.errs = []ValidationError{{Keyword: "syntax", Message: err.Error()}}
		v.mu.Unlock()
		return false
	}
	return v.Validate(data)
}

// Errors returns the violations of the last Validate call.
func (v *Validator) Errors() []ValidationError {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]ValidationError, len(v.errs))
	copy(out, v.errs)
	return out
}

func convert(err error) []ValidationError {
	seen := make(map[string]bool)
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		ve := ValidationError{
			InstancePath: pointer(e.Path()),
			Keyword:      keyword(msg),
			Message:      msg,
		}
		key := ve.InstancePath + "\x00" + ve.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Keyword: "schema", Message: err.Error()})
	}
	return out
}

// pointer renders a CUE path as a JSON pointer.
func pointer(path []string) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		p = strings.ReplaceAll(p, "~", "~0")
		p = strings.ReplaceAll(p, "/", "~1")
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}

func keyword(msg string) string {
	switch {
	case strings.Contains(msg, "field not allowed"):
		return "additionalProperties"
	case strings.Contains(msg, "incomplete value"):
		return "required"
	case strings.Contains(msg, "empty disjunction"):
		return "oneOf"
	case strings.Contains(msg, "mismatched types"), strings.Contains(msg, "conflicting values"):
		return "type"
	case strings.Contains(msg, "invalid value"), strings.Contains(msg, "out of bound"):
		return "constraint"
	}
	return "schema"
}
