package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/bmatcuk/doublestar/v4"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/modversion"
	"github.com/opencubicchunks/modrel/internal/registry"
)

//go:embed schema.cue
var schemaSource []byte

// ValidationError is one problem found in a project definition.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Unwrap lets errors.Is match ErrValidation.
func (e ValidationErrors) Unwrap() error {
	return oerrors.ErrValidation
}

// Validator checks definitions against the embedded CUE schema and the
// cross-references the schema cannot express.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	project := schema.LookupPath(cue.ParsePath("#Project"))
	if !project.Exists() {
		return nil, fmt.Errorf("schema has no #Project definition")
	}

	return &Validator{ctx: ctx, schema: project}, nil
}

// Validate returns ValidationErrors, or nil when cfg is valid.
func (v *Validator) Validate(cfg *Config) error {
	errs := v.validateSchema(cfg)
	errs = append(errs, validateSemantics(cfg)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateFile loads and validates the definition at path.
func (v *Validator) ValidateFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("checking config file: %w", err)
	}
	cfg, err := NewLoader().Load(path)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (v *Validator) validateSchema(cfg *Config) ValidationErrors {
	doc := v.ctx.Encode(cfg)
	if doc.Err() != nil {
		return ValidationErrors{{Field: "(root)", Message: doc.Err().Error()}}
	}

	unified := v.schema.Unify(doc)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	// A failed disjunction reports once per branch; keep the first per field.
	var errs ValidationErrors
	seen := map[string]bool{}
	for _, e := range cueerrors.Errors(err) {
		field := schemaField(e.Path())
		if seen[field] {
			continue
		}
		seen[field] = true
		format, args := e.Msg()
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	return errs
}

// schemaField joins a CUE error path, dropping the leading definition
// selectors so fields read as they appear in the definition file.
func schemaField(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	if len(path) == 0 {
		return "(root)"
	}
	return strings.Join(path, ".")
}

func validateSemantics(cfg *Config) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.MCVersion == "" && cfg.ForgeVersion == "" {
		add("mcVersion", "one of mcVersion or forgeVersion is required")
	}
	if cfg.ForgeVersion != "" {
		if _, err := modversion.ForgeMinor(cfg.ForgeVersion); err != nil {
			add("forgeVersion", "%v", err)
		}
	}
	if _, err := modversion.ParseFreeze(cfg.VersionMinorFreeze); err != nil {
		add("versionMinorFreeze", "%v", err)
	}

	moduleIDs := map[string]bool{}
	for i, m := range cfg.Modules {
		field := fmt.Sprintf("modules[%d]", i)
		if moduleIDs[m.ID] {
			add(field+".id", "duplicate module id %q", m.ID)
		}
		moduleIDs[m.ID] = true

		roles := map[string]bool{}
		for j, o := range m.Outputs {
			if roles[o.Role] {
				add(fmt.Sprintf("%s.outputs[%d].role", field, j), "module %q fills role %q twice", m.ID, o.Role)
			}
			roles[o.Role] = true
			if !registry.Role(o.Role).IsValid() {
				add(fmt.Sprintf("%s.outputs[%d].role", field, j), "unknown role %q", o.Role)
			}
		}
		if m.Remap != nil && m.Remap.Run != "" && m.Remap.Script != "" {
			add(field+".remap", "set either run or script, not both")
		}
	}

	names := map[string]bool{}
	for _, b := range cfg.Bundles {
		names[b.Name] = true
	}
	seen := map[string]bool{}
	for i, b := range cfg.Bundles {
		field := fmt.Sprintf("bundles[%d]", i)
		if seen[b.Name] {
			add(field+".name", "duplicate bundle name %q", b.Name)
		}
		seen[b.Name] = true

		if len(b.Roles) == 0 && b.Layer == "" {
			add(field, "bundle %q has no inputs: set roles or layer", b.Name)
		}
		for j, r := range b.Unpack {
			if !slices.Contains(b.Roles, r) {
				add(fmt.Sprintf("%s.unpack[%d]", field, j), "role %q is not one of the bundle roles", r)
			}
		}
		if b.Layer != "" {
			switch {
			case b.Layer == b.Name:
				add(field+".layer", "bundle %q cannot layer itself", b.Name)
			case !names[b.Layer]:
				add(field+".layer", "unknown bundle %q", b.Layer)
			}
		}
		for _, a := range b.After {
			if !names[a] {
				add(field+".after", "unknown bundle %q", a)
			}
		}
		if len(b.Relocate) > 0 && b.Kind != "shaded-relocated" {
			add(field+".relocate", "relocations require kind shaded-relocated")
		}
		for j, p := range b.Exclude {
			if !doublestar.ValidatePattern(p) {
				add(fmt.Sprintf("%s.exclude[%d]", field, j), "invalid pattern %q", p)
			}
		}
	}

	return errs
}
