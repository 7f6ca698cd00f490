// Package bundle assembles release archives from registered module outputs.
package bundle

import (
	"fmt"
	"strings"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/manifest"
	"github.com/opencubicchunks/modrel/internal/registry"
)

// Kind is the bundle flavor.
type Kind string

const (
	// KindCoreOnly holds only the early-loaded core-loader classes.
	KindCoreOnly Kind = "core-only"
	// KindFullEmbed layers a core-only archive and nests dependency archives.
	KindFullEmbed Kind = "full-embed"
	// KindShadedRelocated relocates layered classes and nests dependency archives.
	KindShadedRelocated Kind = "shaded-relocated"
)

// Kinds lists the bundle kinds.
var Kinds = []Kind{KindCoreOnly, KindFullEmbed, KindShadedRelocated}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindCoreOnly, KindFullEmbed, KindShadedRelocated:
		return true
	default:
		return false
	}
}

// State is the assembly state of one bundle.
type State int

const (
	Pending State = iota
	InputsGathered
	ContentFiltered
	ManifestAttached
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InputsGathered:
		return "inputs-gathered"
	case ContentFiltered:
		return "content-filtered"
	case ManifestAttached:
		return "manifest-attached"
	case Written:
		return "written"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Relocation moves every layered path starting with From under To.
type Relocation struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Spec describes one bundle. It is built fresh per build and consumed once.
type Spec struct {
	Name       string
	Kind       Kind
	Classifier string

	// Inputs are layered in order; later files shadow earlier ones.
	Inputs []*registry.ModuleOutput
	// Embedded outputs are nested whole at the archive root.
	Embedded []*registry.ModuleOutput
	// Roles must each be supplied by at least one input.
	Roles []registry.Role
	// Unpack lists input roles whose .jar/.zip files are layered as their
	// entries instead of as one file.
	Unpack []registry.Role

	ManifestAttributes map[string]string
	ExcludePatterns    []string
	Relocations        []Relocation

	// Requires names tasks that must have completed before assembly.
	Requires []string
}

// FileName returns "<base>-<version>[-<classifier>].jar".
func FileName(base, version, classifier string) string {
	parts := []string{base, version}
	if classifier != "" {
		parts = append(parts, classifier)
	}
	return strings.Join(parts, "-") + ".jar"
}

// Result is the outcome of one Assemble call.
type Result struct {
	Name  string
	Kind  Kind
	State State
	// Reached is the last state before Failed.
	Reached  State
	Path     string
	// Digest is "sha256:<hex>" over the written archive bytes.
	Digest   string
	Entries  []string
	Embedded []string
	Manifest *manifest.Attributes
	Err      error
}

// AssemblyError reports a failed bundle. It matches ErrBundle and the cause.
type AssemblyError struct {
	Bundle  string
	Kind    Kind
	Reached State
	Err     error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("bundle %s (%s) failed after %s: %v", e.Bundle, e.Kind, e.Reached, e.Err)
}

func (e *AssemblyError) Unwrap() []error {
	return []error{oerrors.ErrBundle, e.Err}
}

// OrderingError reports assembly attempted before its predecessors completed.
type OrderingError struct {
	Bundle  string
	Missing []string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("bundle %s started before %s completed", e.Bundle, strings.Join(e.Missing, ", "))
}

func (e *OrderingError) Unwrap() error { return oerrors.ErrOrdering }

// MissingInputError reports a bundle with no files for a required role.
type MissingInputError struct {
	Bundle string
	Kind   Kind
	Role   registry.Role
}

func (e *MissingInputError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("bundle %s (%s) has no input files", e.Bundle, e.Kind)
	}
	return fmt.Sprintf("bundle %s (%s) is missing required input role %s", e.Bundle, e.Kind, e.Role)
}

func (e *MissingInputError) Unwrap() error { return oerrors.ErrNotFound }

// ConflictError reports two sources claiming one archive path with different content.
type ConflictError struct {
	Path    string
	Sources []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting content for %s from %s", e.Path, strings.Join(e.Sources, " and "))
}

func (e *ConflictError) Unwrap() error { return oerrors.ErrConflict }
