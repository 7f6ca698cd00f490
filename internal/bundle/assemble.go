package bundle

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/opencubicchunks/modrel/internal/manifest"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/registry"
)

// Gate reports whether a predecessor task completed.
type Gate interface {
	Completed(name string) bool
}

// Assembler writes bundles for one resolved version.
type Assembler struct {
	OutputDir string
	BaseName  string
	Version   string
	Settings  manifest.Settings
}

// entry is one gathered archive path. Each bundle owns its entries.
type entry struct {
	path   string
	origin string
	source string
	data   []byte
}

type assembly struct {
	spec     Spec
	log      *log.Logger
	res      *Result
	layered  []*entry
	embedded []*entry
	attrs    *manifest.Attributes
}

// Assemble runs spec through Pending → InputsGathered → ContentFiltered →
// ManifestAttached → Written. Any failure leaves the bundle Failed without a
// file at its final path; sibling bundles are unaffected.
func (a *Assembler) Assemble(ctx context.Context, spec Spec, gate Gate) (*Result, error) {
	as := &assembly{
		spec: spec,
		log:  output.BundleLogger(spec.Name),
		res:  &Result{Name: spec.Name, Kind: spec.Kind, State: Pending},
	}

	steps := []struct {
		to  State
		run func(context.Context) error
	}{
		{InputsGathered, func(ctx context.Context) error { return as.gather(ctx, gate) }},
		{ContentFiltered, func(context.Context) error { return as.filter() }},
		{ManifestAttached, func(context.Context) error { as.attachManifest(a); return nil }},
		{Written, func(ctx context.Context) error { return as.write(ctx, a) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return as.fail(err)
		}
		if err := step.run(ctx); err != nil {
			return as.fail(err)
		}
		as.res.State = step.to
		as.log.Debug("bundle state", "state", step.to)
	}

	as.log.Info("bundle written", "path", as.res.Path, "digest", as.res.Digest, "entries", len(as.res.Entries), "embedded", len(as.res.Embedded))
	return as.res, nil
}

func (as *assembly) fail(err error) (*Result, error) {
	as.res.Reached = as.res.State
	as.res.State = Failed
	wrapped := &AssemblyError{Bundle: as.spec.Name, Kind: as.spec.Kind, Reached: as.res.Reached, Err: err}
	as.res.Err = wrapped
	as.log.Error("bundle failed", "state", as.res.Reached, "err", err)
	return as.res, wrapped
}

// gather checks ordering, then layers inputs and collects embedded archives.
func (as *assembly) gather(ctx context.Context, gate Gate) error {
	var missing []string
	for _, req := range as.spec.Requires {
		if gate == nil || !gate.Completed(req) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &OrderingError{Bundle: as.spec.Name, Missing: missing}
	}

	for _, role := range as.spec.Roles {
		if !slices.ContainsFunc(as.spec.Inputs, func(o *registry.ModuleOutput) bool { return o.Role == role }) {
			return &MissingInputError{Bundle: as.spec.Name, Kind: as.spec.Kind, Role: role}
		}
	}

	byPath := make(map[string]*entry)
	layer := func(e *entry) {
		if prev, ok := byPath[e.path]; ok {
			// Later inputs shadow earlier ones in place.
			*prev = *e
			return
		}
		byPath[e.path] = e
		as.layered = append(as.layered, e)
	}

	for _, out := range as.spec.Inputs {
		unpack := slices.Contains(as.spec.Unpack, out.Role)
		for _, f := range out.Files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if f.Name == manifest.Path {
				continue
			}
			data, err := f.ReadAll()
			if err != nil {
				return fmt.Errorf("module %s: %w", out.ModuleID, err)
			}
			source := out.ModuleID + ":" + f.Name
			if !unpack || !registry.IsArchiveName(f.Name) {
				layer(&entry{path: f.Name, origin: f.Name, source: source, data: data})
				continue
			}

			inner, err := registry.ExpandArchive(f.Name, data)
			if err != nil {
				return fmt.Errorf("module %s: %w", out.ModuleID, err)
			}
			for _, g := range inner {
				if g.Name == manifest.Path {
					continue
				}
				content, err := g.ReadAll()
				if err != nil {
					return fmt.Errorf("module %s: %w", out.ModuleID, err)
				}
				layer(&entry{path: g.Name, origin: g.Name, source: source + "!" + g.Name, data: content})
			}
		}
	}

	byName := make(map[string]*entry)
	for _, out := range as.spec.Embedded {
		for _, f := range out.Files {
			data, err := f.ReadAll()
			if err != nil {
				return fmt.Errorf("module %s: %w", out.ModuleID, err)
			}
			name := path.Base(f.Name)
			e := &entry{path: name, origin: name, source: out.ModuleID + ":" + f.Name, data: data}
			if prev, ok := byName[name]; ok {
				if !bytes.Equal(prev.data, data) {
					return &ConflictError{Path: name, Sources: []string{prev.source, e.source}}
				}
				continue
			}
			byName[name] = e
			as.embedded = append(as.embedded, e)
		}
	}

	if len(as.layered) == 0 && len(as.embedded) == 0 {
		return &MissingInputError{Bundle: as.spec.Name, Kind: as.spec.Kind}
	}
	as.log.Debug("inputs gathered", "layered", len(as.layered), "embedded", len(as.embedded))
	return nil
}

// filter drops excluded entries, then applies relocations.
func (as *assembly) filter() error {
	if err := ValidatePatterns(as.spec.ExcludePatterns); err != nil {
		return err
	}

	before := len(as.layered) + len(as.embedded)
	as.layered = slices.DeleteFunc(as.layered, func(e *entry) bool { return Excluded(as.spec.ExcludePatterns, e.path) })
	as.embedded = slices.DeleteFunc(as.embedded, func(e *entry) bool { return Excluded(as.spec.ExcludePatterns, e.path) })
	as.log.Debug("content filtered", "excluded", before-len(as.layered)-len(as.embedded))

	if len(as.spec.Relocations) > 0 {
		relocated, err := relocate(as.layered, as.spec.Relocations)
		if err != nil {
			return err
		}
		as.layered = relocated
	}

	// Nested archives live at the root beside layered files.
	seen := make(map[string]*entry, len(as.layered))
	for _, e := range as.layered {
		seen[e.path] = e
	}
	for _, e := range as.embedded {
		if prev, ok := seen[e.path]; ok && !bytes.Equal(prev.data, e.data) {
			return &ConflictError{Path: e.path, Sources: []string{prev.source, e.source}}
		}
	}
	as.embedded = slices.DeleteFunc(as.embedded, func(e *entry) bool { _, dup := seen[e.path]; return dup })
	return nil
}

func (as *assembly) attachManifest(a *Assembler) {
	names := make([]string, 0, len(as.embedded))
	for _, e := range as.embedded {
		names = append(names, e.path)
	}

	includesCore := slices.ContainsFunc(as.spec.Inputs, func(o *registry.ModuleOutput) bool {
		return o.Role == registry.RoleCoreLoader
	})

	attrs := manifest.Compose(a.Version, names, includesCore, a.Settings)
	attrs.Merge(as.spec.ManifestAttributes)
	as.attrs = attrs
	as.res.Manifest = attrs
	as.res.Embedded = names
}

func (as *assembly) write(ctx context.Context, a *Assembler) error {
	all := make([]*entry, 0, len(as.layered)+len(as.embedded))
	all = append(all, as.layered...)
	all = append(all, as.embedded...)
	slices.SortFunc(all, func(x, y *entry) int { return strings.Compare(x.path, y.path) })

	dest := filepath.Join(a.OutputDir, FileName(a.BaseName, a.Version, as.spec.Classifier))
	entries, digest, err := writeArchive(ctx, dest, as.attrs, all)
	if err != nil {
		return err
	}
	as.res.Path = dest
	as.res.Entries = entries
	as.res.Digest = digest
	return nil
}

// ValidatePatterns checks that every exclude pattern is a valid doublestar glob.
func ValidatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid exclude pattern %q: %w", pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// Excluded reports whether p, or its lowercased form, matches any pattern.
func Excluded(patterns []string, p string) bool {
	lower := strings.ToLower(p)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, p); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pat, lower); err == nil && ok {
			return true
		}
	}
	return false
}

// relocate rewrites entry paths by the first matching prefix rule. Two
// different origins landing on one path must carry identical bytes.
func relocate(entries []*entry, rules []Relocation) ([]*entry, error) {
	out := make([]*entry, 0, len(entries))
	byPath := make(map[string]*entry, len(entries))
	for _, e := range entries {
		moved := *e
		for _, r := range rules {
			if rest, ok := strings.CutPrefix(e.path, r.From); ok {
				moved.path = r.To + rest
				break
			}
		}
		if prev, ok := byPath[moved.path]; ok {
			if prev.origin != moved.origin && !bytes.Equal(prev.data, moved.data) {
				return nil, &ConflictError{Path: moved.path, Sources: []string{prev.source, moved.source}}
			}
			continue
		}
		byPath[moved.path] = &moved
		out = append(out, &moved)
	}
	return out, nil
}
