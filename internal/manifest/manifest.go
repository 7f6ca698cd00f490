// Package manifest composes the loader metadata attached to each bundle and
// serializes it as a JAR manifest.
package manifest

import (
	"slices"
	"strings"
)

// Attribute keys recognized by the mod loader.
const (
	KeyManifestVersion   = "Manifest-Version"
	KeyAccessTransformer = "FMLAT"
	KeyCorePlugin        = "FMLCorePlugin"
	KeyTweakClass        = "TweakClass"
	KeyTweakOrder        = "TweakOrder"
	KeyForceLoadAsMod    = "ForceLoadAsMod"
	KeyContainedDeps     = "ContainedDeps"
	KeyMavenVersion      = "Maven-Version"
)

// provenanceQualifier ends every Maven-Version value.
const provenanceQualifier = "core"

// Settings are the project-wide inputs to Compose.
type Settings struct {
	Group             string
	ArchivesBaseName  string
	AccessTransformer string
	CorePlugin        string
	TweakClass        string
	TweakOrder        string
	ForceLoadAsMod    bool
}

// Attribute is one manifest key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// Attributes is an ordered attribute map. The zero value is empty and usable.
type Attributes struct {
	entries []Attribute
	index   map[string]int
}

// Set adds key or replaces its value in place.
func (a *Attributes) Set(key, value string) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[key]; ok {
		a.entries[i].Value = value
		return
	}
	a.index[key] = len(a.entries)
	a.entries = append(a.entries, Attribute{Key: key, Value: value})
}

// Get returns the value for key.
func (a *Attributes) Get(key string) (string, bool) {
	i, ok := a.index[key]
	if !ok {
		return "", false
	}
	return a.entries[i].Value, true
}

// Has reports whether key is present.
func (a *Attributes) Has(key string) bool {
	_, ok := a.index[key]
	return ok
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the attributes in insertion order.
func (a *Attributes) Entries() []Attribute {
	return append([]Attribute(nil), a.entries...)
}

// Map returns the attributes as a plain map.
func (a *Attributes) Map() map[string]string {
	m := make(map[string]string, len(a.entries))
	for _, e := range a.entries {
		m[e.Key] = e.Value
	}
	return m
}

// Merge applies overrides in sorted key order. Overrides win over existing values.
func (a *Attributes) Merge(overrides map[string]string) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		a.Set(k, overrides[k])
	}
}

// Compose builds the attributes for one bundle. The core plugin pointer is
// only present when the bundle includes the core-loader role.
func Compose(version string, embeddedNames []string, includesCoreLoader bool, s Settings) *Attributes {
	a := &Attributes{}
	a.Set(KeyAccessTransformer, s.AccessTransformer)
	if includesCoreLoader {
		a.Set(KeyCorePlugin, s.CorePlugin)
	}
	a.Set(KeyTweakClass, s.TweakClass)
	a.Set(KeyTweakOrder, s.TweakOrder)
	a.Set(KeyForceLoadAsMod, boolString(s.ForceLoadAsMod))
	a.Set(KeyContainedDeps, strings.Join(embeddedNames, " "))
	a.Set(KeyMavenVersion, strings.Join([]string{s.Group, s.ArchivesBaseName, version, provenanceQualifier}, ":"))
	return a
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
