// Package modversion derives the mod version string from VCS describe output
// and the current branch.
//
// Versions follow the Forge convention MCVERSION-MAJORMOD.MAJORAPI.MINOR.PATCH:
// the tag supplies MAJORMOD.MAJORAPI, the commit count since the tag supplies
// MINOR, or PATCH counted from the freeze once the minor number is frozen.
package modversion

import (
	"fmt"
	"strings"
)

// Kind distinguishes real versions from the two marker versions.
type Kind int

const (
	// KindResolved is a version derived from a well-formed describe string.
	KindResolved Kind = iota
	// KindUnknown marks a describe string that could not be parsed.
	KindUnknown
	// KindNoVersion marks a build without usable VCS information.
	KindNoVersion
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindUnknown:
		return "unknown"
	case KindNoVersion:
		return "noversion"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const (
	unknownMarker   = "UNKNOWN_VERSION"
	noVersionMarker = "9999.9999.9999NOVERSION"
	snapshotSuffix  = "-SNAPSHOT"
)

// ResolvedVersion is the immutable result of Resolve.
type ResolvedVersion struct {
	MCVersion string
	// Base is the tag text after "v", rendered as written ("01.2" stays "01.2").
	Base         string
	Major        int
	API          int
	Minor        int
	Patch        int
	Suffix       string
	BranchSuffix string
	Snapshot     bool
	Kind         Kind
}

// String renders the version.
func (v ResolvedVersion) String() string {
	var b strings.Builder
	b.WriteString(v.MCVersion)
	b.WriteByte('-')

	switch v.Kind {
	case KindNoVersion:
		b.WriteString(noVersionMarker)
		return b.String()
	case KindUnknown:
		b.WriteString(unknownMarker)
	default:
		base := v.Base
		if base == "" {
			base = fmt.Sprintf("%d.%d", v.Major, v.API)
		}
		fmt.Fprintf(&b, "%s.%d.%d", base, v.Minor, v.Patch)
	}

	b.WriteString(v.Suffix)
	b.WriteString(v.BranchSuffix)
	if v.Snapshot {
		b.WriteString(snapshotSuffix)
	}
	return b.String()
}

// IsMarker reports whether v is one of the UNKNOWN_VERSION or NOVERSION markers.
func (v ResolvedVersion) IsMarker() bool {
	return v.Kind != KindResolved
}

// Freeze holds the optional minor-version freeze. A negative MinorFreeze
// means unset.
type Freeze struct {
	MinorFreeze int
}

// NoFreeze is the unset freeze.
var NoFreeze = Freeze{MinorFreeze: -1}

// IsSet reports whether a freeze is configured.
func (f Freeze) IsSet() bool {
	return f.MinorFreeze >= 0
}
