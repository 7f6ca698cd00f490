package modversion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opencubicchunks/modrel/internal/fsutil"
)

// MCVersionFromForge returns the MC version part of a Forge version
// ("1.12.2-14.23.5.2768" → "1.12.2").
func MCVersionFromForge(forgeVersion string) string {
	mc, _, _ := strings.Cut(forgeVersion, "-")
	return mc
}

// ForgeMinor extracts MINOR from a Forge version shaped MC-MAJOR.MINOR.x.BUILD.
func ForgeMinor(forgeVersion string) (string, error) {
	_, rest, ok := strings.Cut(forgeVersion, "-")
	if ok {
		rest, _, _ = strings.Cut(rest, "-")
		fields := strings.Split(rest, ".")
		if len(fields) > 1 && fields[1] != "" {
			return fields[1], nil
		}
	}
	return "", fmt.Errorf("invalid forge version format: %q", forgeVersion)
}

// ParseFreeze parses a minor-freeze setting. Empty means unset.
func ParseFreeze(s string) (Freeze, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoFreeze, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoFreeze, fmt.Errorf("invalid minor freeze %q: %w", s, err)
	}
	if n < 0 {
		return NoFreeze, nil
	}
	return Freeze{MinorFreeze: n}, nil
}

// VersionFileLine is the single line written to the version file.
func VersionFileLine(v ResolvedVersion) string {
	return "VERSION=" + v.String() + "\n"
}

// WriteVersionFile writes VersionFileLine(v) to path atomically.
func WriteVersionFile(path string, v ResolvedVersion) error {
	if err := fsutil.WriteFile(path, []byte(VersionFileLine(v)), 0o644); err != nil {
		return fmt.Errorf("writing version file %s: %w", path, err)
	}
	return nil
}
