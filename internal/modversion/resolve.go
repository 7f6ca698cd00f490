package modversion

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/output"
)

const (
	// DetachedHead is the branch name VCS tooling reports for a detached HEAD.
	DetachedHead = "HEAD"
	// DefaultBranch never contributes a branch suffix.
	DefaultBranch = "master"
	// PlatformBranchPrefix starts branches that target one MC version.
	PlatformBranchPrefix = "MC_"

	remotePrefix = "origin/"
)

// BranchEnvVars are consulted in order when HEAD is detached
// (Travis, Jenkins, Jenkins multibranch).
var BranchEnvVars = []string{"TRAVIS_BRANCH", "GIT_BRANCH", "BRANCH_NAME"}

var (
	tagPattern   = regexp.MustCompile(`^v([0-9]+)\.([0-9]+)$`)
	countPattern = regexp.MustCompile(`^[0-9]+$`)
	unsafeInSlug = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// Inputs are everything Resolve reads. Resolve is a pure function of them.
type Inputs struct {
	// Describe is the `git describe --tags` output.
	Describe string
	// VCSErr is set when the describe or branch query failed.
	VCSErr error
	// Branch is the current branch, or DetachedHead.
	Branch string
	Freeze Freeze
	// Release drops the -SNAPSHOT suffix.
	Release   bool
	MCVersion string
	// Suffix is appended after the numeric part (e.g. "-beta").
	Suffix string
	// Env looks up CI branch hints. Nil means os.Getenv.
	Env func(string) string
	// Logger receives warnings. Nil means the global logger.
	Logger *log.Logger
}

// Resolve derives the version. The only error is an ambiguous detached HEAD;
// VCS failures and malformed describe output yield marker versions instead.
func Resolve(in Inputs) (ResolvedVersion, error) {
	logger := in.Logger
	if logger == nil {
		logger = output.Logger()
	}

	if in.VCSErr != nil {
		logger.Error("no usable VCS information, using placeholder version", "err", in.VCSErr)
		return ResolvedVersion{MCVersion: in.MCVersion, Kind: KindNoVersion}, nil
	}

	branch, err := ResolveBranch(in.Branch, in.Env)
	if err != nil {
		return ResolvedVersion{}, err
	}

	if want, mismatch := PlatformMismatch(branch, in.MCVersion); mismatch {
		logger.Warn("branch MC version differs from project MC version",
			"mcVersion", in.MCVersion, "branch", branch, "branchVersion", want)
	}

	v := ResolvedVersion{
		MCVersion:    in.MCVersion,
		Suffix:       in.Suffix,
		BranchSuffix: BranchSuffix(branch),
		Snapshot:     !in.Release,
	}

	info, ok := ParseDescribe(in.Describe)
	if !ok {
		logger.Error("describe output in unknown or incorrect format", "describe", in.Describe)
		v.Kind = KindUnknown
		return v, nil
	}

	v.Base = strings.TrimPrefix(info.Tag, "v")
	v.Major, v.API = info.Major, info.API
	if info.Bare {
		return v, nil
	}

	v.Minor, v.Patch = applyFreeze(info.CommitsSinceTag, in.Freeze)
	if v.Patch < 0 {
		logger.Warn("commit count is below the minor freeze, patch is negative",
			"commits", info.CommitsSinceTag, "freeze", in.Freeze.MinorFreeze)
	}
	return v, nil
}

// ResolveBranch turns the VCS branch into the build branch, consulting
// BranchEnvVars for a detached HEAD and stripping a leading "origin/".
func ResolveBranch(branch string, env func(string) string) (string, error) {
	if env == nil {
		env = os.Getenv
	}

	if branch == DetachedHead {
		branch = ""
		for _, name := range BranchEnvVars {
			if v := env(name); v != "" {
				branch = v
				break
			}
		}
		if branch == "" {
			return "", oerrors.NewAmbiguousBranchError(BranchEnvVars)
		}
	}

	return strings.TrimPrefix(branch, remotePrefix), nil
}

// PlatformMismatch reports the MC version named by an MC_ branch when it
// differs from mcVersion.
func PlatformMismatch(branch, mcVersion string) (string, bool) {
	named, ok := strings.CutPrefix(branch, PlatformBranchPrefix)
	if !ok {
		return "", false
	}
	return named, named != mcVersion
}

// BranchSuffix is empty for the default and MC_ branches, else "-" plus the
// branch name with characters outside [a-zA-Z0-9.-] replaced by "_".
func BranchSuffix(branch string) string {
	if branch == DefaultBranch || strings.HasPrefix(branch, PlatformBranchPrefix) {
		return ""
	}
	return "-" + unsafeInSlug.ReplaceAllString(branch, "_")
}

// DescribeInfo is a parsed describe string.
type DescribeInfo struct {
	Tag             string
	Major           int
	API             int
	CommitsSinceTag int
	ShortHash       string
	// Bare is set when HEAD is exactly on the tag.
	Bare bool
}

// ParseDescribe parses "vX.Y" or "vX.Y-N-gHASH".
func ParseDescribe(describe string) (DescribeInfo, bool) {
	parts := strings.Split(describe, "-")

	m := tagPattern.FindStringSubmatch(parts[0])
	if m == nil {
		return DescribeInfo{}, false
	}
	major, err1 := strconv.Atoi(m[1])
	api, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return DescribeInfo{}, false
	}
	info := DescribeInfo{Tag: parts[0], Major: major, API: api}

	if len(parts) == 1 {
		info.Bare = true
		return info, true
	}

	if !countPattern.MatchString(parts[1]) {
		return DescribeInfo{}, false
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return DescribeInfo{}, false
	}
	info.CommitsSinceTag = count
	if len(parts) > 2 {
		info.ShortHash = strings.TrimPrefix(parts[2], "g")
	}
	return info, true
}

// applyFreeze maps the commit count to (minor, patch). With a freeze set the
// minor number is the freeze and patch counts commits past it, which is
// negative below the freeze.
func applyFreeze(commits int, f Freeze) (minor, patch int) {
	if !f.IsSet() {
		return commits, 0
	}
	return f.MinorFreeze, commits - f.MinorFreeze
}
