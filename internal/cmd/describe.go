package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencubicchunks/modrel/internal/modversion"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/release"
)

// versionView is the structured form of a resolved version.
type versionView struct {
	Version      string `json:"version" yaml:"version"`
	MCVersion    string `json:"mcVersion" yaml:"mcVersion"`
	Kind         string `json:"kind" yaml:"kind"`
	Marker       bool   `json:"marker" yaml:"marker"`
	Major        int    `json:"major" yaml:"major"`
	API          int    `json:"api" yaml:"api"`
	Minor        int    `json:"minor" yaml:"minor"`
	Patch        int    `json:"patch" yaml:"patch"`
	Suffix       string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	BranchSuffix string `json:"branchSuffix,omitempty" yaml:"branchSuffix,omitempty"`
	Snapshot     bool   `json:"snapshot" yaml:"snapshot"`
}

func newVersionView(v modversion.ResolvedVersion) versionView {
	return versionView{
		Version:      v.String(),
		MCVersion:    v.MCVersion,
		Kind:         v.Kind.String(),
		Marker:       v.IsMarker(),
		Major:        v.Major,
		API:          v.API,
		Minor:        v.Minor,
		Patch:        v.Patch,
		Suffix:       v.Suffix,
		BranchSuffix: v.BranchSuffix,
		Snapshot:     v.Snapshot,
	}
}

// NewDescribeCmd creates the describe command.
func NewDescribeCmd(g *GlobalConfig) *cobra.Command {
	var (
		outputFlag OutputFlag
		releaseOpt bool
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the version the next build would use",
		Long: `Resolve the version from git describe output and the current branch
without building anything.

Examples:
  modrel describe
  modrel describe --release -o json`,
		RunE: func(c *cobra.Command, _ []string) error {
			return exitWith(runDescribe(c, g, &outputFlag, releaseOpt))
		},
	}

	outputFlag.AddTo(cmd)
	cmd.Flags().BoolVar(&releaseOpt, "release", false, "Resolve as a release build")
	return cmd
}

func runDescribe(c *cobra.Command, g *GlobalConfig, outputFlag *OutputFlag, releaseOpt bool) error {
	format, err := outputFlag.Parse()
	if err != nil {
		return err
	}
	cfg, err := g.LoadProject()
	if err != nil {
		return err
	}

	v, err := release.ResolveVersion(c.Context(), release.Options{
		Config:  cfg,
		Release: releaseOpt,
		VCS:     g.VCS,
		Env:     g.Env,
	})
	if err != nil {
		return err
	}

	if format == output.FormatText {
		_, err := fmt.Fprintln(c.OutOrStdout(), v.String())
		return err
	}
	return output.WriteStructured(c.OutOrStdout(), format, newVersionView(v))
}
