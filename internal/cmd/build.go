package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/release"
)

// NewBuildCmd creates the build command.
func NewBuildCmd(g *GlobalConfig) *cobra.Command {
	var flags BuildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Resolve the version and assemble all release bundles",
		Long: `Resolve the version, write the version file, run every module's remap
task and assemble the release bundles.

A failing bundle does not stop the others: only bundles that depend on it
are skipped. The exit code is 8 when any bundle was not written.

Examples:
  # Snapshot build
  modrel build

  # Release build with four parallel tasks
  modrel build --release --workers 4`,
		RunE: func(c *cobra.Command, _ []string) error {
			return exitWith(runBuild(c, g, &flags))
		},
	}

	flags.AddTo(cmd)
	return cmd
}

func runBuild(c *cobra.Command, g *GlobalConfig, flags *BuildFlags) error {
	cfg, err := g.LoadProject()
	if err != nil {
		return err
	}

	opts := release.Options{
		Config:          cfg,
		Release:         flags.Release,
		Workers:         flags.Workers,
		SkipVersionFile: flags.NoVersionFile,
		VCS:             g.VCS,
		Env:             g.Env,
		HookOutput:      c.ErrOrStderr(),
	}

	var report *release.Report
	run := func() error {
		var runErr error
		report, runErr = release.Run(c.Context(), opts)
		return runErr
	}

	if g.Verbose {
		err = run()
	} else {
		err = output.RunWithSpinner(c.Context(), run, output.WithTitle("Building bundles..."))
	}
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	for _, b := range report.Bundles {
		fmt.Fprintln(out, output.FormatBundleLine(b.Name, b.Status))
	}
	if g.Verbose {
		fmt.Fprintln(out, output.RenderBundleTable(report.Rows()))
	}

	if err := report.Err(); err != nil {
		for _, b := range report.Failed() {
			output.BundleLogger(b.Name).Error("bundle not written", "status", b.Status, "err", b.Err)
		}
		return &oerrors.ExitError{Code: report.ExitCode(), Err: err, Printed: true}
	}

	fmt.Fprintln(out, output.FormatCheckmark("Built "+output.StyleNoun.Render(report.Version.String())))
	return nil
}
