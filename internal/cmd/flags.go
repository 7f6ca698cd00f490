package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/output"
)

// BuildFlags holds the flags of the build command.
type BuildFlags struct {
	Release       bool
	Workers       int
	NoVersionFile bool
}

// AddTo registers the build flags on the given cobra command.
func (f *BuildFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.Release, "release", false,
		"Release build: drop the -SNAPSHOT suffix (env: MODREL_RELEASE)")
	cmd.Flags().IntVar(&f.Workers, "workers", 0,
		"Parallel tasks (default: workers from the definition, else CPU count)")
	cmd.Flags().BoolVar(&f.NoVersionFile, "no-version-file", false,
		"Do not write the version file")
}

// OutputFlag holds the -o flag of commands with structured output.
type OutputFlag struct {
	Format string
}

// AddTo registers the output flag on the given cobra command.
func (f *OutputFlag) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Format, "output", "o", "text",
		fmt.Sprintf("Output format: %s", strings.Join(output.ValidFormats(), ", ")))
}

// Parse validates the flag value.
func (f *OutputFlag) Parse() (output.OutputFormat, error) {
	format := output.ParseOutputFormat(f.Format)
	if !format.IsValid() {
		return "", oerrors.NewValidationError(
			fmt.Sprintf("unknown output format %q", f.Format), "", "output",
			"Use one of: "+strings.Join(output.ValidFormats(), ", "))
	}
	return format, nil
}
