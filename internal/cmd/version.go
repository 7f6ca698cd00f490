package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *GlobalConfig) *cobra.Command {
	var outputFlag OutputFlag

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show modrel version information.

Displays:
  - modrel version, commit, and build date
  - Go and CUE SDK versions`,
		RunE: func(c *cobra.Command, _ []string) error {
			format, err := outputFlag.Parse()
			if err != nil {
				return exitWith(err)
			}
			info := version.Get()
			if format == output.FormatText {
				_, err = fmt.Fprintln(c.OutOrStdout(), info.String())
				return err
			}
			return exitWith(output.WriteStructured(c.OutOrStdout(), format, info))
		},
	}

	outputFlag.AddTo(cmd)
	return cmd
}
