package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencubicchunks/modrel/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd(g *GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate the project definition",
		Long: `Validate the project definition.

Checks performed:
  1. The file exists at the resolved path
  2. It decodes as YAML with only known fields
  3. It satisfies the embedded CUE schema
  4. Module ids and bundle names are unique and every layer/after
     reference names a bundle`,
		RunE: func(c *cobra.Command, _ []string) error {
			return exitWith(runConfigVet(c, g))
		},
	}
}

func runConfigVet(c *cobra.Command, g *GlobalConfig) error {
	output.Debug("validating config", "path", g.ConfigPath.Value, "source", g.ConfigPath.Source)

	cfg, err := g.LoadProject()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.OutOrStdout(), output.FormatCheckmark(fmt.Sprintf("Project definition is valid: %s (%d modules, %d bundles)",
		g.ConfigPath.Value, len(cfg.Modules), len(cfg.Bundles))))
	return nil
}
