package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opencubicchunks/modrel/internal/config"
	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/fsutil"
	"github.com/opencubicchunks/modrel/internal/output"
)

const definitionHeader = "# modrel project definition\n# Paths are relative to this file.\n\n"

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(g *GlobalConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default project definition",
		Long: `Create modrel.yaml with the standard three-bundle layout.

The file is written to the resolved definition path:
  --config flag > MODREL_CONFIG env > ./modrel.yaml

Examples:
  modrel config init
  modrel config init --force`,
		RunE: func(c *cobra.Command, _ []string) error {
			return exitWith(runConfigInit(c, g, force))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing definition")
	return cmd
}

func runConfigInit(c *cobra.Command, g *GlobalConfig, force bool) error {
	path := g.ConfigPath.Value

	exists, err := config.Exists(path)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return &oerrors.DetailError{
			Type:     "validation failed",
			Message:  "project definition already exists",
			Location: path,
			Hint:     "Use --force to overwrite it.",
			Cause:    oerrors.ErrValidation,
		}
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append([]byte(definitionHeader), data...)

	if err := fsutil.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(c.OutOrStdout(), output.FormatCheckmark("Project definition written to "+output.StyleNoun.Render(path)))
	fmt.Fprintln(c.OutOrStdout(), "Validate with: modrel config vet")
	return nil
}
