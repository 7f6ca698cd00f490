package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/release"
)

// NewPlanCmd creates the plan command.
func NewPlanCmd(g *GlobalConfig) *cobra.Command {
	var outputFlag OutputFlag

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the build tasks in execution order",
		Long: `Print the remap and bundle tasks of a build in the order they would
run, with their predecessors. Nothing is built.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return exitWith(runPlan(c, g, &outputFlag))
		},
	}

	outputFlag.AddTo(cmd)
	return cmd
}

func runPlan(c *cobra.Command, g *GlobalConfig, outputFlag *OutputFlag) error {
	format, err := outputFlag.Parse()
	if err != nil {
		return err
	}
	cfg, err := g.LoadProject()
	if err != nil {
		return err
	}

	planned, err := release.Plan(cfg)
	if err != nil {
		return err
	}

	if format != output.FormatText {
		return output.WriteStructured(c.OutOrStdout(), format, planned)
	}

	t := output.NewTable("TASK", "AFTER", "FILE")
	for _, p := range planned {
		t.Row(p.Name, strings.Join(p.After, ", "), p.File)
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), t.String())
	return err
}
