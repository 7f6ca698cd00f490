// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opencubicchunks/modrel/internal/config"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/release"
)

// GlobalConfig holds CLI-wide settings resolved during PersistentPreRunE and
// is passed explicitly into every sub-command constructor.
type GlobalConfig struct {
	ConfigFlag string
	Dir        string
	Verbose    bool
	Timestamps bool

	// ConfigPath is the resolved project definition path.
	ConfigPath config.ResolvedValue

	// VCS and Env default to git and the process environment.
	VCS release.Querier
	Env func(string) string
}

// NewRootCmd creates the root command for the modrel CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&GlobalConfig{})
}

func newRootCmd(g *GlobalConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modrel",
		Short: "Mod versioning and release bundle builder",
		Long: `modrel derives the mod version from git and assembles the release
bundles (core-only, full-embed, shaded-relocated) from module build outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.initialize(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.ConfigFlag, "config", "", "Path to the project definition (env: MODREL_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&g.Dir, "dir", "C", "", "Run as if started in this directory")
	rootCmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&g.Timestamps, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewBuildCmd(g))
	rootCmd.AddCommand(NewDescribeCmd(g))
	rootCmd.AddCommand(NewPlanCmd(g))
	rootCmd.AddCommand(NewConfigCmd(g))
	rootCmd.AddCommand(NewVersionCmd(g))

	return rootCmd
}

// initialize sets up logging and resolves the definition path. The file
// itself is loaded by the commands that need it.
func (g *GlobalConfig) initialize(cmd *cobra.Command) error {
	logCfg := output.LogConfig{Verbose: g.Verbose}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(g.Timestamps)
	}
	output.SetupLogging(logCfg)

	resolved, err := config.ResolveConfigPath(config.ResolveConfigPathOptions{
		FlagValue: g.ConfigFlag,
		Dir:       g.Dir,
	})
	if err != nil {
		return exitWith(err)
	}
	g.ConfigPath = resolved

	output.Debug("initializing CLI", "config", resolved.Value, "source", resolved.Source, "dir", g.Dir)
	return nil
}

// LoadProject loads the definition at ConfigPath, applies defaults and
// validates it.
func (g *GlobalConfig) LoadProject() (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(g.ConfigPath.Value)
	if err != nil {
		return nil, err
	}
	config.LogResolvedValues(append([]config.ResolvedValue{g.ConfigPath}, loader.Resolved()...))

	validator, err := config.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
