package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/aicommit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the configuration after environment variables and .env files are
merged. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// ConfigResult is the response for the config command.
type ConfigResult struct {
	Entries   []config.Entry `json:"entries"`
	EnvFiles  []string       `json:"env_files"`
	ConfigDir string         `json:"config_dir"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}

	res := ConfigResult{
		Entries:   a.cfg.Entries(),
		EnvFiles:  a.envFiles,
		ConfigDir: config.ConfigDir(),
	}
	if res.EnvFiles == nil {
		res.EnvFiles = []string{}
	}
	return output(res, func() string { return formatEntries(res.Entries, res.EnvFiles) })
}
