package cmd

import (
	"fmt"
	"os"

	"github.com/harrison/esmify/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: discovered in the project root)")
}

// loadConfig loads the file named by --config, or discovers the configuration
// of the project the working directory belongs to
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	cfg, err := config.LoadConfigFromDir(cmd.Context(), root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration esmify would run with, as YAML, after defaults,
the configuration file and CLI flags are merged. The configuration is
validated after printing.

Examples:
  esmify config
  esmify config --use-mjs --output dist/esm`,
		Args: cobra.NoArgs,
		RunE: configCommand,
	}
	addRunFlags(cmd)
	return cmd
}

func configCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overridesFromFlags(cmd))

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# root: %s\n", cfg.Root)
	fmt.Fprintf(out, "# source: %s\n", cfg.Source)
	out.Write(data)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
