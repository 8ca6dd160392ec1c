package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/randimage/internal/config"
	"github.com/mrsinham/randimage/internal/pipeline"
)

const defaultConfigPath = "randimage.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the YAML configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		created, err := config.InitFile(path)
		if err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrIO, err)
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", path)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (file, then RANDIMAGE_* variables)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return usageError(err)
		}
		if cfg.Server.Token != "" {
			cfg.Server.Token = "********"
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
