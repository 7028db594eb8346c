package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
)

var configOut string

func init() {
	cmd := newConfigCmd()
	cmd.Flags().StringVarP(&configOut, "out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Write an atlas configuration file",
		Long: `The config command writes the default atlas configuration as TOML.
With --config, the loaded and validated file is written back instead.

Example:
  atlasctl config > atlas.toml
  atlasctl config --config atlas.toml -o normalized.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if configOut == "" {
				return runConfig(cmd.OutOrStdout(), cfg)
			}
			return writeConfigFile(configOut, cfg)
		},
	}
}

func runConfig(w io.Writer, cfg atlas.Config) error {
	return cfg.WriteTOML(w)
}

func writeConfigFile(path string, cfg atlas.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := runConfig(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
