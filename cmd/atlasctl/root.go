package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"

	// Register devices so they can be selected by name.
	_ "github.com/gogpu/atlas/backend/native"
	_ "github.com/gogpu/atlas/backend/soft"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "atlasctl",
	Short: "Pack and inspect GPU texture atlases",
	Long: `atlasctl packs images into the layers of a texture atlas, simulates
frame workloads against the atlas eviction policies, and writes atlas
configuration files.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Atlas config file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging routes atlas logs to w when --verbose is set.
func setupLogging(w io.Writer) {
	if !verbose {
		atlas.SetLogger(nil)
		return
	}
	atlas.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

// loadConfig returns the --config file, or the defaults without one.
func loadConfig() (atlas.Config, error) {
	if configPath == "" {
		return atlas.DefaultConfig(), nil
	}
	return atlas.LoadConfig(configPath)
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
