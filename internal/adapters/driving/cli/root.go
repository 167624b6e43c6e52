// Package cli provides the mnemo command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose bool
	dataDir string
)

// Services used by commands. They are populated by initServices before a
// command runs, or injected directly in tests.
var (
	settingsService driving.SettingsService
	contentService  driving.ContentService
	memoryService   driving.MemoryService
)

// initServices builds the services a command needs. Replaced in tests.
var initServices = wireServices

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Tiered conversation memory and semantic notes",
	Long: `mnemo keeps long conversations within a bounded context by folding old
turns into summaries, and makes notes searchable by meaning.

Data and configuration live in ~/.mnemo unless --data-dir is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for config, prompts and data (default ~/.mnemo)")
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases all services afterwards.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}
