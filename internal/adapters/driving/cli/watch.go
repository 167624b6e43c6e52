package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/connectors/filesystem"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

var watchSkipScan bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a directory of notes indexed",
	Long: `Ingests every .md and .txt file under the directory, then watches it and
re-processes files as they change. Deleted files are removed from the index.
Hidden files and directories are ignored. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipScan, "no-scan", false, "skip the initial scan and only index later changes")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	connector := filesystem.New(args[0])
	defer connector.Close()
	ctx := cmd.Context()

	if !watchSkipScan {
		changes, err := connector.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan %s: %w", connector.Root(), err)
		}
		for i := range changes {
			applyChange(ctx, cmd, contentService, changes[i])
		}
		cmd.Printf("Indexed %d notes from %s\n", len(changes), connector.Root())
	}

	changes, err := connector.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", connector.Root(), err)
	}
	cmd.Printf("Watching %s for changes\n", connector.Root())

	for change := range changes {
		applyChange(ctx, cmd, contentService, change)
	}
	return nil
}

// applyChange ingests or removes one note. Failures are reported and the
// watch carries on.
func applyChange(ctx context.Context, cmd *cobra.Command, svc driving.ContentService, change filesystem.Change) {
	switch change.Type {
	case filesystem.ChangeDeleted:
		err := svc.Remove(ctx, change.Content.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("watch: %s was not indexed", change.Content.ID)
		case err != nil:
			cmd.PrintErrf("Error: remove %s: %v\n", change.Path, err)
		default:
			cmd.Printf("  - %s\n", change.Content.ID)
		}
	default:
		result, err := svc.Ingest(ctx, change.Content)
		if err != nil {
			cmd.PrintErrf("Error: index %s: %v\n", change.Path, err)
			return
		}
		cmd.Printf("  + %s (%d chunks", change.Content.ID, len(result.Chunks))
		if result.Failed > 0 {
			cmd.Printf(", %d without embedding", result.Failed)
		}
		cmd.Println(")")
	}
}
