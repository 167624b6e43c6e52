package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes and the user profile",
	Long:  `Add, reindex, list and remove content that is chunked and embedded for search.`,
}

var noteAddCmd = &cobra.Command{
	Use:   "add [file|-]",
	Short: "Add or replace a note",
	Long: `Stores a note and regenerates its chunks and embeddings.

The body is read from the given file, or from stdin when the argument is
"-" or missing. Re-adding an existing ID replaces its text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNoteAdd,
}

var noteReindexCmd = &cobra.Command{
	Use:   "reindex [id]",
	Short: "Regenerate chunks and embeddings for a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteReindex,
}

var noteRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Remove a note and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteRm,
}

var noteLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored notes",
	Args:  cobra.NoArgs,
	RunE:  runNoteLs,
}

// Flags for note commands.
var (
	noteID     string
	noteTitle  string
	noteType   string
	noteLsType string
)

func init() {
	noteAddCmd.Flags().StringVar(&noteID, "id", "", "note ID (default derived from the file name, or a new UUID)")
	noteAddCmd.Flags().StringVarP(&noteTitle, "title", "t", "", "note title")
	noteAddCmd.Flags().StringVar(&noteType, "type", string(domain.ContentTypeNote), "content type: note or profile")
	noteLsCmd.Flags().StringVar(&noteLsType, "type", "", "only list this content type")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteReindexCmd)
	noteCmd.AddCommand(noteRmCmd)
	noteCmd.AddCommand(noteLsCmd)
	rootCmd.AddCommand(noteCmd)
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	source := "-"
	if len(args) == 1 {
		source = args[0]
	}
	body, err := readBody(cmd, source)
	if err != nil {
		return err
	}

	content := &domain.Content{
		ID:    noteID,
		Type:  domain.ContentType(noteType),
		Title: noteTitle,
		Body:  body,
	}
	if source != "-" {
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		if content.ID == "" {
			content.ID = base
		}
		if content.Title == "" {
			content.Title = base
		}
	}
	if content.ID == "" {
		content.ID = uuid.New().String()
	}
	if err := content.Validate(); err != nil {
		return err
	}

	result, err := contentService.Ingest(cmd.Context(), content)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	printProcessResult(cmd, "Stored", result)
	return nil
}

func runNoteReindex(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	result, err := contentService.Reindex(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to reindex note: %w", err)
	}
	printProcessResult(cmd, "Reindexed", result)
	return nil
}

func runNoteRm(cmd *cobra.Command, args []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	if err := contentService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove note: %w", err)
	}
	cmd.Printf("Removed %s\n", args[0])
	return nil
}

func runNoteLs(cmd *cobra.Command, _ []string) error {
	if contentService == nil {
		return errors.New("content service not configured")
	}

	var types []domain.ContentType
	if noteLsType != "" {
		t := domain.ContentType(noteLsType)
		if !t.IsValid() {
			return domain.NewValidationError("type", "unknown content type "+noteLsType)
		}
		types = []domain.ContentType{t}
	}

	contents, err := contentService.List(cmd.Context(), types)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	if len(contents) == 0 {
		cmd.Println("No notes found.")
		return nil
	}

	for i := range contents {
		title := contents[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %s\n", contents[i].ID)
		cmd.Printf("    Title: %s\n", title)
		cmd.Printf("    Type: %s, Chunks: %d\n", contents[i].Type, len(contents[i].ChunkIDs))
	}
	cmd.Printf("\nTotal: %d\n", len(contents))
	return nil
}

func readBody(cmd *cobra.Command, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", source, err)
	}
	body := string(data)
	if strings.TrimSpace(body) == "" {
		return "", domain.NewValidationError("body", "note body is empty")
	}
	return body, nil
}

func printProcessResult(cmd *cobra.Command, verb string, result *domain.ProcessResult) {
	cmd.Printf("%s %s: %d chunks (%d embedded", verb, result.ParentID, len(result.Chunks), result.Embedded)
	if result.Failed > 0 {
		cmd.Printf(", %d without embedding", result.Failed)
	}
	cmd.Println(")")
}
