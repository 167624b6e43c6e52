package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// snippetLength bounds the chunk text shown per result.
const snippetLength = 160

var (
	searchLimit    int
	searchType     string
	searchMinScore float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search notes by meaning",
	Long: `Embeds the query and ranks stored chunks by cosine similarity.
Requires a configured embedding provider; chunks without an embedding are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "only search this content type (note or profile)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this similarity")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if contentService == nil {
		return errors.New("content service not configured")
	}

	opts := domain.SearchOptions{
		Limit:    searchLimit,
		MinScore: searchMinScore,
	}
	if searchType != "" {
		t := domain.ContentType(searchType)
		if !t.IsValid() {
			return domain.NewValidationError("type", "unknown content type "+searchType)
		}
		opts.Types = []domain.ContentType{t}
	}

	results, err := contentService.Search(cmd.Context(), query, opts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return fmt.Errorf("search failed: %w. Run 'mnemo settings embedding' to configure a provider", err)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	ChunkID    string  `json:"chunk_id"`
	ParentID   string  `json:"parent_id"`
	ParentType string  `json:"parent_type"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i := range results {
		out[i] = searchResultJSON{
			ChunkID:    results[i].ChunkID,
			ParentID:   results[i].ParentID,
			ParentType: results[i].ParentType.String(),
			Title:      results[i].ParentTitle,
			Score:      results[i].Score,
			Text:       results[i].Text,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Title (Score)
		title := results[i].ParentTitle
		if title == "" {
			title = results[i].ParentID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Score)
		cmd.Printf("      %s · %s\n", results[i].ParentID, results[i].ParentType)
		if snippet := snippet(results[i].Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// snippet flattens whitespace and truncates to snippetLength runes.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return string(runes[:snippetLength]) + "..."
}
