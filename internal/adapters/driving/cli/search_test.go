package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "search", "best tea")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] Tea (0.91)")
	assert.Contains(t, out, "note-1 · note")
	assert.Contains(t, out, "tea is brewed at ninety degrees")
	assert.Equal(t, "best tea", mocks.content.lastQuery)
	assert.Equal(t, 10, mocks.content.lastOpts.Limit)
	assert.Empty(t, mocks.content.lastOpts.Types)
}

func TestSearchCmd_Options(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "search", "-n", "3", "--type", "profile", "--min-score", "0.5", "q")

	require.NoError(t, err)
	assert.Equal(t, 3, mocks.content.lastOpts.Limit)
	assert.Equal(t, []domain.ContentType{domain.ContentTypeProfile}, mocks.content.lastOpts.Types)
	assert.InDelta(t, 0.5, mocks.content.lastOpts.MinScore, 1e-9)
}

func TestSearchCmd_UnknownType(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "search", "--type", "photo", "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, mocks.content.lastQuery, "search should not run")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "search", "--json", "q")
	require.NoError(t, err)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "note-1:0", results[0].ChunkID)
	assert.Equal(t, "note", results[0].ParentType)
	assert.Equal(t, "Tea", results[0].Title)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	contentService = nil

	_, _, err := execute(t, "search", "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "content service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.content.err = errors.New("database locked")
	_, _, err := execute(t, "search", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
	assert.NotContains(t, err.Error(), "mnemo settings embedding")

	mocks.content.err = fmt.Errorf("embed query: %w", domain.ErrEmbeddingUnavailable)
	_, _, err = execute(t, "search", "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "mnemo settings embedding")
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.content.results = nil

	out, _, err := execute(t, "search", "--json", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "[]")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.content.results = nil

	out, _, err := execute(t, "search", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found")
}

func TestOutputSearchTable_WithoutTitle(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.content.results = []domain.SearchResult{
		{SimilarityResult: domain.SimilarityResult{ChunkID: "doc-123:0", ParentID: "doc-123", Score: 0.75}},
	}

	out, _, err := execute(t, "search", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] doc-123 (0.75)")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n  b\tc"))
	assert.Empty(t, snippet("   "))

	long := strings.Repeat("é", snippetLength+5)
	got := snippet(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, snippetLength+3, len([]rune(got)))
}
