package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the text to find similar content for"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Types    []string `json:"types,omitempty" jsonschema:"restrict results to these content types (note, profile)"`
	MinScore float64  `json:"min_score,omitempty" jsonschema:"drop results scoring below this cosine similarity"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	ParentID   string  `json:"parent_id"`
	ParentType string  `json:"parent_type"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// ProcessContentInput is the input schema for the process_content tool.
type ProcessContentInput struct {
	ParentID string `json:"parent_id" jsonschema:"ID of an existing content entity"`
	Text     string `json:"text" jsonschema:"new text to chunk and embed"`
}

// SaveContentInput is the input schema for the save_content tool.
type SaveContentInput struct {
	ID    string `json:"id" jsonschema:"unique content ID"`
	Type  string `json:"type,omitempty" jsonschema:"content type: note (default) or profile"`
	Title string `json:"title,omitempty" jsonschema:"human readable title"`
	Body  string `json:"body" jsonschema:"full text of the content"`
}

// ProcessOutput reports a regenerated chunk set.
type ProcessOutput struct {
	ParentID string `json:"parent_id"`
	Chunks   int    `json:"chunks"`
	Embedded int    `json:"embedded"`
	Failed   int    `json:"failed"`
}

// AddTurnInput is the input schema for the add_turn tool.
type AddTurnInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"conversation to append to"`
	Role           string `json:"role,omitempty" jsonschema:"user (default), assistant or system"`
	Text           string `json:"text" jsonschema:"message text"`
}

// AddTurnOutput is the output schema for the add_turn tool.
type AddTurnOutput struct {
	TurnID     string `json:"turn_id"`
	Seq        int64  `json:"seq"`
	Summarized bool   `json:"summarized"`
	Archived   int    `json:"archived"`
	Degraded   bool   `json:"degraded"`
	Warning    string `json:"warning,omitempty"`
}

// ConversationInput identifies a conversation.
type ConversationInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"conversation ID"`
}

// FormatHistoryInput is the input schema for the format_history tool.
type FormatHistoryInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"conversation ID"`
	MaxTokens      int    `json:"max_tokens,omitempty" jsonschema:"token budget for the rendered history (0 for no limit)"`
}

// FormatHistoryOutput is the output schema for the format_history tool.
type FormatHistoryOutput struct {
	Prompt string `json:"prompt"`
}

// TurnOutput is a turn as exposed to MCP clients.
type TurnOutput struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	Role       string `json:"role"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
	CreatedAt  string `json:"created_at"`
}

// SummaryOutput is a summary as exposed to MCP clients.
type SummaryOutput struct {
	ID         string `json:"id"`
	FromSeq    int64  `json:"from_seq"`
	ToSeq      int64  `json:"to_seq"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// HistoryOutput is the tiered history of one conversation.
type HistoryOutput struct {
	ConversationID string          `json:"conversation_id"`
	Summaries      []SummaryOutput `json:"summaries"`
	ActiveTurns    []TurnOutput    `json:"active_turns"`
	ArchivedCount  int             `json:"archived_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find stored notes and profile passages most similar to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_content",
		Description: "Store a note or the user profile and index it for search",
	}, s.handleSaveContent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_content",
		Description: "Replace the text of stored content and regenerate its chunks",
	}, s.handleProcessContent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_turn",
		Description: "Append a message to a conversation; old turns are summarized automatically",
	}, s.handleAddTurn)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_history",
		Description: "Return the summaries and recent turns of a conversation",
	}, s.handleGetHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "format_history",
		Description: "Render a conversation's memory as prompt context within a token budget",
	}, s.handleFormatHistory)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, domain.NewValidationError("query", "query is empty")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	types, err := parseTypes(input.Types)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	opts := domain.SearchOptions{Limit: limit, Types: types, MinScore: input.MinScore}
	results, err := s.ports.Content.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    results[i].ChunkID,
			ParentID:   results[i].ParentID,
			ParentType: results[i].ParentType.String(),
			Title:      results[i].ParentTitle,
			Score:      results[i].Score,
			Text:       results[i].Text,
		}
	}

	return nil, output, nil
}

// handleSaveContent handles the save_content tool invocation.
func (s *Server) handleSaveContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveContentInput,
) (*mcp.CallToolResult, ProcessOutput, error) {
	typ := domain.ContentTypeNote
	if input.Type != "" {
		typ = domain.ContentType(input.Type)
	}
	content := &domain.Content{ID: input.ID, Type: typ, Title: input.Title, Body: input.Body}
	if err := content.Validate(); err != nil {
		return nil, ProcessOutput{}, err
	}

	result, err := s.ports.Content.Ingest(ctx, content)
	if err != nil {
		return nil, ProcessOutput{}, err
	}
	return nil, processOutput(result), nil
}

// handleProcessContent handles the process_content tool invocation.
func (s *Server) handleProcessContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessContentInput,
) (*mcp.CallToolResult, ProcessOutput, error) {
	result, err := s.ports.Content.ProcessContent(ctx, input.ParentID, input.Text)
	if err != nil {
		return nil, ProcessOutput{}, err
	}
	return nil, processOutput(result), nil
}

// handleAddTurn handles the add_turn tool invocation.
func (s *Server) handleAddTurn(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddTurnInput,
) (*mcp.CallToolResult, AddTurnOutput, error) {
	role := domain.RoleUser
	if input.Role != "" {
		role = domain.Role(strings.ToLower(input.Role))
	}
	turn := domain.TurnInput{Role: role, Text: input.Text}
	if err := turn.Validate(); err != nil {
		return nil, AddTurnOutput{}, err
	}

	result, err := s.ports.Memory.AddTurn(ctx, input.ConversationID, turn)
	if err != nil {
		return nil, AddTurnOutput{}, err
	}

	output := AddTurnOutput{
		TurnID:     result.Turn.ID,
		Seq:        result.Turn.Seq,
		Summarized: result.Summary != nil,
		Archived:   result.Archived,
		Degraded:   result.Degraded,
	}
	if result.Warning != nil {
		output.Warning = result.Warning.Error()
	}
	return nil, output, nil
}

// handleGetHistory handles the get_history tool invocation.
func (s *Server) handleGetHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConversationInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	history, err := s.ports.Memory.GetTieredHistory(ctx, input.ConversationID)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, historyOutput(history), nil
}

// handleFormatHistory handles the format_history tool invocation.
func (s *Server) handleFormatHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FormatHistoryInput,
) (*mcp.CallToolResult, FormatHistoryOutput, error) {
	prompt, err := s.ports.Memory.FormatHistoryForPrompt(ctx, input.ConversationID, input.MaxTokens)
	if err != nil {
		return nil, FormatHistoryOutput{}, err
	}
	return nil, FormatHistoryOutput{Prompt: prompt}, nil
}

func parseTypes(raw []string) ([]domain.ContentType, error) {
	var types []domain.ContentType
	for _, r := range raw {
		t := domain.ContentType(strings.ToLower(strings.TrimSpace(r)))
		if !t.IsValid() {
			return nil, domain.NewValidationError("types", "unknown content type "+r)
		}
		types = append(types, t)
	}
	return types, nil
}

func processOutput(r *domain.ProcessResult) ProcessOutput {
	return ProcessOutput{
		ParentID: r.ParentID,
		Chunks:   len(r.Chunks),
		Embedded: r.Embedded,
		Failed:   r.Failed,
	}
}

func historyOutput(h *domain.TieredHistory) HistoryOutput {
	out := HistoryOutput{
		ConversationID: h.ConversationID,
		Summaries:      make([]SummaryOutput, len(h.Summaries)),
		ActiveTurns:    make([]TurnOutput, len(h.ActiveTurns)),
		ArchivedCount:  len(h.ArchivedTurns),
	}
	for i, sum := range h.Summaries {
		out.Summaries[i] = SummaryOutput{
			ID:         sum.ID,
			FromSeq:    sum.FromSeq,
			ToSeq:      sum.ToSeq,
			Text:       sum.Text,
			TokenCount: sum.TokenCount,
		}
	}
	for i, turn := range h.ActiveTurns {
		out.ActiveTurns[i] = TurnOutput{
			ID:         turn.ID,
			Seq:        turn.Seq,
			Role:       turn.Role.String(),
			Text:       turn.Text,
			TokenCount: turn.TokenCount,
			CreatedAt:  turn.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}
