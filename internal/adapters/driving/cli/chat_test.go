package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func TestChatAdd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, stderr, err := execute(t, "chat", "add", "conv-1", "which", "tea?")

	require.NoError(t, err)
	assert.Equal(t, domain.TurnInput{Role: domain.RoleUser, Text: "which tea?"}, mocks.memory.lastInput)
	assert.Contains(t, out, "Added turn 4 to conv-1")
	assert.NotContains(t, out, "Summarized")
	assert.Empty(t, stderr)
}

func TestChatAdd_RoleIsCaseInsensitive(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "chat", "add", "-r", "Assistant", "conv-1", "ok")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, mocks.memory.lastInput.Role)
}

func TestChatAdd_Summarized(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.memory.addResult = &domain.AddTurnResult{
		Turn:     domain.Turn{Seq: 9},
		Summary:  &domain.Summary{FromSeq: 1, ToSeq: 4},
		Archived: 4,
	}

	out, _, err := execute(t, "chat", "add", "conv-1", "more")

	require.NoError(t, err)
	assert.Contains(t, out, "Added turn 9 to conv-1")
	assert.Contains(t, out, "Summarized turns 1-4 (4 archived)")
}

func TestChatAdd_Degraded(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.memory.addResult = &domain.AddTurnResult{
		Turn:     domain.Turn{Seq: 30},
		Degraded: true,
		Warning:  domain.ErrLLMUnavailable,
	}

	_, stderr, err := execute(t, "chat", "add", "conv-1", "more")

	require.NoError(t, err, "a degraded add still succeeds")
	assert.Contains(t, stderr, "Warning: history not condensed: LLM service unavailable")
}

func TestChatAdd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown role", []string{"chat", "add", "--role", "robot", "conv-1", "hi"}},
		{"blank text", []string{"chat", "add", "conv-1", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()

			_, _, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, mocks.memory.lastInput.Text, "invalid input never reaches the manager")
		})
	}
}

func TestChatHistory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "chat", "history", "conv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[Summaries]")
	assert.Contains(t, out, "turns 1-2: greetings exchanged")
	assert.Contains(t, out, "[Active]")
	assert.Contains(t, out, "3 user: what tea is best?")
	assert.NotContains(t, out, "[Archived]")

	out, _, err = execute(t, "chat", "history", "--archived", "conv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[Archived]")
	assert.Contains(t, out, "2 assistant: hi there")
}

func TestChatHistory_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "chat", "history", "nobody")

	require.NoError(t, err)
	assert.Contains(t, out, "No history for nobody")
}

func TestChatHistory_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "chat", "history", "--json", "conv-1")
	require.NoError(t, err)

	var got historyJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "conv-1", got.ConversationID)
	require.Len(t, got.Summaries, 1)
	assert.Equal(t, int64(2), got.Summaries[0].ToSeq)
	require.Len(t, got.ActiveTurns, 1)
	assert.Equal(t, "user", got.ActiveTurns[0].Role)
	assert.Empty(t, got.ArchivedTurns)
}

func TestChatPrompt(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "chat", "prompt", "conv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "greetings exchanged")
	assert.Equal(t, domain.DefaultAppSettings().Memory.PromptTokens, mocks.memory.lastMaxTokens)

	_, _, err = execute(t, "chat", "prompt", "--max-tokens", "0", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 0, mocks.memory.lastMaxTokens)

	_, _, err = execute(t, "chat", "prompt", "--max-tokens", "50", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 50, mocks.memory.lastMaxTokens)
}

func TestChatLsAndRm(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "chat", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "conv-1")

	out, _, err = execute(t, "chat", "rm", "conv-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted conv-1")

	out, _, err = execute(t, "chat", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations found.")
}

func TestChatCommands_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	memoryService = nil

	for _, args := range [][]string{
		{"chat", "add", "c", "hi"},
		{"chat", "history", "c"},
		{"chat", "prompt", "c"},
		{"chat", "ls"},
		{"chat", "rm", "c"},
	} {
		_, _, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "memory service not configured")
	}
}
