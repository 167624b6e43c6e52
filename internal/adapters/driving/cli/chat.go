package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage conversation memory",
	Long: `Append turns to conversations and read back their tiered history.

Once a conversation's active turns exceed the configured limits, the oldest
turns are summarized and archived.`,
}

var chatAddCmd = &cobra.Command{
	Use:   "add [conversation-id] [text...]",
	Short: "Append a turn to a conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChatAdd,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show summaries and active turns",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

var chatPromptCmd = &cobra.Command{
	Use:   "prompt [conversation-id]",
	Short: "Render the conversation memory as prompt context",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatPrompt,
}

var chatLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runChatLs,
}

var chatRmCmd = &cobra.Command{
	Use:   "rm [conversation-id]",
	Short: "Delete a conversation and all its tiers",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatRm,
}

// Flags for chat commands.
var (
	chatRole        string
	chatJSON        bool
	chatMaxTokens   int
	chatShowArchive bool
)

func init() {
	chatAddCmd.Flags().StringVarP(&chatRole, "role", "r", string(domain.RoleUser), "turn author: user, assistant or system")
	chatHistoryCmd.Flags().BoolVar(&chatJSON, "json", false, "output history as JSON")
	chatHistoryCmd.Flags().BoolVar(&chatShowArchive, "archived", false, "include archived turns")
	chatPromptCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", -1, "token budget (default from settings, 0 for no limit)")

	chatCmd.AddCommand(chatAddCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatPromptCmd)
	chatCmd.AddCommand(chatLsCmd)
	chatCmd.AddCommand(chatRmCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatAdd(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	conversationID := args[0]
	input := domain.TurnInput{
		Role: domain.Role(strings.ToLower(chatRole)),
		Text: strings.Join(args[1:], " "),
	}
	if err := input.Validate(); err != nil {
		return err
	}

	result, err := memoryService.AddTurn(cmd.Context(), conversationID, input)
	if err != nil {
		return fmt.Errorf("failed to add turn: %w", err)
	}

	cmd.Printf("Added turn %d to %s\n", result.Turn.Seq, conversationID)
	if result.Summary != nil {
		cmd.Printf("Summarized turns %d-%d (%d archived)\n",
			result.Summary.FromSeq, result.Summary.ToSeq, result.Archived)
	}
	if result.Degraded {
		reason := "summarization deferred"
		if result.Warning != nil {
			reason = result.Warning.Error()
		}
		cmd.PrintErrf("Warning: history not condensed: %s\n", reason)
	}
	return nil
}

type turnJSON struct {
	Seq  int64  `json:"seq"`
	Role string `json:"role"`
	Text string `json:"text"`
}

type summaryJSON struct {
	FromSeq int64  `json:"from_seq"`
	ToSeq   int64  `json:"to_seq"`
	Text    string `json:"text"`
}

type historyJSON struct {
	ConversationID string        `json:"conversation_id"`
	Summaries      []summaryJSON `json:"summaries"`
	ActiveTurns    []turnJSON    `json:"active_turns"`
	ArchivedTurns  []turnJSON    `json:"archived_turns,omitempty"`
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	history, err := memoryService.GetTieredHistory(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if chatJSON {
		return outputHistoryJSON(cmd, history)
	}

	if len(history.Summaries) == 0 && len(history.ActiveTurns) == 0 {
		cmd.Printf("No history for %s\n", args[0])
		return nil
	}

	cmd.Printf("Conversation %s\n\n", history.ConversationID)
	if len(history.Summaries) > 0 {
		cmd.Println("[Summaries]")
		for _, s := range history.Summaries {
			cmd.Printf("  turns %d-%d: %s\n", s.FromSeq, s.ToSeq, s.Text)
		}
		cmd.Println()
	}
	if chatShowArchive && len(history.ArchivedTurns) > 0 {
		cmd.Println("[Archived]")
		for _, t := range history.ArchivedTurns {
			cmd.Printf("  %d %s: %s\n", t.Seq, t.Role, t.Text)
		}
		cmd.Println()
	}
	cmd.Println("[Active]")
	for _, t := range history.ActiveTurns {
		cmd.Printf("  %d %s: %s\n", t.Seq, t.Role, t.Text)
	}
	return nil
}

func outputHistoryJSON(cmd *cobra.Command, history *domain.TieredHistory) error {
	out := historyJSON{
		ConversationID: history.ConversationID,
		Summaries:      make([]summaryJSON, len(history.Summaries)),
		ActiveTurns:    toTurnJSON(history.ActiveTurns),
	}
	for i, s := range history.Summaries {
		out.Summaries[i] = summaryJSON{FromSeq: s.FromSeq, ToSeq: s.ToSeq, Text: s.Text}
	}
	if chatShowArchive {
		out.ArchivedTurns = toTurnJSON(history.ArchivedTurns)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func toTurnJSON(turns []domain.Turn) []turnJSON {
	out := make([]turnJSON, len(turns))
	for i, t := range turns {
		out[i] = turnJSON{Seq: t.Seq, Role: t.Role.String(), Text: t.Text}
	}
	return out
}

func runChatPrompt(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	budget := chatMaxTokens
	if budget < 0 {
		budget = 0
		if settingsService != nil {
			if settings, err := settingsService.Get(); err == nil {
				budget = settings.Memory.PromptTokens
			}
		}
	}

	prompt, err := memoryService.FormatHistoryForPrompt(cmd.Context(), args[0], budget)
	if err != nil {
		return fmt.Errorf("failed to format history: %w", err)
	}
	cmd.Println(prompt)
	return nil
}

func runChatLs(cmd *cobra.Command, _ []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	ids, err := memoryService.ListConversations(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(ids) == 0 {
		cmd.Println("No conversations found.")
		return nil
	}
	for _, id := range ids {
		cmd.Printf("  %s\n", id)
	}
	return nil
}

func runChatRm(cmd *cobra.Command, args []string) error {
	if memoryService == nil {
		return errors.New("memory service not configured")
	}

	if err := memoryService.DeleteConversation(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
