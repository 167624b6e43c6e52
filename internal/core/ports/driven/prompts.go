package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptConversationSummary condenses a block of conversation turns.
	// The template expects one %s placeholder for the rendered transcript.
	PromptConversationSummary = "conversation_summary"

	// PromptSummarySystem is the system prompt sent with summary requests.
	// This prompt has no format placeholders.
	PromptSummarySystem = "summary_system"
)

// DefaultPrompt returns the built-in template for a well-known prompt name,
// or an empty string for unknown names.
func DefaultPrompt(name string) string {
	return defaultPrompts[name]
}

// DefaultPromptNames returns the names that have a built-in template.
func DefaultPromptNames() []string {
	return []string{PromptSummarySystem, PromptConversationSummary}
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	PromptSummarySystem: `You are the long-term memory of a personal assistant. Your summaries replace a section of a conversation and are read back to the assistant later. Be dense and specific. Write for the assistant, not for a human reader.`,

	PromptConversationSummary: `Summarize the following conversation turns.

Keep: facts the user stated about themselves, decisions and commitments, open questions, names, dates, numbers and identifiers exactly as written.
Drop: greetings, filler and anything repeated.
Answer with the summary only, as plain prose.

Turns:

%s`,
}
