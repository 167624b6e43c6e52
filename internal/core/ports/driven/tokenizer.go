package driven

// TokenCounter measures text length in model tokens.
// Counting only needs to be consistent within a deployment.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Name identifies the encoding, for logging.
	Name() string
}
