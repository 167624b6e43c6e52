// Package tokenizer provides TokenCounter implementations.
//
// The default counter uses tiktoken's cl100k_base encoding. Loading an
// encoding may need network access the first time; when it fails, callers
// fall back to RuneCounter, which approximates four runes per token.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// DefaultEncoding is the encoding used by current OpenAI and most
// compatible chat models.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

var _ driven.TokenCounter = (*Tiktoken)(nil)

// NewTiktoken loads the named encoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, name: encoding}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Name returns the encoding name.
func (t *Tiktoken) Name() string {
	return t.name
}

// RuneCounter approximates tokens as one per four runes, rounded up.
type RuneCounter struct{}

var _ driven.TokenCounter = RuneCounter{}

// Count returns ceil(runes/4).
func (RuneCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Name identifies the approximation.
func (RuneCounter) Name() string {
	return "runes/4"
}

// New returns the tiktoken counter, or RuneCounter when the encoding
// cannot be loaded.
func New() driven.TokenCounter {
	counter, err := NewTiktoken(DefaultEncoding)
	if err != nil {
		logger.Warn("tokenizer: %v; falling back to rune estimate", err)
		return RuneCounter{}
	}
	return counter
}
