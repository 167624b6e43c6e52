package chunker

import (
	"unicode"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// Split divides text into chunks of at most maxChunkSize characters, with
// consecutive chunks sharing up to overlap characters.
//
// A window that does not reach the end of the text is shortened to the last
// paragraph break, or failing that the last sentence end, in its back half.
// Without either it is cut at maxChunkSize. Sizes count runes, not bytes.
func Split(text string, maxChunkSize, overlap int) ([]string, error) {
	if err := (domain.ChunkSettings{MaxChunkSize: maxChunkSize, Overlap: overlap}).Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= maxChunkSize {
		return []string{text}, nil
	}

	chunks := make([]string, 0, n/(maxChunkSize-overlap)+1)
	start := 0
	for {
		end := start + maxChunkSize
		if end >= n {
			chunks = append(chunks, string(runes[start:]))
			return chunks, nil
		}

		// Any accepted boundary leaves end-overlap past start.
		minEnd := start + max(overlap+1, maxChunkSize/2)
		if cut := findBoundary(runes, minEnd, end); cut > 0 {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
}

// findBoundary returns the cut position of the last paragraph break or,
// failing that, sentence end in runes[minEnd:end]. Zero means none.
func findBoundary(runes []rune, minEnd, end int) int {
	for i := end; i >= minEnd && i >= 2; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i >= minEnd && i >= 1; i-- {
		if isTerminator(runes[i-1]) && i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
