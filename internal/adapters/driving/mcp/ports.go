package mcp

import (
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Content chunks, embeds and searches content.
	Content driving.ContentService

	// Memory manages tiered conversation history.
	Memory driving.MemoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Content == nil {
		return ErrMissingContentService
	}
	if p.Memory == nil {
		return ErrMissingMemoryService
	}
	return nil
}
