// Package mcp provides an MCP (Model Context Protocol) server adapter for mnemo.
// It lets AI assistants search stored content and keep tiered conversation
// memory through tools and resources.
package mcp

import "errors"

// ErrMissingContentService is returned when the content service is not provided.
var ErrMissingContentService = errors.New("mcp: content service is required")

// ErrMissingMemoryService is returned when the memory service is not provided.
var ErrMissingMemoryService = errors.New("mcp: memory service is required")
