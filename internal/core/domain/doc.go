// Package domain defines the core business entities for mnemo.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Content: A note or the user profile, owner of a chunk set
//   - Chunk: A searchable, embeddable unit within a content entity
//   - Turn: One role-tagged message of a conversation
//   - Summary: A condensed, contiguous range of archived turns
//   - TieredHistory: The active, summary and archived tiers of a conversation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
