// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ContentStore: Content entities and their chunk sets
//   - ConversationStore: Conversation turns and summaries
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.mnemo/data/mnemo.db
//
// # Thread Safety
//
// All operations are thread-safe. Multi-row changes (chunk set replacement,
// conversation commits) run in a single transaction so readers never observe
// a partial state.
package sqlite
