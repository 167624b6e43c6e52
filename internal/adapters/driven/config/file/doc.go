// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.mnemo.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable summarization prompts
package file
