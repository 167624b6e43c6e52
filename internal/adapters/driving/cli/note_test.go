package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

func TestNoteAdd_FromFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "tea-notes.md")
	require.NoError(t, os.WriteFile(path, []byte("green tea at 80C"), 0o600))

	out, _, err := execute(t, "note", "add", path)

	require.NoError(t, err)
	got := mocks.content.lastContent
	require.NotNil(t, got)
	assert.Equal(t, "tea-notes", got.ID)
	assert.Equal(t, "tea-notes", got.Title)
	assert.Equal(t, domain.ContentTypeNote, got.Type)
	assert.Equal(t, "green tea at 80C", got.Body)
	assert.Contains(t, out, "Stored tea-notes: 2 chunks (1 embedded, 1 without embedding)")
}

func TestNoteAdd_FromStdin(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(bytes.NewBufferString("likes oolong\n"))
	stdout := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"note", "add", "--type", "profile", "--title", "Me", "-"})
	resetFlags()
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	require.NoError(t, rootCmd.Execute())

	got := mocks.content.lastContent
	require.NotNil(t, got)
	assert.Equal(t, domain.ContentTypeProfile, got.Type)
	assert.Equal(t, "Me", got.Title)
	_, err := uuid.Parse(got.ID)
	assert.NoError(t, err, "stdin notes without --id get a UUID")
}

func TestNoteAdd_ExplicitID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o600))

	_, _, err := execute(t, "note", "add", "--id", "custom", path)

	require.NoError(t, err)
	assert.Equal(t, "custom", mocks.content.lastContent.ID)
	assert.Equal(t, "file", mocks.content.lastContent.Title)
}

func TestNoteAdd_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		args  func(dir string) []string
		setup func(dir string)
	}{
		{
			name:  "empty file",
			setup: func(dir string) { _ = os.WriteFile(filepath.Join(dir, "e.md"), []byte("  \n"), 0o600) },
			args:  func(dir string) []string { return []string{"note", "add", filepath.Join(dir, "e.md")} },
		},
		{
			name:  "unknown type",
			setup: func(dir string) { _ = os.WriteFile(filepath.Join(dir, "n.md"), []byte("x"), 0o600) },
			args: func(dir string) []string {
				return []string{"note", "add", "--type", "photo", filepath.Join(dir, "n.md")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()

			dir := t.TempDir()
			tt.setup(dir)
			_, _, err := execute(t, tt.args(dir)...)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, mocks.content.lastContent)
		})
	}
}

func TestNoteAdd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "note", "add", filepath.Join(t.TempDir(), "missing.md"))

	assert.Error(t, err)
}

func TestNoteReindexAndRemove(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.content.contents["n1"] = &domain.Content{ID: "n1", Type: domain.ContentTypeNote, Body: "x"}

	out, _, err := execute(t, "note", "reindex", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "Reindexed n1: 2 chunks")

	out, _, err = execute(t, "note", "rm", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed n1")
	assert.Equal(t, []string{"n1"}, mocks.content.removed)

	_, _, err = execute(t, "note", "rm", "n1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNoteLs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "note", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No notes found.")

	mocks.content.contents["n1"] = &domain.Content{ID: "n1", Type: domain.ContentTypeNote, ChunkIDs: []string{"a", "b"}}
	out, _, err = execute(t, "note", "ls", "--type", "note")
	require.NoError(t, err)
	assert.Contains(t, out, "n1")
	assert.Contains(t, out, "(untitled)")
	assert.Contains(t, out, "Type: note, Chunks: 2")
	assert.Contains(t, out, "Total: 1")
	assert.Equal(t, []domain.ContentType{domain.ContentTypeNote}, mocks.content.lastTypes)
}

func TestNoteCommands_ServiceErrors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.content.err = errors.New("disk full")

	_, _, err := execute(t, "note", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list notes")

	contentService = nil
	for _, args := range [][]string{{"note", "ls"}, {"note", "rm", "x"}, {"note", "reindex", "x"}} {
		_, _, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "content service not configured")
	}
}
