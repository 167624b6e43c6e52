// Package filesystem turns a directory of note files into content changes.
//
// Files with a .md or .txt extension become notes whose ID is derived from
// their path relative to the root. Hidden files and directories are ignored.
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// IDPrefix is prepended to every note ID produced by the connector.
const IDPrefix = "file:"

// ChangeType classifies a change to a note file.
type ChangeType int

// Change types.
const (
	// ChangeUpserted means the file was created or modified.
	ChangeUpserted ChangeType = iota

	// ChangeDeleted means the file was removed or renamed away.
	ChangeDeleted
)

// String returns a short name for the change type.
func (t ChangeType) String() string {
	if t == ChangeDeleted {
		return "deleted"
	}
	return "upserted"
}

// Change is one note file event.
type Change struct {
	Type ChangeType

	// Path is the absolute file path.
	Path string

	// Content is the note to ingest. For deletions only ID and Type are set.
	Content *domain.Content
}

// Connector scans and watches a notes directory.
type Connector struct {
	root string

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc

	// known holds the note paths seen so far, so that removing a directory
	// can report the notes it contained.
	known map[string]struct{}
}

// New creates a connector rooted at root.
func New(root string) *Connector {
	return &Connector{root: filepath.Clean(root), known: make(map[string]struct{})}
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.root)
	}
	return nil
}

// Scan reads every note file under the root.
// Unreadable files are logged and skipped.
func (c *Connector) Scan(ctx context.Context) ([]Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c.scanDir(ctx, c.root)
}

// scanDir reads every note file under dir.
func (c *Connector) scanDir(ctx context.Context, dir string) ([]Change, error) {
	var changes []Change
	err := c.walkNotes(ctx, dir, func(path string) {
		content, err := c.readNote(path)
		if err != nil {
			logger.Warn("read %s: %v", path, err)
			return
		}
		c.remember(path)
		changes = append(changes, Change{Type: ChangeUpserted, Path: path, Content: content})
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// walkNotes calls fn for every visible note file under dir.
func (c *Connector) walkNotes(ctx context.Context, dir string, fn func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("scan %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != c.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isNoteFile(path) {
			fn(path)
		}
		return nil
	})
}

// Watch streams changes until ctx is cancelled or the connector is closed.
// The channel is closed when watching stops.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector is closed")
	}
	c.mu.Unlock()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addDirs(watcher, c.root); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := c.walkNotes(ctx, c.root, c.remember); err != nil {
		watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				for _, change := range c.changesFor(ctx, watcher, event) {
					select {
					case changes <- change:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close stops any running watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

// NoteID returns the content ID for a file under the root.
func (c *Connector) NoteID(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		rel = path
	}
	return IDPrefix + filepath.ToSlash(rel)
}

// changesFor converts a raw event into changes. A directory created or moved
// under the root is watched and scanned. A directory removed or moved away
// yields a deletion for every note known below it.
func (c *Connector) changesFor(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) []Change {
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if c.hidden(event.Name) {
			return nil
		}
		if err := c.addDirs(watcher, event.Name); err != nil {
			logger.Warn("watch %s: %v", event.Name, err)
		}
		changes, err := c.scanDir(ctx, event.Name)
		if err != nil {
			logger.Warn("scan %s: %v", event.Name, err)
		}
		return changes
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if deleted := c.forgetDir(event.Name); len(deleted) > 0 {
			// Stop watching the old location; a rename keeps the inode watched.
			for _, path := range watcher.WatchList() {
				if path == event.Name || strings.HasPrefix(path, event.Name+string(filepath.Separator)) {
					_ = watcher.Remove(path)
				}
			}
			return deleted
		}
	}

	if change := c.handleFsEvent(event); change != nil {
		return []Change{*change}
	}
	return nil
}

// handleFsEvent converts a raw event on a file into a change, or nil if it is ignored.
func (c *Connector) handleFsEvent(event fsnotify.Event) *Change {
	if c.ignored(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		c.forget(event.Name)
		return &Change{
			Type:    ChangeDeleted,
			Path:    event.Name,
			Content: &domain.Content{ID: c.NoteID(event.Name), Type: domain.ContentTypeNote},
		}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		content, err := c.readNote(event.Name)
		if err != nil {
			logger.Debug("skip %s: %v", event.Name, err)
			return nil
		}
		c.remember(event.Name)
		return &Change{Type: ChangeUpserted, Path: event.Name, Content: content}
	default:
		return nil
	}
}

// ignored reports whether path is hidden below the root or is not a note file.
func (c *Connector) ignored(path string) bool {
	return c.hidden(path) || !isNoteFile(path)
}

// hidden reports whether path is hidden below the root.
func (c *Connector) hidden(path string) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		rel = path
	}
	return isHidden(rel)
}

func (c *Connector) remember(path string) {
	c.mu.Lock()
	c.known[path] = struct{}{}
	c.mu.Unlock()
}

func (c *Connector) forget(path string) {
	c.mu.Lock()
	delete(c.known, path)
	c.mu.Unlock()
}

// forgetDir drops every known note below dir and returns their deletions
// in path order.
func (c *Connector) forgetDir(dir string) []Change {
	prefix := dir + string(filepath.Separator)

	c.mu.Lock()
	var paths []string
	for path := range c.known {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
			delete(c.known, path)
		}
	}
	c.mu.Unlock()

	sort.Strings(paths)
	changes := make([]Change, len(paths))
	for i, path := range paths {
		changes[i] = Change{
			Type:    ChangeDeleted,
			Path:    path,
			Content: &domain.Content{ID: c.NoteID(path), Type: domain.ContentTypeNote},
		}
	}
	return changes
}

func (c *Connector) addDirs(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) readNote(path string) (*domain.Content, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body := string(data)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return &domain.Content{
		ID:    c.NoteID(path),
		Type:  domain.ContentTypeNote,
		Title: noteTitle(path, body),
		Body:  body,
	}, nil
}

// noteTitle uses the first markdown heading, falling back to the file name.
func noteTitle(path, body string) string {
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
				return title
			}
		}
		break
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isNoteFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	default:
		return false
	}
}

// isHidden reports whether any element of path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
