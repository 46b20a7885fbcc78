// Package filecache mediates every disk read and write the pipeline
// performs: an LRU, byte-budgeted content store guarded by a path allow-list.
// Grounded on the mutex-guarded map caches in docforge's
// readers/repositoryhosts/githubhttpcache package, extended with a
// container/list recency chain (the shape mercator-hq-jupiter's
// limits/storage.MemoryBackend uses for its own capacity-bounded map) so
// eviction is driven by cumulative byte size, not entry count.
package filecache

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/embedm-dev/embedm/pkg/status"
	"k8s.io/klog/v2"
)

// WriteMode controls how Write resolves a target path that already exists.
type WriteMode int

// Write modes.
const (
	// Overwrite replaces an existing file at the target path.
	Overwrite WriteMode = iota
	// CreateNew finds the lowest non-negative N such that stem.N.ext does
	// not exist and writes there instead of overwriting.
	CreateNew
)

// entry is either loaded content or a tombstone: loaded once, then evicted.
// A tombstone still short-circuits the allow-list check on re-access but
// forces a fresh disk read.
type entry struct {
	path      string
	content   string
	tombstone bool
	elem      *list.Element
}

// Config configures the cache's hard limits.
type Config struct {
	MaxFileSize   int64
	MaxMemory     int64
	AllowList     []string
	WriteMode     WriteMode
	MaxEmbedSize  int64 // 0 disables the per-directive output cap
}

// Cache is the LRU-bounded, allow-list-guarded content store.
type Cache struct {
	cfg Config

	mu       sync.Mutex
	entries  map[string]*entry
	lru      *list.List // front = most recently used
	memUsed  int64
}

// New builds a Cache from a Config. At least one allow-list entry is
// required; a cache with no allow-list can read nothing.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg,
		entries: map[string]*entry{},
		lru:     list.New(),
	}
}

// Allowed reports whether a canonical path is a descendant of (or equal to,
// or glob-matched by) at least one allow-list entry. The check compares full
// normalised paths with a trailing separator so that /a/b does not satisfy
// /a/bc.
func (c *Cache) Allowed(path string) bool {
	canon := canonicalize(path)
	for _, root := range c.cfg.AllowList {
		if matched, _ := filepath.Match(root, canon); matched {
			return true
		}
		canonRoot := canonicalize(root)
		if canon == canonRoot {
			return true
		}
		if strings.HasPrefix(canon, canonRoot+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return filepath.Clean(abs)
}

// Get returns cached content for path, loading it from disk on first
// access. A path outside the allow-list produces a FATAL status; a missing
// file or one over the per-file size cap produces an ERROR status; none of
// these returns content. Re-accessing a path whose content is still cached
// returns that content, never a fresher copy from disk — the cache assumes
// source files are stable between planning and compilation. A tombstoned
// (evicted) path skips the allow-list check and is read from disk again.
func (c *Cache) Get(path string) (string, status.List) {
	canon := canonicalize(path)

	c.mu.Lock()
	e, known := c.entries[canon]
	if known && !e.tombstone {
		c.touch(e)
		content := e.content
		c.mu.Unlock()
		return content, nil
	}
	c.mu.Unlock()

	// A tombstone already proved canon was allow-listed on first access; a
	// re-read after eviction short-circuits that check rather than repeating
	// it, per the tombstone's purpose.
	if !known && !c.Allowed(canon) {
		return "", status.List{status.New(status.FATAL, "path %q is outside the configured allow-list", path)}
	}

	info, err := os.Stat(canon)
	if err != nil {
		if os.IsNotExist(err) {
			return "", status.List{status.New(status.ERROR, "source file not found: %s", path)}
		}
		return "", status.List{status.New(status.ERROR, "cannot stat %s: %v", path, err)}
	}
	if c.cfg.MaxFileSize > 0 && info.Size() > c.cfg.MaxFileSize {
		return "", status.List{status.New(status.ERROR, "source file %s (%d bytes) exceeds max_file_size (%d bytes)", path, info.Size(), c.cfg.MaxFileSize)}
	}

	raw, err := os.ReadFile(canon)
	if err != nil {
		return "", status.List{status.New(status.ERROR, "cannot read %s: %v", path, err)}
	}
	content := string(raw)
	c.put(canon, content)
	return content, nil
}

// GetFiles resolves a glob pattern and returns the content of every match
// that satisfies the allow-list. Matches blocked by the allow-list surface
// as per-entry ERROR statuses rather than failing the whole call.
func (c *Cache) GetFiles(pattern string) (map[string]string, status.List) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, status.List{status.New(status.ERROR, "invalid glob pattern %q: %v", pattern, err)}
	}
	out := map[string]string{}
	var statuses status.List
	for _, m := range matches {
		content, errs := c.Get(m)
		if errs.HasErrors() {
			// A glob match blocked by the allow-list is a per-entry
			// problem, not a whole-batch failure: downgrade FATAL (the
			// severity a single directive's own source would carry) to
			// ERROR so the rest of the glob's matches still load.
			for _, s := range errs {
				if s.Level == status.FATAL {
					s.Level = status.ERROR
				}
				statuses = append(statuses, s)
			}
			continue
		}
		out[m] = content
	}
	return out, statuses
}

// Write writes content to name under dir, honouring the configured write
// mode, and inserts the written content into the cache.
func (c *Cache) Write(dir, name string, content string) (string, error) {
	if !c.Allowed(dir) {
		return "", fmt.Errorf("path %q is outside the configured allow-list", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	target := filepath.Join(dir, name)
	if c.cfg.WriteMode == CreateNew {
		target = c.nextAvailableName(dir, name)
	}

	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	c.put(canonicalize(target), content)
	return target, nil
}

func (c *Cache) nextAvailableName(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s.%d%s", stem, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func (c *Cache) put(canon string, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[canon]; ok && !e.tombstone {
		c.memUsed -= int64(len(e.content))
		e.content = content
		c.memUsed += int64(len(content))
		c.touch(e)
		c.evictIfNeeded()
		return
	}

	e := &entry{path: canon, content: content}
	e.elem = c.lru.PushFront(e)
	c.entries[canon] = e
	c.memUsed += int64(len(content))
	c.evictIfNeeded()
}

func (c *Cache) touch(e *entry) {
	c.lru.MoveToFront(e.elem)
}

// evictIfNeeded evicts from the back of the LRU until memory fits the
// budget or no loaded (non-tombstoned) entries remain. Evicted entries
// become tombstones: present in the map (so a re-access short-circuits the
// allow-list re-check) but holding no memory.
func (c *Cache) evictIfNeeded() {
	if c.cfg.MaxMemory <= 0 {
		return
	}
	for c.memUsed > c.cfg.MaxMemory {
		back := c.lru.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry)
		if e.tombstone {
			c.lru.Remove(back)
			continue
		}
		c.memUsed -= int64(len(e.content))
		e.content = ""
		e.tombstone = true
		c.lru.Remove(back)
		e.elem = nil
		klog.V(2).Infof("filecache: evicted %s to stay within max_memory\n", e.path)
	}
}
