package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"ember/internal/errors"
)

// SearchPathEnv is the environment variable listing additional library directories to
// search for an imported module path, delimited by the platform's ListSeparator.
const SearchPathEnv = "EMBER_LIBRARY_PATH"

// Loader compiles (or otherwise produces) the Module found at absPath. The cache
// calls it at most once per distinct absolute path, even under concurrent Load calls
// for the same path — see singleflight below.
type Loader func(absPath string) (*Module, error)

// Cache is the process-wide table of already-loaded modules, keyed by normalized
// absolute path, matching the language's "a module is loaded at most once" guarantee
// (re-importing the same file returns the already-initialized module and its existing
// side effects are not repeated).
type Cache struct {
	mu         sync.RWMutex
	byPath     map[string]*Module
	searchPath []string
	group      singleflight.Group
}

// NewCache builds a cache whose search path is the current directory followed by
// every directory named in EMBER_LIBRARY_PATH.
func NewCache() *Cache {
	c := &Cache{byPath: make(map[string]*Module), searchPath: []string{"."}}
	if raw := os.Getenv(SearchPathEnv); raw != "" {
		for _, dir := range filepath.SplitList(raw) {
			if dir != "" {
				c.searchPath = append(c.searchPath, dir)
			}
		}
	}
	return c
}

// AddSearchPath appends an additional directory to search, most-recently-added last.
func (c *Cache) AddSearchPath(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchPath = append(c.searchPath, dir)
}

// Resolve finds the first existing file matching name (bare or with a ".ember"
// suffix) across the search path, returning its absolute path.
func (c *Cache) Resolve(name string) (string, error) {
	c.mu.RLock()
	dirs := append([]string(nil), c.searchPath...)
	c.mu.RUnlock()

	candidates := []string{name, name + ".ember"}
	for _, dir := range dirs {
		for _, cand := range candidates {
			path := cand
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, cand)
			}
			if abs, err := filepath.Abs(path); err == nil {
				if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
					return abs, nil
				}
			}
		}
	}
	return "", fmt.Errorf("module not found: %s", name)
}

// Load returns the cached Module for absPath, invoking load to produce it on a miss.
// Concurrent Load calls for the same path block on one another via singleflight
// rather than racing to compile the same file twice.
func (c *Cache) Load(absPath string, load Loader) (*Module, error) {
	c.mu.RLock()
	if m, ok := c.byPath[absPath]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(absPath, func() (interface{}, error) {
		c.mu.RLock()
		if m, ok := c.byPath[absPath]; ok {
			c.mu.RUnlock()
			return m, nil
		}
		c.mu.RUnlock()

		m, loadErr := load(absPath)
		if loadErr != nil {
			return nil, loadErr
		}
		if m == nil {
			// A Loader returning (nil, nil) breaks Cache's own contract — not a
			// language-catchable load failure, so it gets a wrapped internal error
			// instead of surfacing as an ordinary *errors.EmberError.
			return nil, errors.Wrap(fmt.Errorf("loader returned no module for %s", absPath),
				"module cache: invariant violation")
		}
		c.mu.Lock()
		c.byPath[absPath] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Module), nil
}

// Get returns an already-loaded module without triggering a load.
func (c *Cache) Get(absPath string) (*Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byPath[absPath]
	return m, ok
}

// Loaded returns every module currently resident in the cache, for diagnostics.
func (c *Cache) Loaded() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Module, 0, len(c.byPath))
	for _, m := range c.byPath {
		out = append(out, m)
	}
	return out
}
