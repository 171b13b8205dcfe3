package enrich

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"

	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/render"
	"maunium.net/go/mautrix/event"
)

// Cache keeps one enriched tree per content version. Trees pushed out of
// the cache are disposed.
type Cache struct {
	mu     sync.RWMutex
	trees  map[string]*body.Tree
	byTree map[string]string
}

func NewCache() *Cache {
	return &Cache{
		trees:  make(map[string]*body.Tree),
		byTree: make(map[string]string),
	}
}

// Key identifies a content version: the content plus every render option
// that changes the tree.
func Key(content *event.MessageEventContent, opts render.Options) string {
	h := sha256.New()
	h.Write(fmt.Appendf(nil, "%s:%s:", content.MsgType, content.Format))
	h.Write(fmt.Appendf(nil, "%d:%s:", len(content.Body), content.Body))
	h.Write(fmt.Appendf(nil, "%d:%s:", len(content.FormattedBody), content.FormattedBody))
	h.Write(fmt.Appendf(nil, "%t:%t:%t", opts.StripReplyFallback, opts.DisableBigEmoji, opts.Markdown))

	terms := slices.Clone(opts.HighlightTerms)
	slices.Sort(terms)
	for _, t := range slices.Compact(terms) {
		h.Write(fmt.Appendf(nil, ":%d:%s", len(t), t))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(key string) (*body.Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trees[key]
	return t, ok
}

// Lookup finds a cached tree by its ID.
func (c *Cache) Lookup(treeID string) (*body.Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.byTree[treeID]
	if !ok {
		return nil, false
	}
	return c.trees[key], true
}

// Set stores tree under key, disposing the tree it replaces.
func (c *Cache) Set(key string, tree *body.Tree) {
	c.mu.Lock()
	old, ok := c.trees[key]
	c.trees[key] = tree
	c.byTree[tree.ID()] = key
	if ok && old != tree {
		delete(c.byTree, old.ID())
	}
	c.mu.Unlock()

	if ok && old != tree {
		old.Dispose()
	}
}

// Evict drops and disposes the tree stored under key.
func (c *Cache) Evict(key string) bool {
	c.mu.Lock()
	t, ok := c.trees[key]
	if ok {
		delete(c.trees, key)
		delete(c.byTree, t.ID())
	}
	c.mu.Unlock()

	if ok {
		t.Dispose()
	}
	return ok
}

// EvictTree drops and disposes the tree with the given ID.
func (c *Cache) EvictTree(treeID string) bool {
	c.mu.RLock()
	key, ok := c.byTree[treeID]
	c.mu.RUnlock()
	return ok && c.Evict(key)
}

// Clear disposes every cached tree.
func (c *Cache) Clear() {
	c.mu.Lock()
	trees := c.trees
	c.trees = make(map[string]*body.Tree)
	c.byTree = make(map[string]string)
	c.mu.Unlock()

	for _, t := range trees {
		t.Dispose()
	}
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}
