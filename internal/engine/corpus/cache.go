package corpus

import (
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	size    int64
	modTime time.Time
	tokens  []string
}

// TokenCache keeps per-file token lists between scans. An entry is valid only
// while the file's size and modification time are unchanged.
type TokenCache struct {
	inner *lru.Cache[string, cacheEntry]
}

func NewTokenCache(size int) (*TokenCache, error) {
	inner, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &TokenCache{inner: inner}, nil
}

func (c *TokenCache) Get(path string, info fs.FileInfo) ([]string, bool) {
	if c == nil || info == nil {
		return nil, false
	}
	entry, ok := c.inner.Get(path)
	if !ok {
		return nil, false
	}
	if entry.size != info.Size() || !entry.modTime.Equal(info.ModTime()) {
		c.inner.Remove(path)
		return nil, false
	}
	return entry.tokens, true
}

func (c *TokenCache) Put(path string, info fs.FileInfo, tokens []string) {
	if c == nil || info == nil {
		return
	}
	c.inner.Add(path, cacheEntry{size: info.Size(), modTime: info.ModTime(), tokens: tokens})
}

func (c *TokenCache) Len() int {
	if c == nil {
		return 0
	}
	return c.inner.Len()
}
