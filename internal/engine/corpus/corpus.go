package corpus

import (
	"sort"
	"sync"
)

// Corpus is the set of distinct tokens observed across scanned files.
// Add and Merge are commutative and idempotent, so the final set does not
// depend on the order in which files were visited.
type Corpus struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func New() *Corpus {
	return &Corpus{tokens: make(map[string]struct{})}
}

// FromTokens builds a corpus holding exactly tokens.
func FromTokens(tokens ...string) *Corpus {
	c := New()
	c.Add(tokens...)
	return c
}

func (c *Corpus) Add(tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, token := range tokens {
		if token == "" {
			continue
		}
		c.tokens[token] = struct{}{}
	}
}

func (c *Corpus) Merge(other *Corpus) {
	if other == nil || other == c {
		return
	}
	c.Add(other.Tokens()...)
}

func (c *Corpus) Contains(token string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tokens[token]
	return ok
}

func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

// Tokens returns the corpus contents in sorted order.
func (c *Corpus) Tokens() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]string, 0, len(c.tokens))
	for token := range c.tokens {
		out = append(out, token)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}
