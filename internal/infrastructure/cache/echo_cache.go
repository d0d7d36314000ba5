// Package cache keeps short-lived process-local lookups.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// EchoCache remembers provider message ids the relay itself produced so their
// webhook echoes can be dropped.
type EchoCache struct {
	entries *lru.Cache
}

func NewEchoCache(size int) (*EchoCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create echo cache: %w", err)
	}
	return &EchoCache{entries: entries}, nil
}

// Remember records id as relay-produced.
func (c *EchoCache) Remember(id string) {
	if id == "" {
		return
	}
	c.entries.Add(id, struct{}{})
}

// Seen reports whether id was produced by the relay and forgets it.
func (c *EchoCache) Seen(id string) bool {
	if id == "" {
		return false
	}
	if !c.entries.Contains(id) {
		return false
	}
	c.entries.Remove(id)
	return true
}
