package ratelimit

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// KeyPool holds API credentials and a round-robin cursor into them.
type KeyPool struct {
	mu    sync.Mutex
	keys  []string
	index int
}

func NewKeyPool(keys []string) (*KeyPool, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("key pool requires at least one API key")
	}
	return &KeyPool{keys: cleaned}, nil
}

func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Current returns the active key and its index.
func (p *KeyPool) Current() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.index], p.index
}

// Rotate advances the cursor unconditionally and returns the new index.
func (p *KeyPool) Rotate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = (p.index + 1) % len(p.keys)
	return p.index
}

// RotateFrom advances the cursor only if it still points at from, so two
// callers failing on the same key move it once. It reports whether it rotated.
func (p *KeyPool) RotateFrom(from int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.index != from {
		return p.index, false
	}
	p.index = (p.index + 1) % len(p.keys)
	return p.index, true
}
