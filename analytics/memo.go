package analytics

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// H2HKey identifies one memoized head-to-head lookup
type H2HKey struct {
	BatterID  int
	PitcherID int
	Season    int
}

func (k H2HKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.BatterID, k.PitcherID, k.Season)
}

// H2HMemo memoizes head-to-head lines for the lifetime of one report.
// Concurrent lookups of the same key share a single computation.
type H2HMemo struct {
	mu    sync.RWMutex
	lines map[H2HKey]H2HLine
	group singleflight.Group
}

func NewH2HMemo() *H2HMemo {
	return &H2HMemo{lines: make(map[H2HKey]H2HLine)}
}

// Get returns a memoized line
func (m *H2HMemo) Get(key H2HKey) (H2HLine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	line, ok := m.lines[key]
	return line, ok
}

// Len is the number of memoized keys
func (m *H2HMemo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

// Resolve returns the memoized line for key or computes it once. compute
// absorbs its own failures into the line it returns.
func (m *H2HMemo) Resolve(ctx context.Context, key H2HKey, compute func(context.Context) H2HLine) H2HLine {
	if line, ok := m.Get(key); ok {
		return line
	}

	v, _, _ := m.group.Do(key.String(), func() (any, error) {
		if line, ok := m.Get(key); ok {
			return line, nil
		}
		line := compute(ctx)
		m.mu.Lock()
		m.lines[key] = line
		m.mu.Unlock()
		return line, nil
	})
	return v.(H2HLine)
}
