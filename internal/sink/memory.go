package sink

import (
	"sync"
	"sync/atomic"
)

// Memory is an in-process strip. Writes land in a back buffer and Show
// publishes them for concurrent readers such as the simulator.
type Memory struct {
	back   []Color
	mu     sync.RWMutex
	front  []Color
	frames atomic.Uint64
}

// NewMemory creates a strip of n pixels.
func NewMemory(n int) *Memory {
	return &Memory{back: make([]Color, n), front: make([]Color, n)}
}

func (m *Memory) SetPixel(i int, r, g, b uint8) {
	if i < 0 || i >= len(m.back) {
		return
	}
	m.back[i] = Color{R: r, G: g, B: b}
}

func (m *Memory) Show() error {
	m.mu.Lock()
	copy(m.front, m.back)
	m.mu.Unlock()
	m.frames.Add(1)
	return nil
}

func (m *Memory) NumPixels() int { return len(m.back) }

// Snapshot returns a copy of the last shown frame.
func (m *Memory) Snapshot() []Color {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Color, len(m.front))
	copy(out, m.front)
	return out
}

// Frames returns how many times Show was called.
func (m *Memory) Frames() uint64 {
	return m.frames.Load()
}
