package effect

// HistorySize is the number of volume samples kept for the pixels effect.
const HistorySize = 32

// History is a fixed-capacity circular buffer of volume samples that
// overwrites the oldest sample when full. It is owned by the render loop
// and is not safe for concurrent use.
type History struct {
	buf [HistorySize]uint8
	w   int // write position
	len int // current fill level
}

// Push appends a sample, overwriting the oldest one if full.
func (h *History) Push(v uint8) {
	h.buf[h.w] = v
	h.w = (h.w + 1) % HistorySize
	if h.len < HistorySize {
		h.len++
	}
}

// Len returns the number of stored samples.
func (h *History) Len() int { return h.len }

// At returns the i-th stored sample, oldest first.
func (h *History) At(i int) uint8 {
	start := (h.w - h.len + HistorySize) % HistorySize
	return h.buf[(start+i)%HistorySize]
}

// Recent returns up to n most recent samples, oldest first.
func (h *History) Recent(n int) []uint8 {
	n = min(n, h.len)
	if n == 0 {
		return nil
	}
	out := make([]uint8, n)
	for i := range n {
		out[i] = h.At(h.len - n + i)
	}
	return out
}

// Clear empties the buffer.
func (h *History) Clear() {
	h.w = 0
	h.len = 0
}
