package playlist

import (
	"errors"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
)

var (
	// ErrNotFound is returned when removing an effect that is not listed.
	ErrNotFound = errors.New("effect not in playlist")
	// ErrLastEntry is returned when a removal would empty the playlist.
	ErrLastEntry = errors.New("cannot remove the last playlist entry")
)

// Playlist is an ordered list of distinct effects. It is a value: methods
// that change it return a new Playlist and leave the receiver untouched.
type Playlist struct {
	ids []effect.ID
}

// New builds a playlist, dropping invalid ids and repeats.
func New(ids ...effect.ID) Playlist {
	out := make([]effect.ID, 0, len(ids))
	seen := make(map[effect.ID]bool, len(ids))
	for _, id := range ids {
		if !id.Valid() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return Playlist{ids: out}
}

// FromNames parses effect names into a playlist.
func FromNames(names []string) (Playlist, error) {
	ids := make([]effect.ID, 0, len(names))
	for _, name := range names {
		id, err := effect.Parse(name)
		if err != nil {
			return Playlist{}, err
		}
		ids = append(ids, id)
	}
	return New(ids...), nil
}

// Len returns the number of entries.
func (p Playlist) Len() int { return len(p.ids) }

// IDs returns a copy of the entries.
func (p Playlist) IDs() []effect.ID {
	out := make([]effect.ID, len(p.ids))
	copy(out, p.ids)
	return out
}

// Names returns the entry names in order.
func (p Playlist) Names() []string {
	out := make([]string, len(p.ids))
	for i, id := range p.ids {
		out[i] = id.String()
	}
	return out
}

// At returns the i-th entry.
func (p Playlist) At(i int) (effect.ID, bool) {
	if i < 0 || i >= len(p.ids) {
		return 0, false
	}
	return p.ids[i], true
}

// First returns the first entry, or false if empty.
func (p Playlist) First() (effect.ID, bool) {
	return p.At(0)
}

// Index returns the position of id, or -1.
func (p Playlist) Index(id effect.ID) int {
	for i, e := range p.ids {
		if e == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is listed.
func (p Playlist) Contains(id effect.ID) bool {
	return p.Index(id) >= 0
}

// Next returns the entry after id, wrapping to the first. If id is not
// listed the first entry is returned. An empty playlist returns id.
func (p Playlist) Next(id effect.ID) effect.ID {
	return p.step(id, 1)
}

// Prev returns the entry before id, wrapping to the last.
func (p Playlist) Prev(id effect.ID) effect.ID {
	return p.step(id, -1)
}

func (p Playlist) step(id effect.ID, delta int) effect.ID {
	if len(p.ids) == 0 {
		return id
	}
	i := p.Index(id)
	if i < 0 {
		return p.ids[0]
	}
	return p.ids[(i+delta+len(p.ids))%len(p.ids)]
}

// Intersect keeps the entries that are also in allowed, in p's order.
func (p Playlist) Intersect(allowed Playlist) Playlist {
	out := make([]effect.ID, 0, len(p.ids))
	for _, id := range p.ids {
		if allowed.Contains(id) {
			out = append(out, id)
		}
	}
	return Playlist{ids: out}
}

// Add appends id. It reports false if id was already listed.
func (p Playlist) Add(id effect.ID) (Playlist, bool) {
	if p.Contains(id) {
		return p, false
	}
	out := make([]effect.ID, len(p.ids), len(p.ids)+1)
	copy(out, p.ids)
	return Playlist{ids: append(out, id)}, true
}

// Remove drops id. The playlist never shrinks below one entry.
func (p Playlist) Remove(id effect.ID) (Playlist, error) {
	i := p.Index(id)
	if i < 0 {
		return p, ErrNotFound
	}
	if len(p.ids) <= 1 {
		return p, ErrLastEntry
	}
	out := make([]effect.ID, 0, len(p.ids)-1)
	out = append(out, p.ids[:i]...)
	out = append(out, p.ids[i+1:]...)
	return Playlist{ids: out}, nil
}

// HasAudio reports whether any entry renders from audio.
func (p Playlist) HasAudio() bool {
	for _, id := range p.ids {
		if id.RequiresAudio() {
			return true
		}
	}
	return false
}
