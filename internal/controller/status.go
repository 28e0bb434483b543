package controller

import (
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
)

// Status is a read-only snapshot of the controller.
type Status struct {
	ID               string   `json:"id"`
	Running          bool     `json:"running"`
	CurrentEffect    string   `json:"current_effect"`
	Mode             string   `json:"mode"`
	PlaylistMode     bool     `json:"playlist_mode"`
	Playlist         []string `json:"playlist"`
	SupportedEffects []string `json:"supported_effects"`
	AudioActive      bool     `json:"audio_active"`
	AudioSource      string   `json:"audio_source"`
	Volume           int      `json:"volume"`
	Beat             bool     `json:"beat"`
	PacketCount      uint64   `json:"packet_count"`
	Bands            []int    `json:"bands"`
	AvailableEffects []string `json:"available_effects"`
}

// Status returns the current state without going through the command
// queue. It is safe to call from any goroutine.
func (c *Controller) Status() Status {
	cfg := c.store.Snapshot()
	cur := c.load()
	s := Status{
		ID:               c.id,
		Running:          c.running.Load(),
		CurrentEffect:    cur.effect.String(),
		Mode:             cur.mode.String(),
		PlaylistMode:     cur.mode == ModePlaylist,
		Playlist:         cfg.Playlist().Names(),
		SupportedEffects: cfg.Supported().Names(),
		AudioActive:      c.src.IsActive(),
		PacketCount:      c.src.PacketCount(),
		Bands:            make([]int, 0, 16),
		AvailableEffects: effect.Names(),
	}
	if f := c.frame.Load(); f != nil {
		s.AudioSource = f.Source.String()
		s.Volume = f.Volume()
		s.Beat = f.Beat()
		for _, b := range f.Bands {
			s.Bands = append(s.Bands, int(b))
		}
	}
	return s
}
