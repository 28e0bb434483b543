package controller

import (
	"errors"
	"fmt"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/playlist"
)

// handle applies one command. It runs on the dispatcher goroutine only.
func (c *Controller) handle(cmd Command) (Result, error) {
	var err error
	switch cmd.Op {
	case OpSetEffect:
		err = c.setEffect(cmd.Effect, cmd.ExitPlaylist)
	case OpNextEffect:
		c.stepSupported(1)
	case OpPrevEffect:
		c.stepSupported(-1)
	case OpSelectIndex:
		err = c.selectIndex(cmd.Index)
	case OpResumePlaylist:
		c.resumePlaylist()
	case OpUpdateConfig:
		err = c.updateConfig(cmd.Patch)
	case OpAddToPlaylist:
		err = c.addToPlaylist(cmd.Effect)
	case OpRemoveFromPlaylist:
		err = c.removeFromPlaylist(cmd.Effect)
	case OpResetState:
		c.resetPending.Store(true)
	case OpGetStatus, OpGetConfig:
	default:
		err = ErrUnknownOp
	}
	if err != nil {
		return Result{}, &CommandError{Op: cmd.Op, Err: err}
	}
	return Result{Status: c.Status(), Config: c.Config()}, nil
}

func (c *Controller) setEffect(name string, exitPlaylist bool) error {
	id, err := effect.Parse(name)
	if err != nil {
		return err
	}
	mode := c.load().mode
	if exitPlaylist {
		mode = ModeManual
	}
	c.set(playback{effect: id, mode: mode})
	return nil
}

// stepSupported moves through the supported effects and leaves playlist
// mode. An effect outside the set steps to its first or last entry.
func (c *Controller) stepSupported(delta int) {
	supported := c.store.Snapshot().Supported()
	if supported.Len() == 0 {
		return
	}
	cur := c.load().effect
	var next effect.ID
	switch {
	case delta < 0 && !supported.Contains(cur):
		next, _ = supported.At(supported.Len() - 1)
	case delta < 0:
		next = supported.Prev(cur)
	default:
		next = supported.Next(cur)
	}
	c.set(playback{effect: next, mode: ModeManual})
}

func (c *Controller) selectIndex(i int) error {
	id, ok := c.store.Snapshot().Supported().At(i)
	if !ok {
		return fmt.Errorf("%w %d", ErrNoEffectAtIndex, i)
	}
	c.set(playback{effect: id, mode: ModeManual})
	return nil
}

func (c *Controller) resumePlaylist() {
	cur := c.load().effect
	if first, ok := c.store.Snapshot().EffectivePlaylist().First(); ok {
		cur = first
	}
	c.resetTimer(c.now())
	c.set(playback{effect: cur, mode: ModePlaylist})
}

// updateConfig merges patch into the config. A current_effect or
// static_effect key also switches to that effect and leaves playlist
// mode; an unknown name rejects the whole update.
func (c *Controller) updateConfig(patch map[string]any) error {
	var (
		legacy    effect.ID
		hasLegacy bool
	)
	if name := config.LegacyEffect(patch); name != "" {
		id, err := effect.Parse(name)
		if err != nil {
			return err
		}
		legacy, hasLegacy = id, true
	}

	var (
		change  config.Change
		applied bool
	)
	next, err := c.store.Update(func(cfg config.Config) (config.Config, error) {
		out, ch, err := cfg.Apply(patch)
		if errors.Is(err, config.ErrNoRecognizedKeys) && hasLegacy {
			return cfg, nil
		}
		change, applied = ch, err == nil
		return out, err
	})
	if err != nil {
		return err
	}
	if change.Playlist || change.RotationPeriod {
		c.resetTimer(c.now())
	}
	if change.Playlist {
		c.followPlaylist(next.EffectivePlaylist())
	}
	if hasLegacy {
		c.set(playback{effect: legacy, mode: ModeManual})
	}
	if applied {
		c.changed(next)
	}
	return nil
}

func (c *Controller) addToPlaylist(name string) error {
	id, err := effect.Parse(name)
	if err != nil {
		return err
	}
	var added bool
	next, err := c.store.Update(func(cfg config.Config) (config.Config, error) {
		if !cfg.Supported().Contains(id) {
			return cfg, fmt.Errorf("%w: %s", ErrUnsupported, id)
		}
		var pl playlist.Playlist
		pl, added = cfg.Playlist().Add(id)
		cfg.Runtime.EffectsPlaylist = pl.Names()
		return cfg, nil
	})
	if err != nil {
		return err
	}
	if added {
		c.changed(next)
	}
	return nil
}

func (c *Controller) removeFromPlaylist(name string) error {
	id, err := effect.Parse(name)
	if err != nil {
		return err
	}
	next, err := c.store.Update(func(cfg config.Config) (config.Config, error) {
		pl, err := cfg.Playlist().Remove(id)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s", err, id)
		}
		cfg.Runtime.EffectsPlaylist = pl.Names()
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
		return cfg, nil
	})
	if err != nil {
		return err
	}
	if cur := c.load(); cur.mode == ModePlaylist && cur.effect == id {
		c.followPlaylist(next.EffectivePlaylist())
	}
	c.changed(next)
	return nil
}

// followPlaylist moves to the first entry of pl if the current effect is
// no longer listed. The mode is kept.
func (c *Controller) followPlaylist(pl playlist.Playlist) {
	cur := c.load()
	if pl.Contains(cur.effect) {
		return
	}
	if first, ok := pl.First(); ok {
		c.set(playback{effect: first, mode: cur.mode})
	}
}

func (c *Controller) changed(cfg config.Config) {
	if c.onChange != nil {
		c.onChange(cfg)
	}
}
