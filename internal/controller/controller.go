package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/playlist"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

const (
	offInterval   = 100 * time.Millisecond
	frameInterval = time.Millisecond
	errorBackoff  = 100 * time.Millisecond
	stopTimeout   = 2 * time.Second
)

// Mode is the playback mode.
type Mode uint8

const (
	ModePlaylist Mode = iota
	ModeManual
)

func (m Mode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "playlist"
}

// playback is the current effect and mode packed into one word so both
// change together.
type playback struct {
	effect effect.ID
	mode   Mode
}

func (p playback) pack() uint32 {
	return uint32(p.effect) | uint32(p.mode)<<8
}

func unpack(v uint32) playback {
	return playback{effect: effect.ID(v), mode: Mode(v >> 8)}
}

// Source delivers decoded audio frames. *audio.Receiver implements it.
type Source interface {
	Receive() (audio.Frame, bool)
	IsActive() bool
	PacketCount() uint64
	LastPacket() time.Time
}

// Options configures a Controller.
type Options struct {
	Store  *config.Store
	Source Source
	Sink   sink.Sink
	Logger *slog.Logger
	// Seed drives particle placement. Zero picks a time based seed.
	Seed uint64
	// Now replaces the wall clock in tests.
	Now func() time.Time
	// OnConfigChange is called after a command changed the configuration.
	OnConfigChange func(config.Config)
	// StatusInterval enables a periodic status log line.
	StatusInterval time.Duration
}

// Controller runs the render loop and applies commands from every input.
// The render loop owns the Renderer; commands only touch atomics and the
// config Store.
type Controller struct {
	id       string
	store    *config.Store
	src      Source
	sink     sink.Sink
	log      *slog.Logger
	now      func() time.Time
	onChange func(config.Config)
	status   time.Duration
	started  time.Time

	renderer *effect.Renderer
	warned   bool
	sinkErr  bool

	state        atomic.Uint32
	lastRotation atomic.Int64
	frame        atomic.Pointer[audio.Frame]
	resetPending atomic.Bool
	running      atomic.Bool

	cmds     chan request
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New validates the startup configuration and prepares a controller.
// The first effect of the effective playlist becomes current.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil || opts.Source == nil || opts.Sink == nil {
		return nil, fmt.Errorf("controller: store, source and sink are required")
	}
	cfg := opts.Store.Snapshot()
	first, ok := cfg.EffectivePlaylist().First()
	if !ok {
		return nil, ErrNoPlayableEffect
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r, err := effect.NewRenderer(cfg.Hardware.NumLEDs, seed)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		id:       uuid.NewString(),
		store:    opts.Store,
		src:      opts.Source,
		sink:     opts.Sink,
		log:      log.With("component", "controller"),
		now:      now,
		onChange: opts.OnConfigChange,
		status:   opts.StatusInterval,
		renderer: r,
		cmds:     make(chan request),
		quit:     make(chan struct{}),
	}
	c.started = now()
	c.lastRotation.Store(c.started.UnixNano())
	c.state.Store(playback{effect: first, mode: ModePlaylist}.pack())
	return c, nil
}

// ID identifies this controller instance.
func (c *Controller) ID() string { return c.id }

// Running reports whether Start was called and Stop was not.
func (c *Controller) Running() bool { return c.running.Load() }

// Current returns the current effect and mode.
func (c *Controller) Current() (effect.ID, Mode) {
	p := c.load()
	return p.effect, p.mode
}

// Config returns the live configuration snapshot.
func (c *Controller) Config() config.Config {
	return c.store.Snapshot().Clone()
}

// Start launches the render loop and the command dispatcher. Cancelling
// ctx stops the controller.
func (c *Controller) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.started = c.now()
	c.lastRotation.Store(c.started.UnixNano())
	c.startDispatcher()
	c.wg.Add(1)
	go c.loop()
	if c.status > 0 {
		c.wg.Add(1)
		go c.statusLoop()
	}
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.quit:
		}
	}()
	p := c.load()
	c.log.Info("controller started", "id", c.id, "effect", p.effect, "mode", p.mode)
}

func (c *Controller) startDispatcher() {
	c.wg.Add(1)
	go c.dispatch()
}

// Stop ends the render loop, waits for it up to two seconds and blanks
// the strip.
func (c *Controller) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.log.Info("stopping controller")
		c.running.Store(false)
		close(c.quit)

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(stopTimeout):
			c.log.Warn("render loop did not stop in time", "timeout", stopTimeout)
		}

		if err = sink.Clear(c.sink); err != nil {
			err = fmt.Errorf("clear strip: %w", err)
		}
		c.log.Info("controller stopped")
	})
	return err
}

// Submit delivers cmd to the controller and waits for its result.
func (c *Controller) Submit(ctx context.Context, cmd Command) (Result, error) {
	if !c.running.Load() {
		return Result{}, &CommandError{Op: cmd.Op, Err: ErrStopped}
	}
	req := request{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case c.cmds <- req:
	case <-c.quit:
		return Result{}, &CommandError{Op: cmd.Op, Err: ErrStopped}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Controller) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.cmds:
			res, err := c.handle(req.cmd)
			if err != nil {
				c.log.Debug("command rejected", "op", req.cmd.Op, "err", err)
			}
			req.reply <- reply{res: res, err: err}
		}
	}
}

func (c *Controller) load() playback {
	return unpack(c.state.Load())
}

func (c *Controller) set(p playback) {
	old := unpack(c.state.Swap(p.pack()))
	if old != p {
		c.log.Info("effect changed", "effect", p.effect, "mode", p.mode)
	}
}

func (c *Controller) resetTimer(now time.Time) {
	c.lastRotation.Store(now.UnixNano())
}

func (c *Controller) sinceRotation(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastRotation.Load()))
}

func (c *Controller) loop() {
	defer c.wg.Done()
	t := time.NewTimer(0)
	defer t.Stop()
	<-t.C
	for {
		select {
		case <-c.quit:
			return
		default:
		}
		wait := c.safeTick()
		t.Reset(wait)
		select {
		case <-c.quit:
			return
		case <-t.C:
		}
	}
}

func (c *Controller) safeTick() (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("render tick failed", "panic", r)
			wait = errorBackoff
		}
	}()
	return c.tick(c.now())
}

// tick runs one render iteration and returns how long to wait before
// the next one.
func (c *Controller) tick(now time.Time) time.Duration {
	cfg := c.store.Snapshot()
	if c.resetPending.CompareAndSwap(true, false) {
		c.renderer.Reset()
	}
	params := effect.Params{
		VolumeFactor:      cfg.VolumeFactor(),
		RainbowBrightness: cfg.Effects.Rainbow.Brightness,
	}

	id := c.arbitrate(cfg, now)
	switch {
	case id == effect.Off:
		c.show(c.renderer.Blackout())
		return offInterval
	case !id.RequiresAudio():
		c.show(c.renderer.Render(id, effect.Input{Now: now}, params))
		return cfg.RainbowInterval()
	}

	f, ok := c.src.Receive()
	if !ok {
		c.checkLiveness(cfg, c.now())
		c.show(c.renderer.Blackout())
		return frameInterval
	}
	f = f.Compensated(cfg.VolumeFactor())
	c.frame.Store(&f)
	c.warned = false
	c.show(c.renderer.Render(id, effect.Input{Frame: f, Now: c.now()}, params))
	return frameInterval
}

// arbitrate applies playlist rules and returns the effect to render. A
// command that lands concurrently wins over rotation.
func (c *Controller) arbitrate(cfg *config.Config, now time.Time) effect.ID {
	cur := c.load()
	if cur.mode != ModePlaylist {
		return cur.effect
	}
	pl := cfg.EffectivePlaylist()
	if pl.Len() == 0 {
		pl = playlist.New(effect.Off)
	}

	next := cur.effect
	switch {
	case !pl.Contains(cur.effect):
		next, _ = pl.First()
	case pl.Len() > 1 && c.sinceRotation(now) >= cfg.RotationInterval():
		next = pl.Next(cur.effect)
		c.resetTimer(now)
	}
	if next == cur.effect {
		return next
	}
	want := playback{effect: next, mode: ModePlaylist}
	if !c.state.CompareAndSwap(cur.pack(), want.pack()) {
		return c.load().effect
	}
	c.log.Info("effect changed", "effect", next, "mode", ModePlaylist)
	return next
}

func (c *Controller) checkLiveness(cfg *config.Config, now time.Time) {
	if c.warned || c.load().mode != ModePlaylist || !cfg.EffectivePlaylist().HasAudio() {
		return
	}
	last := c.src.LastPacket()
	if last.Before(c.started) {
		last = c.started
	}
	if now.Sub(last) >= audio.DefaultActiveTimeout {
		c.log.Warn("no audio data received for 3s, waiting for audio source")
		c.warned = true
	}
}

func (c *Controller) show(s effect.Strip) {
	for i, px := range s {
		c.sink.SetPixel(i, px.R, px.G, px.B)
	}
	if err := c.sink.Show(); err != nil {
		if !c.sinkErr {
			c.log.Warn("pixel sink failed", "err", err)
			c.sinkErr = true
		}
		return
	}
	if c.sinkErr {
		c.log.Info("pixel sink recovered")
		c.sinkErr = false
	}
}

func (c *Controller) statusLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.status)
	defer t.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-t.C:
			s := c.Status()
			c.log.Info("status",
				"effect", s.CurrentEffect,
				"mode", s.Mode,
				"audio_active", s.AudioActive,
				"packets", s.PacketCount,
			)
		}
	}
}
