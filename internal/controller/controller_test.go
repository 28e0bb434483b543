package controller

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/playlist"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = epoch.Add(d)
	return c.t
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	frames []audio.Frame
	last   time.Time
	count  uint64
	panics bool
}

func (s *fakeSource) push(f audio.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *fakeSource) Receive() (audio.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("corrupt frame")
	}
	if len(s.frames) == 0 {
		return audio.Frame{}, false
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	s.count++
	return f, true
}

func (s *fakeSource) IsActive() bool { return false }

func (s *fakeSource) PacketCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *fakeSource) LastPacket() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type harness struct {
	c       *Controller
	src     *fakeSource
	strip   *sink.Memory
	clock   *fakeClock
	logs    *bytes.Buffer
	changes []config.Config
}

func testConfig(playlistNames ...string) config.Config {
	c := config.Default()
	c.Hardware.NumLEDs = 16
	c.Hardware.SupportedEffects = effect.Names()
	c.Runtime.EffectsPlaylist = playlistNames
	c.Runtime.RotationPeriod = 2
	c.Audio.VolumeCompensation = 1
	c.Effects.Rainbow = config.Rainbow{Speed: 20, Brightness: 200}
	c.Network.AudioPort = 31337
	c.Network.AudioFormat = "auto"
	return c
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		src:   &fakeSource{},
		strip: sink.NewMemory(cfg.Hardware.NumLEDs),
		clock: &fakeClock{t: epoch},
		logs:  &bytes.Buffer{},
	}
	c, err := New(Options{
		Store:  config.NewStore(cfg),
		Source: h.src,
		Sink:   h.strip,
		Logger: slog.New(slog.NewTextHandler(h.logs, nil)),
		Seed:   7,
		Now:    h.clock.now,
		OnConfigChange: func(c config.Config) {
			h.changes = append(h.changes, c)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.c = c
	return h
}

// serve runs the command dispatcher without the render loop so tests can
// drive ticks by hand.
func (h *harness) serve(t *testing.T) {
	t.Helper()
	h.c.running.Store(true)
	h.c.startDispatcher()
	t.Cleanup(func() { h.c.Stop() })
}

func (h *harness) submit(t *testing.T, cmd Command) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.c.Submit(ctx, cmd)
}

func (h *harness) tickAt(d time.Duration) effect.ID {
	h.c.tick(h.clock.set(d))
	id, _ := h.c.Current()
	return id
}

func TestRotationOffRainbow(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	steps := []struct {
		at   time.Duration
		want effect.ID
	}{
		{0, effect.Off},
		{1900 * time.Millisecond, effect.Off},
		{2 * time.Second, effect.Rainbow},
		{3 * time.Second, effect.Rainbow},
		{4 * time.Second, effect.Off},
	}
	for _, s := range steps {
		if got := h.tickAt(s.at); got != s.want {
			t.Fatalf("effect at %v = %v, want %v", s.at, got, s.want)
		}
	}
}

func TestRotationWrapsAround(t *testing.T) {
	cfg := testConfig("fire", "ripple", "pixels")
	cfg.Runtime.RotationPeriod = 1
	h := newHarness(t, cfg)
	want := []effect.ID{effect.Fire, effect.Ripple, effect.Pixels, effect.Fire, effect.Ripple}
	for i, w := range want {
		if got := h.tickAt(time.Duration(i) * time.Second); got != w {
			t.Fatalf("effect at %ds = %v, want %v", i, got, w)
		}
	}
}

func TestSingleEntryNeverRotates(t *testing.T) {
	h := newHarness(t, testConfig("rainbow"))
	for i := range 5 {
		if got := h.tickAt(time.Duration(i) * 10 * time.Second); got != effect.Rainbow {
			t.Fatalf("effect = %v, want rainbow", got)
		}
	}
}

func TestNewRequiresPlayableEffect(t *testing.T) {
	cfg := testConfig("rainbow")
	cfg.Hardware.SupportedEffects = []string{"off"}
	_, err := New(Options{Store: config.NewStore(cfg), Source: &fakeSource{}, Sink: sink.NewMemory(4)})
	if !errors.Is(err, ErrNoPlayableEffect) {
		t.Fatalf("err = %v, want ErrNoPlayableEffect", err)
	}
}

func TestNewStartsOnFirstSupportedEntry(t *testing.T) {
	cfg := testConfig("fire", "rainbow")
	cfg.Hardware.SupportedEffects = []string{"off", "rainbow"}
	h := newHarness(t, cfg)
	if id, mode := h.c.Current(); id != effect.Rainbow || mode != ModePlaylist {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
}

func TestSetEffectUnknownLeavesState(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	_, err := h.submit(t, SetEffect("lasers", true))
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr.Op != OpSetEffect || !errors.Is(err, effect.ErrUnknown) {
		t.Fatalf("err = %v, want CommandError wrapping ErrUnknown", err)
	}
	if id, mode := h.c.Current(); id != effect.Off || mode != ModePlaylist {
		t.Fatalf("state changed to %v, %v", id, mode)
	}
}

func TestSetEffectExitsPlaylist(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	res, err := h.submit(t, SetEffect("fire", true))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status.CurrentEffect != "fire" || res.Status.PlaylistMode {
		t.Fatalf("status = %+v", res.Status)
	}
	if got := h.tickAt(10 * time.Second); got != effect.Fire {
		t.Fatalf("manual mode rotated to %v", got)
	}
}

func TestSetEffectKeepingPlaylistMode(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	if _, err := h.submit(t, SetEffect("rainbow", false)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, mode := h.c.Current(); id != effect.Rainbow || mode != ModePlaylist {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
}

func TestPlaylistModeSnapsBackToListedEffect(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	h.submit(t, SetEffect("fire", false))
	if got := h.tickAt(time.Second); got != effect.Off {
		t.Fatalf("effect = %v, want first playlist entry", got)
	}
}

func TestResumePlaylist(t *testing.T) {
	h := newHarness(t, testConfig("rainbow", "off"))
	h.serve(t)

	h.submit(t, SetEffect("fire", true))
	h.clock.set(5 * time.Second)
	res, err := h.submit(t, ResumePlaylist())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status.CurrentEffect != "rainbow" || !res.Status.PlaylistMode {
		t.Fatalf("status = %+v", res.Status)
	}
	if got := h.tickAt(6 * time.Second); got != effect.Rainbow {
		t.Fatalf("effect = %v, resume should restart the rotation period", got)
	}
	if got := h.tickAt(7 * time.Second); got != effect.Off {
		t.Fatalf("effect = %v, want off after a full period", got)
	}
}

func TestNextPrevStepThroughSupported(t *testing.T) {
	cfg := testConfig("off")
	cfg.Hardware.SupportedEffects = []string{"off", "rainbow", "fire"}
	h := newHarness(t, cfg)
	h.serve(t)

	steps := []struct {
		cmd  Command
		want effect.ID
	}{
		{NextEffect(), effect.Rainbow},
		{NextEffect(), effect.Fire},
		{NextEffect(), effect.Off},
		{PrevEffect(), effect.Fire},
		{PrevEffect(), effect.Rainbow},
	}
	for i, s := range steps {
		if _, err := h.submit(t, s.cmd); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if id, mode := h.c.Current(); id != s.want || mode != ModeManual {
			t.Fatalf("step %d: Current() = %v, %v, want %v manual", i, id, mode, s.want)
		}
	}
}

func TestPrevFromUnsupportedPicksLast(t *testing.T) {
	cfg := testConfig("off")
	cfg.Hardware.SupportedEffects = []string{"off", "rainbow", "fire"}
	h := newHarness(t, cfg)
	h.serve(t)

	h.submit(t, SetEffect("blurz", true))
	h.submit(t, PrevEffect())
	if id, _ := h.c.Current(); id != effect.Fire {
		t.Fatalf("Current() = %v, want fire", id)
	}
}

func TestSelectIndex(t *testing.T) {
	cfg := testConfig("off")
	cfg.Hardware.SupportedEffects = []string{"off", "rainbow", "fire"}
	h := newHarness(t, cfg)
	h.serve(t)

	if _, err := h.submit(t, SelectIndex(2)); err != nil {
		t.Fatalf("SelectIndex(2): %v", err)
	}
	if id, mode := h.c.Current(); id != effect.Fire || mode != ModeManual {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
	if _, err := h.submit(t, SelectIndex(9)); !errors.Is(err, ErrNoEffectAtIndex) {
		t.Fatalf("err = %v, want ErrNoEffectAtIndex", err)
	}
	if id, _ := h.c.Current(); id != effect.Fire {
		t.Fatalf("failed selection changed effect to %v", id)
	}
}

func TestRemoveLastEntryRejected(t *testing.T) {
	h := newHarness(t, testConfig("rainbow"))
	h.serve(t)

	_, err := h.submit(t, RemoveFromPlaylist("rainbow"))
	if !errors.Is(err, playlist.ErrLastEntry) {
		t.Fatalf("err = %v, want ErrLastEntry", err)
	}
	if got := h.c.Config().Runtime.EffectsPlaylist; len(got) != 1 {
		t.Fatalf("playlist = %v", got)
	}
	if len(h.changes) != 0 {
		t.Fatal("rejected removal must not persist")
	}
}

func TestRemoveCurrentJumpsToNewFirst(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow", "fire"))
	h.serve(t)

	res, err := h.submit(t, RemoveFromPlaylist("off"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status.CurrentEffect != "rainbow" || !res.Status.PlaylistMode {
		t.Fatalf("status = %+v", res.Status)
	}
	if len(h.changes) != 1 || len(h.changes[0].Runtime.EffectsPlaylist) != 2 {
		t.Fatalf("changes = %+v", h.changes)
	}
	if _, err := h.submit(t, RemoveFromPlaylist("blurz")); !errors.Is(err, playlist.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveInManualModeKeepsEffect(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	h.submit(t, SetEffect("off", true))
	if _, err := h.submit(t, RemoveFromPlaylist("off")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, mode := h.c.Current(); id != effect.Off || mode != ModeManual {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
}

func TestAddToPlaylist(t *testing.T) {
	cfg := testConfig("off")
	cfg.Hardware.SupportedEffects = []string{"off", "rainbow"}
	h := newHarness(t, cfg)
	h.serve(t)

	res, err := h.submit(t, AddToPlaylist("rainbow"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := res.Config.Runtime.EffectsPlaylist; len(got) != 2 || got[1] != "rainbow" {
		t.Fatalf("playlist = %v", got)
	}
	if _, err := h.submit(t, AddToPlaylist("rainbow")); err != nil {
		t.Fatalf("adding twice: %v", err)
	}
	if len(h.changes) != 1 {
		t.Fatalf("duplicate add persisted: %d changes", len(h.changes))
	}
	if _, err := h.submit(t, AddToPlaylist("fire")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if _, err := h.submit(t, AddToPlaylist("lasers")); !errors.Is(err, effect.ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
}

func TestUpdateConfigFollowsPlaylistAndResetsTimer(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	h.clock.set(1500 * time.Millisecond)
	_, err := h.submit(t, UpdateConfig(map[string]any{
		"runtime": map[string]any{"effects_playlist": []any{"fire", "rainbow"}},
	}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, mode := h.c.Current(); id != effect.Fire || mode != ModePlaylist {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
	if got := h.tickAt(3 * time.Second); got != effect.Fire {
		t.Fatalf("effect = %v, timer should restart at the update", got)
	}
	if got := h.tickAt(3500 * time.Millisecond); got != effect.Rainbow {
		t.Fatalf("effect = %v, want rainbow", got)
	}
	if len(h.changes) != 1 {
		t.Fatalf("changes = %d", len(h.changes))
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	before := h.c.Config()
	_, err := h.submit(t, UpdateConfig(map[string]any{"runtime.rotation_period": 0.5}))
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	_, err = h.submit(t, UpdateConfig(map[string]any{"colour": "red"}))
	if !errors.Is(err, config.ErrNoRecognizedKeys) {
		t.Fatalf("err = %v, want ErrNoRecognizedKeys", err)
	}
	if after := h.c.Config(); after.Runtime.RotationPeriod != before.Runtime.RotationPeriod {
		t.Fatal("rejected update changed the config")
	}
}

func TestUpdateConfigLegacyEffect(t *testing.T) {
	h := newHarness(t, testConfig("off", "rainbow"))
	h.serve(t)

	_, err := h.submit(t, UpdateConfig(map[string]any{
		"rotation_period": 4.0,
		"current_effect":  "lasers",
	}))
	if !errors.Is(err, effect.ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
	if h.c.Config().Runtime.RotationPeriod != 2 || len(h.changes) != 0 {
		t.Fatal("rejected update changed the config")
	}

	if _, err := h.submit(t, UpdateConfig(map[string]any{"static_effect": "fire"})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, mode := h.c.Current(); id != effect.Fire || mode != ModeManual {
		t.Fatalf("Current() = %v, %v", id, mode)
	}
	if len(h.changes) != 0 {
		t.Fatalf("effect-only update persisted %d changes", len(h.changes))
	}

	if _, err := h.submit(t, UpdateConfig(map[string]any{
		"rotation_period": 4.0,
		"current_effect":  "ripple",
	})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id, _ := h.c.Current(); id != effect.Ripple || h.c.Config().Runtime.RotationPeriod != 4 {
		t.Fatalf("Current() = %v, rotation = %v", id, h.c.Config().Runtime.RotationPeriod)
	}
	if len(h.changes) != 1 {
		t.Fatalf("changes = %d", len(h.changes))
	}
}

func TestAudioFrameRenders(t *testing.T) {
	cfg := testConfig("spectrum_bars")
	cfg.Audio.VolumeCompensation = 2
	h := newHarness(t, cfg)

	var f audio.Frame
	f.SampleAGC = 100
	for i := range f.Bands {
		f.Bands[i] = 255
	}
	h.src.push(f)
	h.tickAt(0)

	s := h.c.Status()
	if s.Volume != 200 || s.PacketCount != 1 || len(s.Bands) != audio.NumBands {
		t.Fatalf("status = %+v", s)
	}
	var lit int
	for _, px := range h.strip.Snapshot() {
		if px != (sink.Color{}) {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("expected lit pixels")
	}
}

func TestNoDataWarnsOnceAndBlanks(t *testing.T) {
	h := newHarness(t, testConfig("fire", "ripple"))
	h.strip.SetPixel(0, 9, 9, 9)
	h.strip.Show()

	h.tickAt(time.Second)
	if strings.Contains(h.logs.String(), "no audio data") {
		t.Fatal("warned before 3s")
	}
	if h.strip.Snapshot()[0] != (sink.Color{}) {
		t.Fatal("strip should be blank without data")
	}
	h.tickAt(3 * time.Second)
	h.tickAt(3500 * time.Millisecond)
	if n := strings.Count(h.logs.String(), "no audio data"); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}

	h.src.push(audio.Frame{})
	h.tickAt(3600 * time.Millisecond)
	if h.c.warned {
		t.Fatal("a frame should re-arm the warning")
	}
}

func TestNoWarningInManualMode(t *testing.T) {
	h := newHarness(t, testConfig("fire"))
	h.serve(t)

	h.submit(t, SetEffect("ripple", true))
	h.tickAt(10 * time.Second)
	if strings.Contains(h.logs.String(), "no audio data") {
		t.Fatal("manual mode must not warn")
	}
}

func TestPanicInTickIsRecovered(t *testing.T) {
	h := newHarness(t, testConfig("fire"))
	h.src.panics = true
	if wait := h.c.safeTick(); wait != errorBackoff {
		t.Fatalf("wait = %v, want %v", wait, errorBackoff)
	}
	if !strings.Contains(h.logs.String(), "render tick failed") {
		t.Fatal("panic should be logged")
	}
}

func TestTickIntervals(t *testing.T) {
	h := newHarness(t, testConfig("off"))
	if wait := h.c.tick(h.clock.now()); wait != offInterval {
		t.Fatalf("off wait = %v", wait)
	}
	h2 := newHarness(t, testConfig("rainbow"))
	if wait := h2.c.tick(h2.clock.now()); wait != 20*time.Millisecond {
		t.Fatalf("rainbow wait = %v", wait)
	}
}

func TestResetStateClearsEffectState(t *testing.T) {
	h := newHarness(t, testConfig("fire"))
	h.serve(t)

	for range 3 {
		h.src.push(audio.Frame{})
		h.tickAt(0)
	}
	if h.c.renderer.State().Time != 3 {
		t.Fatalf("Time = %d", h.c.renderer.State().Time)
	}
	h.submit(t, ResetState())
	h.tickAt(0)
	if got := h.c.renderer.State().Time; got != 0 {
		t.Fatalf("Time = %d after reset, want 0", got)
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, testConfig("rainbow"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.c.Start(ctx)

	res, err := h.submit(t, GetStatus())
	if err != nil || !res.Status.Running || res.Status.ID == "" {
		t.Fatalf("GetStatus = %+v, %v", res.Status, err)
	}

	if err := h.c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for i, px := range h.strip.Snapshot() {
		if px != (sink.Color{}) {
			t.Fatalf("pixel %d = %v after Stop", i, px)
		}
	}
	if _, err := h.submit(t, GetStatus()); !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("resume_playlist")
	if err != nil || op != OpResumePlaylist {
		t.Fatalf("ParseOp = %v, %v", op, err)
	}
	if _, err := ParseOp("dance"); !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("err = %v", err)
	}
}
