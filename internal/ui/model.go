// Package ui is the terminal LED simulator. It draws the pixels the
// controller last rendered and forwards key presses as commands.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/input"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

const (
	commandTimeout = 3 * time.Second
	noticeTTL      = 4 * time.Second
)

// Controller is the part of *controller.Controller the simulator uses.
type Controller interface {
	Submit(ctx context.Context, cmd controller.Command) (controller.Result, error)
	Status() controller.Status
	Config() config.Config
}

// Pixels returns the last frame written to the strip.
type Pixels interface {
	Snapshot() []sink.Color
}

// Model is the Bubbletea model for the simulator.
type Model struct {
	ctrl   Controller
	pixels Pixels

	status  controller.Status
	px      []sink.Color
	display string

	bands  bandMeter
	volume progress.Model
	keys   keyMap
	help   help.Model

	notice   string
	noticeAt time.Time

	width    int
	height   int
	profile  colorProfile
	quitting bool
}

// New creates a Model reading state from ctrl and pixels from px.
func New(ctrl Controller, px Pixels) Model {
	return Model{
		ctrl:    ctrl,
		pixels:  px,
		status:  ctrl.Status(),
		display: ctrl.Config().Simulator.DisplayMode,
		bands:   newBandMeter(),
		volume: progress.New(
			progress.WithScaledGradient("#FF8C00", "#FF5F1F"),
			progress.WithoutPercentage(),
		),
		keys:    defaultKeyMap(),
		help:    help.New(),
		width:   80,
		height:  24,
		profile: currentColorProfile(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.SetWindowTitle(windowTitle(m.status.CurrentEffect)))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.volume.Width = max(10, min(40, msg.Width-24))
		return m, nil

	case tickMsg:
		prev := m.status.CurrentEffect
		m.status = m.ctrl.Status()
		m.display = m.ctrl.Config().Simulator.DisplayMode
		m.px = m.pixels.Snapshot()
		m.bands.update(m.status.Bands)
		if m.notice != "" && time.Since(m.noticeAt) > noticeTTL {
			m.notice = ""
		}
		if m.status.CurrentEffect != prev {
			return m, tea.Batch(tickCmd(), tea.SetWindowTitle(windowTitle(m.status.CurrentEffect)))
		}
		return m, tickCmd()

	case commandResultMsg:
		if msg.err != nil {
			m.setNotice(describeError(msg.err))
			return m, nil
		}
		m.status = msg.res.Status
		if d := msg.res.Config.Simulator.DisplayMode; d != "" {
			m.display = d
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Display):
		return m, m.submit(controller.UpdateConfig(map[string]any{
			"simulator.display_mode": nextDisplayMode(m.display),
		}))
	case key.Matches(msg, m.keys.Reset):
		return m, m.submit(controller.ResetState())
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return m, nil
	}
	cmd, action := input.KeyCommand(msg.Runes[0])
	if action != input.ActionCommand {
		return m, nil
	}
	return m, m.submit(cmd)
}

func (m Model) submit(cmd controller.Command) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := ctrl.Submit(ctx, cmd)
		return commandResultMsg{op: cmd.Op, res: res, err: err}
	}
}

func (m *Model) setNotice(s string) {
	m.notice = s
	m.noticeAt = time.Now()
}

func describeError(err error) string {
	var ce *controller.CommandError
	if errors.As(err, &ce) {
		return fmt.Sprintf("%s rejected: %v", ce.Op, ce.Err)
	}
	return err.Error()
}

func windowTitle(effect string) string {
	if effect == "" {
		return "glimmer"
	}
	return "glimmer: " + effect
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Glimmer"))
	b.WriteString("  ")
	b.WriteString(effectStyle.Render(m.status.CurrentEffect))
	b.WriteString("  ")
	b.WriteString(modeStyle.Render(m.modeLabel()))
	b.WriteString("\n")

	stripW := max(m.width-4, 8)
	stripH := max(m.height-10, 1)
	b.WriteString(stripStyle.Render(renderStrip(m.px, m.display, stripW, stripH, m.profile)))
	b.WriteString("\n")

	b.WriteString(m.bands.view(m.profile))
	b.WriteString("  ")
	b.WriteString(m.volume.ViewAs(float64(m.status.Volume) / 255))
	b.WriteString("\n")

	b.WriteString(statusStyle.Render(m.audioLine()))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) modeLabel() string {
	idx := 0
	for i, name := range m.status.SupportedEffects {
		if name == m.status.CurrentEffect {
			idx = i + 1
		}
	}
	mode := "Manual"
	if m.status.PlaylistMode {
		mode = "Playlist"
	}
	return fmt.Sprintf("[%s %d/%d]", mode, idx, len(m.status.SupportedEffects))
}

func (m Model) audioLine() string {
	state := "waiting"
	if m.status.AudioActive {
		state = "active"
	}
	beat := ""
	if m.status.Beat {
		beat = "  ♪"
	}
	return fmt.Sprintf("audio %s (%s)  packets %d  layout %s%s",
		state, m.status.AudioSource, m.status.PacketCount, m.display, beat)
}
