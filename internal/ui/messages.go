package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
)

const tickFPS = 30

type tickMsg time.Time

// commandResultMsg carries the outcome of a submitted command.
type commandResultMsg struct {
	op  controller.Op
	res controller.Result
	err error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/tickFPS, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
