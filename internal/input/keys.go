// Package input turns keyboard, MQTT and MIDI events into controller
// commands.
package input

import (
	"context"
	"unicode"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
)

// Submitter accepts controller commands. *controller.Controller
// implements it.
type Submitter interface {
	Submit(ctx context.Context, cmd controller.Command) (controller.Result, error)
}

// Action is what a key does besides sending a command.
type Action uint8

const (
	ActionNone Action = iota
	ActionCommand
	ActionHelp
	ActionQuit
)

// KeyCommand maps a key to a command. Digits select supported effects by
// position: 0 is the first, 1 the second and so on.
func KeyCommand(r rune) (controller.Command, Action) {
	switch unicode.ToLower(r) {
	case 'n':
		return controller.NextEffect(), ActionCommand
	case 'p':
		return controller.PrevEffect(), ActionCommand
	case 'r':
		return controller.ResumePlaylist(), ActionCommand
	case 'h':
		return controller.Command{}, ActionHelp
	case 'q':
		return controller.Command{}, ActionQuit
	}
	if r >= '0' && r <= '9' {
		return controller.SelectIndex(int(r - '0')), ActionCommand
	}
	return controller.Command{}, ActionNone
}

// KeyHelp lists the shortcuts in display order.
var KeyHelp = [][2]string{
	{"n", "Next effect (manual mode)"},
	{"p", "Previous effect (manual mode)"},
	{"r", "Resume playlist mode (auto-rotation)"},
	{"h", "Show this help"},
	{"q", "Quit"},
	{"0", "Jump to the first supported effect"},
	{"1-9", "Jump to supported effects 2-10 (manual mode)"},
}
