package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/fatih/color"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

// Console prints keyboard feedback for the plain terminal mode.
type Console struct {
	w io.Writer
}

// NewConsole writes to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Changed reports a new effect and mode.
func (c *Console) Changed(s controller.Status) {
	mode := "Manual"
	if s.PlaylistMode {
		mode = "Playlist"
	}
	green.Fprintf(c.w, "\r🎨 Effect changed to: %s (%s)\n", s.CurrentEffect, mode)
	c.Hint(s)
}

// Hint prints the position of the current effect and the main keys.
func (c *Console) Hint(s controller.Status) {
	idx := 1
	for i, name := range s.SupportedEffects {
		if name == s.CurrentEffect {
			idx = i + 1
		}
	}
	fmt.Fprintf(c.w, "   [%d/%d] Press 'n'=next, 'p'=prev, 'h'=help, 'q'=quit\n", idx, len(s.SupportedEffects))
}

// Help prints every shortcut and the supported effects.
func (c *Console) Help(s controller.Status) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(c.w)
	cyan.Fprintln(c.w, rule)
	bold.Fprintln(c.w, "⌨️  KEYBOARD SHORTCUTS")
	cyan.Fprintln(c.w, rule)
	for _, k := range KeyHelp {
		fmt.Fprintf(c.w, "  %-7s - %s\n", k[0], k[1])
	}
	fmt.Fprintln(c.w)
	bold.Fprintln(c.w, "📋 SUPPORTED EFFECTS:")
	for i, name := range s.SupportedEffects {
		marker := "  "
		if name == s.CurrentEffect {
			marker = "👉"
		}
		fmt.Fprintf(c.w, "  %s [%d] %s\n", marker, i%10, name)
	}
	cyan.Fprintln(c.w, rule)
	c.Hint(s)
}

// Rejected reports a command error.
func (c *Console) Rejected(err error) {
	yellow.Fprintf(c.w, "\r⚠️  %v\n", err)
}

// RunKeyboard reads single keys from the terminal until ctx is done or
// the user quits. quit is called on 'q', Esc or Ctrl+C.
func RunKeyboard(ctx context.Context, ctrl Submitter, console *Console, quit func(), log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "keyboard")
	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	closeOnce := &sync.Once{}
	closeKeyboard := func() { closeOnce.Do(func() { _ = keyboard.Close() }) }
	defer closeKeyboard()
	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	for {
		char, key, err := keyboard.GetKey()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read key: %w", err)
		}
		if key == keyboard.KeyEsc || key == keyboard.KeyCtrlC {
			char = 'q'
		}
		if err := HandleKey(ctx, ctrl, console, char); err != nil {
			if errors.Is(err, errQuit) {
				log.Info("quit requested via keyboard")
				quit()
				return nil
			}
			log.Debug("key rejected", "key", string(char), "err", err)
		}
	}
}

var errQuit = errors.New("quit")

// HandleKey runs the command bound to r and prints the outcome.
func HandleKey(ctx context.Context, ctrl Submitter, console *Console, r rune) error {
	cmd, action := KeyCommand(r)
	switch action {
	case ActionNone:
		return nil
	case ActionQuit:
		return errQuit
	case ActionHelp:
		cmd = controller.GetStatus()
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := ctrl.Submit(ctx, cmd)
	if err != nil {
		console.Rejected(err)
		return err
	}
	if action == ActionHelp {
		console.Help(res.Status)
	} else {
		console.Changed(res.Status)
	}
	return nil
}
