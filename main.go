package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/input"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/ui"
)

type options struct {
	configPath string
	logFile    string
	output     string
	debug      bool
	noTUI      bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "config.yaml", "path to the YAML or JSON config file")
	flag.StringVar(&o.logFile, "log", "", "write logs to this file")
	flag.StringVar(&o.output, "output", "", "override hardware.output (simulator or serial)")
	flag.BoolVar(&o.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&o.noTUI, "no-tui", false, "disable the terminal simulator")
	flag.Parse()
	return o
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	tui := interactive && !o.noTUI

	logFile := o.logFile
	if tui && logFile == "" {
		logFile = filepath.Join(os.TempDir(), "glimmer.log")
	}
	log, closeLog, err := initLogger(o.debug, logFile)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.output != "" {
		cfg.Hardware.Output = o.output
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid -output: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, o.configPath, !interactive, log)
	if err != nil {
		return err
	}
	defer a.close()

	switch {
	case tui:
		p := tea.NewProgram(ui.New(a.ctrl, a.strip), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return err
		}
	case interactive:
		console := input.NewConsole(os.Stdout)
		console.Changed(a.ctrl.Status())
		errCh := make(chan error, 1)
		go func() { errCh <- input.RunKeyboard(ctx, a.ctrl, console, stop, log) }()
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				log.Warn("keyboard input unavailable", "err", err)
				<-ctx.Done()
			}
		}
	default:
		<-ctx.Done()
	}
	log.Info("shutting down")
	return nil
}

// initLogger builds the process logger. An empty path logs to stderr.
func initLogger(debug bool, path string) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}
