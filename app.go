package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/api"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/discovery"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/input"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

const (
	statusInterval  = 60 * time.Second
	shutdownTimeout = 5 * time.Second
	saveDelay       = 500 * time.Millisecond
)

// app holds every running service so they can be closed in reverse order.
type app struct {
	ctrl    *controller.Controller
	strip   *sink.Memory
	closers []func()
	log     *slog.Logger
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// startApp opens the pixel sinks and audio socket, starts the controller
// and brings up whichever control surfaces cfg enables. On error every
// service started so far is closed again.
func startApp(ctx context.Context, cfg config.Config, configPath string, logStatus bool, log *slog.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	n := cfg.Hardware.NumLEDs
	a.strip = sink.NewMemory(n)
	out := sink.Sink(a.strip)
	if cfg.Hardware.Output == config.OutputSerial {
		order, err := sink.ParseColorOrder(cfg.Hardware.ColorOrder)
		if err != nil {
			return nil, err
		}
		serial, err := sink.OpenSerial(cfg.Hardware.SerialPort, cfg.Hardware.SerialBaud, n, order, log)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { serial.Close() })
		out = sink.Multi(a.strip, serial)
	}

	rx, err := audio.Listen(cfg.Network.AudioPort, cfg.AudioProtocol(), log)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { rx.Close() })

	saver := config.NewSaver(configPath, saveDelay, log)
	a.onClose(func() { saver.Flush() })

	opts := controller.Options{
		Store:          config.NewStore(cfg),
		Source:         rx,
		Sink:           out,
		Logger:         log,
		OnConfigChange: saver.Save,
	}
	if logStatus {
		opts.StatusInterval = statusInterval
	}
	a.ctrl, err = controller.New(opts)
	if err != nil {
		return nil, err
	}
	a.ctrl.Start(ctx)
	a.onClose(func() {
		if err := a.ctrl.Stop(); err != nil {
			log.Warn("controller stop", "err", err)
		}
	})

	srv := api.New(a.ctrl, a.strip, log)
	if err := srv.Start(fmt.Sprintf(":%d", cfg.Network.APIPort)); err != nil {
		return nil, err
	}
	a.onClose(func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("http shutdown", "err", err)
		}
	})

	if cfg.Network.MDNS {
		host, _ := os.Hostname()
		adv, err := discovery.Advertise(discovery.Config{
			Instance:  "glimmer-" + host,
			APIPort:   cfg.Network.APIPort,
			AudioPort: cfg.Network.AudioPort,
			ID:        a.ctrl.ID(),
		}, log)
		if err != nil {
			log.Warn("mdns advertisement unavailable", "err", err)
		} else {
			a.onClose(func() { adv.Shutdown() })
		}
	}

	if cfg.Network.MQTT.Broker != "" {
		m, err := input.ConnectMQTT(cfg.Network.MQTT, a.ctrl, log)
		if err != nil {
			log.Warn("mqtt control unavailable", "broker", cfg.Network.MQTT.Broker, "err", err)
		} else {
			a.onClose(m.Close)
		}
	}

	if cfg.Hardware.MIDIInput != "" {
		m, err := input.OpenMIDI(cfg.Hardware.MIDIInput, a.ctrl, log)
		if err != nil {
			log.Warn("midi control unavailable", "port", cfg.Hardware.MIDIInput, "err", err)
		} else {
			a.onClose(m.Close)
		}
	}

	log.Info("controller started", "id", a.ctrl.ID(), "leds", n,
		"output", cfg.Hardware.Output, "audio_port", cfg.Network.AudioPort)
	return a, nil
}
