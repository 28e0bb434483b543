package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
)

// MIDI control surface mapping.
const (
	ccVolume  = 7  // channel volume sets audio.volume_compensation
	ccSustain = 64 // sustain pedal down resumes the playlist
	ccNext    = 20
	ccPrev    = 21
	noteBase  = 60 // middle C selects supported effect 0
)

// TranslateMIDI maps one MIDI message to a controller command.
func TranslateMIDI(msg midi.Message) (controller.Command, bool) {
	var ch, a, b uint8
	switch {
	case msg.GetProgramChange(&ch, &a):
		return controller.SelectIndex(int(a)), true
	case msg.GetNoteStart(&ch, &a, &b):
		if a < noteBase || a >= noteBase+10 {
			return controller.Command{}, false
		}
		return controller.SelectIndex(int(a - noteBase)), true
	case msg.GetControlChange(&ch, &a, &b):
		switch a {
		case ccVolume:
			return controller.UpdateConfig(map[string]any{
				"audio.volume_compensation": volumeCompensation(b),
			}), true
		case ccSustain:
			if b >= 64 {
				return controller.ResumePlaylist(), true
			}
		case ccNext:
			if b > 0 {
				return controller.NextEffect(), true
			}
		case ccPrev:
			if b > 0 {
				return controller.PrevEffect(), true
			}
		}
	}
	return controller.Command{}, false
}

// volumeCompensation maps a 7-bit controller value onto [0.1, 5.0] in
// steps of 0.05.
func volumeCompensation(v uint8) float64 {
	f := 0.1 + float64(min(v, 127))/127*4.9
	return float64(int(f*20+0.5)) / 20
}

// MIDI listens to one input port.
type MIDI struct {
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
}

// OpenMIDI connects to the first input whose name contains port, or the
// only input if port is empty.
func OpenMIDI(port string, ctrl Submitter, log *slog.Logger) (*MIDI, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "midi")
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	in, err := pickInput(ins, port)
	if err != nil {
		drv.Close()
		return nil, err
	}
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", in.String(), err)
	}

	m := &MIDI{drv: drv, in: in}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		cmd, ok := TranslateMIDI(msg)
		if !ok {
			log.Debug("unhandled message", "msg", msg.String())
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if _, err := ctrl.Submit(ctx, cmd); err != nil {
			log.Warn("command rejected", "op", cmd.Op, "err", err)
		}
	}, midi.HandleError(func(err error) {
		log.Warn("listener error", "device", in.String(), "err", err)
	}))
	if err != nil {
		in.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %q: %w", in.String(), err)
	}
	m.stop = stop
	log.Info("connected", "device", in.String())
	return m, nil
}

func pickInput(ins []drivers.In, port string) (drivers.In, error) {
	var names []string
	for _, in := range ins {
		name := in.String()
		names = append(names, name)
		if port != "" && strings.Contains(strings.ToLower(name), strings.ToLower(port)) {
			return in, nil
		}
	}
	if port == "" && len(ins) == 1 {
		return ins[0], nil
	}
	return nil, fmt.Errorf("midi input %q not found among [%s]", port, strings.Join(names, ", "))
}

// Close stops listening and releases the driver.
func (m *MIDI) Close() {
	m.stop()
	m.in.Close()
	m.drv.Close()
}
