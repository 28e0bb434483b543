// Package feed analyzes an audio file or microphone and streams band
// levels to a controller as UDP audio sync packets.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gordonklaus/portaudio"
)

const (
	micRate       = 44100
	micBuffer     = 512
	playPollEvery = 100 * time.Millisecond
)

// Options configures Run.
type Options struct {
	File string // audio file or playlist to analyze; empty selects the microphone
	Play bool   // play the file through the default output while streaming
	Loop bool   // restart the file when it ends
	FPS  int
	Log  *slog.Logger
}

// Run streams analyses to em until ctx is cancelled or the source ends.
func Run(ctx context.Context, opts Options, em *Emitter) error {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "feed")
	fps := opts.FPS
	if fps <= 0 {
		fps = 50
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		analyzer *Analyzer
	)
	setAnalyzer := func(a *Analyzer) {
		mu.Lock()
		analyzer = a
		mu.Unlock()
	}

	srcErr := make(chan error, 1)
	go func() {
		defer cancel()
		if opts.File == "" {
			a := NewAnalyzer(micRate)
			setAnalyzer(a)
			srcErr <- captureMic(ctx, a, log)
			return
		}
		srcErr <- playFiles(ctx, opts, fps, setAnalyzer, log)
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("stopped", "sent", em.Sent())
			return <-srcErr
		case <-ticker.C:
			mu.Lock()
			a := analyzer
			mu.Unlock()
			if a == nil {
				continue
			}
			if err := em.Send(a.Analyze()); err != nil {
				log.Warn("send failed", "addr", em.RemoteAddr(), "err", err)
			}
		}
	}
}

func playFiles(ctx context.Context, opts Options, fps int, use func(*Analyzer), log *slog.Logger) error {
	tracks, err := Tracks(opts.File)
	if err != nil {
		return err
	}
	for {
		for _, path := range tracks {
			if err := playTrack(ctx, path, opts.Play, fps, use, log); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
		if !opts.Loop {
			return nil
		}
	}
}

func playTrack(ctx context.Context, path string, local bool, fps int, use func(*Analyzer), log *slog.Logger) error {
	f, err := OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	a := NewAnalyzer(f.SampleRate())
	use(a)
	log.Info("streaming", "title", f.Title, "rate", f.SampleRate(), "channels", f.ChannelCount())
	if local {
		return play(ctx, f, a)
	}
	return pace(ctx, f, a, fps)
}

// pace feeds the analyzer in real time without audio output.
func pace(ctx context.Context, dec Decoder, a *Analyzer, fps int) error {
	hop := dec.SampleRate() / fps * dec.ChannelCount() * 2
	buf := make([]byte, hop)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		n, err := io.ReadFull(dec, buf)
		a.PushPCM16(buf[:n], dec.ChannelCount())
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// teeDecoder copies everything the output player pulls into the analyzer.
type teeDecoder struct {
	Decoder
	a *Analyzer
}

func (t teeDecoder) Read(p []byte) (int, error) {
	n, err := t.Decoder.Read(p)
	t.a.PushPCM16(p[:n], t.ChannelCount())
	return n, err
}

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func outputContext(rate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if otoErr == nil {
			<-ready
			otoRate = rate
		}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if rate != otoRate {
		return nil, fmt.Errorf("output already opened at %d Hz, file is %d Hz", otoRate, rate)
	}
	return otoCtx, nil
}

func play(ctx context.Context, dec Decoder, a *Analyzer) error {
	out, err := outputContext(dec.SampleRate(), dec.ChannelCount())
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	p := out.NewPlayer(teeDecoder{Decoder: dec, a: a})
	defer p.Close()
	p.Play()

	ticker := time.NewTicker(playPollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Pause()
			return nil
		case <-ticker.C:
			if !p.IsPlaying() {
				return p.Err()
			}
		}
	}
}

func captureMic(ctx context.Context, a *Analyzer, log *slog.Logger) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: %w", err)
	}
	defer portaudio.Terminate()

	buf := make([]float32, micBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, micRate, len(buf), buf)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start microphone: %w", err)
	}
	defer stream.Stop()
	log.Info("capturing microphone", "rate", micRate)

	for ctx.Err() == nil {
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return fmt.Errorf("read microphone: %w", err)
		}
		a.PushFloat32(buf)
	}
	return nil
}
