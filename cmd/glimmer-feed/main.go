// Command glimmer-feed analyzes an audio file or the microphone and
// streams band levels to a Glimmer controller over UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/discovery"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/feed"
)

const defaultAddr = "127.0.0.1:11988"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file     = flag.String("file", "", "audio file (mp3, wav, flac, ogg) or playlist (m3u, pls) to stream")
		mic      = flag.Bool("mic", false, "capture the default microphone instead of a file")
		format   = flag.String("format", "wled2", "packet format: eq, wled1 or wled2")
		addr     = flag.String("addr", defaultAddr, "controller audio address (host:port)")
		fps      = flag.Int("fps", 50, "packets per second")
		play     = flag.Bool("play", false, "play the file locally while streaming")
		loop     = flag.Bool("loop", false, "restart the file when it ends")
		discover = flag.Duration("discover", 0, "find a controller via mDNS for this long instead of using -addr")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if (*file == "") == !*mic {
		return errors.New("exactly one of -file or -mic is required")
	}
	if *mic && *play {
		return errors.New("-play needs -file")
	}
	if *fps < 1 || *fps > 200 {
		return fmt.Errorf("-fps must be between 1 and 200, got %d", *fps)
	}
	f, err := feed.ParseFormat(*format)
	if err != nil {
		return err
	}

	target := *addr
	if *discover > 0 {
		target, err = discoverTarget(*discover, log)
		if err != nil {
			return err
		}
	}

	em, err := feed.Dial(target, f)
	if err != nil {
		return err
	}
	defer em.Close()
	log.Info("sending", "addr", em.RemoteAddr(), "format", f, "fps", *fps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return feed.Run(ctx, feed.Options{
		File: *file,
		Play: *play,
		Loop: *loop,
		FPS:  *fps,
		Log:  log,
	}, em)
}

func discoverTarget(timeout time.Duration, log *slog.Logger) (string, error) {
	found, err := discovery.Browse(timeout)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", errors.New("no controller found via mDNS")
	}
	for _, c := range found[1:] {
		log.Info("ignoring additional controller", "name", c.Name, "addr", c.AudioAddr())
	}
	log.Info("discovered controller", "name", found[0].Name, "addr", found[0].AudioAddr())
	return found[0].AudioAddr(), nil
}
