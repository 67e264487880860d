// replay drives the full host pipeline from a recorded pose log (JSON lines,
// one frame per line) instead of a live vision feed. Frames go out a real
// serial port when -port is set, or to an in-memory port that hex-dumps them,
// which makes it the quickest way to eyeball the wire protocol.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tactile-robotics/handlink/internal/link"
	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/pipeline"
	"github.com/tactile-robotics/handlink/internal/pose"
)

var (
	input    = flag.String("input", "-", "Pose log to replay (JSON lines), - for stdin")
	fps      = flag.Int("fps", 20, "Replay pacing in frames per second, 0 for unpaced")
	cadence  = flag.Int("cadence", 20, "Transmission rate in Hz")
	alpha    = flag.Float64("alpha", 0.25, "Smoothing coefficient 0..1")
	portPath = flag.String("port", "", "Serial device to transmit on (default: in-memory dump)")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

// dumpPort prints every transmitted frame as hex.
type dumpPort struct {
	frames uint64
}

func (p *dumpPort) Read(b []byte) (int, error) { return 0, nil }

func (p *dumpPort) Write(b []byte) (int, error) {
	p.frames++
	monitoring.Logf("tx %4d: %s", p.frames, hex.EncodeToString(b))
	return len(b), nil
}

func (p *dumpPort) Close() error { return nil }

func openInput() (io.ReadCloser, error) {
	if *input == "-" {
		return os.Stdin, nil
	}
	return os.Open(*input)
}

func run() error {
	in, err := openInput()
	if err != nil {
		return err
	}
	defer in.Close()

	opts, err := link.Options{}.Normalize()
	if err != nil {
		return err
	}

	var lnk *link.Link
	if *portPath != "" {
		lnk, err = link.Open(*portPath, opts)
	} else {
		lnk, err = link.OpenWith("dump", opts, func(string, link.Options) (link.Porter, error) {
			return &dumpPort{}, nil
		})
	}
	if err != nil {
		return err
	}

	var interval time.Duration
	if *fps > 0 {
		interval = time.Second / time.Duration(*fps)
	}
	source := pose.NewJSONLSource(in, interval)

	p, err := pipeline.New(pipeline.Config{
		Source:    source,
		Alpha:     *alpha,
		CadenceHz: *cadence,
		Sink:      lnk,
		Link:      lnk,
		EnableTX:  true,
	})
	if err != nil {
		lnk.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.Logf("replay: %s at %d fps, cadence %dHz, alpha %.2f", *input, *fps, *cadence, *alpha)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if err := run(); err != nil {
		log.Fatalf("replay: %v", err)
	}
}
