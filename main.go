// handlink bridges hand pose estimates to a servo hand controller over a
// serial link: pose frames arrive as JSON over UDP, get converted to joint
// angle vectors, smoothed, framed, and transmitted at a fixed cadence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tactile-robotics/handlink/internal/config"
	"github.com/tactile-robotics/handlink/internal/link"
	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/pipeline"
	"github.com/tactile-robotics/handlink/internal/pose"
	"github.com/tactile-robotics/handlink/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file")
	portPath    = flag.String("port", "", "Serial device path (overrides config)")
	listen      = flag.String("listen", "", "UDP listen address for pose frames (overrides config)")
	cadence     = flag.Int("cadence", 0, "Transmission rate in Hz (overrides config)")
	alpha       = flag.Float64("alpha", -1, "Smoothing coefficient 0..1 (overrides config)")
	enableTX    = flag.Bool("enable-tx", false, "Enable transmission at startup")
	devMode     = flag.Bool("dev", false, "Run without hardware: frames go to an in-memory port")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// devPort discards frames so the full pipeline can run without hardware.
type devPort struct {
	frames uint64
}

func (p *devPort) Read(b []byte) (int, error) { return 0, nil }

func (p *devPort) Write(b []byte) (int, error) {
	p.frames++
	monitoring.Debugf("devport: frame %d (%d bytes)", p.frames, len(b))
	return len(b), nil
}

func (p *devPort) Close() error {
	monitoring.Logf("devport: closed after %d frames", p.frames)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flags set on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.PortPath = portPath
		case "listen":
			cfg.PoseListenAddr = listen
		case "cadence":
			cfg.CadenceHz = cadence
		case "alpha":
			cfg.Alpha = alpha
		case "enable-tx":
			cfg.EnableTX = enableTX
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var lnk *link.Link
	if *devMode {
		lnk, err = link.OpenWith("dev", cfg.GetSerial(), func(string, link.Options) (link.Porter, error) {
			return &devPort{}, nil
		})
	} else {
		lnk, err = link.Open(cfg.GetPortPath(), cfg.GetSerial())
	}
	if err != nil {
		return err
	}

	source := pose.NewUDPSource(cfg.GetPoseListenAddr())

	p, err := pipeline.New(pipeline.Config{
		Source:    source,
		Alpha:     cfg.GetAlpha(),
		CadenceHz: cfg.GetCadenceHz(),
		Sink:      lnk,
		Link:      lnk,
		EnableTX:  cfg.GetEnableTX(),
	})
	if err != nil {
		lnk.Close()
		return err
	}

	monitoring.Logf("handlink %s: port=%s listen=%s cadence=%dHz alpha=%.2f tx=%v dev=%v",
		version.Version, cfg.GetPortPath(), cfg.GetPoseListenAddr(),
		cfg.GetCadenceHz(), cfg.GetAlpha(), cfg.GetEnableTX(), *devMode)

	// Watchdog: if retries exhaust the link, try to bring it back and resume
	// the scheduler once the port answers again.
	go watchLink(ctx, lnk, p)

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchLink polls for a downed link and attempts recovery. Reopen failures
// back off so a yanked cable does not spin the loop.
func watchLink(ctx context.Context, lnk *link.Link, p *pipeline.Pipeline) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !lnk.Down() {
				continue
			}
			if err := lnk.Reopen(); err != nil {
				monitoring.Debugf("link recovery failed: %v", err)
				continue
			}
			p.Scheduler().Resume()
		}
	}
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if *showVersion {
		fmt.Printf("handlink %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		log.Fatalf("handlink: %v", err)
	}
}
