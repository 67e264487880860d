// Package pipeline composes the host side: pose frames in, wire frames out.
// It owns the goroutines for capture, processing, and scheduled transmission,
// and enforces the shutdown ordering that prevents a torn write: producers
// stop first, then the scheduler, then the link closes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tactile-robotics/handlink/internal/angles"
	"github.com/tactile-robotics/handlink/internal/filter"
	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/pose"
	"github.com/tactile-robotics/handlink/internal/scheduler"
	"github.com/tactile-robotics/handlink/internal/wire"
)

// Closer matches the link's close surface; kept narrow so tests can run the
// pipeline without a real port.
type Closer interface {
	Close() error
}

// Config assembles a pipeline from its parts.
type Config struct {
	Source pose.Source
	Alpha  float64

	// CadenceHz is the transmission rate handed to the scheduler.
	CadenceHz int

	// Sink receives encoded frames at the cadence. Usually *link.Link.
	Sink scheduler.Sink

	// Link, if set, is closed last during shutdown.
	Link Closer

	// EnableTX gates transmission. When false the pipeline runs the full
	// signal path (extraction, smoothing, encoding) but offers nothing to
	// the scheduler, mirroring the operator's enable/disable switch.
	EnableTX bool
}

// Pipeline is one running capture-to-transmission session.
type Pipeline struct {
	cfg       Config
	session   string
	extractor *angles.Extractor
	smoother  *filter.EMA
	sched     *scheduler.Scheduler

	enabled atomic.Bool
	frames  atomic.Uint64
}

// New validates the configuration and builds a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, errors.New("nil pose source")
	}

	smoother, err := filter.NewEMA(cfg.Alpha, angles.RestPose())
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(cfg.CadenceHz, cfg.Sink)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		session:   uuid.NewString(),
		extractor: angles.NewExtractor(),
		smoother:  smoother,
		sched:     sched,
	}
	p.enabled.Store(cfg.EnableTX)
	return p, nil
}

// Session returns the unique identifier for this pipeline run, used to
// correlate log lines.
func (p *Pipeline) Session() string {
	return p.session
}

// SetEnabled toggles transmission at runtime.
func (p *Pipeline) SetEnabled(on bool) {
	p.enabled.Store(on)
}

// Scheduler exposes the scheduler for link-recovery control (Resume after
// Reopen).
func (p *Pipeline) Scheduler() *scheduler.Scheduler {
	return p.sched
}

// Frames returns how many pose frames have been processed.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// Run executes the pipeline until the context is cancelled or the source
// fails. Shutdown order: the source's Run returns and closes its channel, the
// processing loop drains it and exits, the scheduler stops (discarding any
// pending frame), and finally the link is closed.
func (p *Pipeline) Run(ctx context.Context) error {
	monitoring.Logf("pipeline: session %s starting (alpha=%.2f cadence=%dHz tx=%v)",
		p.session, p.smoother.Alpha(), p.cfg.CadenceHz, p.enabled.Load())

	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()

	var wg sync.WaitGroup
	var sourceErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.cfg.Source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sourceErr = err
			monitoring.Logf("pipeline: pose source failed: %v", err)
		}
	}()

	var schedWG sync.WaitGroup
	schedWG.Add(1)
	go func() {
		defer schedWG.Done()
		p.sched.Run(schedCtx)
	}()

	// Processing loop: runs on this goroutine until the source channel
	// closes, which only happens after the source has stopped producing.
	for frame := range p.cfg.Source.Frames() {
		p.process(frame)
	}
	wg.Wait()

	// Producers are quiet; now stop the scheduler, then release the port.
	stopSched()
	schedWG.Wait()

	if p.cfg.Link != nil {
		if err := p.cfg.Link.Close(); err != nil {
			monitoring.Logf("pipeline: link close failed: %v", err)
		}
	}

	stats := p.sched.Stats()
	monitoring.Logf("pipeline: session %s done: %d frames processed, %d sent, %d dropped",
		p.session, p.frames.Load(), stats.Sent, stats.Dropped)

	if sourceErr != nil {
		return fmt.Errorf("pose source: %w", sourceErr)
	}
	return ctx.Err()
}

func (p *Pipeline) process(frame pose.Frame) {
	raw := p.extractor.Extract(frame)
	smoothed := p.smoother.Update(raw)
	p.frames.Add(1)

	if !p.enabled.Load() {
		return
	}
	vec := angles.Quantize(smoothed)
	p.sched.Offer(wire.Encode(wire.Payload(vec)))
}
