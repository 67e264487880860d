// Package link owns the physical serial channel on the host side. It opens
// the port, performs frame writes with bounded retry on transient failures,
// and reports fatal loss of the device so the scheduler can stop sending.
package link

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/wire"
)

var (
	// ErrPortUnavailable reports that the port could not be opened. Fatal for
	// the session until Open is retried.
	ErrPortUnavailable = errors.New("serial port unavailable")

	// ErrLinkDown reports that retries were exhausted and the link will not
	// accept writes until it is reopened.
	ErrLinkDown = errors.New("serial link down")
)

// Porter is the minimal interface the link needs from a serial port. The
// abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// Opener opens a port at the given path. Production code uses OpenSerial;
// tests and dev mode inject their own.
type Opener func(path string, opts Options) (Porter, error)

// OpenSerial opens a real serial port via go.bug.st/serial.
func OpenSerial(path string, opts Options) (Porter, error) {
	mode, err := opts.serialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

// Stats counts link write outcomes.
type Stats struct {
	Writes   uint64
	Retries  uint64
	Failures uint64
}

// Link is the exclusive owner of one serial channel. Exactly one writer may
// use it at a time; the internal mutex serializes frame writes so a frame can
// never be torn by concurrent callers.
type Link struct {
	mu     sync.Mutex
	port   Porter
	path   string
	opts   Options
	opener Opener
	down   bool
	stats  Stats

	// sleep is replaceable so retry tests do not wait out real backoff.
	sleep func(time.Duration)
}

// Open opens the serial port at path and returns a ready link.
func Open(path string, opts Options) (*Link, error) {
	return OpenWith(path, opts, OpenSerial)
}

// OpenWith opens a link through a custom port opener.
func OpenWith(path string, opts Options, opener Opener) (*Link, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	port, err := opener(path, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPortUnavailable, path, err)
	}

	return &Link{
		port:   port,
		path:   path,
		opts:   normalized,
		opener: opener,
		sleep:  time.Sleep,
	}, nil
}

// WriteFrame writes one complete wire frame. Transient failures are retried
// with doubling backoff up to the configured retry budget; once the budget is
// exhausted the link is marked down and every subsequent write fails fast with
// ErrLinkDown until Reopen succeeds.
func (l *Link) WriteFrame(f wire.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.down {
		return ErrLinkDown
	}

	backoff := l.opts.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= l.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			l.stats.Retries++
			l.sleep(backoff)
			backoff *= 2
		}

		if err := l.writeAll(f[:]); err != nil {
			lastErr = err
			monitoring.Debugf("link: write attempt %d failed: %v", attempt+1, err)
			continue
		}
		l.stats.Writes++
		return nil
	}

	l.down = true
	l.stats.Failures++
	monitoring.Logf("link: %s down after %d attempts: %v", l.path, l.opts.MaxRetries+1, lastErr)
	return fmt.Errorf("write failed after %d attempts: %v: %w", l.opts.MaxRetries+1, lastErr, ErrLinkDown)
}

func (l *Link) writeAll(b []byte) error {
	n, err := l.port.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(b))
	}
	return nil
}

// Reopen closes the current port and opens a fresh one, clearing the down
// state on success.
func (l *Link) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		l.port.Close()
	}

	port, err := l.opener(l.path, l.opts)
	if err != nil {
		l.down = true
		return fmt.Errorf("%w: %s: %v", ErrPortUnavailable, l.path, err)
	}

	l.port = port
	l.down = false
	monitoring.Logf("link: %s reopened", l.path)
	return nil
}

// Down reports whether the link has given up on the port.
func (l *Link) Down() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.down
}

// Stats returns a copy of the link counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Close closes the underlying port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.down = true
	if l.port == nil {
		return nil
	}
	return l.port.Close()
}
