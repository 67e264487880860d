package device

import (
	"context"
	"io"
	"time"

	"github.com/tactile-robotics/handlink/internal/monitoring"
	"github.com/tactile-robotics/handlink/internal/wire"
)

// ByteSource delivers received bytes without blocking. ReadByte returns
// ok=false when no byte is currently available; a non-nil error means the
// channel is gone and the loop should stop.
type ByteSource interface {
	ReadByte() (b byte, ok bool, err error)
}

// Loop is the device-side execution context: one decoder, one byte source,
// one servo driver, no preemption. Per-byte processing is non-blocking and
// completes before the next byte can arrive.
type Loop struct {
	src ByteSource
	dec *wire.Decoder
	drv ServoDriver

	// idleSleep yields the CPU when the source is empty. On a real MCU this
	// would be a WFI; in simulation it is a short sleep.
	idleSleep time.Duration

	now func() time.Time

	applied uint64
}

// NewLoop assembles a device loop. A zero idleSleep defaults to 1ms.
func NewLoop(src ByteSource, dec *wire.Decoder, drv ServoDriver, idleSleep time.Duration) *Loop {
	if idleSleep <= 0 {
		idleSleep = time.Millisecond
	}
	return &Loop{
		src:       src,
		dec:       dec,
		drv:       drv,
		idleSleep: idleSleep,
		now:       time.Now,
	}
}

// Run processes bytes until the context is cancelled or the source fails.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		progressed, err := l.Step()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !progressed {
			time.Sleep(l.idleSleep)
		}
	}
}

// Step processes at most one byte and reports whether it consumed one. When
// no byte is available it gives the decoder a chance to expire a truncated
// frame instead.
func (l *Loop) Step() (bool, error) {
	b, ok, err := l.src.ReadByte()
	if err != nil {
		return false, err
	}
	if !ok {
		l.dec.CheckTimeout(l.now())
		return false, nil
	}

	payload, done := l.dec.Feed(b)
	if !done {
		return true, nil
	}

	cmd := MapServos(payload)
	for servo, degrees := range cmd {
		if err := l.drv.SetAngle(servo, degrees); err != nil {
			// An actuator refusing a command is not fatal to the link;
			// log and keep decoding.
			monitoring.Logf("device: servo %d rejected %.1f degrees: %v", servo, degrees, err)
		}
	}
	l.applied++
	return true, nil
}

// Applied returns how many decoded frames have been mapped to the servos.
func (l *Loop) Applied() uint64 {
	return l.applied
}

// ReaderSource adapts a blocking io.Reader (a serial port, a pipe, stdin)
// into a non-blocking ByteSource by pumping reads through a buffered channel.
// Used for host-side simulation of the device loop.
type ReaderSource struct {
	bytes chan byte
	errCh chan error
}

// NewReaderSource starts a pump goroutine reading from r until ctx is
// cancelled or the reader fails.
func NewReaderSource(ctx context.Context, r io.Reader) *ReaderSource {
	s := &ReaderSource{
		bytes: make(chan byte, 4096),
		errCh: make(chan error, 1),
	}
	go s.pump(ctx, r)
	return s
}

func (s *ReaderSource) pump(ctx context.Context, r io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case s.bytes <- b:
			case <-ctx.Done():
				s.errCh <- ctx.Err()
				return
			}
		}
		if err != nil {
			s.errCh <- err
			return
		}
		if ctx.Err() != nil {
			s.errCh <- ctx.Err()
			return
		}
	}
}

// ReadByte returns the next pumped byte if one is waiting.
func (s *ReaderSource) ReadByte() (byte, bool, error) {
	select {
	case b := <-s.bytes:
		return b, true, nil
	default:
	}
	// Surface the pump's terminal error only once the buffer is drained.
	select {
	case b := <-s.bytes:
		return b, true, nil
	case err := <-s.errCh:
		return 0, false, err
	default:
		return 0, false, nil
	}
}
