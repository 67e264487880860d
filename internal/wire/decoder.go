package wire

import "time"

// Decoder states. The decoder advances exactly one state transition per
// received byte and never blocks, so it can run inside a cooperative firmware
// loop with no buffering beyond the hardware FIFO.
type decoderState int

const (
	stateIdle decoderState = iota
	stateCollect
	stateAwaitChecksum
	stateAwaitEnd
)

// DefaultTimeout bounds how long the decoder will sit in a non-idle state
// waiting for the rest of a frame. A frame truncated mid-transmission would
// otherwise stall the machine until the next byte happens to arrive.
const DefaultTimeout = 250 * time.Millisecond

// Stats counts decoder outcomes. Desyncs and checksum failures are expected,
// self-healing conditions on a noisy channel and are only counted, never
// surfaced as errors.
type Stats struct {
	Delivered    uint64
	Discarded    uint64
	ChecksumErrs uint64
	Timeouts     uint64
}

// DecoderConfig configures a Decoder. The zero value is usable: checksum
// verification off, DefaultTimeout, wall clock.
type DecoderConfig struct {
	// VerifyChecksum enables checksum validation. A mismatch discards the
	// frame silently, the same as a desync.
	VerifyChecksum bool

	// Timeout is the maximum gap between bytes of a single frame before the
	// partial frame is abandoned. Zero selects DefaultTimeout; a negative
	// value disables the timeout entirely.
	Timeout time.Duration

	// Now supplies the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Decoder reconstructs frames from a raw byte stream one byte at a time,
// resynchronizing on the next start-marker pair after any corruption. It is
// owned by a single execution context and is not safe for concurrent use.
type Decoder struct {
	verify  bool
	timeout time.Duration
	now     func() time.Time

	state     decoderState
	startRun  int // consecutive start bytes seen while idle
	payload   Payload
	collected int
	checksum  byte
	endRun    int // end bytes matched so far
	lastByte  time.Time

	stats Stats
}

// NewDecoder creates a Decoder from the given configuration.
func NewDecoder(cfg DecoderConfig) *Decoder {
	d := &Decoder{
		verify:  cfg.VerifyChecksum,
		timeout: cfg.Timeout,
		now:     cfg.Now,
	}
	if d.timeout == 0 {
		d.timeout = DefaultTimeout
	}
	if d.timeout < 0 {
		d.timeout = 0
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Feed advances the state machine by one byte. When the byte completes a valid
// frame, Feed returns the decoded payload and true. In every other case the
// returned payload is the zero value and ok is false.
func (d *Decoder) Feed(b byte) (payload Payload, ok bool) {
	now := d.now()
	d.expire(now)
	d.lastByte = now

	switch d.state {
	case stateIdle:
		if b == StartByte {
			d.startRun++
			if d.startRun == 2 {
				d.state = stateCollect
				d.startRun = 0
				d.collected = 0
			}
		} else {
			d.startRun = 0
		}

	case stateCollect:
		d.payload[d.collected] = b
		d.collected++
		if d.collected == PayloadLen {
			d.state = stateAwaitChecksum
		}

	case stateAwaitChecksum:
		d.checksum = b
		d.endRun = 0
		d.state = stateAwaitEnd

	case stateAwaitEnd:
		if b != EndByte {
			d.stats.Discarded++
			d.reset()
			break
		}
		d.endRun++
		if d.endRun < 2 {
			break
		}
		// Frame complete.
		p := d.payload
		d.reset()
		if d.verify && Checksum(p) != d.checksum {
			d.stats.ChecksumErrs++
			d.stats.Discarded++
			break
		}
		d.stats.Delivered++
		return p, true
	}
	return Payload{}, false
}

// CheckTimeout abandons a partial frame whose inter-byte gap has exceeded the
// configured timeout, returning true if it did so. The device loop calls this
// on iterations where no byte is available; Feed applies the same check
// internally, so a late byte can never resurrect an expired frame.
func (d *Decoder) CheckTimeout(now time.Time) bool {
	return d.expire(now)
}

// Stats returns a copy of the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

func (d *Decoder) expire(now time.Time) bool {
	if d.timeout == 0 || d.state == stateIdle {
		return false
	}
	if now.Sub(d.lastByte) <= d.timeout {
		return false
	}
	d.stats.Timeouts++
	d.stats.Discarded++
	d.reset()
	return true
}

func (d *Decoder) reset() {
	d.state = stateIdle
	d.startRun = 0
	d.collected = 0
	d.endRun = 0
}
