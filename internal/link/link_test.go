package link

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tactile-robotics/handlink/internal/wire"
)

func testFrame() wire.Frame {
	var p wire.Payload
	for i := range p {
		p[i] = byte(i)
	}
	return wire.Encode(p)
}

// openTestLink returns a link backed by an in-memory port with instant
// backoff.
func openTestLink(t *testing.T, port *TestablePort, opts Options) *Link {
	t.Helper()
	l, err := OpenWith("/dev/ttyTEST", opts, func(string, Options) (Porter, error) {
		return port, nil
	})
	require.NoError(t, err)
	l.sleep = func(time.Duration) {}
	return l
}

func TestOpenFailureIsPortUnavailable(t *testing.T) {
	_, err := OpenWith("/dev/ttyMISSING", Options{}, func(string, Options) (Porter, error) {
		return nil, errors.New("no such device")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPortUnavailable)
}

func TestWriteFrameSuccess(t *testing.T) {
	port := NewTestablePort()
	l := openTestLink(t, port, Options{})

	f := testFrame()
	require.NoError(t, l.WriteFrame(f))
	assert.Equal(t, f[:], port.Written())
	assert.Equal(t, uint64(1), l.Stats().Writes)
}

func TestWriteFrameRetriesTransientFailure(t *testing.T) {
	port := NewTestablePort()
	port.WriteErrs = []error{errors.New("EAGAIN"), errors.New("EAGAIN")}
	l := openTestLink(t, port, Options{MaxRetries: 3})

	require.NoError(t, l.WriteFrame(testFrame()))
	assert.Equal(t, 3, port.WriteCalls())
	assert.Equal(t, uint64(2), l.Stats().Retries)
}

func TestWriteFrameShortWriteRetried(t *testing.T) {
	port := NewTestablePort()
	port.ShortWriteAt = 1
	l := openTestLink(t, port, Options{})

	require.NoError(t, l.WriteFrame(testFrame()))
	assert.Equal(t, 2, port.WriteCalls())
}

func TestWriteFrameExhaustedRetriesGoesDown(t *testing.T) {
	port := NewTestablePort()
	port.WriteErrs = []error{
		errors.New("EIO"), errors.New("EIO"),
		errors.New("EIO"), errors.New("EIO"),
	}
	l := openTestLink(t, port, Options{MaxRetries: 3})

	err := l.WriteFrame(testFrame())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkDown)
	assert.True(t, l.Down())

	// Subsequent writes fail fast without touching the port.
	calls := port.WriteCalls()
	err = l.WriteFrame(testFrame())
	assert.ErrorIs(t, err, ErrLinkDown)
	assert.Equal(t, calls, port.WriteCalls())
}

func TestBackoffDoubles(t *testing.T) {
	port := NewTestablePort()
	port.WriteErrs = []error{errors.New("EIO"), errors.New("EIO"), errors.New("EIO")}
	l := openTestLink(t, port, Options{MaxRetries: 3, RetryBackoff: 5 * time.Millisecond})

	var delays []time.Duration
	l.sleep = func(d time.Duration) { delays = append(delays, d) }

	require.NoError(t, l.WriteFrame(testFrame()))
	assert.Equal(t, []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}, delays)
}

func TestReopenClearsDownState(t *testing.T) {
	bad := NewTestablePort()
	bad.WriteErrs = []error{
		errors.New("EIO"), errors.New("EIO"), errors.New("EIO"), errors.New("EIO"),
	}
	good := NewTestablePort()

	ports := []*TestablePort{bad, good}
	l, err := OpenWith("/dev/ttyTEST", Options{MaxRetries: 3}, func(string, Options) (Porter, error) {
		p := ports[0]
		ports = ports[1:]
		return p, nil
	})
	require.NoError(t, err)
	l.sleep = func(time.Duration) {}

	require.ErrorIs(t, l.WriteFrame(testFrame()), ErrLinkDown)

	require.NoError(t, l.Reopen())
	assert.False(t, l.Down())
	require.NoError(t, l.WriteFrame(testFrame()))
	assert.True(t, bad.Closed)
}

func TestCloseMarksLinkDown(t *testing.T) {
	port := NewTestablePort()
	l := openTestLink(t, port, Options{})

	require.NoError(t, l.Close())
	assert.True(t, port.Closed)
	assert.ErrorIs(t, l.WriteFrame(testFrame()), ErrLinkDown)
}
