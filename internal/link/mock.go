package link

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// TestablePort implements Porter with configurable behaviour for testing:
// scripted write errors, captured output, and call counters. It is also used
// by dev mode as a stand-in for real hardware.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// WriteErrs is consumed one entry per Write call; a nil entry means the
	// write succeeds. Once exhausted, writes succeed.
	WriteErrs []error

	// ShortWriteAt truncates the nth write (1-based) to half its length.
	ShortWriteAt int

	// Closed indicates whether Close was called.
	Closed bool

	writeCalls int
	readCalls  int
}

// NewTestablePort creates an open in-memory port.
func NewTestablePort() *TestablePort {
	return &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readCalls++
	if p.Closed {
		return 0, io.EOF
	}
	return p.ReadBuffer.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeCalls++

	if p.Closed {
		return 0, errors.New("port closed")
	}

	if len(p.WriteErrs) > 0 {
		err := p.WriteErrs[0]
		p.WriteErrs = p.WriteErrs[1:]
		if err != nil {
			return 0, err
		}
	}

	if p.ShortWriteAt == p.writeCalls {
		n := len(b) / 2
		p.WriteBuffer.Write(b[:n])
		return n, nil
	}

	return p.WriteBuffer.Write(b)
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// WriteCalls returns the number of Write invocations.
func (p *TestablePort) WriteCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeCalls
}

// Written returns a copy of all bytes captured so far.
func (p *TestablePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, p.WriteBuffer.Len())
	copy(out, p.WriteBuffer.Bytes())
	return out
}
