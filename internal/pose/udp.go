package pose

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/tactile-robotics/handlink/internal/monitoring"
)

// maxDatagram is generous for one JSON-encoded frame (26 landmarks).
const maxDatagram = 16384

// UDPSource receives JSON-encoded frames as UDP datagrams, one frame per
// packet, from the external vision process. Malformed packets are counted and
// dropped; the vision side is free-running and a lost frame is recovered by
// the next one.
type UDPSource struct {
	addr   string
	frames chan Frame

	packets   atomic.Int64
	malformed atomic.Int64
	dropped   atomic.Int64
}

// NewUDPSource creates a source listening on addr (e.g. ":9750").
func NewUDPSource(addr string) *UDPSource {
	return &UDPSource{
		addr:   addr,
		frames: make(chan Frame, 1),
	}
}

func (s *UDPSource) Frames() <-chan Frame {
	return s.frames
}

// Run listens for datagrams until the context is cancelled. It logs receive
// statistics once per second while traffic is flowing.
func (s *UDPSource) Run(ctx context.Context) error {
	defer close(s.frames)

	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	monitoring.Logf("pose: listening for frames on %s", conn.LocalAddr())

	// Close the socket when the context is cancelled to unblock the read.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go s.reportStats(ctx)

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.packets.Add(1)

		var f Frame
		if err := json.Unmarshal(buf[:n], &f); err != nil {
			s.malformed.Add(1)
			monitoring.Debugf("pose: malformed datagram (%d bytes): %v", n, err)
			continue
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now()
		}

		select {
		case s.frames <- f:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Consumer is behind; the newest frame matters most, so replace
			// whatever is pending.
			select {
			case <-s.frames:
			default:
			}
			select {
			case s.frames <- f:
			default:
				s.dropped.Add(1)
			}
		}
	}
}

func (s *UDPSource) reportStats(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			packets := s.packets.Swap(0)
			malformed := s.malformed.Swap(0)
			dropped := s.dropped.Swap(0)
			if packets > 0 {
				monitoring.Debugf("pose: %d frames/sec (%d malformed, %d dropped)",
					packets, malformed, dropped)
			}
		}
	}
}
