package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/tactile-robotics/handlink/internal/monitoring"
)

// JSONLSource replays frames from a JSON-lines stream, one frame per line.
// Used by the replay tool and by tests to drive the pipeline from recorded
// sessions.
type JSONLSource struct {
	r        io.Reader
	interval time.Duration
	frames   chan Frame
}

// NewJSONLSource creates a replay source. interval paces delivery to simulate
// a live capture rate; zero delivers as fast as the consumer accepts.
func NewJSONLSource(r io.Reader, interval time.Duration) *JSONLSource {
	return &JSONLSource{
		r:        r,
		interval: interval,
		frames:   make(chan Frame),
	}
}

func (s *JSONLSource) Frames() <-chan Frame {
	return s.frames
}

// Run reads lines until EOF or cancellation. Unparseable lines are skipped
// with a log line rather than aborting the replay.
func (s *JSONLSource) Run(ctx context.Context) error {
	defer close(s.frames)

	scan := bufio.NewScanner(s.r)
	scan.Buffer(make([]byte, maxDatagram), maxDatagram)

	var ticker *time.Ticker
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}

	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}

		var f Frame
		if err := json.Unmarshal(line, &f); err != nil {
			monitoring.Logf("pose: skipping unparseable line %d: %v", lineNo, err)
			continue
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case s.frames <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scan.Err()
}
