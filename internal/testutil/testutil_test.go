package testutil

import (
	"testing"
	"time"
)

func TestWaitForImmediate(t *testing.T) {
	WaitFor(t, time.Second, func() bool { return true }, "always true")
}

func TestWaitForEventually(t *testing.T) {
	start := time.Now()
	WaitFor(t, time.Second, func() bool {
		return time.Since(start) > 5*time.Millisecond
	}, "elapsed")
}
