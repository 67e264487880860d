// Package filter implements the per-channel exponential moving average that
// suppresses landmark jitter before encoding.
package filter

import (
	"fmt"
	"math"
	"sync"

	"github.com/tactile-robotics/handlink/internal/angles"
)

// EMA smooths each of the 23 channels independently:
//
//	state = alpha*raw + (1-alpha)*state
//
// alpha=1 passes input through unchanged; alpha=0 freezes the output at its
// initial value. The filter owns its state exclusively; it is reset only at
// pipeline (re)start. Safe for concurrent Update/Snapshot callers.
type EMA struct {
	mu    sync.Mutex
	alpha float64
	state angles.Raw
}

// NewEMA creates a filter with the given coefficient and initial state.
// alpha must lie in [0,1].
func NewEMA(alpha float64, initial angles.Raw) (*EMA, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("filter coefficient %v out of range [0,1]", alpha)
	}
	return &EMA{alpha: alpha, state: initial}, nil
}

// Update folds one raw sample into the state and returns the new state. Each
// output channel lies between its previous state and the new raw value.
func (f *EMA) Update(raw angles.Raw) angles.Raw {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.state {
		f.state[i] = f.alpha*raw[i] + (1-f.alpha)*f.state[i]
	}
	return f.state
}

// Snapshot returns the current state without updating it.
func (f *EMA) Snapshot() angles.Raw {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset reinitializes the state. Called only at pipeline restart.
func (f *EMA) Reset(initial angles.Raw) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = initial
}

// Alpha returns the configured coefficient.
func (f *EMA) Alpha() float64 {
	return f.alpha
}
