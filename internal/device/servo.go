// Package device implements the firmware side of the link: a cooperative,
// non-blocking loop that feeds received bytes through the frame decoder and
// drives the servos from each decoded payload.
package device

import (
	"github.com/tactile-robotics/handlink/internal/units"
	"github.com/tactile-robotics/handlink/internal/wire"
)

// NumServos is the number of physical servo channels on the hand.
const NumServos = 5

// ServoMap assigns each servo channel its source index in the 23-byte
// payload: thumb IP, index curl, middle curl, ring curl, pinky curl. It is the
// firmware's only configuration and is fixed at build time.
var ServoMap = [NumServos]int{12, 0, 3, 6, 9}

// ServoCommand holds one target angle in degrees per servo, each in [0,180].
// Commands are recomputed on every valid decoded frame and applied
// immediately, never buffered.
type ServoCommand [NumServos]float64

// MapServos selects the mapped payload bytes and rescales them linearly from
// [0,255] into [0,180] degrees.
func MapServos(p wire.Payload) ServoCommand {
	var cmd ServoCommand
	for servo, idx := range ServoMap {
		cmd[servo] = units.ByteToDegrees(p[idx])
	}
	return cmd
}

// ServoDriver applies target angles to physical actuators. Implementations
// must not block: the decode loop runs in a single cooperative context and
// the next byte cannot be processed until SetAngle returns.
type ServoDriver interface {
	SetAngle(channel int, degrees float64) error
}
