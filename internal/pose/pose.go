// Package pose defines the landmark frames produced by the external vision
// pipeline and the sources that deliver them to the host. The landmark
// detection model itself is a black box; this package only models its output.
package pose

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// HandLandmarks is the number of 3D keypoints in one hand estimate.
const HandLandmarks = 21

// Hand landmark indices, matching the detector's keypoint ordering.
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// Hand holds one hand estimate as 21 keypoints in the detector's normalized
// image space.
type Hand [HandLandmarks]r3.Vec

// Body holds the upper-body world landmarks the angle mapping needs. All
// coordinates are in the detector's world space (metres, hip-centred).
type Body struct {
	LeftShoulder  r3.Vec `json:"left_shoulder"`
	RightShoulder r3.Vec `json:"right_shoulder"`
	RightElbow    r3.Vec `json:"right_elbow"`
	RightWrist    r3.Vec `json:"right_wrist"`
	RightHip      r3.Vec `json:"right_hip"`
}

// Frame is one timestamped pose estimate. It is ephemeral: produced once per
// vision cycle, consumed immediately, never persisted. HandValid and BodyValid
// report which landmark sets the detector produced; a frame with neither set
// valid is the "no hand detected" signal.
type Frame struct {
	Timestamp time.Time `json:"timestamp"`
	Hand      Hand      `json:"hand"`
	HandValid bool      `json:"hand_valid"`
	Body      Body      `json:"body"`
	BodyValid bool      `json:"body_valid"`
}

// Source supplies pose frames at the vision pipeline's own rate. Run blocks
// until the context is cancelled or the source fails; the Frames channel is
// closed when Run returns, which is the downstream signal to drain and stop.
type Source interface {
	Frames() <-chan Frame
	Run(ctx context.Context) error
}
