package angles

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tactile-robotics/handlink/internal/pose"
	"github.com/tactile-robotics/handlink/internal/units"
)

// fingerTriples maps each finger channel to the three hand landmarks whose
// interior angle defines it, in a wrist-origin Y-up hand frame.
var fingerTriples = [...]struct {
	ch      int
	a, b, c int
}{
	{IndexCurl, pose.Wrist, pose.IndexMCP, pose.IndexTip},
	{IndexMCP, pose.MiddleMCP, pose.IndexMCP, pose.IndexPIP},
	{IndexPIP, pose.IndexMCP, pose.IndexPIP, pose.IndexDIP},

	{MiddleCurl, pose.Wrist, pose.MiddleMCP, pose.MiddleTip},
	{MiddleMCP, pose.RingMCP, pose.MiddleMCP, pose.MiddlePIP},
	{MiddlePIP, pose.MiddleMCP, pose.MiddlePIP, pose.MiddleDIP},

	{RingCurl, pose.Wrist, pose.RingMCP, pose.RingTip},
	{RingMCP, pose.MiddleMCP, pose.RingMCP, pose.RingPIP},
	{RingPIP, pose.RingMCP, pose.RingPIP, pose.RingDIP},

	{PinkyCurl, pose.Wrist, pose.PinkyMCP, pose.PinkyTip},
	{PinkyMCP, pose.RingMCP, pose.PinkyMCP, pose.PinkyPIP},
	{PinkyPIP, pose.PinkyMCP, pose.PinkyPIP, pose.PinkyDIP},

	{ThumbIP, pose.ThumbCMC, pose.ThumbMCP, pose.ThumbIP},
	{ThumbCMC, pose.ThumbMCP, pose.ThumbCMC, pose.IndexMCP},
	{ThumbMCP, pose.ThumbMCP, pose.ThumbIP, pose.ThumbTip},
	{ThumbOpposition, pose.MiddleMCP, pose.IndexMCP, pose.ThumbMCP},
}

// thumbIPGain compensates the detector's compressed thumb flexion range.
const thumbIPGain = 1.3

// wristPitchBias recentres the palm-normal-to-forearm angle onto the servo's
// neutral position.
const wristPitchBias = 30.0

// Extractor derives joint angles from pose frames. It holds the last emitted
// vector so that frames with missing detections produce the previous output
// unchanged and downstream consumers never see gaps. Not safe for concurrent
// use; the pipeline owns exactly one.
type Extractor struct {
	last Raw
}

// NewExtractor creates an Extractor starting from the rest pose.
func NewExtractor() *Extractor {
	return &Extractor{last: RestPose()}
}

// Extract computes the joint-angle vector for one frame. The mapping is
// deterministic: identical frames yield identical vectors. Channels whose
// landmarks are missing from the frame keep their previous values.
func (e *Extractor) Extract(f pose.Frame) Raw {
	out := e.last

	if f.HandValid {
		e.extractHand(f, &out)
	}
	if f.BodyValid {
		e.extractArm(f.Body, &out)
	}

	e.last = out
	return out
}

// Last returns the most recently emitted vector.
func (e *Extractor) Last() Raw {
	return e.last
}

// Reset restores the extractor to the rest pose.
func (e *Extractor) Reset() {
	e.last = RestPose()
}

func (e *Extractor) extractHand(f pose.Frame, out *Raw) {
	// Re-base the hand on the wrist and rotate it so the wrist-to-middle-MCP
	// direction points down -Y, giving finger angles that are independent of
	// the hand's orientation in camera space.
	origin := f.Hand[pose.Wrist]
	up := r3.Sub(f.Hand[pose.Wrist], f.Hand[pose.MiddleMCP])
	rot := yUpRotation(up)

	var hp [pose.HandLandmarks]r3.Vec
	for i, p := range f.Hand {
		hp[i] = rot.Rotate(r3.Sub(p, origin))
	}

	for _, t := range fingerTriples {
		out[t.ch] = angleDeg(hp[t.a], hp[t.b], hp[t.c])
	}
	out[ThumbIP] *= thumbIPGain

	// Wrist roll from the knuckle line's tilt in the horizontal plane.
	index := hp[pose.IndexMCP]
	pinky := hp[pose.PinkyMCP]
	zref := r3.Add(pinky, r3.Vec{Z: 1})
	roll := 180 - angleDeg(
		r3.Vec{X: index.X, Y: index.Z},
		r3.Vec{X: pinky.X, Y: pinky.Z},
		r3.Vec{X: zref.X, Y: zref.Z},
	)
	if index.X-pinky.X < 0 {
		roll = 360 - roll
	}

	// The wrist channels relate the hand to the forearm, so they need the
	// body landmarks to anchor the hand in world space.
	if f.BodyValid {
		delta := r3.Sub(f.Body.RightWrist, f.Hand[pose.Wrist])
		var wp [pose.HandLandmarks]r3.Vec
		for i, p := range f.Hand {
			wp[i] = r3.Add(p, delta)
		}

		hup := unitOrZero(r3.Sub(wp[pose.MiddleMCP], wp[pose.Wrist]))
		hright := unitOrZero(r3.Sub(wp[pose.IndexMCP], wp[pose.PinkyMCP]))
		normal := unitOrZero(r3.Cross(hright, hup))

		fk := r3.Add(wp[pose.Wrist], normal)
		out[WristPitch] = angleDeg(fk, wp[pose.Wrist], f.Body.RightElbow) - wristPitchBias
		out[WristYaw] = 180 - angleDeg(wp[pose.MiddleMCP], wp[pose.Wrist], r3.Vec{X: 1})
		out[WristRoll] = roll
	}
}

func (e *Extractor) extractArm(b pose.Body, out *Raw) {
	// Arm channels work on 2D projections of the world landmarks.
	xy := func(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: v.Y} }
	zy := func(v r3.Vec) r3.Vec { return r3.Vec{X: v.Z, Y: v.Y} }
	xz := func(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: v.Z} }

	elbow := 180 - angleDeg(xy(b.RightShoulder), xy(b.RightElbow), xy(b.RightWrist))
	yaw := angleDeg(xy(b.RightHip), xy(b.RightShoulder), xy(b.RightElbow))

	// Near the yaw singularities the frontal projection degenerates, so pitch
	// switches to the sagittal plane.
	const yawCutoff = 30.0
	var pitch float64
	if yaw < yawCutoff || yaw > 180-yawCutoff {
		pitch = angleDeg(zy(b.RightHip), zy(b.RightShoulder), zy(b.RightElbow))
	} else {
		pitch = 180 - angleDeg(xz(b.RightElbow), xz(b.RightShoulder), xz(b.LeftShoulder))
	}

	out[ShoulderPitch] = pitch
	out[ShoulderYaw] = yaw
	out[Reserved] = 0
	out[ElbowFlex] = elbow
}

// angleDeg returns the interior angle at b, in degrees, between the rays b->a
// and b->c. Degenerate inputs (coincident points) yield 0.
func angleDeg(a, b, c r3.Vec) float64 {
	ba := r3.Sub(a, b)
	bc := r3.Sub(c, b)
	nba := r3.Norm(ba)
	nbc := r3.Norm(bc)
	if nba == 0 || nbc == 0 {
		return 0
	}
	cos := units.Clamp(r3.Dot(ba, bc)/(nba*nbc), -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// yUpRotation returns the rotation that aligns v with the +Y axis. A vector
// already (anti)parallel to Y yields the identity rotation.
func yUpRotation(v r3.Vec) r3.Rotation {
	yhat := r3.Vec{Y: 1}
	n := r3.Norm(v)
	if n == 0 {
		return r3.NewRotation(0, yhat)
	}
	v = r3.Scale(1/n, v)

	axis := r3.Cross(v, yhat)
	axisNorm := r3.Norm(axis)
	if axisNorm < 1e-6 {
		return r3.NewRotation(0, yhat)
	}

	theta := math.Acos(units.Clamp(r3.Dot(v, yhat), -1, 1))
	return r3.NewRotation(theta, r3.Scale(1/axisNorm, axis))
}

func unitOrZero(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}
