// Package angles derives the 23-channel joint-angle vector from pose frames.
// Channel semantics are fixed by index and shared with the device firmware.
package angles

import "github.com/tactile-robotics/handlink/internal/units"

// NumChannels is the length of the joint-angle vector.
const NumChannels = 23

// Channel indices. The ordering is part of the wire contract and must not
// change.
const (
	IndexCurl = iota
	IndexMCP
	IndexPIP
	MiddleCurl
	MiddleMCP
	MiddlePIP
	RingCurl
	RingMCP
	RingPIP
	PinkyCurl
	PinkyMCP
	PinkyPIP
	ThumbIP
	ThumbCMC
	ThumbMCP
	ThumbOpposition
	WristPitch
	WristYaw
	WristRoll
	ShoulderPitch
	ShoulderYaw
	Reserved
	ElbowFlex
)

// Raw is a joint-angle vector in degrees before quantization. Values may fall
// outside [0,255]; quantization clamps.
type Raw [NumChannels]float64

// Vector is the quantized joint-angle vector, one byte per channel, each value
// in [0,255].
type Vector [NumChannels]uint8

// Quantize clamps and rounds each raw channel into the wire byte range.
func Quantize(r Raw) Vector {
	var v Vector
	for i, x := range r {
		v[i] = units.ClampByte(x)
	}
	return v
}

// RestPose is the neutral vector the pipeline starts from: mid-range on every
// articulated channel, zero on the reserved channel.
func RestPose() Raw {
	var r Raw
	for i := range r {
		r[i] = 128
	}
	r[Reserved] = 0
	return r
}
