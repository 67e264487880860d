// Package units provides shared conversions between the byte-quantized joint
// channels carried on the wire and physical degrees.
package units

import "math"

// Byte channels span [0,255]; servo targets span [0,180] degrees.
const (
	ByteMax   = 255.0
	ServoMaxDegrees = 180.0
)

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampByte quantizes a raw channel value in degrees to the wire byte range.
// Values are rounded to nearest and clamped to [0,255].
func ClampByte(v float64) uint8 {
	return uint8(Clamp(math.Round(v), 0, ByteMax))
}

// ByteToDegrees rescales a wire byte linearly into the servo range and clamps
// the result to [0,180] degrees.
func ByteToDegrees(b uint8) float64 {
	return Clamp(float64(b)*ServoMaxDegrees/ByteMax, 0, ServoMaxDegrees)
}

// DegreesToByte is the inverse mapping, used by tooling that synthesizes wire
// payloads from servo targets.
func DegreesToByte(deg float64) uint8 {
	return uint8(Clamp(math.Round(deg*ByteMax/ServoMaxDegrees), 0, ByteMax))
}
