// Package wire implements the serial framing shared by the host encoder and
// the device-side decoder. A frame is a fixed 28-byte sequence:
//
//	0xFE 0xFE | 23 payload bytes | checksum | 0xFD 0xFD
//
// The checksum is the complement of the payload sum: 255 - (sum mod 256). Both
// sides of the link must agree on this function bit-for-bit.
//
// The package is plain Go with no host-only imports so the same code can be
// compiled for the embedded target.
package wire

// Protocol constants.
const (
	StartByte = 0xFE
	EndByte   = 0xFD

	PayloadLen = 23
	// FrameLen is the total frame size: two start markers, the payload, one
	// checksum byte, and two end markers.
	FrameLen = 2 + PayloadLen + 1 + 2
)

// Payload is the joint-angle vector carried inside a frame, one byte per
// channel.
type Payload [PayloadLen]byte

// Frame is one complete wire-encoded message.
type Frame [FrameLen]byte

// Checksum computes the frame checksum over a payload: the bitwise complement
// of the byte sum, i.e. 255 - (sum mod 256).
func Checksum(p Payload) byte {
	var sum byte
	for _, b := range p {
		sum += b
	}
	return 255 - sum
}

// Encode builds a complete frame around the given payload. It has no side
// effects and is safe for concurrent use.
func Encode(p Payload) Frame {
	var f Frame
	f[0] = StartByte
	f[1] = StartByte
	copy(f[2:2+PayloadLen], p[:])
	f[2+PayloadLen] = Checksum(p)
	f[FrameLen-2] = EndByte
	f[FrameLen-1] = EndByte
	return f
}
