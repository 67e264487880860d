package units

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name       string
		v, lo, hi  float64
		want       float64
	}{
		{"below range", -1, 0, 180, 0},
		{"above range", 200, 0, 180, 180},
		{"inside range", 90, 0, 180, 90},
		{"at lower bound", 0, 0, 180, 0},
		{"at upper bound", 180, 0, 180, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestClampByte(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want uint8
	}{
		{"negative clamps to zero", -30.5, 0},
		{"overflow clamps to max", 400, 255},
		{"rounds to nearest", 127.6, 128},
		{"rounds half away from zero", 127.5, 128},
		{"exact value", 90, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampByte(tt.v); got != tt.want {
				t.Errorf("ClampByte(%v) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

func TestByteToDegrees(t *testing.T) {
	if got := ByteToDegrees(0); got != 0 {
		t.Errorf("ByteToDegrees(0) = %v, want 0", got)
	}
	if got := ByteToDegrees(255); got != 180 {
		t.Errorf("ByteToDegrees(255) = %v, want 180", got)
	}
	// Midpoint maps close to half the servo range.
	mid := ByteToDegrees(128)
	if mid < 90 || mid > 91 {
		t.Errorf("ByteToDegrees(128) = %v, want within [90, 91]", mid)
	}
}

func TestDegreesToByteRoundTrip(t *testing.T) {
	for _, b := range []uint8{0, 1, 64, 128, 200, 255} {
		got := DegreesToByte(ByteToDegrees(b))
		if got != b {
			t.Errorf("round trip for %d produced %d", b, got)
		}
	}
}
