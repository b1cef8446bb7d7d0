package pitch_test

import (
	"math"
	"testing"

	"github.com/vsariola/ptcop/pitch"
)

func TestUnity(t *testing.T) {
	if r := pitch.Absolute(pitch.DefaultKey); r != 1 {
		t.Fatalf("Absolute(DefaultKey) = %v, want 1", r)
	}
	if r := pitch.Relative(0); r != 1 {
		t.Fatalf("Relative(0) = %v, want 1", r)
	}
}

func TestOctaves(t *testing.T) {
	tests := []struct {
		name string
		got  float32
		want float64
	}{
		{"octave up", pitch.Absolute(pitch.DefaultKey + 12*0x100), 2},
		{"octave down", pitch.Absolute(pitch.DefaultKey - 12*0x100), 0.5},
		{"relative fifth", pitch.Relative(7 * 0x100), math.Pow(2, 7.0/12)},
		{"relative octave down", pitch.Relative(-12 * 0x100), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(float64(tt.got)-tt.want) > 1e-5 {
				t.Fatalf("ratio = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestClamped(t *testing.T) {
	if pitch.Absolute(-1000000) != pitch.Absolute(0) {
		t.Fatalf("negative keys should clamp to the lowest entry")
	}
	if pitch.Absolute(math.MaxInt32) != pitch.Relative(math.MaxInt32) {
		t.Fatalf("huge keys should clamp to the highest entry")
	}
}
