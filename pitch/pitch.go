// Package pitch maps keys to playback frequency ratios.
//
// A key is a 16.8-style fixed point note number: 0x100 units per semitone.
// The table holds 16 octaves at 1/16 semitone resolution, centred so that the
// middle entry is a ratio of exactly 1.
package pitch

import "math"

const (
	// TableSize is the number of entries in the ratio table.
	TableSize = 16 * 12 * 16
	// Center is the table index whose ratio is 1.
	Center = TableSize / 2
	// DefaultKey is the key that plays a voice at its own pitch.
	DefaultKey = 0x6000
	// BasicKey is the reference key of a voice with no explicit base key.
	BasicKey = 0x4500
)

var table = func() (t [TableSize]float32) {
	for i := range t {
		t[i] = float32(math.Pow(2, float64(i-Center)/(12*16)))
	}
	return
}()

// Relative returns the ratio for a key offset from DefaultKey.
func Relative(key int32) float32 {
	return lookup((int64(key) + DefaultKey) * 16 / 0x100)
}

// Absolute returns the ratio for an absolute key, so that
// Absolute(DefaultKey) == 1.
func Absolute(key int32) float32 {
	return lookup(int64(key) >> 4)
}

func lookup(i int64) float32 {
	if i < 0 {
		i = 0
	}
	if i >= TableSize {
		i = TableSize - 1
	}
	return table[i]
}
