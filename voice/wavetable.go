package voice

import "math"

// WaveType selects the table a noise oscillator reads from.
type WaveType uint32

const (
	WaveNone WaveType = iota
	WaveSine
	WaveSaw
	WaveRect
	WaveRandom
	WaveSaw2
	WaveRect2
	WaveTri
	WaveRandom2
	WaveRect3
	WaveRect4
	WaveRect8
	WaveRect16
	WaveSaw3
	WaveSaw4
	WaveSaw6
	WaveSaw8
	NumWaveTypes
)

const (
	// noisePeriod is the length of one cycle of a periodic table.
	noisePeriod = 441
	// randomLength is the length of the shared random table.
	randomLength = 44100
)

var (
	randomTable = buildRandomTable()
	waveTables  = buildWaveTables()
)

// buildRandomTable fills the random table from a fixed-seed linear
// congruential generator, so every build of a noise design is reproducible.
func buildRandomTable() []int16 {
	t := make([]int16, randomLength)
	seed := uint32(0x4444)
	for i := range t {
		seed = seed*214013 + 2531011
		t[i] = int16(seed >> 16)
	}
	return t
}

func buildWaveTables() (t [NumWaveTypes][]int16) {
	for i := range t {
		t[i] = make([]int16, noisePeriod)
	}
	level := func(v float64) int16 {
		return int16(max(-1, min(1, v)) * math.MaxInt16)
	}
	rect := func(ph, duty float64) int16 {
		if ph < duty {
			return math.MaxInt16
		}
		return -math.MaxInt16
	}
	steps := func(ph float64, n int) int16 {
		k := math.Floor(ph * float64(n))
		return level(1 - 2*k/float64(n-1))
	}
	for s := range noisePeriod {
		ph := float64(s) / noisePeriod
		t[WaveSine][s] = level(math.Sin(2 * math.Pi * ph))
		t[WaveSaw][s] = level(1 - 2*ph)
		t[WaveRect][s] = rect(ph, 1.0/2)
		t[WaveRect3][s] = rect(ph, 1.0/3)
		t[WaveRect4][s] = rect(ph, 1.0/4)
		t[WaveRect8][s] = rect(ph, 1.0/8)
		t[WaveRect16][s] = rect(ph, 1.0/16)
		switch {
		case ph < 0.25:
			t[WaveTri][s] = level(4 * ph)
		case ph < 0.75:
			t[WaveTri][s] = level(2 - 4*ph)
		default:
			t[WaveTri][s] = level(4*ph - 4)
		}
		t[WaveSaw3][s] = steps(ph, 3)
		t[WaveSaw4][s] = steps(ph, 4)
		t[WaveSaw6][s] = steps(ph, 6)
		t[WaveSaw8][s] = steps(ph, 8)
	}
	var saw2, rect2 []Point
	for h := int32(1); h <= 16; h++ {
		saw2 = append(saw2, Point{X: h, Y: 128})
		if h%2 == 1 {
			rect2 = append(rect2, Point{X: h, Y: 128})
		}
	}
	t[WaveSaw2] = overtoneTable(saw2)
	t[WaveRect2] = overtoneTable(rect2)
	t[WaveRandom] = randomTable
	t[WaveRandom2] = randomTable
	return t
}

// overtoneTable renders a band-limited cycle and normalizes it to full scale.
func overtoneTable(points []Point) []int16 {
	osc := Oscillator{Points: points, Volume: 128, Length: noisePeriod}
	v := make([]float64, noisePeriod)
	var peak float64
	for i := range v {
		v[i] = osc.Overtone(int32(i))
		peak = max(peak, math.Abs(v[i]))
	}
	ret := make([]int16, noisePeriod)
	for i := range v {
		ret[i] = int16(v[i] / peak * math.MaxInt16)
	}
	return ret
}
