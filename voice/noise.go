package voice

import (
	"fmt"
	"math"

	"github.com/vsariola/ptcop/pitch"
)

const (
	// MaxNoiseUnits is the largest number of units in a noise design.
	MaxNoiseUnits = 4
	// MaxNoiseEnvelope is the largest number of envelope points per unit.
	MaxNoiseEnvelope = 3
	// MaxNoiseLength bounds the length of a noise design in samples.
	MaxNoiseLength = SampleRate * 60

	noiseKeyTop   = 0x3200
	noiseBaseFreq = 100.0
)

type (
	// NoiseOscillator is one oscillator of a noise unit. Freq is in Hz,
	// Volume and Offset in percent.
	NoiseOscillator struct {
		Type    WaveType
		Freq    float32
		Volume  float32
		Offset  float32
		Reverse bool
	}

	// NoiseUnit is one additive layer of a noise design. Envelope points are
	// (milliseconds, percent) pairs; Pan runs from -100 (left) to 100 (right).
	NoiseUnit struct {
		Enabled  bool
		Envelope []Point
		Pan      int8
		Main     NoiseOscillator
		Freq     NoiseOscillator
		Volume   NoiseOscillator
	}

	// NoiseDesign describes a PTN waveform of Length samples.
	NoiseDesign struct {
		Length uint32
		Units  []NoiseUnit
	}
)

type randomShape int

const (
	randomNone randomShape = iota
	randomSaw
	randomRect
)

type (
	noiseOsc struct {
		increment float64
		offset    float64
		volume    float64
		table     []int16
		reverse   bool
		random    randomShape
		rndStart  int32
		rndMargin int32
		rndIndex  int
	}

	noiseEnvPoint struct {
		samples int64
		mag     float64
	}

	noiseUnit struct {
		enabled   bool
		pan       [2]float64
		envs      []noiseEnvPoint
		envIndex  int
		envStart  float64
		envMargin float64
		envCount  int64
		main      noiseOsc
		freq      noiseOsc
		volume    noiseOsc
	}
)

// Build renders the design into a stereo buffer.
func (d *NoiseDesign) Build() ([][2]int16, error) {
	if len(d.Units) == 0 {
		return nil, fmt.Errorf("%w: noise design has no units", ErrMalformed)
	}
	if len(d.Units) > MaxNoiseUnits {
		return nil, fmt.Errorf("%w: %d noise units", ErrMalformed, len(d.Units))
	}
	if d.Length == 0 {
		return nil, fmt.Errorf("%w: empty noise design", ErrMalformed)
	}
	if d.Length > MaxNoiseLength {
		return nil, fmt.Errorf("%w: noise design of %d samples", ErrTooLarge, d.Length)
	}
	units := make([]noiseUnit, len(d.Units))
	for i := range units {
		units[i] = newNoiseUnit(&d.Units[i])
	}
	ret := make([][2]int16, d.Length)
	for s := range ret {
		for ch := range 2 {
			var store float64
			for i := range units {
				if units[i].enabled {
					store += units[i].sample(ch)
				}
			}
			store = max(-math.MaxInt16, min(math.MaxInt16, store))
			ret[s][ch] = int16(store)
		}
		for i := range units {
			if units[i].enabled {
				units[i].step()
			}
		}
	}
	return ret, nil
}

func newNoiseUnit(d *NoiseUnit) noiseUnit {
	u := noiseUnit{enabled: d.Enabled}
	switch {
	case d.Pan == 0:
		u.pan = [2]float64{1, 1}
	case d.Pan < 0:
		u.pan = [2]float64{1, (100 + float64(d.Pan)) / 100}
	default:
		u.pan = [2]float64{(100 - float64(d.Pan)) / 100, 1}
	}
	u.envs = make([]noiseEnvPoint, len(d.Envelope))
	for i, p := range d.Envelope {
		u.envs[i] = noiseEnvPoint{samples: SampleRate * int64(p.X) / 1000, mag: float64(p.Y) / 100}
	}
	u.skipInstantPoints()
	u.main = newNoiseOsc(&d.Main)
	u.freq = newNoiseOsc(&d.Freq)
	u.volume = newNoiseOsc(&d.Volume)
	return u
}

// skipInstantPoints jumps over envelope points that take no time and sets up
// the ramp towards the next point.
func (u *noiseUnit) skipInstantPoints() {
	for u.envIndex < len(u.envs) {
		u.envMargin = u.envs[u.envIndex].mag - u.envStart
		if u.envs[u.envIndex].samples != 0 {
			break
		}
		u.envStart = u.envs[u.envIndex].mag
		u.envIndex++
	}
}

func (u *noiseUnit) sample(ch int) float64 {
	work := u.main.value() * u.main.volume
	vol := u.volume.value() * u.volume.volume
	work = work * (vol + math.MaxInt16) / (math.MaxInt16 * 2)
	work *= u.pan[ch]
	if u.envIndex < len(u.envs) {
		return work * (u.envStart + u.envMargin*float64(u.envCount)/float64(u.envs[u.envIndex].samples))
	}
	return work * u.envStart
}

func (u *noiseUnit) step() {
	var fre float64
	if u.freq.random == randomNone {
		fre = noiseKeyTop * float64(u.freq.table[int(u.freq.offset)]) / math.MaxInt16
	} else {
		fre = u.freq.raw()
	}
	if u.freq.reverse {
		fre = -fre
	}
	fre *= u.freq.volume
	key := int32(max(math.MinInt32, min(math.MaxInt32, fre)))
	u.main.advance(u.main.increment * float64(pitch.Relative(key)))
	u.freq.advance(u.freq.increment)
	u.volume.advance(u.volume.increment)
	if u.envIndex < len(u.envs) {
		u.envCount++
		if u.envCount >= u.envs[u.envIndex].samples {
			u.envCount = 0
			u.envStart = u.envs[u.envIndex].mag
			u.envMargin = 0
			u.envIndex++
			u.skipInstantPoints()
		}
	}
}

func newNoiseOsc(d *NoiseOscillator) noiseOsc {
	o := noiseOsc{
		increment: float64(d.Freq) / noiseBaseFreq,
		volume:    float64(d.Volume) / 100,
		table:     waveTables[WaveNone],
		reverse:   d.Reverse,
	}
	if d.Type < NumWaveTypes {
		o.table = waveTables[d.Type]
	}
	switch d.Type {
	case WaveRandom:
		o.random = randomSaw
	case WaveRandom2:
		o.random = randomRect
	default:
		o.offset = math.Mod(noisePeriod*float64(d.Offset)/100, noisePeriod)
	}
	o.rndIndex = int(randomLength*(float64(d.Offset)/100)) % randomLength
	o.rndMargin = int32(randomTable[o.rndIndex])
	return o
}

// raw returns the oscillator output before reversal and volume.
func (o *noiseOsc) raw() float64 {
	switch o.random {
	case randomSaw:
		return float64(o.rndStart) + float64(o.rndMargin)*o.offset/noisePeriod
	case randomRect:
		return float64(o.rndStart)
	default:
		return float64(o.table[int(o.offset)])
	}
}

func (o *noiseOsc) value() float64 {
	if o.reverse {
		return -o.raw()
	}
	return o.raw()
}

func (o *noiseOsc) advance(increment float64) {
	o.offset += increment
	if o.offset < noisePeriod {
		return
	}
	o.offset -= noisePeriod
	if o.offset >= noisePeriod {
		o.offset = 0
	}
	if o.random != randomNone {
		o.rndStart = int32(randomTable[o.rndIndex])
		o.rndIndex = (o.rndIndex + 1) % randomLength
		o.rndMargin = int32(randomTable[o.rndIndex]) - o.rndStart
	}
}
