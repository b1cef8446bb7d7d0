package meter

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/vsariola/ptcop"
)

// maxIntegratedData is one hour of 100 ms blocks.
const maxIntegratedData = 10 * 60 * 60

type (
	loudnessDetector struct {
		weighting       weighting
		states          [2][3]biquadState
		powers          [2]ptcop.RingBuffer[float32] // 0 = momentary, 1 = short-term
		averagedPowers  [2][]float32
		maxPowers       [2]float32
		integratedPower float32
		tmp, tmp2       []float32
		tmpbool         []bool
	}

	biquadState struct {
		x1, x2, y1, y2 float32
	}

	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}

	weighting struct {
		coeffs []biquadCoeff
		offset float32
	}
)

// Filter coefficients for a 44100 Hz sample rate.
var weightings = [NumWeightings]weighting{
	AWeighting: {coeffs: []biquadCoeff{
		{b0: 1, b1: 2, b2: 1, a1: -0.1405360824207108, a2: 0.0049375976155402},
		{b0: 1, b1: -2, b2: 1, a1: -1.8849012174287920, a2: 0.8864214718161675},
		{b0: 1, b1: -2, b2: 1, a1: -1.9941388812663283, a2: 0.9941474694445309},
	}},
	CWeighting: {coeffs: []biquadCoeff{
		{b0: 1, b1: 2, b2: 1, a1: -0.1405360824207108, a2: 0.0049375976155402},
		{b0: 1, b1: -2, b2: 1, a1: -1.9941388812663283, a2: 0.9941474694445309},
	}},
	KWeighting: {coeffs: []biquadCoeff{
		{b0: 1.5308412300503476, b1: -2.6509799951547293, b2: 1.1690790799215869, a1: -1.6636551132560204, a2: 0.7125954280732254},
		{b0: 0.9995600645425144, b1: -1.9991201290850289, b2: 0.9995600645425144, a1: -1.9891696736297957, a2: 0.9891990357870394},
	}, offset: -0.691}, // K-weighting has slightly above unity gain at 1 kHz
	NoWeighting: {},
}

func makeLoudnessDetector(w Weighting) loudnessDetector {
	if w < 0 || w >= NumWeightings {
		w = KWeighting
	}
	return loudnessDetector{
		weighting: weightings[w],
		powers: [2]ptcop.RingBuffer[float32]{
			{Buffer: make([]float32, 4)},  // 400 ms
			{Buffer: make([]float32, 30)}, // 3 s
		},
	}
}

// update adds the mean power of a block to the sliding windows. Every ten
// blocks the integrated loudness is recomputed from the gated momentary
// powers: blocks below -70 dB are dropped, and then blocks 10 dB below the
// mean of the rest.
func (d *loudnessDetector) update(block ptcop.AudioBuffer) Loudness {
	l := max(len(block), maxIntegratedData)
	setSliceLength(&d.tmp, l)
	setSliceLength(&d.tmp2, l)
	setSliceLength(&d.tmpbool, l)
	var total float32
	for chn := range 2 {
		x := deinterleave(d.tmp, block, chn)
		for k := range d.weighting.coeffs {
			d.states[chn][k].filter(x, d.weighting.coeffs[k])
		}
		res := vek32.Mul_Into(d.tmp2, x, x)
		total += vek32.Mean(res)
	}
	var ret Loudness
	for i := range d.powers {
		d.powers[i].WriteWrapSingle(total)
		mean := vek32.Mean(d.powers[i].Buffer)
		if len(d.averagedPowers[i]) < maxIntegratedData {
			d.averagedPowers[i] = append(d.averagedPowers[i], mean)
		}
		if d.maxPowers[i] < mean {
			d.maxPowers[i] = mean
		}
		ret[i+int(LoudnessMomentary)] = power2loudness(mean, d.weighting.offset)
		ret[i+int(LoudnessMaxMomentary)] = power2loudness(d.maxPowers[i], d.weighting.offset)
	}
	if len(d.averagedPowers[0])%10 == 0 {
		absThreshold := loudness2power(-70, d.weighting.offset)
		b := vek32.GtNumber_Into(d.tmpbool, d.averagedPowers[0], absThreshold)
		m2 := vek32.Select_Into(d.tmp, d.averagedPowers[0], b)
		if len(m2) > 0 {
			relThreshold := vek32.Mean(m2) / 10
			b2 := vek32.GtNumber_Into(d.tmpbool, m2, relThreshold)
			m3 := vek32.Select_Into(d.tmp2, m2, b2)
			if len(m3) > 0 {
				d.integratedPower = vek32.Mean(m3)
			}
		}
	}
	ret[LoudnessIntegrated] = power2loudness(d.integratedPower, d.weighting.offset)
	return ret
}

func (d *loudnessDetector) reset() {
	for i := range d.powers {
		d.powers[i].Clear()
		d.averagedPowers[i] = d.averagedPowers[i][:0]
		d.maxPowers[i] = 0
	}
	d.states = [2][3]biquadState{}
	d.integratedPower = 0
}

func power2loudness(power, offset float32) Decibel {
	return Decibel(float32(10*math.Log10(float64(power))) + offset)
}

func loudness2power(loudness Decibel, offset float32) float32 {
	return float32(math.Pow(10, (float64(loudness)-float64(offset))/10))
}

func (state *biquadState) filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i, x := range buffer {
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}
