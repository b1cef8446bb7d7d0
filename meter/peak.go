package meter

import (
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/vsariola/ptcop"
)

type (
	peakDetector struct {
		oversampling bool
		states       [2]oversamplerState
		windows      [2][2]ptcop.RingBuffer[float32]
		maxPower     [2]float32
		tmp, tmp2    []float32
	}

	oversamplerState struct {
		history   [11]float32
		tmp, tmp2 []float32
	}
)

func makePeakDetector(oversampling bool) peakDetector {
	return peakDetector{
		oversampling: oversampling,
		windows: [2][2]ptcop.RingBuffer[float32]{
			{{Buffer: make([]float32, 4)}, {Buffer: make([]float32, 4)}},   // 400 ms
			{{Buffer: make([]float32, 30)}, {Buffer: make([]float32, 30)}}, // 3 s
		},
	}
}

// The four polyphase components of the 48-tap interpolation filter of
// ITU-R BS.1770-5, annex 2.
var oversamplingCoeffs = [4][12]float32{
	{0.0017089843750, 0.0109863281250, -0.0196533203125, 0.0332031250000, -0.0594482421875, 0.1373291015625, 0.9721679687500, -0.1022949218750, 0.0476074218750, -0.0266113281250, 0.0148925781250, -0.0083007812500},
	{-0.0291748046875, 0.0292968750000, -0.0517578125000, 0.0891113281250, -0.1665039062500, 0.4650878906250, 0.7797851562500, -0.2003173828125, 0.1015625000000, -0.0582275390625, 0.0330810546875, -0.0189208984375},
	{-0.0189208984375, 0.0330810546875, -0.058227539062, 0.1015625000000, -0.200317382812, 0.7797851562500, 0.4650878906250, -0.166503906250, 0.0891113281250, -0.051757812500, 0.0292968750000, -0.0291748046875},
	{-0.0083007812500, 0.0148925781250, -0.0266113281250, 0.0476074218750, -0.1022949218750, 0.9721679687500, 0.1373291015625, -0.0594482421875, 0.0332031250000, -0.0196533203125, 0.0109863281250, 0.0017089843750},
}

// oversample writes x upsampled 4x into y, which must be at least 4 times as
// long as x. Phase q of output sample p is the convolution of x with
// oversamplingCoeffs[q]:
//
//	y[p*4+q] = sum_{j=0}^{11} o[q][j] * x[p-j]
//
// The last 11 input samples are kept for the next call.
func (s *oversamplerState) oversample(x []float32, y []float32) []float32 {
	setSliceLength(&s.tmp, max(len(s.tmp), len(x)))
	setSliceLength(&s.tmp2, max(len(s.tmp2), len(x)))
	for q, coeffs := range oversamplingCoeffs {
		r := vek32.Zeros_Into(s.tmp2, len(x))
		for j, c := range coeffs {
			vek32.MulNumber_Into(s.tmp[:j], s.history[11-j:11], c)
			vek32.MulNumber_Into(s.tmp[j:], x[:len(x)-j], c)
			vek32.Add_Inplace(r, s.tmp[:len(x)])
		}
		for p, v := range r {
			y[p*4+q] = v
		}
	}
	z := min(len(x), 11)
	copy(s.history[:11-z], s.history[z:11])
	copy(s.history[11-z:], x[len(x)-z:])
	return y[:len(x)*4]
}

// update finds the peak of a block and keeps the largest peak of the last
// 400 ms, of the last 3 s and of everything.
func (d *peakDetector) update(block ptcop.AudioBuffer) (ret Peaks) {
	setSliceLength(&d.tmp, max(len(d.tmp), len(block)))
	setSliceLength(&d.tmp2, max(len(d.tmp2), 4*len(block)))
	for chn := range 2 {
		x := deinterleave(d.tmp, block, chn)
		o := x
		if d.oversampling {
			o = d.states[chn].oversample(x, d.tmp2)
		}
		vek32.Abs_Inplace(o)
		p := vek32.Max(o)
		for i := range d.windows {
			d.windows[i][chn].WriteWrapSingle(p)
			windowPeak := vek32.Max(d.windows[i][chn].Buffer)
			ret[i+int(PeakMomentary)][chn] = amplitude2decibel(windowPeak)
		}
		if d.maxPower[chn] < p {
			d.maxPower[chn] = p
		}
		ret[PeakIntegrated][chn] = amplitude2decibel(d.maxPower[chn])
	}
	return
}

func (d *peakDetector) reset() {
	for chn := range 2 {
		d.states[chn].history = [11]float32{}
		for i := range d.windows {
			d.windows[i][chn].Clear()
		}
		d.maxPower[chn] = 0
	}
}

func amplitude2decibel(a float32) Decibel {
	return Decibel(20 * math.Log10(float64(a)))
}
