// Package meter measures the loudness and true peak levels of rendered audio,
// following EBU Tech 3341 and ITU-R BS.1770.
//
// Audio is analyzed in blocks of 100 ms. Momentary values cover the last
// 400 ms, short-term values the last 3 s and integrated values everything
// written since the last Reset.
package meter

import (
	"fmt"
	"math"
	"strings"

	"github.com/vsariola/ptcop"
)

type (
	// Meter is a ptcop.AudioSink that keeps the loudness and peak levels of
	// everything written to it.
	Meter struct {
		loudness loudnessDetector
		peak     peakDetector
		pending  ptcop.AudioBuffer
		result   Result
		blocks   int
	}

	Weighting    int
	LoudnessType int
	PeakType     int

	Decibel float32

	Loudness [NumLoudnessTypes]Decibel
	Peaks    [NumPeakTypes][2]Decibel

	Result struct {
		Loudness Loudness
		Peaks    Peaks
	}
)

// BlockSize is the number of frames analyzed at a time.
const BlockSize = ptcop.SampleRate / 10

const (
	LoudnessMomentary LoudnessType = iota
	LoudnessShortTerm
	LoudnessMaxMomentary
	LoudnessMaxShortTerm
	LoudnessIntegrated
	NumLoudnessTypes
)

const (
	PeakMomentary PeakType = iota
	PeakShortTerm
	PeakIntegrated
	NumPeakTypes
)

const (
	KWeighting Weighting = iota
	AWeighting
	CWeighting
	NoWeighting
	NumWeightings
)

var weightingNames = [...]string{"k", "a", "c", "none"}

func (w Weighting) String() string {
	if w < 0 || w >= NumWeightings {
		return fmt.Sprintf("Weighting(%d)", int(w))
	}
	return weightingNames[w]
}

// ParseWeighting parses the name of a weighting, as returned by String.
func ParseWeighting(s string) (Weighting, error) {
	for i, n := range weightingNames {
		if strings.EqualFold(s, n) {
			return Weighting(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weighting %q", s)
}

func (d Decibel) String() string {
	if math.IsInf(float64(d), -1) {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", float32(d))
}

// New returns a meter using the given loudness weighting. With oversampling,
// peaks are measured as true peaks on a 4x oversampled signal.
func New(w Weighting, oversampling bool) *Meter {
	ret := &Meter{
		loudness: makeLoudnessDetector(w),
		peak:     makePeakDetector(oversampling),
		pending:  make(ptcop.AudioBuffer, 0, BlockSize),
	}
	ret.Reset()
	return ret
}

// WriteAudio analyzes buffer. Frames that do not fill a whole block are kept
// until the next call.
func (m *Meter) WriteAudio(buffer ptcop.AudioBuffer) error {
	for len(buffer) > 0 {
		if len(m.pending) == 0 && len(buffer) >= BlockSize {
			m.update(buffer[:BlockSize])
			buffer = buffer[BlockSize:]
			continue
		}
		n := min(len(buffer), BlockSize-len(m.pending))
		m.pending = append(m.pending, buffer[:n]...)
		buffer = buffer[n:]
		if len(m.pending) == BlockSize {
			m.update(m.pending)
			m.pending = m.pending[:0]
		}
	}
	return nil
}

// Close drops a partial block.
func (m *Meter) Close() error {
	m.pending = m.pending[:0]
	return nil
}

func (m *Meter) update(block ptcop.AudioBuffer) {
	m.result = Result{
		Loudness: m.loudness.update(block),
		Peaks:    m.peak.update(block),
	}
	m.blocks++
}

// Result returns the levels after the last complete block.
func (m *Meter) Result() Result { return m.result }

// Blocks returns the number of blocks analyzed since the last Reset.
func (m *Meter) Blocks() int { return m.blocks }

// Reset forgets everything written so far.
func (m *Meter) Reset() {
	m.loudness.reset()
	m.peak.reset()
	m.pending = m.pending[:0]
	m.blocks = 0
	inf := Decibel(math.Inf(-1))
	for i := range m.result.Loudness {
		m.result.Loudness[i] = inf
	}
	for i := range m.result.Peaks {
		m.result.Peaks[i] = [2]Decibel{inf, inf}
	}
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}

// deinterleave copies one channel of buffer into dst, scaled to [-1, 1].
func deinterleave(dst []float32, buffer ptcop.AudioBuffer, ch int) []float32 {
	dst = dst[:len(buffer)]
	for i, f := range buffer {
		dst[i] = float32(f[ch]) / 32768
	}
	return dst
}
