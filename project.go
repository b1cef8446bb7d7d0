// Package ptcop decodes chunk-tagged tracker projects into an immutable
// Project: the master timing, a time-ordered list of events, the voices
// (sound materials) the events refer to and the delay and overdrive effects.
package ptcop

import (
	"math"

	"github.com/vsariola/ptcop/voice"
)

const (
	// SampleRate is the only output rate; all materials are converted to it
	// at load time.
	SampleRate = voice.SampleRate
	// Channels is the number of interleaved output channels.
	Channels = 2

	MaxEvents     = 500000
	MaxTracks     = 50
	MaxVoices     = 100
	MaxDelays     = 4
	MaxOverdrives = 2
	// NumGroups is the number of mix groups effects can be attached to.
	NumGroups = 7

	// BeatClock is the only supported number of clock ticks per beat.
	BeatClock = 480
)

type (
	// Project is a decoded project. It is never modified after decoding, so
	// several players can share one.
	Project struct {
		// Version is the 16-byte magic the project started with.
		Version    string
		ExeVersion uint16
		Name       string
		Comment    string
		Master     Master
		Events     EventList
		// NumTracks is the number of tracks (units) events can address.
		NumTracks  int
		Voices     []voice.Voice
		Delays     []Delay
		Overdrives []Overdrive
		// TrackNames and VoiceNames are the optional display names, indexed
		// like tracks and voices. Missing names are empty.
		TrackNames []string
		VoiceNames []string
	}

	// Master holds the global timing of a project.
	Master struct {
		BeatClock int32
		BeatNum   int32
		BeatTempo float32
		// NumMeasures is the length of the project in measures, always at
		// least long enough to cover every event.
		NumMeasures int32
		// RepeatMeasure is where playback jumps back to after the end.
		RepeatMeasure int32
		// LastMeasure ends the project early when non-zero.
		LastMeasure int32
	}
)

// ClocksPerMeasure returns the number of clock ticks in a measure.
func (m *Master) ClocksPerMeasure() int32 { return m.BeatClock * m.BeatNum }

// PlayMeasures returns the number of measures played before looping or
// stopping.
func (m *Master) PlayMeasures() int32 {
	if m.LastMeasure != 0 {
		return m.LastMeasure
	}
	return m.NumMeasures
}

// LastClock returns the clock at which LastMeasure starts.
func (m *Master) LastClock() int64 {
	return int64(m.LastMeasure) * int64(m.ClocksPerMeasure())
}

// SamplesPerClock returns the number of output samples in one clock tick at
// the master tempo. Clocks per minute are counted in whole ticks.
func (m *Master) SamplesPerClock() float64 {
	perMinute := uint32(float64(m.BeatTempo) * float64(m.BeatClock))
	return 60.0 * SampleRate / float64(perMinute)
}

// TotalSamples returns the number of output samples before the end, or
// before looping back, of a project played at the master tempo.
func (m *Master) TotalSamples() int64 {
	return m.measureSample(m.PlayMeasures())
}

// RepeatSample returns the sample position of RepeatMeasure.
func (m *Master) RepeatSample() int64 {
	return m.measureSample(m.RepeatMeasure)
}

func (m *Master) measureSample(measure int32) int64 {
	clock := int64(measure) * int64(m.ClocksPerMeasure())
	return int64(float64(clock) * m.SamplesPerClock())
}

// adjust grows NumMeasures to cover clock and keeps the repeat and last
// measures within the project.
func (m *Master) adjust(clock int64) {
	beats := (clock + int64(m.BeatClock) - 1) / int64(m.BeatClock)
	measures := (beats + int64(m.BeatNum) - 1) / int64(m.BeatNum)
	if measures > math.MaxInt32 {
		measures = math.MaxInt32
	}
	if int64(m.NumMeasures) <= measures {
		m.NumMeasures = int32(measures)
	}
	if m.RepeatMeasure >= m.NumMeasures {
		m.RepeatMeasure = 0
	}
	if m.LastMeasure > m.NumMeasures {
		m.LastMeasure = m.NumMeasures
	}
}

// validTempo reports whether t yields at least one clock tick per minute.
func validTempo(t float32) bool {
	return !math.IsInf(float64(t), 0) && float64(t)*BeatClock >= 1 && float64(t)*BeatClock <= math.MaxUint32
}
