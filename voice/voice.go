// Package voice decodes the sound materials of a project into playable
// stereo sample buffers at SampleRate.
//
// Materials come in four flavours: raw PCM, procedurally described waveforms
// (PTV), additive noise designs (PTN) and Ogg Vorbis streams. All of them are
// rendered once at load time; playback only reads the resulting buffers.
package voice

import (
	"errors"
	"fmt"
)

const (
	// SampleRate is the rate of every rendered buffer.
	SampleRate = 44100
	// MaxInstances is the largest number of layered instances in a voice.
	MaxInstances = 2
	// MaxFrames bounds the length of any rendered buffer.
	MaxFrames = SampleRate * 60 * 10
)

var (
	ErrMalformed   = errors.New("malformed voice material")
	ErrUnsupported = errors.New("unsupported voice material")
	ErrTooLarge    = errors.New("voice material too large")
)

// Type tells which material a Voice was decoded from.
type Type int

const (
	PCM Type = iota
	PTV
	PTN
	OGG
)

var typeNames = [...]string{"pcm", "ptv", "ptn", "ogg"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Flags are the playback flags stored with each voice instance.
type Flags uint32

const (
	// Loop repeats the sample buffer while the note is held.
	Loop Flags = 1 << iota
	// Smooth fades out the last few milliseconds of a note.
	Smooth
	// BeatFit stretches the sample to tempo instead of playing it at a pitch.
	BeatFit

	knownFlags = Loop | Smooth | BeatFit
)

func (f Flags) Loop() bool    { return f&Loop != 0 }
func (f Flags) Smooth() bool  { return f&Smooth != 0 }
func (f Flags) BeatFit() bool { return f&BeatFit != 0 }

func parseFlags(v uint32) (Flags, error) {
	if Flags(v)&^knownFlags != 0 {
		return 0, fmt.Errorf("%w: unknown voice flags %#x", ErrMalformed, v)
	}
	return Flags(v), nil
}

type (
	// Instance is one playable layer of a Voice.
	Instance struct {
		Samples  [][2]int16
		BasicKey int32
		Tuning   float32
		Flags    Flags
		// Envelope is the attack curve, one value per output sample.
		Envelope []byte
		// Release is the length of the release ramp in samples.
		Release int32
	}

	// Voice is a decoded sound source with one or two instances.
	Voice struct {
		Type      Type
		Instances []Instance
	}

	// Point is a control point of a waveform or an envelope.
	Point struct {
		X, Y int32
	}
)
