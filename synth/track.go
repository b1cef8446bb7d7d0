package synth

import (
	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/pitch"
	"github.com/vsariola/ptcop/voice"
)

const (
	panTimeSize = 64
	maxPanTime  = panTimeSize - 1

	maxVolume    = 128
	maxVelocity  = 128
	maxPanVolume = 64
)

type (
	// tone is the playback state of one instance of the voice of a track.
	tone struct {
		pos        float64
		offsetFreq float64
		// life counts down the samples left until the tone is silent, on
		// those until the note is released.
		life, on        int32
		envStart        int32
		envPos          int32
		envVolume       int32
		envReleaseClock int32
	}

	// track is the playback state of one track: the parameters last set by
	// events and the tones of its current voice.
	track struct {
		voice      *voice.Voice
		keyNow     int32
		keyStart   int32
		keyMargin  int32
		portaPos   int32
		portaLen   int32
		panVolume  [2]int32
		panTime    [2]int
		panBuffers [2]ptcop.RingBuffer[int32]
		volume     int32
		velocity   int32
		group      int
		tuning     float64
		played     bool
		tones      [voice.MaxInstances]tone
	}
)

// init puts the track in its state before any event.
func (t *track) init(played bool) {
	bufs := t.panBuffers
	*t = track{
		group:     0,
		velocity:  ptcop.DefaultVelocity,
		volume:    ptcop.DefaultVolume,
		tuning:    ptcop.DefaultTuning,
		panVolume: [2]int32{maxPanVolume, maxPanVolume},
		played:    played,
	}
	for ch := range bufs {
		if len(bufs[ch].Buffer) != panTimeSize {
			bufs[ch].Buffer = make([]int32, panTimeSize)
		}
		bufs[ch].Clear()
	}
	t.panBuffers = bufs
}

// clearTones silences every tone without touching the track parameters.
func (t *track) clearTones() {
	t.tones = [voice.MaxInstances]tone{}
}

func (t *track) setVoice(v *voice.Voice) {
	t.voice = v
	t.keyNow = ptcop.DefaultKey
	t.keyMargin = 0
	t.keyStart = ptcop.DefaultKey
}

func (t *track) resetTone(i int, releaseClock int32, offsetFreq float64) {
	ut := &t.tones[i]
	ut.life = 0
	ut.on = 0
	ut.pos = 0
	ut.envReleaseClock = releaseClock
	ut.offsetFreq = offsetFreq
}

func (t *track) zeroLives() {
	for i := range t.tones {
		t.tones[i].life = 0
	}
}

func (t *track) keyOn() {
	t.keyNow = t.keyStart + t.keyMargin
	t.keyStart = t.keyNow
	t.keyMargin = 0
}

func (t *track) setKey(key int32) {
	t.keyStart = t.keyNow
	t.keyMargin = key - t.keyStart
	t.portaPos = 0
}

func (t *track) setPanVolume(pan int32) {
	t.panVolume = [2]int32{maxPanVolume, maxPanVolume}
	if pan >= maxPanVolume {
		t.panVolume[0] = 2*maxPanVolume - pan
	} else {
		t.panVolume[1] = pan
	}
}

func (t *track) setPanTime(pan int32) {
	t.panTime = [2]int{}
	if pan >= 64 {
		t.panTime[0] = min(int(pan)-64, maxPanTime)
	} else {
		t.panTime[1] = min(64-int(pan), maxPanTime)
	}
}

func (t *track) setVelocity(v int32) { t.velocity = max(0, min(maxVelocity, v)) }
func (t *track) setVolume(v int32)   { t.volume = max(0, min(maxVolume, v)) }
func (t *track) setPortament(n int32) {
	t.portaLen = max(0, n)
}
func (t *track) setGroup(g int32) { t.group = int(g % ptcop.NumGroups) }

// envelope advances the attack curve of held tones and the release ramp of
// released ones.
func (t *track) envelope() {
	for i := range t.voice.Instances {
		inst := &t.voice.Instances[i]
		ut := &t.tones[i]
		if ut.life <= 0 || len(inst.Envelope) == 0 {
			continue
		}
		if ut.on > 0 {
			if int(ut.envPos) < len(inst.Envelope) {
				ut.envVolume = int32(inst.Envelope[ut.envPos])
				ut.envPos++
			}
		} else {
			if inst.Release > 0 {
				ut.envVolume = ut.envStart - ut.envStart*ut.envPos/inst.Release
			} else {
				ut.envVolume = 0
			}
			ut.envPos++
		}
	}
}

// sample mixes the tones into the pan-time buffers.
func (t *track) sample(smooth int32) {
	for ch := range t.panBuffers {
		var sum int32
		if t.played {
			for i := range t.voice.Instances {
				sum += t.toneSample(i, ch, smooth)
			}
		}
		t.panBuffers[ch].WriteWrapSingle(sum)
	}
}

func (t *track) toneSample(i, ch int, smooth int32) int32 {
	inst := &t.voice.Instances[i]
	ut := &t.tones[i]
	if ut.life <= 0 {
		return 0
	}
	work := int32(inst.Samples[int(ut.pos)][ch])
	work = work * t.velocity / maxVelocity
	work = work * t.volume / maxVolume
	work = work * t.panVolume[ch] / maxPanVolume
	if len(inst.Envelope) > 0 {
		work = work * ut.envVolume / maxVolume
	}
	if inst.Flags.Smooth() && ut.life < smooth {
		work = work * ut.life / smooth
	}
	return work
}

// output returns the delayed sample of channel ch.
func (t *track) output(ch int) int32 {
	return t.panBuffers[ch].Back(t.panTime[ch])
}

// incrementKey advances the portamento and returns the current key.
func (t *track) incrementKey() int32 {
	if t.portaLen != 0 && t.keyMargin != 0 {
		if t.portaPos < t.portaLen {
			t.portaPos++
			t.keyNow = t.keyStart + int32(int64(t.keyMargin)*int64(t.portaPos)/int64(t.portaLen))
		} else {
			t.keyNow = t.keyStart + t.keyMargin
			t.keyStart = t.keyNow
			t.keyMargin = 0
		}
	} else {
		t.keyNow = t.keyStart + t.keyMargin
	}
	return t.keyNow
}

// incrementSample advances the tones by one output sample at key.
func (t *track) incrementSample(key int32) {
	freq := float64(pitch.Absolute(key))
	for i := range t.voice.Instances {
		inst := &t.voice.Instances[i]
		ut := &t.tones[i]
		if ut.life > 0 {
			ut.life--
		}
		if ut.life <= 0 {
			continue
		}
		ut.on--
		ut.pos += ut.offsetFreq * t.tuning * freq
		n := float64(len(inst.Samples))
		if ut.pos >= n {
			if inst.Flags.Loop() {
				ut.pos -= n
				if ut.pos >= n {
					ut.pos = 0
				}
			} else {
				ut.life = 0
			}
		}
		if !(ut.pos >= 0) {
			ut.pos = 0
		}
		if ut.on == 0 && len(inst.Envelope) > 0 {
			ut.envStart = ut.envVolume
			ut.envPos = 0
		}
	}
}
