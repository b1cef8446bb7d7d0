// Package synth renders decoded projects into 16-bit stereo audio at
// ptcop.SampleRate.
//
// A Player walks the event list of a project forward one sample at a time:
// it dispatches the events that are due, mixes the voices of every track into
// their groups, runs the overdrives and delays of each group and clamps the
// sum. Rendering is deterministic, so rendering in chunks of any size, or
// seeking and rendering, gives exactly the same samples as one long render.
package synth

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/pitch"
)

// smoothLength is the length of the fade applied to the end of notes of
// voices with the smooth flag: 4 ms.
const smoothLength = ptcop.SampleRate / 250

// Player renders a project. It is not safe for concurrent use, but several
// players can share one project.
type Player struct {
	project    *ptcop.Project
	tracks     []track
	muted      []bool
	delays     []delayLine
	overdrives []overdrive
	groups     [ptcop.NumGroups]int32

	tempo           float64
	samplesPerClock float64
	totalSamples    int
	repeatSample    int

	sample  int
	clock   int32
	next    int
	top     int32
	fade    fade
	frame   [2]int16
	loop    bool
	// wrapped is set once playback has looped; the engine state then no
	// longer equals that of a straight run.
	wrapped bool
	ended   bool
	closed  bool
}

// fade ramps the output ceiling up or down over length samples.
type fade struct {
	dir    int
	count  int
	length int
}

// Open decodes a project held in memory and prepares it for playback.
func Open(b []byte) (*Player, error) {
	p, err := ptcop.ReadBytes(b)
	if err != nil {
		return nil, err
	}
	return NewPlayer(p)
}

// OpenReader decodes a project from a stream and prepares it for playback.
func OpenReader(r io.ReadSeeker) (*Player, error) {
	p, err := ptcop.Read(r)
	if err != nil {
		return nil, err
	}
	return NewPlayer(p)
}

// NewPlayer prepares a decoded project for playback. The project is only
// read.
func NewPlayer(p *ptcop.Project) (*Player, error) {
	if p == nil {
		return nil, &ptcop.Error{Code: ptcop.ErrPrepare}
	}
	m := &p.Master
	if m.BeatClock <= 0 || m.BeatNum <= 0 || !(m.BeatTempo > 0) {
		return nil, prepareError("invalid master timing %d/%d at tempo %v", m.BeatClock, m.BeatNum, m.BeatTempo)
	}
	s := &Player{
		project:         p,
		tracks:          make([]track, p.NumTracks),
		muted:           make([]bool, p.NumTracks),
		tempo:           float64(m.BeatTempo),
		samplesPerClock: m.SamplesPerClock(),
		totalSamples:    int(m.TotalSamples()),
		repeatSample:    int(m.RepeatSample()),
	}
	if math.IsInf(s.samplesPerClock, 0) || s.totalSamples < 0 || s.repeatSample < 0 {
		return nil, prepareError("tempo %v out of range", m.BeatTempo)
	}
	if len(s.tracks) > 0 && len(p.Voices) == 0 {
		return nil, prepareError("%d tracks but no voices", len(s.tracks))
	}
	for i := range p.Delays {
		d := &p.Delays[i]
		n := d.Length(m.BeatNum, s.tempo)
		if n > maxDelayLength {
			return nil, prepareError("delay %d of %d frames is too long", i, n)
		}
		s.delays = append(s.delays, newDelayLine(d, n))
	}
	for i := range p.Overdrives {
		s.overdrives = append(s.overdrives, newOverdrive(&p.Overdrives[i]))
	}
	s.rewind()
	return s, nil
}

func prepareError(format string, args ...any) error {
	return &ptcop.Error{Code: ptcop.ErrPrepare, Err: fmt.Errorf(format, args...)}
}

// Project returns the project being played.
func (s *Player) Project() *ptcop.Project { return s.project }

// rewind puts the player in its initial state, keeping the loop flag and the
// muted tracks.
func (s *Player) rewind() {
	s.sample = 0
	s.clock = 0
	s.ended = s.totalSamples <= 0
	s.wrapped = false
	s.top = math.MaxInt16
	s.fade = fade{}
	s.next = s.project.Events.First()
	for i := range s.delays {
		s.delays[i].clear()
	}
	s.initTracks()
}

func (s *Player) initTracks() {
	for i := range s.tracks {
		t := &s.tracks[i]
		t.init(!s.muted[i])
		s.setVoice(t, 0)
	}
}

// setVoice switches the voice of a track and prepares its tones.
func (s *Player) setVoice(t *track, idx int32) {
	if idx < 0 || int(idx) >= len(s.project.Voices) {
		return
	}
	v := &s.project.Voices[idx]
	t.setVoice(v)
	for i := range v.Instances {
		inst := &v.Instances[i]
		var offsetFreq float64
		if inst.Flags.BeatFit() {
			offsetFreq = float64(len(inst.Samples)) * s.tempo / float64(ptcop.SampleRate*60*inst.Tuning)
		} else {
			offsetFreq = float64(pitch.Relative(pitch.BasicKey-inst.BasicKey) * inst.Tuning)
		}
		t.resetTone(i, int32(float64(inst.Release)/s.samplesPerClock), offsetFreq)
	}
}

// noteOn starts the tones of a track for an EventOn at index i, computing
// how long each tone lives: until the note ends plus its release, but never
// past the next note of the track or the end of the project.
func (s *Player) noteOn(t *track, i int) {
	events := s.project.Events.Records
	e := &events[i]
	onCount := int32(float64(e.Clock+e.Value-s.clock) * s.samplesPerClock)
	if onCount <= 0 {
		t.zeroLives()
		return
	}
	t.keyOn()
	for v := range t.voice.Instances {
		inst := &t.voice.Instances[v]
		ut := &t.tones[v]
		if inst.Release != 0 {
			life1 := onCount + inst.Release
			limit := int64(e.Value) + int64(e.Clock) + int64(ut.envReleaseClock)
			next := -1
			for j := s.project.Events.Next(i); j >= 0; j = s.project.Events.Next(j) {
				n := &events[j]
				if int64(n.Clock) > limit {
					break
				}
				if n.Track == e.Track && n.Kind == ptcop.EventOn {
					next = j
					break
				}
			}
			var life2 int32
			if next < 0 {
				life2 = int32(s.totalSamples) - int32(float64(s.clock)*s.samplesPerClock)
			} else {
				life2 = int32(float64(events[next].Clock-s.clock) * s.samplesPerClock)
			}
			ut.life = min(life1, life2)
		} else {
			ut.life = onCount
		}
		if ut.life > 0 {
			ut.on = onCount
			ut.pos = 0
			ut.envPos = 0
			if len(inst.Envelope) > 0 {
				ut.envVolume, ut.envStart = 0, 0
			} else {
				ut.envVolume, ut.envStart = 128, 128
			}
		}
	}
}

func (s *Player) dispatch(i int) {
	e := &s.project.Events.Records[i]
	t := &s.tracks[e.Track]
	switch e.Kind {
	case ptcop.EventOn:
		s.noteOn(t, i)
	case ptcop.EventKey:
		t.setKey(e.Value)
	case ptcop.EventPanVolume:
		t.setPanVolume(e.Value)
	case ptcop.EventPanTime:
		t.setPanTime(e.Value)
	case ptcop.EventVelocity:
		t.setVelocity(e.Value)
	case ptcop.EventVolume:
		t.setVolume(e.Value)
	case ptcop.EventPortament:
		t.setPortament(int32(float64(e.Value) * s.samplesPerClock))
	case ptcop.EventVoiceNo:
		s.setVoice(t, e.Value)
	case ptcop.EventGroupNo:
		t.setGroup(e.Value)
	case ptcop.EventTuning:
		t.tuning = float64(e.Tuning())
	}
}

// step computes one output frame into s.frame. It returns false when the
// project has ended.
func (s *Player) step() bool {
	events := s.project.Events.Records
	s.clock = int32(float64(s.sample) / s.samplesPerClock)
	for i := range s.tracks {
		s.tracks[i].envelope()
	}
	for s.next >= 0 && events[s.next].Clock <= s.clock {
		s.dispatch(s.next)
		s.next = s.project.Events.Next(s.next)
	}
	for i := range s.tracks {
		s.tracks[i].sample(smoothLength)
	}
	for ch := range s.frame {
		s.groups = [ptcop.NumGroups]int32{}
		for i := range s.tracks {
			t := &s.tracks[i]
			s.groups[t.group] += t.output(ch)
		}
		for i := range s.overdrives {
			s.overdrives[i].apply(&s.groups)
		}
		for i := range s.delays {
			s.delays[i].apply(&s.groups, ch)
		}
		var work int32
		for _, g := range s.groups {
			work += g
		}
		s.frame[ch] = int16(max(-s.top, min(s.top, work)))
	}
	s.sample++
	for i := range s.tracks {
		t := &s.tracks[i]
		t.incrementSample(t.incrementKey())
	}
	for i := range s.delays {
		s.delays[i].increment()
	}
	if !s.stepFade() {
		return false
	}
	if s.sample >= s.totalSamples {
		if !s.loop {
			return false
		}
		s.sample = s.repeatSample
		s.wrapped = true
		s.next = s.project.Events.First()
		s.initTracks()
	}
	return true
}

// stepFade advances a running fade. It returns false when a fade out has
// finished.
func (s *Player) stepFade() bool {
	f := &s.fade
	switch f.dir {
	case 1:
		if f.count < f.length {
			f.count++
		} else {
			f.dir = 0
		}
	case -1:
		if f.count > 0 {
			f.count--
		}
		if f.count == 0 {
			s.top = 0
			return false
		}
	default:
		return true
	}
	s.top = int32(int64(math.MaxInt16) * int64(f.count) / int64(f.length))
	return true
}

// Render fills buffer with the next frames and returns how many of them carry
// audio. After the end of the project the rest of the buffer is zeroed and
// the next call returns 0.
func (s *Player) Render(buffer ptcop.AudioBuffer) int {
	if len(buffer) == 0 {
		return 0
	}
	n := 0
	for n < len(buffer) && !s.ended && !s.closed {
		if !s.step() {
			s.ended = true
		}
		buffer[n] = s.frame
		n++
	}
	clear(buffer[n:])
	return n
}

// skip runs the engine for n samples without producing output.
func (s *Player) skip(n int) {
	for range n {
		if !s.step() {
			s.ended = true
			return
		}
	}
}

// Seek moves playback to sample. State is rebuilt by running the engine up to
// sample, so that rendering after a seek equals rendering from the start.
// Seeking to TotalSamples ends playback. Seeking past it fails.
func (s *Player) Seek(sample int) bool {
	if s.closed || sample < 0 || sample > s.totalSamples {
		return false
	}
	if sample == s.totalSamples {
		s.ended = true
		return true
	}
	loop := s.loop
	s.loop = false
	if sample < s.sample || s.ended || s.wrapped {
		s.rewind()
		s.skip(sample)
	} else {
		s.fade = fade{}
		s.top = math.MaxInt16
		s.skip(sample - s.sample)
	}
	s.loop = loop
	return true
}

// Reset moves playback back to the start and cancels a running fade. The
// loop flag and muted tracks are kept.
func (s *Player) Reset() bool {
	if s.closed {
		return false
	}
	s.rewind()
	return true
}

// Loop reports whether playback continues from RepeatSample after the end.
func (s *Player) Loop() bool { return s.loop }

func (s *Player) SetLoop(loop bool) { s.loop = loop }

// TotalSamples returns the number of samples before the end or the loop
// point.
func (s *Player) TotalSamples() int { return s.totalSamples }

// CurrentSample returns the position of the next sample to render.
func (s *Player) CurrentSample() int { return s.sample }

// RepeatSample returns where playback continues when looping.
func (s *Player) RepeatSample() int { return s.repeatSample }

// Ended reports whether the last frame has been rendered.
func (s *Player) Ended() bool { return s.ended }

// SetFade starts raising the output ceiling from silence (in) or lowering it
// to silence over d. A finished fade out ends playback.
func (s *Player) SetFade(in bool, d time.Duration) bool {
	length := int(d.Seconds() * ptcop.SampleRate)
	if s.closed || length <= 0 {
		return false
	}
	if in {
		s.fade = fade{dir: 1, count: 0, length: length}
		s.top = 0
	} else {
		s.fade = fade{dir: -1, count: length, length: length}
	}
	return true
}

// SetTrackMuted silences a track. A muted track keeps following its events.
func (s *Player) SetTrackMuted(track int, muted bool) bool {
	if track < 0 || track >= len(s.tracks) {
		return false
	}
	s.muted[track] = muted
	s.tracks[track].played = !muted
	return true
}

// TrackMuted reports whether a track is muted.
func (s *Player) TrackMuted(track int) bool {
	return track >= 0 && track < len(s.muted) && s.muted[track]
}

// Close releases the buffers of the player. Rendering after Close produces
// silence.
func (s *Player) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.tracks = nil
	s.delays = nil
	s.overdrives = nil
	return nil
}
