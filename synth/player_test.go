package synth_test

import (
	"testing"
	"time"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/ptcoptest"
	"github.com/vsariola/ptcop/synth"
	"github.com/vsariola/ptcop/voice"
)

// One measure at 120 bpm is two seconds.
const measureSamples = 2 * ptcop.SampleRate

// noteSamples is the length of a quarter note at 120 bpm.
const noteSamples = ptcop.SampleRate / 2

// toneLevel is a full-scale constant voice after the default velocity and
// volume: 12800 * 104/128 * 104/128.
const toneLevel = 8450

func constantTone() ptcoptest.PCM {
	pcm := ptcoptest.ConstantPCM(100, 12800)
	pcm.Flags = voice.Loop
	return pcm
}

func singleNote() *ptcoptest.Builder {
	return ptcoptest.New().
		Tracks(1).
		Master(ptcoptest.DefaultMaster).
		Events(ptcoptest.Note(0, 0, ptcop.BeatClock)).
		PCM(constantTone())
}

// busyProject has two tracks, key changes, panning, a delay and an
// overdrive, so that most of the engine state matters for the output.
func busyProject() []byte {
	square := ptcoptest.SquarePCM(200, 50, 9000)
	square.Flags = voice.Loop | voice.Smooth
	return ptcoptest.New().
		Tracks(2).
		Master(ptcoptest.DefaultMaster).
		Events(
			ptcoptest.Note(0, 0, 300),
			ptcoptest.Event{Clock: 0, Track: 1, Kind: ptcop.EventVoiceNo, Value: 1},
			ptcoptest.Event{Clock: 0, Track: 1, Kind: ptcop.EventPanTime, Value: 90},
			ptcoptest.Note(1, 120, 600),
			ptcoptest.Event{Clock: 240, Track: 0, Kind: ptcop.EventPortament, Value: 120},
			ptcoptest.Event{Clock: 240, Track: 0, Kind: ptcop.EventKey, Value: 0x6400},
			ptcoptest.Event{Clock: 300, Track: 1, Kind: ptcop.EventGroupNo, Value: 1},
			ptcoptest.Note(0, 480, 480),
			ptcoptest.Event{Clock: 600, Track: 0, Kind: ptcop.EventPanVolume, Value: 20},
			ptcoptest.Tuning(1, 700, 1.5),
			ptcoptest.Note(1, 960, 960),
		).
		PCM(constantTone()).
		PCM(square).
		Delay(ptcoptest.Delay{Unit: ptcop.DelayBeat, Group: 0, Rate: 40, Freq: 3}).
		Overdrive(ptcoptest.Overdrive{Group: 1, Cut: 50, Amp: 2}).
		Bytes()
}

func open(t *testing.T, b []byte) *synth.Player {
	t.Helper()
	p, err := synth.Open(b)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return p
}

func renderAll(t *testing.T, p *synth.Player, chunk int) ptcop.AudioBuffer {
	t.Helper()
	var ret ptcop.AudioBuffer
	buf := make(ptcop.AudioBuffer, chunk)
	for {
		n := p.Render(buf)
		ret = append(ret, buf[:n]...)
		if n < len(buf) {
			return ret
		}
		if len(ret) > 10*measureSamples {
			t.Fatalf("render did not end")
		}
	}
}

func equalBuffers(t *testing.T, got, want ptcop.AudioBuffer) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderNote(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if got := p.TotalSamples(); got != measureSamples {
		t.Fatalf("TotalSamples() = %d, want %d", got, measureSamples)
	}
	out := renderAll(t, p, 4096)
	if len(out) != measureSamples {
		t.Fatalf("rendered %d frames, want %d", len(out), measureSamples)
	}
	for i, f := range out {
		want := int16(0)
		if i < noteSamples {
			want = toneLevel
		}
		if f != [2]int16{want, want} {
			t.Fatalf("frame %d = %v, want %v", i, f, want)
		}
	}
	if !p.Ended() {
		t.Errorf("player should have ended")
	}
	buf := ptcop.AudioBuffer{{1, 1}}
	if n := p.Render(buf); n != 0 || buf[0] != [2]int16{} {
		t.Errorf("Render after end = %d %v, want 0 and silence", n, buf[0])
	}
}

func TestRenderZeroFillsTail(t *testing.T) {
	p := open(t, singleNote().Bytes())
	buf := make(ptcop.AudioBuffer, measureSamples+100)
	for i := range buf {
		buf[i] = [2]int16{7, 7}
	}
	if n := p.Render(buf); n != measureSamples {
		t.Fatalf("Render = %d, want %d", n, measureSamples)
	}
	for i := measureSamples; i < len(buf); i++ {
		if buf[i] != [2]int16{} {
			t.Fatalf("frame %d = %v, want silence", i, buf[i])
		}
	}
}

func TestRenderChunkingIsInvisible(t *testing.T) {
	b := busyProject()
	want := renderAll(t, open(t, b), measureSamples*4)
	for _, chunk := range []int{1, 333, 4096} {
		got := renderAll(t, open(t, b), chunk)
		equalBuffers(t, got, want)
	}
}

func TestSeekEqualsReplay(t *testing.T) {
	b := busyProject()
	want := renderAll(t, open(t, b), 4096)
	p := open(t, b)
	for _, pos := range []int{30000, 100, 0, 50000, 50001} {
		if !p.Seek(pos) {
			t.Fatalf("Seek(%d) failed", pos)
		}
		if got := p.CurrentSample(); got != pos {
			t.Fatalf("CurrentSample() = %d after Seek(%d)", got, pos)
		}
		buf := make(ptcop.AudioBuffer, 1000)
		p.Render(buf)
		equalBuffers(t, buf, want[pos:pos+1000])
	}
}

func TestSeekBounds(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if p.Seek(-1) {
		t.Errorf("Seek(-1) should fail")
	}
	if p.Seek(p.TotalSamples() + 1) {
		t.Errorf("Seek past the end should fail")
	}
	if !p.Seek(p.TotalSamples()) {
		t.Fatalf("Seek to the end should succeed")
	}
	if !p.Ended() {
		t.Errorf("Seek to the end should end playback")
	}
	if n := p.Render(make(ptcop.AudioBuffer, 10)); n != 0 {
		t.Errorf("Render after seeking to the end = %d, want 0", n)
	}
	if !p.Reset() || p.Ended() || p.CurrentSample() != 0 {
		t.Errorf("Reset should rewind to the start")
	}
}

func TestLoop(t *testing.T) {
	p := open(t, singleNote().Bytes())
	p.SetLoop(true)
	if !p.Loop() {
		t.Fatalf("Loop() = false after SetLoop(true)")
	}
	total := p.TotalSamples()
	buf := make(ptcop.AudioBuffer, 2*total)
	if n := p.Render(buf); n != len(buf) || p.Ended() {
		t.Fatalf("looping Render = %d, ended %v", n, p.Ended())
	}
	equalBuffers(t, buf[total:], buf[:total])
}

func TestDelay(t *testing.T) {
	b := ptcoptest.New().
		Tracks(1).
		Master(ptcoptest.DefaultMaster).
		Events(ptcoptest.Note(0, 0, ptcop.BeatClock)).
		PCM(constantTone()).
		Delay(ptcoptest.Delay{Unit: ptcop.DelaySecond, Group: 0, Rate: 50, Freq: 10}).
		Bytes()
	out := renderAll(t, open(t, b), 4096)
	const length = ptcop.SampleRate / 10
	if got := out[length-1][0]; got != toneLevel {
		t.Errorf("frame before the echo = %d, want %d", got, toneLevel)
	}
	if got, want := out[length][0], int16(toneLevel+toneLevel/2); got != want {
		t.Errorf("first echoed frame = %d, want %d", got, want)
	}
	if got := out[noteSamples+length/2][0]; got == 0 {
		t.Errorf("echo should ring after the note ends")
	}
}

func TestOverdrive(t *testing.T) {
	b := singleNote().
		Overdrive(ptcoptest.Overdrive{Group: 0, Cut: 90, Amp: 1}).
		Bytes()
	out := renderAll(t, open(t, b), 4096)
	if got := out[0]; got != [2]int16{3276, 3276} {
		t.Errorf("clipped frame = %v, want 3276", got)
	}
}

func TestOverdriveOtherGroup(t *testing.T) {
	b := singleNote().
		Overdrive(ptcoptest.Overdrive{Group: 3, Cut: 90, Amp: 1}).
		Bytes()
	out := renderAll(t, open(t, b), 4096)
	if got := out[0][0]; got != toneLevel {
		t.Errorf("frame = %d, want %d", got, toneLevel)
	}
}

func TestMute(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if !p.SetTrackMuted(0, true) || !p.TrackMuted(0) {
		t.Fatalf("SetTrackMuted(0, true) failed")
	}
	if p.SetTrackMuted(5, true) || p.SetTrackMuted(-1, true) {
		t.Errorf("SetTrackMuted should fail for missing tracks")
	}
	for i, f := range renderAll(t, p, 4096) {
		if f != [2]int16{} {
			t.Fatalf("muted frame %d = %v", i, f)
		}
	}
	p.Reset()
	if !p.TrackMuted(0) {
		t.Errorf("Reset should keep tracks muted")
	}
	p.SetTrackMuted(0, false)
	buf := make(ptcop.AudioBuffer, 1)
	p.Render(buf)
	if buf[0][0] != toneLevel {
		t.Errorf("unmuted frame = %v, want %d", buf[0], toneLevel)
	}
}

func TestFadeOut(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if p.SetFade(false, 0) {
		t.Errorf("SetFade with zero duration should fail")
	}
	if !p.SetFade(false, 10*time.Millisecond) {
		t.Fatalf("SetFade failed")
	}
	out := renderAll(t, p, 4096)
	if len(out) != 441 {
		t.Fatalf("fade out rendered %d frames, want 441", len(out))
	}
	if !p.Ended() {
		t.Errorf("finished fade out should end playback")
	}
	if out[0][0] != toneLevel || out[440][0] >= out[200][0] {
		t.Errorf("fade out should start at full level and decrease: %v %v %v", out[0], out[200], out[440])
	}
}

func TestFadeIn(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if !p.SetFade(true, 10*time.Millisecond) {
		t.Fatalf("SetFade failed")
	}
	buf := make(ptcop.AudioBuffer, 1000)
	p.Render(buf)
	if buf[0] != [2]int16{} {
		t.Errorf("first faded in frame = %v, want silence", buf[0])
	}
	if buf[100][0] <= 0 || buf[100][0] >= toneLevel {
		t.Errorf("frame within the fade = %v", buf[100])
	}
	if buf[999][0] != toneLevel {
		t.Errorf("frame after the fade = %v, want %d", buf[999], toneLevel)
	}
}

func TestClose(t *testing.T) {
	p := open(t, singleNote().Bytes())
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	buf := ptcop.AudioBuffer{{1, 1}}
	if n := p.Render(buf); n != 0 || buf[0] != [2]int16{} {
		t.Errorf("Render after Close = %d %v", n, buf[0])
	}
	if p.Seek(0) || p.Reset() {
		t.Errorf("Seek and Reset should fail after Close")
	}
}

func TestEmptyProjectEndsImmediately(t *testing.T) {
	p := open(t, ptcoptest.New().Master(ptcoptest.DefaultMaster).Bytes())
	if p.TotalSamples() != 0 || !p.Ended() {
		t.Fatalf("empty project: total %d, ended %v", p.TotalSamples(), p.Ended())
	}
	if n := p.Render(make(ptcop.AudioBuffer, 16)); n != 0 {
		t.Errorf("Render = %d, want 0", n)
	}
}

func TestOpenErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		code ptcop.ErrorCode
	}{
		{"BadMagic", ptcoptest.NewVersion("PTCOLLAGE-000000").Bytes(), ptcop.ErrOldFormat},
		{"NoVoices", ptcoptest.New().Tracks(1).Master(ptcoptest.DefaultMaster).Bytes(), ptcop.ErrPrepare},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := synth.Open(tc.data)
			if err == nil {
				t.Fatalf("Open should fail")
			}
			if got := ptcop.CodeOf(err); got != tc.code {
				t.Errorf("CodeOf(%v) = %v, want %v", err, got, tc.code)
			}
		})
	}
	if _, err := synth.NewPlayer(nil); ptcop.CodeOf(err) != ptcop.ErrPrepare {
		t.Errorf("NewPlayer(nil) = %v, want %v", err, ptcop.ErrPrepare)
	}
}

func TestProjectsCanBeShared(t *testing.T) {
	proj, err := ptcop.ReadBytes(busyProject())
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	a, err := synth.NewPlayer(proj)
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}
	b, err := synth.NewPlayer(proj)
	if err != nil {
		t.Fatalf("NewPlayer failed: %v", err)
	}
	bufA := make(ptcop.AudioBuffer, 5000)
	bufB := make(ptcop.AudioBuffer, 5000)
	for range 3 {
		a.Render(bufA)
		b.Render(bufB)
		equalBuffers(t, bufA, bufB)
	}
}
