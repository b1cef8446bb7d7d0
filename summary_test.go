package ptcop_test

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsariola/ptcop"
)

func TestSummary(t *testing.T) {
	p, err := ptcop.ReadBytes(fullProject().Bytes())
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	s := p.Summary()
	if s.Name != "テスト曲" || s.BeatsPerBar != 3 || s.Tempo != 150 || s.Measures != 2 {
		t.Errorf("Summary() = %+v", s)
	}
	if s.Samples != 105840 || s.Duration != 2400*time.Millisecond {
		t.Errorf("length %d samples, %v", s.Samples, s.Duration)
	}
	if len(s.Tracks) != 2 || s.Tracks[1] != "bass" || s.Events != 4 {
		t.Errorf("tracks %q, %d events", s.Tracks, s.Events)
	}
	if len(s.Voices) != 2 {
		t.Fatalf("%d voices", len(s.Voices))
	}
	if v := s.Voices[0]; v.Name != "square" || v.Type != "pcm" || v.Instances != 1 || v.Frames != 441 {
		t.Errorf("voice 0 = %+v", v)
	}
	if v := s.Voices[1]; v.Type != "ptv" || v.Frames != 400 {
		t.Errorf("voice 1 = %+v", v)
	}
	if s.Delays != 1 || s.Overdrives != 1 {
		t.Errorf("%d delays, %d overdrives", s.Delays, s.Overdrives)
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	for _, want := range []string{"beatsperbar: 3", "tracks: [\"\", bass]", "type: ptv"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml summary does not contain %q:\n%s", want, out)
		}
	}
	var back ptcop.Summary
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	if back.Name != s.Name || back.Samples != s.Samples || len(back.Voices) != len(s.Voices) {
		t.Errorf("yaml round trip gave %+v", back)
	}
}

func TestText(t *testing.T) {
	for _, s := range []string{"", "plain", "ピストン", "曲名 2"} {
		b := ptcop.EncodeText(s)
		if got := ptcop.DecodeText(b); got != s {
			t.Errorf("DecodeText(EncodeText(%q)) = %q", s, got)
		}
	}
	if got := ptcop.DecodeText([]byte("name\x00garbage")); got != "name" {
		t.Errorf("DecodeText stops at NUL: got %q", got)
	}
	if got := string(ptcop.EncodeText("a😀b")); got != "a?b" {
		t.Errorf("EncodeText of an emoji = %q, want %q", got, "a?b")
	}
}

func TestRingBuffer(t *testing.T) {
	r := ptcop.RingBuffer[int32]{Buffer: make([]int32, 4)}
	for i := range int32(6) {
		r.WriteWrapSingle(i)
	}
	for n, want := range []int32{5, 4, 3, 2} {
		if got := r.Back(n); got != want {
			t.Errorf("Back(%d) = %d, want %d", n, got, want)
		}
	}
	r.WriteWrap([]int32{10, 11, 12})
	for n, want := range []int32{12, 11, 10, 5} {
		if got := r.Back(n); got != want {
			t.Errorf("after WriteWrap Back(%d) = %d, want %d", n, got, want)
		}
	}
	r.Clear()
	if r.Cursor != 0 || r.Back(0) != 0 || r.Back(3) != 0 {
		t.Errorf("Clear left %+v", r)
	}
}
