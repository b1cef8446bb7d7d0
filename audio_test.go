package ptcop_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/vsariola/ptcop"
)

var testBuffer = ptcop.AudioBuffer{{0, 0}, {1000, -1000}, {32767, -32768}, {-1, 1}}

func TestAudioBufferRaw(t *testing.T) {
	raw, err := testBuffer.Raw()
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	want := []byte{
		0, 0, 0, 0,
		0xe8, 0x03, 0x18, 0xfc,
		0xff, 0x7f, 0x00, 0x80,
		0xff, 0xff, 0x01, 0x00,
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("Raw() = %x, want %x", raw, want)
	}
	var buf bytes.Buffer
	if err := testBuffer.WriteRaw(&buf); err != nil {
		t.Fatalf("WriteRaw failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteRaw wrote %x, want %x", buf.Bytes(), want)
	}
}

func TestAudioBufferWav(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := testBuffer.Wav(f); err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	f, err = os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("Wav wrote an invalid file")
	}
	if dec.NumChans != ptcop.Channels || dec.SampleRate != ptcop.SampleRate || dec.BitDepth != 16 {
		t.Errorf("wav format %d channels %d Hz %d bits", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if len(pcm.Data) != len(testBuffer)*2 {
		t.Fatalf("decoded %d samples, want %d", len(pcm.Data), len(testBuffer)*2)
	}
	for i, f := range testBuffer {
		if pcm.Data[2*i] != int(f[0]) || pcm.Data[2*i+1] != int(f[1]) {
			t.Errorf("frame %d = %v, want %v", i, pcm.Data[2*i:2*i+2], f)
		}
	}
}

func TestAudioBufferFloat32(t *testing.T) {
	got := testBuffer.Float32()
	if len(got) != 8 || got[2] != 1000.0/32768 || got[5] != -1 {
		t.Errorf("Float32() = %v", got)
	}
	right := testBuffer.Channel(1)
	if len(right) != 4 || right[1] != -1000.0/32768 {
		t.Errorf("Channel(1) = %v", right)
	}
}
