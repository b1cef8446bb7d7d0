package oto_test

import (
	"bytes"
	"testing"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/oto"
)

func TestAppendPCM(t *testing.T) {
	buffer := ptcop.AudioBuffer{{0, -1}, {256, -32768}, {32767, 1}}
	want := []byte{0x00, 0x00, 0xff, 0xff, 0x00, 0x01, 0x00, 0x80, 0xff, 0x7f, 0x01, 0x00}
	if got := oto.AppendPCM(nil, buffer); !bytes.Equal(got, want) {
		t.Errorf("AppendPCM(nil) = %x, want %x", got, want)
	}
	prefix := []byte{0xaa}
	got := oto.AppendPCM(prefix, buffer[:1])
	if !bytes.Equal(got, []byte{0xaa, 0, 0, 0xff, 0xff}) {
		t.Errorf("AppendPCM kept prefix as %x", got)
	}
	raw, err := buffer.Raw()
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("AppendPCM and Raw disagree: %x vs %x", want, raw)
	}
}
