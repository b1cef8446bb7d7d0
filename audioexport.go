package ptcop

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavPCMFormat = 1

// Wav writes the buffer as a 16-bit stereo .wav file at SampleRate.
func (b AudioBuffer) Wav(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, SampleRate, 16, Channels, wavPCMFormat)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: Channels,
			SampleRate:  SampleRate,
		},
		Data:           make([]int, 0, len(b)*Channels),
		SourceBitDepth: 16,
	}
	for _, f := range b {
		buf.Data = append(buf.Data, int(f[0]), int(f[1]))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}

// Raw returns the buffer as interleaved little-endian 16-bit samples.
func (b AudioBuffer) Raw() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(len(b) * Channels * 2)
	if err := binary.Write(buf, binary.LittleEndian, b); err != nil {
		return nil, fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteRaw writes the buffer to w as interleaved little-endian 16-bit
// samples.
func (b AudioBuffer) WriteRaw(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, b); err != nil {
		return fmt.Errorf("could not write raw audio: %w", err)
	}
	return nil
}
