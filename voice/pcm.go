package voice

import (
	"encoding/binary"
	"fmt"

	"github.com/vsariola/ptcop/cursor"
)

// ReadPCM decodes a raw PCM material.
func ReadPCM(c *cursor.Cursor) (Voice, error) {
	r := c.Record()
	r.U32() // chunk size
	r.U16()
	basicKey := r.U16()
	flagBits := r.U32()
	channels := r.U16()
	bits := r.U16()
	rate := r.U32()
	tuning := r.F32()
	size := r.U32()
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("pcm header: %w", err)
	}
	flags, err := parseFlags(flagBits)
	if err != nil {
		return Voice{}, err
	}
	if int64(size) > c.Remaining() {
		return Voice{}, fmt.Errorf("pcm data: %w", cursor.ErrOutOfBounds)
	}
	data := r.Bytes(int(size))
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("pcm data: %w", err)
	}
	samples, err := ConvertPCM(data, int(channels), int(bits), int(rate))
	if err != nil {
		return Voice{}, err
	}
	return Voice{
		Type: PCM,
		Instances: []Instance{{
			Samples:  samples,
			BasicKey: int32(basicKey),
			Tuning:   tuning,
			Flags:    flags,
		}},
	}, nil
}

// ConvertPCM converts interleaved little-endian PCM (1 or 2 channels, 8-bit
// unsigned or 16-bit signed) into stereo 16-bit frames at SampleRate.
func ConvertPCM(data []byte, channels, bits, rate int) ([][2]int16, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}
	if bits != 8 && bits != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, bits)
	}
	frameSize := channels * bits / 8
	frames := make([][2]int16, len(data)/frameSize)
	for i := range frames {
		f := data[i*frameSize : (i+1)*frameSize]
		for ch := range 2 {
			src := ch
			if channels == 1 {
				src = 0
			}
			if bits == 8 {
				frames[i][ch] = int16((int(f[src]) - 128) * 0x100)
			} else {
				frames[i][ch] = int16(binary.LittleEndian.Uint16(f[src*2:]))
			}
		}
	}
	return Resample(frames, rate)
}

// Resample maps stereo frames at rate onto SampleRate by nearest-neighbour
// index mapping. Frames already at SampleRate are returned as is.
func Resample(frames [][2]int16, rate int) ([][2]int16, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrMalformed, rate)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrMalformed)
	}
	if rate == SampleRate {
		if len(frames) > MaxFrames {
			return nil, ErrTooLarge
		}
		return frames, nil
	}
	n := (int64(len(frames))*SampleRate + int64(rate) - 1) / int64(rate)
	if n > MaxFrames {
		return nil, ErrTooLarge
	}
	ret := make([][2]int16, n)
	for i := range ret {
		src := int64(i) * int64(rate) / SampleRate
		if src >= int64(len(frames)) {
			src = int64(len(frames)) - 1
		}
		ret[i] = frames[src]
	}
	return ret, nil
}
