package voice

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jfreymuth/oggvorbis"

	"github.com/vsariola/ptcop/cursor"
)

// VorbisDecoder turns a compressed Ogg Vorbis stream into interleaved 16-bit
// PCM.
type VorbisDecoder interface {
	DecodeVorbis(data []byte) (pcm []int16, channels, rate int, err error)
}

// OggVorbis is the default VorbisDecoder, a pure Go decoder.
type OggVorbis struct{}

func (OggVorbis) DecodeVorbis(data []byte) ([]int16, int, int, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not decode ogg vorbis stream: %w", err)
	}
	pcm := make([]int16, len(samples))
	for i, v := range samples {
		pcm[i] = int16(max(-1, min(1, v)) * math.MaxInt16)
	}
	return pcm, format.Channels, format.SampleRate, nil
}

// ReadOGG decodes an Ogg Vorbis material with dec. A nil dec means Vorbis
// support is not available.
func ReadOGG(c *cursor.Cursor, dec VorbisDecoder) (Voice, error) {
	if dec == nil {
		return Voice{}, fmt.Errorf("%w: no vorbis decoder", ErrUnsupported)
	}
	r := c.Record()
	r.U32() // chunk size
	r.U16()
	basicKey := r.U16()
	flagBits := r.U32()
	tuning := r.F32()
	r.S32() // channels
	r.S32() // sample rate
	r.S32() // sample count
	size := r.S32()
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("ogg header: %w", err)
	}
	flags, err := parseFlags(flagBits)
	if err != nil {
		return Voice{}, err
	}
	if size <= 0 {
		return Voice{}, fmt.Errorf("%w: ogg data size %d", ErrMalformed, size)
	}
	data := r.Bytes(int(size))
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("ogg data: %w", err)
	}
	pcm, channels, rate, err := dec.DecodeVorbis(data)
	if err != nil {
		return Voice{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if channels != 1 && channels != 2 {
		return Voice{}, fmt.Errorf("%w: %d ogg channels", ErrUnsupported, channels)
	}
	frames := make([][2]int16, len(pcm)/channels)
	for i := range frames {
		frames[i][0] = pcm[i*channels]
		frames[i][1] = pcm[i*channels+channels-1]
	}
	samples, err := Resample(frames, rate)
	if err != nil {
		return Voice{}, err
	}
	return Voice{
		Type: OGG,
		Instances: []Instance{{
			Samples:  samples,
			BasicKey: int32(basicKey),
			Tuning:   tuning,
			Flags:    flags,
		}},
	}, nil
}
