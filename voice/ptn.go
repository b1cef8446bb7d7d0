package voice

import (
	"fmt"

	"github.com/vsariola/ptcop/cursor"
)

const (
	ptnCode    = "PTNOISE-"
	ptnVersion = 20120418

	ptnEnvelope = 0x04
	ptnPan      = 0x08
	ptnOscMain  = 0x10
	ptnOscFreq  = 0x20
	ptnOscVolu  = 0x40
	ptnKnown    = ptnEnvelope | ptnPan | ptnOscMain | ptnOscFreq | ptnOscVolu
)

// ReadPTN decodes a PTN material and builds its noise waveform.
func ReadPTN(c *cursor.Cursor) (Voice, error) {
	r := c.Record()
	r.U32() // chunk size
	r.U16()
	basicKey := r.U16()
	flagBits := r.U32()
	tuning := r.F32()
	reserved := r.S32()
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("ptn header: %w", err)
	}
	if reserved < 0 || reserved > 1 {
		return Voice{}, fmt.Errorf("%w: ptn reserved field %d", ErrMalformed, reserved)
	}
	flags, err := parseFlags(flagBits)
	if err != nil {
		return Voice{}, err
	}
	design, err := ReadNoiseDesign(c)
	if err != nil {
		return Voice{}, err
	}
	samples, err := design.Build()
	if err != nil {
		return Voice{}, err
	}
	return Voice{
		Type: PTN,
		Instances: []Instance{{
			Samples:  samples,
			BasicKey: int32(basicKey),
			Tuning:   tuning,
			Flags:    flags,
		}},
	}, nil
}

// ReadNoiseDesign decodes a "PTNOISE-" block.
func ReadNoiseDesign(c *cursor.Cursor) (*NoiseDesign, error) {
	r := c.Record()
	code := r.Bytes(len(ptnCode))
	version := r.U32()
	length := r.VarU32()
	count := r.U8()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ptn body: %w", err)
	}
	if string(code) != ptnCode {
		return nil, fmt.Errorf("%w: bad ptn code %q", ErrMalformed, code)
	}
	if version > ptnVersion {
		return nil, fmt.Errorf("%w: ptn version %d", ErrUnsupported, version)
	}
	if count > MaxNoiseUnits {
		return nil, fmt.Errorf("%w: %d noise units", ErrMalformed, count)
	}
	d := &NoiseDesign{Length: length, Units: make([]NoiseUnit, count)}
	for i := range d.Units {
		u := &d.Units[i]
		u.Enabled = true
		flags := r.VarU32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("noise unit %d: %w", i, err)
		}
		if flags&^ptnKnown != 0 {
			return nil, fmt.Errorf("%w: unknown noise unit flags %#x", ErrMalformed, flags)
		}
		if flags&ptnEnvelope != 0 {
			n := r.VarU32()
			if r.Err() == nil && n > MaxNoiseEnvelope {
				return nil, fmt.Errorf("%w: %d noise envelope points", ErrMalformed, n)
			}
			u.Envelope = make([]Point, n)
			for e := range u.Envelope {
				u.Envelope[e] = Point{X: r.VarS32(), Y: r.VarS32()}
				if r.Err() == nil && u.Envelope[e].X < 0 {
					return nil, fmt.Errorf("%w: negative noise envelope time", ErrMalformed)
				}
			}
		}
		if flags&ptnPan != 0 {
			u.Pan = r.S8()
		}
		if flags&ptnOscMain != 0 {
			u.Main = readNoiseOsc(r)
		}
		if flags&ptnOscFreq != 0 {
			u.Freq = readNoiseOsc(r)
		}
		if flags&ptnOscVolu != 0 {
			u.Volume = readNoiseOsc(r)
		}
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("noise unit %d: %w", i, err)
		}
		for _, o := range []NoiseOscillator{u.Main, u.Freq, u.Volume} {
			if o.Type >= NumWaveTypes {
				return nil, fmt.Errorf("%w: noise wave type %d", ErrMalformed, o.Type)
			}
		}
	}
	return d, nil
}

func readNoiseOsc(r *cursor.Record) NoiseOscillator {
	return NoiseOscillator{
		Type:    WaveType(r.VarU32()),
		Reverse: r.VarU32() != 0,
		Freq:    float32(r.VarU32()) / 10,
		Volume:  float32(r.VarU32()) / 10,
		Offset:  float32(r.VarU32()) / 10,
	}
}
