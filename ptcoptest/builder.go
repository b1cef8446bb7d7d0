// Package ptcoptest assembles project files in memory for tests.
package ptcoptest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/voice"
)

type (
	// Builder appends chunks to a project file. Methods return the builder so
	// that calls can be chained; Bytes terminates the file.
	Builder struct {
		buf bytes.Buffer
	}

	Master struct {
		BeatClock   uint16
		BeatNum     uint8
		Tempo       float32
		RepeatClock uint32
		LastClock   uint32
	}

	// Event is an event at an absolute clock; Builder.Events stores the
	// differences between consecutive clocks.
	Event struct {
		Clock int32
		Track uint8
		Kind  ptcop.EventKind
		Value int32
	}

	PCM struct {
		BasicKey uint16
		Flags    voice.Flags
		Channels uint16
		Bits     uint16
		Rate     uint32
		Tuning   float32
		Data     []byte
	}

	PTVInstance struct {
		BasicKey int32
		Volume   uint32
		Pan      int32
		Tuning   float32
		Flags    voice.Flags
		// Overtone selects (harmonic, amplitude) points instead of
		// coordinate points.
		Overtone   bool
		Resolution uint32
		Points     []voice.Point
		// Envelope is written when EnvelopeFPS is non-zero.
		EnvelopeFPS uint32
		Envelope    []voice.Point
		Release     voice.Point
	}

	PTN struct {
		BasicKey uint16
		Flags    voice.Flags
		Tuning   float32
		Design   voice.NoiseDesign
	}

	Delay struct {
		Unit  ptcop.DelayUnit
		Group uint16
		Rate  float32
		Freq  float32
	}

	Overdrive struct {
		Group uint16
		Cut   float32
		Amp   float32
	}
)

// DefaultMaster is 4/4 at 120 beats per minute with no repeat or end marks.
var DefaultMaster = Master{BeatClock: ptcop.BeatClock, BeatNum: 4, Tempo: 120}

// New starts a project with the collage version header.
func New() *Builder { return NewVersion(ptcop.VersionProject) }

// NewVersion starts a project with an arbitrary 16-byte version header.
func NewVersion(version string) *Builder {
	b := &Builder{}
	var magic [16]byte
	copy(magic[:], version)
	b.buf.Write(magic[:])
	b.u16(0)
	b.u16(0)
	return b
}

// Bytes terminates the project and returns it.
func (b *Builder) Bytes() []byte {
	ret := append([]byte(nil), b.buf.Bytes()...)
	return append(ret, "pxtoneND"...)
}

// Unterminated returns the project without the end tag.
func (b *Builder) Unterminated() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Chunk writes a tag, the payload size and the payload.
func (b *Builder) Chunk(tag string, payload []byte) *Builder {
	b.buf.WriteString(tag)
	b.u32(uint32(len(payload)))
	b.buf.Write(payload)
	return b
}

// Raw appends bytes as they are.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

func (b *Builder) Tracks(n int) *Builder {
	var p payload
	p.u16(uint16(n))
	p.u16(0)
	return b.Chunk("num UNIT", p.Bytes())
}

func (b *Builder) Master(m Master) *Builder {
	var p payload
	p.u16(m.BeatClock)
	p.u8(m.BeatNum)
	p.f32(m.Tempo)
	p.u32(m.RepeatClock)
	p.u32(m.LastClock)
	return b.Chunk("MasterV5", p.Bytes())
}

// Events writes one event chunk. Clocks must not decrease for the result to
// be valid.
func (b *Builder) Events(events ...Event) *Builder {
	var p payload
	p.u32(uint32(len(events)))
	var clock int32
	for _, e := range events {
		p.varint(uint32(e.Clock - clock))
		p.u8(e.Track)
		p.u8(uint8(e.Kind))
		p.varint(uint32(e.Value))
		clock = e.Clock
	}
	return b.Chunk("Event V5", p.Bytes())
}

// Note returns an event that plays a note of the given length on a track.
func Note(track uint8, clock, length int32) Event {
	return Event{Clock: clock, Track: track, Kind: ptcop.EventOn, Value: length}
}

// Tuning returns a tuning event.
func Tuning(track uint8, clock int32, tuning float32) Event {
	return Event{Clock: clock, Track: track, Kind: ptcop.EventTuning, Value: int32(math.Float32bits(tuning))}
}

func (b *Builder) PCM(m PCM) *Builder {
	var p payload
	p.u16(0)
	p.u16(m.BasicKey)
	p.u32(uint32(m.Flags))
	p.u16(m.Channels)
	p.u16(m.Bits)
	p.u32(m.Rate)
	p.f32(m.Tuning)
	p.u32(uint32(len(m.Data)))
	p.Write(m.Data)
	return b.Chunk("matePCM ", p.Bytes())
}

// SquarePCM is a 16-bit mono PCM at 44100 Hz alternating between +amp and
// -amp every half period.
func SquarePCM(frames, period int, amp int16) PCM {
	data := make([]byte, 0, frames*2)
	for i := range frames {
		v := amp
		if i%period >= period/2 {
			v = -amp
		}
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}
	return PCM{BasicKey: 0x4500, Channels: 1, Bits: 16, Rate: 44100, Tuning: 1, Data: data}
}

// ConstantPCM is a 16-bit stereo PCM at 44100 Hz holding one value.
func ConstantPCM(frames int, v int16) PCM {
	data := make([]byte, 0, frames*4)
	for range frames {
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}
	return PCM{BasicKey: 0x4500, Channels: 2, Bits: 16, Rate: 44100, Tuning: 1, Data: data}
}

func (b *Builder) PTV(instances ...PTVInstance) *Builder {
	var body payload
	body.WriteString("PTVOICE-")
	body.u32(20060111)
	body.u32(0)
	body.varint(0)
	body.varint(0)
	body.varint(0)
	body.varint(uint32(len(instances)))
	for _, in := range instances {
		body.varint(uint32(in.BasicKey))
		body.varint(in.Volume)
		body.varint(uint32(in.Pan))
		body.varint(math.Float32bits(in.Tuning))
		body.varint(uint32(in.Flags))
		dataFlags := uint32(1)
		if in.EnvelopeFPS != 0 {
			dataFlags |= 2
		}
		body.varint(dataFlags)
		if in.Overtone {
			body.varint(1)
			body.varint(uint32(len(in.Points)))
			for _, pt := range in.Points {
				body.varint(uint32(pt.X))
				body.varint(uint32(pt.Y))
			}
		} else {
			body.varint(0)
			body.varint(uint32(len(in.Points)))
			body.varint(in.Resolution)
			for _, pt := range in.Points {
				body.u8(uint8(pt.X))
				body.u8(uint8(int8(pt.Y)))
			}
		}
		if in.EnvelopeFPS != 0 {
			body.varint(in.EnvelopeFPS)
			body.varint(uint32(len(in.Envelope)))
			body.varint(0)
			body.varint(1)
			for _, pt := range in.Envelope {
				body.varint(uint32(pt.X))
				body.varint(uint32(pt.Y))
			}
			body.varint(uint32(in.Release.X))
			body.varint(uint32(in.Release.Y))
		}
	}
	var p payload
	p.u16(0)
	p.u16(0)
	p.f32(0)
	p.u32(uint32(body.Len()))
	p.Write(body.Bytes())
	return b.Chunk("matePTV ", p.Bytes())
}

func (b *Builder) PTN(m PTN) *Builder {
	var p payload
	p.u16(0)
	p.u16(m.BasicKey)
	p.u32(uint32(m.Flags))
	p.f32(m.Tuning)
	p.u32(0)
	p.WriteString("PTNOISE-")
	p.u32(20120418)
	p.varint(m.Design.Length)
	p.u8(uint8(len(m.Design.Units)))
	for _, u := range m.Design.Units {
		flags := uint32(0x10 | 0x20 | 0x40)
		if len(u.Envelope) > 0 {
			flags |= 0x04
		}
		if u.Pan != 0 {
			flags |= 0x08
		}
		p.varint(flags)
		if len(u.Envelope) > 0 {
			p.varint(uint32(len(u.Envelope)))
			for _, pt := range u.Envelope {
				p.varint(uint32(pt.X))
				p.varint(uint32(pt.Y))
			}
		}
		if u.Pan != 0 {
			p.u8(uint8(u.Pan))
		}
		for _, o := range []voice.NoiseOscillator{u.Main, u.Freq, u.Volume} {
			p.varint(uint32(o.Type))
			if o.Reverse {
				p.varint(1)
			} else {
				p.varint(0)
			}
			p.varint(uint32(math.Round(float64(o.Freq) * 10)))
			p.varint(uint32(math.Round(float64(o.Volume) * 10)))
			p.varint(uint32(math.Round(float64(o.Offset) * 10)))
		}
	}
	return b.Chunk("matePTN ", p.Bytes())
}

func (b *Builder) Delay(d Delay) *Builder {
	var p payload
	p.u16(uint16(d.Unit))
	p.u16(d.Group)
	p.f32(d.Rate)
	p.f32(d.Freq)
	return b.Chunk("effeDELA", p.Bytes())
}

func (b *Builder) Overdrive(o Overdrive) *Builder {
	var p payload
	p.u16(0)
	p.u16(o.Group)
	p.f32(o.Cut)
	p.f32(o.Amp)
	p.u32(0)
	return b.Chunk("effeOVER", p.Bytes())
}

// Name writes the project name, encoded as Shift-JIS.
func (b *Builder) Name(s string) *Builder { return b.text("textNAME", s) }

// Comment writes the project comment, encoded as Shift-JIS.
func (b *Builder) Comment(s string) *Builder { return b.text("textCOMM", s) }

func (b *Builder) text(tag, s string) *Builder {
	return b.Chunk(tag, ptcop.EncodeText(s))
}

// TrackName names a track.
func (b *Builder) TrackName(i int, s string) *Builder { return b.assist("assiUNIT", i, s) }

// VoiceName names a voice.
func (b *Builder) VoiceName(i int, s string) *Builder { return b.assist("assiWOIC", i, s) }

func (b *Builder) assist(tag string, i int, s string) *Builder {
	var p payload
	p.u16(uint16(i))
	p.u16(0)
	var name [16]byte
	copy(name[:], ptcop.EncodeText(s))
	p.Write(name[:])
	return b.Chunk(tag, p.Bytes())
}

func (b *Builder) u16(v uint16) { b.buf.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (b *Builder) u32(v uint32) { b.buf.Write(binary.LittleEndian.AppendUint32(nil, v)) }

// payload accumulates the body of a chunk.
type payload struct {
	bytes.Buffer
}

func (p *payload) u8(v uint8)   { p.WriteByte(v) }
func (p *payload) u16(v uint16) { p.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (p *payload) u32(v uint32) { p.Write(binary.LittleEndian.AppendUint32(nil, v)) }
func (p *payload) f32(v float32) {
	p.u32(math.Float32bits(v))
}

func (p *payload) varint(v uint32) {
	p.Write(AppendVarint(nil, v))
}

// AppendVarint appends v in the 7-bits-per-byte encoding used by project
// files.
func AppendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}
