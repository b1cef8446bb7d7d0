package voice

import (
	"fmt"
	"math"

	"github.com/vsariola/ptcop/cursor"
)

const (
	ptvCode       = "PTVOICE-"
	ptvVersion    = 20060111
	ptvHeaderSize = 12
	ptvLength     = 400

	ptvDataWave     = 1
	ptvDataEnvelope = 2
	ptvDataKnown    = ptvDataWave | ptvDataEnvelope

	// maxEnvelope bounds envelope curves and release ramps in samples.
	maxEnvelope = SampleRate * 60
)

type waveKind uint32

const (
	waveCoordinate waveKind = iota
	waveOvertone
	waveSampling
)

type (
	ptvWave struct {
		kind       waveKind
		resolution int32
		points     []Point
	}

	ptvEnvelope struct {
		fps     int32
		head    []Point
		tail    Point
		hasTail bool
	}

	ptvInstance struct {
		basicKey int32
		volume   int32
		pan      int32
		tuning   float32
		flags    Flags
		wave     ptvWave
		envelope ptvEnvelope
	}
)

// ReadPTV decodes a PTV material and renders its waveforms and envelopes.
func ReadPTV(c *cursor.Cursor) (Voice, error) {
	r := c.Record()
	size := r.U32()
	r.U16()
	reserved := r.U16()
	r.F32()
	bodySize := r.U32()
	if err := r.Err(); err != nil {
		return Voice{}, fmt.Errorf("ptv header: %w", err)
	}
	if uint64(size) != uint64(bodySize)+ptvHeaderSize {
		return Voice{}, fmt.Errorf("%w: ptv size %d does not match body size %d", ErrMalformed, size, bodySize)
	}
	if reserved != 0 {
		return Voice{}, fmt.Errorf("%w: ptv reserved field %d", ErrMalformed, reserved)
	}
	design, err := readPTVDesign(c)
	if err != nil {
		return Voice{}, err
	}
	ret := Voice{Type: PTV, Instances: make([]Instance, len(design))}
	for i := range design {
		d := &design[i]
		inst := &ret.Instances[i]
		inst.BasicKey = d.basicKey
		inst.Tuning = d.tuning
		inst.Flags = d.flags
		inst.Samples = d.render()
		if inst.Envelope, inst.Release, err = d.envelope.build(); err != nil {
			return Voice{}, err
		}
	}
	return ret, nil
}

func readPTVDesign(c *cursor.Cursor) ([]ptvInstance, error) {
	r := c.Record()
	code := r.Bytes(len(ptvCode))
	version := r.U32()
	r.U32() // total size
	r.VarU32()
	r.VarU32()
	r.VarU32()
	count := r.VarU32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ptv body: %w", err)
	}
	if string(code) != ptvCode {
		return nil, fmt.Errorf("%w: bad ptv code %q", ErrMalformed, code)
	}
	if version > ptvVersion {
		return nil, fmt.Errorf("%w: ptv version %d", ErrUnsupported, version)
	}
	if count == 0 || count > MaxInstances {
		return nil, fmt.Errorf("%w: %d ptv instances", ErrMalformed, count)
	}
	ret := make([]ptvInstance, count)
	for i := range ret {
		p := &ret[i]
		p.basicKey = r.VarS32()
		p.volume = int32(r.VarU32())
		p.pan = r.VarS32()
		p.tuning = r.VarF32()
		flagBits := r.VarU32()
		dataFlags := r.VarU32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("ptv instance %d: %w", i, err)
		}
		var err error
		if p.flags, err = parseFlags(flagBits); err != nil {
			return nil, err
		}
		if dataFlags&^ptvDataKnown != 0 {
			return nil, fmt.Errorf("%w: unknown ptv data flags %#x", ErrMalformed, dataFlags)
		}
		if dataFlags&ptvDataWave != 0 {
			if p.wave, err = readPTVWave(c); err != nil {
				return nil, fmt.Errorf("ptv instance %d wave: %w", i, err)
			}
		}
		if dataFlags&ptvDataEnvelope != 0 {
			if p.envelope, err = readPTVEnvelope(c); err != nil {
				return nil, fmt.Errorf("ptv instance %d envelope: %w", i, err)
			}
		}
	}
	return ret, nil
}

// readCount reads a point count, refusing counts the remaining payload
// could not possibly hold.
func readCount(r *cursor.Record, c *cursor.Cursor, minSize int64) int {
	n := r.VarU32()
	if r.Err() == nil && int64(n)*minSize > c.Remaining() {
		return -1
	}
	return int(n)
}

func readPTVWave(c *cursor.Cursor) (ptvWave, error) {
	r := c.Record()
	w := ptvWave{kind: waveKind(r.VarU32())}
	switch w.kind {
	case waveCoordinate:
		n := readCount(r, c, 2)
		w.resolution = int32(r.VarU32())
		if n < 0 {
			return w, cursor.ErrOutOfBounds
		}
		w.points = make([]Point, n)
		for i := range w.points {
			w.points[i] = Point{X: int32(r.U8()), Y: int32(r.S8())}
		}
	case waveOvertone:
		n := readCount(r, c, 2)
		if n < 0 {
			return w, cursor.ErrOutOfBounds
		}
		w.points = make([]Point, n)
		for i := range w.points {
			w.points[i] = Point{X: r.VarS32(), Y: r.VarS32()}
		}
	case waveSampling:
		return w, fmt.Errorf("%w: sampled ptv wave", ErrUnsupported)
	default:
		if r.Err() == nil {
			return w, fmt.Errorf("%w: ptv wave type %d", ErrMalformed, w.kind)
		}
	}
	return w, r.Err()
}

func readPTVEnvelope(c *cursor.Cursor) (ptvEnvelope, error) {
	r := c.Record()
	var e ptvEnvelope
	fps := r.VarU32()
	head := readCount(r, c, 2)
	body := r.VarU32()
	tail := r.VarU32()
	if err := r.Err(); err != nil {
		return e, err
	}
	if head < 0 {
		return e, cursor.ErrOutOfBounds
	}
	if fps == 0 || fps > math.MaxInt32 {
		return e, fmt.Errorf("%w: envelope rate %d", ErrMalformed, fps)
	}
	if body != 0 || tail != 1 {
		return e, fmt.Errorf("%w: envelope layout %d/%d/%d", ErrMalformed, head, body, tail)
	}
	e.fps = int32(fps)
	e.head = make([]Point, head)
	for i := range e.head {
		e.head[i] = Point{X: r.VarS32(), Y: r.VarS32()}
	}
	e.tail = Point{X: r.VarS32(), Y: r.VarS32()}
	e.hasTail = true
	if err := r.Err(); err != nil {
		return e, err
	}
	for _, p := range e.head {
		if p.X < 0 {
			return e, fmt.Errorf("%w: negative envelope time %d", ErrMalformed, p.X)
		}
	}
	if e.tail.X < 0 {
		return e, fmt.Errorf("%w: negative release time %d", ErrMalformed, e.tail.X)
	}
	return e, nil
}

// render samples the instance waveform into a fixed-length stereo buffer.
func (p *ptvInstance) render() [][2]int16 {
	pan := [2]int32{64, 64}
	if p.pan > 64 {
		pan[0] = 128 - p.pan
	}
	if p.pan < 64 {
		pan[1] = p.pan
	}
	osc := Oscillator{
		Points:     p.wave.points,
		Resolution: p.wave.resolution,
		Volume:     p.volume,
		Length:     ptvLength,
	}
	ret := make([][2]int16, ptvLength)
	for s := range ret {
		var v float64
		if p.wave.kind == waveOvertone {
			v = osc.Overtone(int32(s))
		} else {
			v = osc.Coordinate(int32(s))
		}
		for ch := range 2 {
			w := v * float64(pan[ch]) / 64
			w = max(-1, min(1, w))
			ret[s][ch] = int16(w * math.MaxInt16)
		}
	}
	return ret
}

func (e *ptvEnvelope) samples(x int32) int64 {
	return int64(float64(x) * SampleRate / float64(e.fps))
}

// build resamples the head points into a per-sample curve and converts the
// tail point into a release length.
func (e *ptvEnvelope) build() (curve []byte, release int32, err error) {
	if len(e.head) > 0 {
		var total int64
		for _, p := range e.head {
			total += int64(p.X)
		}
		n := e.samples(int32(min(total, math.MaxInt32)))
		if n > maxEnvelope {
			return nil, 0, fmt.Errorf("%w: envelope of %d samples", ErrTooLarge, n)
		}
		n = max(n, 1)
		points := make([]Point, 0, len(e.head))
		var offset int32
		for i, p := range e.head {
			if i == 0 || p.X != 0 || p.Y != 0 {
				offset += int32(e.samples(p.X))
				points = append(points, Point{X: offset, Y: p.Y})
			}
		}
		curve = make([]byte, n)
		var start Point
		k := 0
		for s := range curve {
			for k < len(points) && int32(s) >= points[k].X {
				start = points[k]
				k++
			}
			if k < len(points) {
				next := points[k]
				curve[s] = byte(start.Y + (next.Y-start.Y)*(int32(s)-start.X)/(next.X-start.X))
			} else {
				curve[s] = byte(start.Y)
			}
		}
	}
	if e.hasTail {
		rel := e.samples(e.tail.X)
		if rel > maxEnvelope {
			return nil, 0, fmt.Errorf("%w: release of %d samples", ErrTooLarge, rel)
		}
		release = int32(rel)
	}
	return curve, release, nil
}
