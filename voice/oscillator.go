package voice

import "math"

// Oscillator evaluates a waveform described by control points over a buffer
// of Length samples.
type Oscillator struct {
	Points []Point
	// Resolution is the width of the coordinate domain of Points.
	Resolution int32
	// Volume scales the output; 128 is unity.
	Volume int32
	Length int32
}

// Overtone sums sine harmonics: each point is a (harmonic, amplitude) pair.
func (o *Oscillator) Overtone(idx int32) float64 {
	if o.Length == 0 {
		return 0
	}
	var work float64
	for _, p := range o.Points {
		if p.X == 0 {
			continue
		}
		phase := 2.0 * math.Pi * float64(p.X) * float64(idx) / float64(o.Length)
		work += math.Sin(phase) * float64(p.Y) / float64(p.X) / 128.0
	}
	return work * float64(o.Volume) / 128.0
}

// Coordinate interpolates linearly between the two points bracketing idx.
// Past the last point the curve heads back to the first point's level at the
// end of the domain.
func (o *Oscillator) Coordinate(idx int32) float64 {
	n := len(o.Points)
	if n == 0 || o.Length == 0 {
		return 0
	}
	i := int32(int64(o.Resolution) * int64(idx) / int64(o.Length))
	c := 0
	for c < n && o.Points[c].X <= i {
		c++
	}
	var p1, p2 Point
	switch {
	case c == n:
		p1 = o.Points[c-1]
		p2 = Point{X: o.Resolution, Y: o.Points[0].Y}
	case c > 0:
		p1, p2 = o.Points[c-1], o.Points[c]
	default:
		p1, p2 = o.Points[0], o.Points[0]
	}
	w := p2.X - p1.X
	i -= p1.X
	work := float64(p1.Y)
	if i != 0 && w != 0 {
		work += float64(p2.Y-p1.Y) * float64(i) / float64(w)
	}
	return work * float64(o.Volume) / 128.0 / 128.0
}
