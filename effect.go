package ptcop

import (
	"fmt"
	"math"

	"github.com/vsariola/ptcop/cursor"
)

// DelayUnit is the time base of a delay's frequency.
type DelayUnit uint16

const (
	DelayBeat DelayUnit = iota
	DelayMeasure
	DelaySecond
	numDelayUnits
)

var delayUnitNames = [...]string{"beat", "measure", "second"}

func (u DelayUnit) String() string {
	if int(u) >= len(delayUnitNames) {
		return fmt.Sprintf("DelayUnit(%d)", int(u))
	}
	return delayUnitNames[u]
}

const (
	delaySize     = 12
	overdriveSize = 16

	overdriveCutMin = 50
	overdriveCutMax = 99.9
	overdriveAmpMin = 0.1
	overdriveAmpMax = 8
)

type (
	// Delay feeds a mix group back into itself after a delay of one period of
	// Freq, measured in Unit.
	Delay struct {
		Unit  DelayUnit
		Group int
		// Rate is the feedback amount in percent.
		Rate int32
		Freq float32
	}

	// Overdrive clips a mix group at Cut and then amplifies it by Amp.
	Overdrive struct {
		Group int
		// Cut is the clipping level as a sample value.
		Cut int32
		Amp float32
	}
)

// Active reports whether the delay has any effect.
func (d *Delay) Active() bool { return d.Freq > 0 && d.Rate > 0 }

// Length returns the delay line length in frames at the given tempo and beats
// per measure, or 0 for an inactive delay.
func (d *Delay) Length(beatNum int32, tempo float64) int {
	if !d.Active() {
		return 0
	}
	var n float64
	switch d.Unit {
	case DelayBeat:
		n = SampleRate * 60 / tempo / float64(d.Freq)
	case DelayMeasure:
		n = SampleRate * 60 * float64(beatNum) / tempo / float64(d.Freq)
	case DelaySecond:
		n = SampleRate / float64(d.Freq)
	}
	if n >= math.MaxInt32 || math.IsNaN(n) {
		return math.MaxInt32
	}
	return int(n)
}

func readDelay(c *cursor.Cursor) (Delay, error) {
	r := c.Record()
	size := r.U32()
	unit := r.U16()
	group := r.U16()
	rate := r.F32()
	freq := r.F32()
	if err := r.Err(); err != nil {
		return Delay{}, err
	}
	if size != delaySize {
		return Delay{}, fmt.Errorf("delay size %d, want %d", size, delaySize)
	}
	if DelayUnit(unit) >= numDelayUnits {
		return Delay{}, fmt.Errorf("unknown delay unit %d", unit)
	}
	if group >= NumGroups {
		return Delay{}, fmt.Errorf("delay group %d out of range", group)
	}
	if math.IsNaN(float64(rate)) || math.Abs(float64(rate)) > math.MaxInt32 || math.IsNaN(float64(freq)) {
		return Delay{}, fmt.Errorf("delay rate %v or frequency %v out of range", rate, freq)
	}
	return Delay{Unit: DelayUnit(unit), Group: int(group), Rate: int32(rate), Freq: freq}, nil
}

func readOverdrive(c *cursor.Cursor) (Overdrive, error) {
	r := c.Record()
	size := r.U32()
	reserved1 := r.U16()
	group := r.U16()
	cut := r.F32()
	amp := r.F32()
	reserved2 := r.U32()
	if err := r.Err(); err != nil {
		return Overdrive{}, err
	}
	if size != overdriveSize {
		return Overdrive{}, fmt.Errorf("overdrive size %d, want %d", size, overdriveSize)
	}
	if reserved1 != 0 || reserved2 != 0 {
		return Overdrive{}, fmt.Errorf("overdrive reserved fields %d/%d", reserved1, reserved2)
	}
	if !(cut >= overdriveCutMin && cut <= overdriveCutMax) {
		return Overdrive{}, fmt.Errorf("overdrive cut %v out of range", cut)
	}
	if !(amp >= overdriveAmpMin && amp <= overdriveAmpMax) {
		return Overdrive{}, fmt.Errorf("overdrive amp %v out of range", amp)
	}
	if group >= NumGroups {
		return Overdrive{}, fmt.Errorf("overdrive group %d out of range", group)
	}
	return Overdrive{
		Group: int(group),
		Cut:   int32(math.MaxInt16 * (100 - cut) / 100),
		Amp:   amp,
	}, nil
}
