package synth

import (
	"github.com/vsariola/ptcop"
)

// maxDelayLength bounds a delay line in frames.
const maxDelayLength = ptcop.SampleRate * 60

type (
	// delayLine is the runtime of a ptcop.Delay: a stereo feedback line.
	delayLine struct {
		group  int
		rate   int32
		buf    [][2]int32
		offset int
	}

	// overdrive is the runtime of a ptcop.Overdrive.
	overdrive struct {
		group int
		cut   int32
		amp   float32
	}
)

func newDelayLine(d *ptcop.Delay, length int) delayLine {
	return delayLine{group: d.Group, rate: d.Rate, buf: make([][2]int32, length)}
}

// apply mixes the delayed signal of channel ch into its group and stores the
// result for the next round.
func (d *delayLine) apply(groups *[ptcop.NumGroups]int32, ch int) {
	if len(d.buf) == 0 {
		return
	}
	slot := &d.buf[d.offset][ch]
	groups[d.group] += *slot * d.rate / 100
	*slot = groups[d.group]
}

func (d *delayLine) increment() {
	if len(d.buf) == 0 {
		return
	}
	d.offset++
	if d.offset >= len(d.buf) {
		d.offset = 0
	}
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.offset = 0
}

func newOverdrive(o *ptcop.Overdrive) overdrive {
	return overdrive{group: o.Group, cut: o.Cut, amp: o.Amp}
}

// apply clips the group and then amplifies it.
func (o *overdrive) apply(groups *[ptcop.NumGroups]int32) {
	a := max(-o.cut, min(o.cut, groups[o.group]))
	groups[o.group] = int32(float32(a) * o.amp)
}
