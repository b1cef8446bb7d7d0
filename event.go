package ptcop

import (
	"fmt"
	"math"
)

// EventKind is the type of an event. The numbering is part of the file format.
type EventKind uint8

const (
	EventNull EventKind = iota
	EventOn
	EventKey
	EventPanVolume
	EventVelocity
	EventVolume
	EventPortament
	EventBeatClock
	EventBeatTempo
	EventBeatNum
	EventRepeat
	EventLast
	EventVoiceNo
	EventGroupNo
	EventTuning
	EventPanTime
	NumEventKinds
)

var eventKindNames = [...]string{
	"null", "on", "key", "pan volume", "velocity", "volume", "portament",
	"beat clock", "beat tempo", "beat num", "repeat", "last", "voice no",
	"group no", "tuning", "pan time",
}

func (k EventKind) String() string {
	if int(k) >= len(eventKindNames) {
		return fmt.Sprintf("EventKind(%d)", k)
	}
	return eventKindNames[k]
}

// HasDuration reports whether the value of an event of this kind is a length
// in clock ticks.
func (k EventKind) HasDuration() bool { return k == EventOn || k == EventPortament }

// Default values of the track parameters set by events.
const (
	DefaultVolume    = 104
	DefaultVelocity  = 104
	DefaultPanVolume = 64
	DefaultPanTime   = 64
	DefaultKey       = 0x6000
	DefaultTuning    = 1.0
	DefaultBeatNum   = 4
	DefaultTempo     = 120
)

type (
	// Event changes one parameter of one track at a clock tick.
	Event struct {
		Clock int32
		Track uint8
		Kind  EventKind
		Value int32

		prev, next int32
	}

	// EventList is an arena of events linked in clock order. Events are
	// addressed by index; -1 means none.
	EventList struct {
		Records []Event
		first   int32
	}
)

// Tuning returns the value of an EventTuning event, which stores the bits of
// a float32.
func (e *Event) Tuning() float32 { return math.Float32frombits(uint32(e.Value)) }

// End returns the clock at which the event stops having an effect: Clock +
// Value for kinds with a duration, Clock otherwise.
func (e *Event) End() int64 {
	if e.Kind.HasDuration() {
		return int64(e.Clock) + int64(e.Value)
	}
	return int64(e.Clock)
}

// First returns the index of the earliest event, or -1 if there is none.
func (l *EventList) First() int {
	if len(l.Records) == 0 {
		return -1
	}
	return int(l.first)
}

// Next returns the index of the event after i, or -1.
func (l *EventList) Next(i int) int { return int(l.Records[i].next) }

// Prev returns the index of the event before i, or -1.
func (l *EventList) Prev(i int) int { return int(l.Records[i].prev) }

// Len returns the number of events in the list.
func (l *EventList) Len() int { return len(l.Records) }

// MaxClock returns the largest End of all the events.
func (l *EventList) MaxClock() int64 {
	var ret int64
	for i := range l.Records {
		ret = max(ret, l.Records[i].End())
	}
	return ret
}

// add appends an event without growing the arena beyond the capacity
// reserved for it.
func (l *EventList) add(e Event) bool {
	if len(l.Records) == cap(l.Records) {
		return false
	}
	l.Records = append(l.Records, e)
	return true
}

// link drops null placeholders and chains the remaining records in the
// order they were read.
func (l *EventList) link() {
	recs := l.Records[:0]
	for _, e := range l.Records {
		if e.Kind != EventNull {
			recs = append(recs, e)
		}
	}
	l.Records = recs
	l.first = -1
	for i := range l.Records {
		l.Records[i].prev = int32(i) - 1
		l.Records[i].next = int32(i) + 1
	}
	if n := len(l.Records); n > 0 {
		l.first = 0
		l.Records[n-1].next = -1
	}
}

// validate checks every event against the size of the project it belongs
// to.
func (l *EventList) validate(numTracks, numVoices int) error {
	var clock int32
	for i := range l.Records {
		e := &l.Records[i]
		if e.Clock < clock {
			return fmt.Errorf("event %d: clock %d goes back in time", i, e.Clock)
		}
		clock = e.Clock
		if e.Kind >= NumEventKinds {
			return fmt.Errorf("event %d: unknown kind %d", i, e.Kind)
		}
		if int(e.Track) >= numTracks {
			return fmt.Errorf("event %d: track %d out of range [0, %d)", i, e.Track, numTracks)
		}
		if err := e.checkValue(numVoices); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func (e *Event) checkValue(numVoices int) error {
	switch e.Kind {
	case EventOn, EventPortament:
		if e.Value < 0 || e.End() > math.MaxInt32 {
			return fmt.Errorf("%v duration %d out of range", e.Kind, e.Value)
		}
	case EventPanVolume, EventPanTime, EventVolume, EventVelocity:
		if e.Value < 0 || e.Value > 128 {
			return fmt.Errorf("%v %d out of range [0, 128]", e.Kind, e.Value)
		}
	case EventKey:
		if e.Value < 0 {
			return fmt.Errorf("negative key %d", e.Value)
		}
	case EventVoiceNo:
		if e.Value < 0 || int(e.Value) >= numVoices {
			return fmt.Errorf("voice %d out of range [0, %d)", e.Value, numVoices)
		}
	case EventGroupNo:
		if e.Value < 0 {
			return fmt.Errorf("negative group %d", e.Value)
		}
	}
	return nil
}
