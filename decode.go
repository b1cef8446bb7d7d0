package ptcop

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/vsariola/ptcop/cursor"
	"github.com/vsariola/ptcop/voice"
)

const (
	versionSize = 16
	headerSize  = versionSize + 4
	tagSize     = 8
	masterSize  = 15

	// masterEvents is the number of event slots a master chunk reserves.
	masterEvents = 5
)

// Magic strings a project may start with.
const (
	VersionProject = "PTCOLLAGE-071119"
	VersionTune    = "PTTUNE--20071119"
)

const (
	tagTrackCount = "num UNIT"
	tagMaster     = "MasterV5"
	tagEvent      = "Event V5"
	tagPCM        = "matePCM "
	tagPTV        = "matePTV "
	tagPTN        = "matePTN "
	tagOGG        = "mateOGGV"
	tagDelay      = "effeDELA"
	tagOverdrive  = "effeOVER"
	tagName       = "textNAME"
	tagComment    = "textCOMM"
	tagTrackName  = "assiUNIT"
	tagVoiceName  = "assiWOIC"
	tagEnd        = "pxtoneND"
)

// readCodes are the codes reported when the payload of a tag cannot be read.
var readCodes = map[string]ErrorCode{
	tagMaster:    ErrReadMaster,
	tagEvent:     ErrReadEvent,
	tagPCM:       ErrReadPCM,
	tagPTV:       ErrReadPTV,
	tagPTN:       ErrReadPTN,
	tagOGG:       ErrReadOGG,
	tagDelay:     ErrReadDelay,
	tagOverdrive: ErrReadOverdrive,
}

// Decoder reads projects. The zero value decodes everything except Ogg
// Vorbis materials.
type Decoder struct {
	// Vorbis decodes mateOGGV materials. Projects with such materials fail
	// with ErrUseOgg when it is nil.
	Vorbis voice.VorbisDecoder
	// Logger receives a Debug record per chunk. Nil disables logging.
	Logger *slog.Logger
}

// DefaultDecoder is used by ReadBytes and Read.
var DefaultDecoder = &Decoder{Vorbis: voice.OggVorbis{}}

// ReadBytes decodes a project held in memory.
func ReadBytes(b []byte) (*Project, error) { return DefaultDecoder.ReadBytes(b) }

// Read decodes a project from a seekable stream, starting at its current
// position.
func Read(r io.ReadSeeker) (*Project, error) { return DefaultDecoder.Read(r) }

func (d *Decoder) ReadBytes(b []byte) (*Project, error) {
	c, err := cursor.FromBytes(b)
	if err != nil {
		return nil, cursorError(ErrInvalidMemory, err)
	}
	return d.Decode(c)
}

func (d *Decoder) Read(r io.ReadSeeker) (*Project, error) {
	if r == nil {
		return nil, &Error{Code: ErrInvalidFile}
	}
	c, err := cursor.FromReader(r)
	if err != nil {
		return nil, cursorError(ErrInvalidFile, err)
	}
	return d.Decode(c)
}

func cursorError(code ErrorCode, err error) error {
	if errors.Is(err, cursor.ErrTooBig) {
		return wrapError(ErrTooBig, err)
	}
	return wrapError(code, err)
}

type pass int

const (
	countPass pass = iota
	fillPass
)

func (p pass) String() string {
	if p == countPass {
		return "count"
	}
	return "fill"
}

// decoding is the state of one Decode call.
type decoding struct {
	*Decoder
	c   *cursor.Cursor
	p   *Project
	log *slog.Logger

	numEvents     int
	numVoices     int
	numDelays     int
	numOverdrives int
}

// Decode reads a whole project from c. The cursor is read twice: first to
// count the events, voices and effects, then to fill tables allocated to
// exactly those sizes.
func (d *Decoder) Decode(c *cursor.Cursor) (*Project, error) {
	if c == nil {
		return nil, &Error{Code: ErrInvalidDescriptor}
	}
	s := &decoding{Decoder: d, c: c, p: &Project{}, log: d.Logger}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := s.readHeader(); err != nil {
		return nil, err
	}
	if err := s.scan(countPass); err != nil {
		return nil, err
	}
	if err := s.allocate(); err != nil {
		return nil, err
	}
	if _, err := c.Seek(headerSize, io.SeekStart); err != nil {
		return nil, wrapError(ErrDescriptor, err)
	}
	if err := s.scan(fillPass); err != nil {
		return nil, err
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return s.p, nil
}

func (s *decoding) readHeader() error {
	r := s.c.Record()
	magic := r.Bytes(versionSize)
	exe := r.U16()
	r.U16()
	if err := r.Err(); err != nil {
		return wrapError(ErrDescriptor, err)
	}
	v := string(magic)
	if v != VersionProject && v != VersionTune {
		return newError(ErrOldFormat, "unsupported version %q", magic)
	}
	s.p.Version = v
	s.p.ExeVersion = exe
	return nil
}

// scan walks the tags up to the end tag. Each payload starts with its size;
// the handler is called with the cursor on the size field and the cursor is
// moved past the payload afterwards.
func (s *decoding) scan(mode pass) error {
	code := make([]byte, tagSize)
	for {
		if err := s.c.Read(code); err != nil {
			return wrapError(ErrDescriptor, fmt.Errorf("missing end tag: %w", err))
		}
		tag := string(code)
		if tag == tagEnd {
			return nil
		}
		handler, ok := s.handler(tag)
		if !ok {
			return newError(ErrUnknownFormat, "unknown tag %q at offset %d", code, s.c.Pos()-tagSize)
		}
		start := s.c.Pos()
		size, err := s.c.S32()
		if err != nil {
			return wrapError(ErrDescriptor, fmt.Errorf("tag %q: %w", tag, err))
		}
		end := start + 4 + int64(size)
		if size < 0 || end > s.c.Size() {
			return newError(ErrDescriptor, "tag %q: payload of %d bytes does not fit", tag, size)
		}
		if _, err := s.c.Seek(start, io.SeekStart); err != nil {
			return wrapError(ErrDescriptor, err)
		}
		s.log.Debug("chunk", "pass", mode, "tag", tag, "offset", start, "size", size)
		if err := handler(mode); err != nil {
			return err
		}
		if s.c.Pos() > end {
			rc, ok := readCodes[tag]
			if !ok {
				rc = ErrDescriptor
			}
			return newError(rc, "tag %q: payload overruns its size %d", tag, size)
		}
		if _, err := s.c.Seek(end, io.SeekStart); err != nil {
			return wrapError(ErrDescriptor, err)
		}
	}
}

func (s *decoding) handler(tag string) (func(pass) error, bool) {
	switch tag {
	case tagTrackCount:
		return s.trackCount, true
	case tagMaster:
		return s.master, true
	case tagEvent:
		return s.events, true
	case tagPCM, tagPTV, tagPTN, tagOGG:
		return func(mode pass) error { return s.material(tag, mode) }, true
	case tagDelay:
		return s.delay, true
	case tagOverdrive:
		return s.overdrive, true
	case tagName, tagComment:
		return func(mode pass) error { return s.text(tag, mode) }, true
	case tagTrackName, tagVoiceName:
		return func(mode pass) error { return s.assist(tag, mode) }, true
	}
	return nil, false
}

func (s *decoding) trackCount(mode pass) error {
	if mode != countPass {
		return nil
	}
	r := s.c.Record()
	size := r.U32()
	num := r.U16()
	reserved := r.U16()
	if err := r.Err(); err != nil {
		return wrapError(ErrDescriptor, err)
	}
	if size != 4 || reserved != 0 {
		return newError(ErrUnknownFormat, "malformed track count")
	}
	if num > MaxTracks {
		return newError(ErrManyTracks, "%d tracks, at most %d allowed", num, MaxTracks)
	}
	s.p.NumTracks = int(num)
	return nil
}

func (s *decoding) master(mode pass) error {
	if mode == countPass {
		s.numEvents += masterEvents
		return nil
	}
	r := s.c.Record()
	size := r.U32()
	beatClock := r.U16()
	beatNum := r.U8()
	tempo := r.F32()
	repeatClock := r.U32()
	lastClock := r.U32()
	if err := r.Err(); err != nil {
		return wrapError(ErrReadMaster, err)
	}
	if size != masterSize {
		return newError(ErrReadMaster, "master size %d, want %d", size, masterSize)
	}
	if beatClock == 0 || beatNum == 0 {
		return newError(ErrReadMaster, "zero beat clock or beats per measure")
	}
	if !validTempo(tempo) {
		return newError(ErrReadMaster, "tempo %v out of range", tempo)
	}
	perMeasure := uint32(beatClock) * uint32(beatNum)
	s.p.Master = Master{
		BeatClock:     int32(beatClock),
		BeatNum:       int32(beatNum),
		BeatTempo:     tempo,
		RepeatMeasure: int32(repeatClock / perMeasure),
		LastMeasure:   int32(lastClock / perMeasure),
	}
	return nil
}

// events reads the event records. In the count pass the records are parsed
// only to count them.
func (s *decoding) events(mode pass) error {
	code := ErrDescriptor
	if mode == fillPass {
		code = ErrReadEvent
	}
	r := s.c.Record()
	size := r.U32()
	count := r.U32()
	if err := r.Err(); err != nil {
		return wrapError(code, err)
	}
	// every record takes at least four bytes
	if uint64(count)*4 > uint64(size) {
		return newError(code, "%d events do not fit in %d bytes", count, size)
	}
	if mode == countPass && s.numEvents+int(count) > MaxEvents {
		return newError(ErrManyEvents, "more than %d events", MaxEvents)
	}
	var clock int64
	for i := range count {
		delta := r.VarS32()
		track := r.U8()
		kind := r.U8()
		value := r.VarS32()
		if err := r.Err(); err != nil {
			return wrapError(code, fmt.Errorf("event %d: %w", i, err))
		}
		if mode == countPass {
			continue
		}
		if delta < 0 {
			return newError(ErrEventInvalid, "event %d: negative delta %d", i, delta)
		}
		clock += int64(delta)
		if clock > math.MaxInt32 {
			return newError(ErrEventInvalid, "event %d: clock %d out of range", i, clock)
		}
		e := Event{Clock: int32(clock), Track: track, Kind: EventKind(kind), Value: value}
		if !s.p.Events.add(e) {
			return newError(ErrInternal, "event table overflow")
		}
	}
	if mode == countPass {
		s.numEvents += int(count)
	}
	return nil
}

func (s *decoding) material(tag string, mode pass) error {
	if mode == countPass {
		if tag == tagOGG && s.Vorbis == nil {
			return &Error{Code: ErrUseOgg}
		}
		s.numVoices++
		if s.numVoices > MaxVoices {
			return newError(ErrManyVoices, "more than %d voices", MaxVoices)
		}
		return nil
	}
	var (
		v   voice.Voice
		err error
	)
	switch tag {
	case tagPCM:
		v, err = voice.ReadPCM(s.c)
	case tagPTV:
		v, err = voice.ReadPTV(s.c)
	case tagPTN:
		v, err = voice.ReadPTN(s.c)
	case tagOGG:
		v, err = voice.ReadOGG(s.c, s.Vorbis)
	}
	if err != nil {
		return wrapError(readCodes[tag], fmt.Errorf("voice %d: %w", len(s.p.Voices), err))
	}
	if len(s.p.Voices) == cap(s.p.Voices) {
		return newError(ErrInternal, "voice table overflow")
	}
	s.p.Voices = append(s.p.Voices, v)
	return nil
}

func (s *decoding) delay(mode pass) error {
	if mode == countPass {
		s.numDelays++
		if s.numDelays > MaxDelays {
			return newError(ErrManyDelays, "more than %d delays", MaxDelays)
		}
		return nil
	}
	d, err := readDelay(s.c)
	if err != nil {
		return wrapError(ErrReadDelay, err)
	}
	if len(s.p.Delays) == cap(s.p.Delays) {
		return newError(ErrInternal, "delay table overflow")
	}
	s.p.Delays = append(s.p.Delays, d)
	return nil
}

func (s *decoding) overdrive(mode pass) error {
	if mode == countPass {
		s.numOverdrives++
		if s.numOverdrives > MaxOverdrives {
			return newError(ErrManyOverdrives, "more than %d overdrives", MaxOverdrives)
		}
		return nil
	}
	o, err := readOverdrive(s.c)
	if err != nil {
		return wrapError(ErrReadOverdrive, err)
	}
	if len(s.p.Overdrives) == cap(s.p.Overdrives) {
		return newError(ErrInternal, "overdrive table overflow")
	}
	s.p.Overdrives = append(s.p.Overdrives, o)
	return nil
}

// text and assist chunks are informational: a malformed one is logged and
// skipped.
func (s *decoding) text(tag string, mode pass) error {
	if mode == countPass {
		return nil
	}
	t, err := readText(s.c)
	if err != nil {
		s.log.Debug("skipping text", "tag", tag, "err", err)
		return nil
	}
	if tag == tagName {
		s.p.Name = t
	} else {
		s.p.Comment = t
	}
	return nil
}

func (s *decoding) assist(tag string, mode pass) error {
	if mode == countPass {
		return nil
	}
	i, name, err := readAssist(s.c)
	names := s.p.TrackNames
	if tag == tagVoiceName {
		names = s.p.VoiceNames
	}
	if err == nil && i >= len(names) {
		err = fmt.Errorf("index %d out of range", i)
	}
	if err != nil {
		s.log.Debug("skipping name", "tag", tag, "err", err)
		return nil
	}
	names[i] = name
	return nil
}

func (s *decoding) allocate() error {
	if s.numEvents > MaxEvents {
		return newError(ErrManyEvents, "%d events, at most %d allowed", s.numEvents, MaxEvents)
	}
	s.p.Events.Records = make([]Event, 0, s.numEvents)
	s.p.Voices = make([]voice.Voice, 0, s.numVoices)
	s.p.Delays = make([]Delay, 0, s.numDelays)
	s.p.Overdrives = make([]Overdrive, 0, s.numOverdrives)
	s.p.TrackNames = make([]string, s.p.NumTracks)
	s.p.VoiceNames = make([]string, s.numVoices)
	return nil
}

// finish validates the filled tables and sizes the project to cover all of
// its events.
func (s *decoding) finish() error {
	p := s.p
	if len(p.Voices) != s.numVoices || len(p.Delays) != s.numDelays || len(p.Overdrives) != s.numOverdrives {
		return newError(ErrInternal, "table sizes changed between passes")
	}
	p.Events.link()
	if err := p.Events.validate(p.NumTracks, len(p.Voices)); err != nil {
		return wrapError(ErrEventInvalid, err)
	}
	if p.Master.BeatClock != BeatClock {
		return newError(ErrUnknownFormat, "beat clock %d, want %d", p.Master.BeatClock, BeatClock)
	}
	p.Master.adjust(max(p.Events.MaxClock(), p.Master.LastClock()))
	s.log.Debug("decoded project",
		"events", p.Events.Len(),
		"tracks", p.NumTracks,
		"voices", len(p.Voices),
		"delays", len(p.Delays),
		"overdrives", len(p.Overdrives),
		"measures", p.Master.NumMeasures)
	return nil
}
