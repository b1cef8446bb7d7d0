package ptcop

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a project could not be loaded or prepared. The
// numeric values are stable and never reused.
type ErrorCode int

const (
	ErrNoMemory ErrorCode = iota + 1
	ErrTooBig
	ErrDescriptor
	ErrOldFormat
	ErrUseOgg
	ErrInvalidDescriptor
	ErrInvalidMemory
	ErrInvalidFile
	ErrInternal
	ErrUnknownFormat
	ErrManyEvents
	ErrManyDelays
	ErrManyOverdrives
	ErrManyTracks
	ErrManyVoices
	ErrEventInvalid
	ErrReadMaster
	ErrReadEvent
	ErrReadDelay
	ErrReadOverdrive
	ErrReadPCM
	ErrReadPTV
	ErrReadPTN
	ErrReadOGG
	ErrPrepare
)

var errorMessages = map[ErrorCode]string{
	ErrNoMemory:          "could not allocate memory",
	ErrTooBig:            "payload is too big",
	ErrDescriptor:        "read failure",
	ErrOldFormat:         "unsupported project version",
	ErrUseOgg:            "ogg vorbis support is not available",
	ErrInvalidDescriptor: "invalid descriptor",
	ErrInvalidMemory:     "invalid memory",
	ErrInvalidFile:       "invalid file",
	ErrInternal:          "internal error",
	ErrUnknownFormat:     "unknown format",
	ErrManyEvents:        "too many events",
	ErrManyDelays:        "too many delays",
	ErrManyOverdrives:    "too many overdrives",
	ErrManyTracks:        "too many tracks",
	ErrManyVoices:        "too many voices",
	ErrEventInvalid:      "event contains an invalid value",
	ErrReadMaster:        "could not read master",
	ErrReadEvent:         "could not read events",
	ErrReadDelay:         "could not read delay",
	ErrReadOverdrive:     "could not read overdrive",
	ErrReadPCM:           "could not read pcm voice",
	ErrReadPTV:           "could not read ptv voice",
	ErrReadPTN:           "could not read ptn voice",
	ErrReadOGG:           "could not read ogg voice",
	ErrPrepare:           "could not prepare playback",
}

func (c ErrorCode) Error() string {
	if s, ok := errorMessages[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Category groups error codes by the kind of failure.
type Category int

const (
	CategoryNone Category = iota
	CategoryMalformed
	CategoryExhausted
	CategoryOutOfRange
	CategoryAllocation
	CategoryUnsupported
	CategoryInternal
)

var categoryNames = [...]string{"none", "malformed", "exhausted", "out of range", "allocation", "unsupported", "internal"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Category returns the kind of failure the code stands for.
func (c ErrorCode) Category() Category {
	switch c {
	case ErrNoMemory:
		return CategoryAllocation
	case ErrTooBig, ErrManyEvents, ErrManyDelays, ErrManyOverdrives, ErrManyTracks, ErrManyVoices:
		return CategoryExhausted
	case ErrUseOgg, ErrOldFormat:
		return CategoryUnsupported
	case ErrEventInvalid, ErrPrepare:
		return CategoryOutOfRange
	case ErrInvalidDescriptor, ErrInternal:
		return CategoryInternal
	case ErrDescriptor, ErrInvalidMemory, ErrInvalidFile, ErrUnknownFormat,
		ErrReadMaster, ErrReadEvent, ErrReadDelay, ErrReadOverdrive,
		ErrReadPCM, ErrReadPTV, ErrReadPTN, ErrReadOGG:
		return CategoryMalformed
	}
	return CategoryNone
}

// Error is returned by every failing operation of this module. It carries the
// code and, when known, the underlying cause.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.Error()
	}
	return e.Code.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// CodeOf returns the code carried by err, or 0 if err is nil or did not come
// from this module.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c ErrorCode
	if errors.As(err, &c) {
		return c
	}
	return 0
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func wrapError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}
