package ptcop_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/vsariola/ptcop"
)

func TestErrorCodes(t *testing.T) {
	// the numbering is part of the API
	for code, want := range map[ptcop.ErrorCode]int{
		ptcop.ErrNoMemory:       1,
		ptcop.ErrInvalidFile:    8,
		ptcop.ErrUnknownFormat:  10,
		ptcop.ErrEventInvalid:   16,
		ptcop.ErrReadDelay:      19,
		ptcop.ErrReadOverdrive:  20,
		ptcop.ErrReadPCM:        21,
		ptcop.ErrReadOGG:        24,
		ptcop.ErrPrepare:        25,
		ptcop.ErrManyOverdrives: 13,
	} {
		if int(code) != want {
			t.Errorf("%v = %d, want %d", code, int(code), want)
		}
	}
}

func TestErrorCategory(t *testing.T) {
	for _, tc := range []struct {
		code ptcop.ErrorCode
		want ptcop.Category
	}{
		{0, ptcop.CategoryNone},
		{ptcop.ErrNoMemory, ptcop.CategoryAllocation},
		{ptcop.ErrTooBig, ptcop.CategoryExhausted},
		{ptcop.ErrManyVoices, ptcop.CategoryExhausted},
		{ptcop.ErrUseOgg, ptcop.CategoryUnsupported},
		{ptcop.ErrOldFormat, ptcop.CategoryUnsupported},
		{ptcop.ErrEventInvalid, ptcop.CategoryOutOfRange},
		{ptcop.ErrReadPTN, ptcop.CategoryMalformed},
		{ptcop.ErrDescriptor, ptcop.CategoryMalformed},
		{ptcop.ErrInternal, ptcop.CategoryInternal},
	} {
		if got := tc.code.Category(); got != tc.want {
			t.Errorf("%v.Category() = %v, want %v", tc.code, got, tc.want)
		}
	}
	if got := ptcop.Category(99).String(); got != "Category(99)" {
		t.Errorf("unknown category prints as %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("loading: %w", &ptcop.Error{Code: ptcop.ErrReadMaster, Err: cause})
	if got := ptcop.CodeOf(err); got != ptcop.ErrReadMaster {
		t.Errorf("CodeOf = %v, want %v", got, ptcop.ErrReadMaster)
	}
	if !errors.Is(err, cause) || !errors.Is(err, ptcop.ErrReadMaster) {
		t.Errorf("%v should match both its code and its cause", err)
	}
	if got := err.Error(); got != "loading: could not read master: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if got := ptcop.CodeOf(fmt.Errorf("bare: %w", ptcop.ErrTooBig)); got != ptcop.ErrTooBig {
		t.Errorf("CodeOf of a bare code = %v, want %v", got, ptcop.ErrTooBig)
	}
	if got := ptcop.CodeOf(nil); got != 0 {
		t.Errorf("CodeOf(nil) = %v, want 0", got)
	}
	if got := ptcop.CodeOf(io.EOF); got != 0 {
		t.Errorf("CodeOf(io.EOF) = %v, want 0", got)
	}
	if got := ptcop.ErrorCode(1000).Error(); got != "error code 1000" {
		t.Errorf("unknown code prints as %q", got)
	}
}
