package cursor_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/vsariola/ptcop/cursor"
)

func TestVarU32(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
		err   error
	}{
		{"zero", []byte{0x00}, 0, nil},
		{"one byte", []byte{0x7f}, 127, nil},
		{"two bytes", []byte{0x80, 0x01}, 128, nil},
		{"three bytes", []byte{0xe5, 0x8e, 0x26}, 624485, nil},
		{"four bytes", []byte{0xff, 0xff, 0xff, 0x7f}, 1<<28 - 1, nil},
		{"five bytes max", []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, math.MaxUint32, nil},
		{"fifth byte high bits dropped", []byte{0x80, 0x80, 0x80, 0x80, 0x71}, 1 << 28, nil},
		{"sixth continuation", []byte{0xff, 0xff, 0xff, 0xff, 0x8f, 0x00}, 0, cursor.ErrMalformedVarint},
		{"truncated", []byte{0x80, 0x80}, 0, cursor.ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := cursor.FromBytes(tt.input)
			if err != nil {
				t.Fatalf("FromBytes failed: %v", err)
			}
			got, err := c.VarU32()
			if !errors.Is(err, tt.err) {
				t.Fatalf("VarU32 error = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Fatalf("VarU32 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVarReinterpretation(t *testing.T) {
	c, err := cursor.FromBytes([]byte{0xff, 0xff, 0xff, 0xff, 0x0f, 0x80, 0x80, 0x80, 0xfc, 0x03})
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	s, err := c.VarS32()
	if err != nil || s != -1 {
		t.Fatalf("VarS32 = %v, %v; want -1", s, err)
	}
	f, err := c.VarF32()
	if err != nil || f != 1.0 {
		t.Fatalf("VarF32 = %v, %v; want 1", f, err)
	}
}

func TestFixedLittleEndian(t *testing.T) {
	c, err := cursor.FromBytes([]byte{0xfe, 0x34, 0x12, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x80, 0x3f})
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	if v, _ := c.S8(); v != -2 {
		t.Fatalf("S8 = %v, want -2", v)
	}
	if v, _ := c.U16(); v != 0x1234 {
		t.Fatalf("U16 = %#x, want 0x1234", v)
	}
	if v, _ := c.S32(); v != -1 {
		t.Fatalf("S32 = %v, want -1", v)
	}
	if v, _ := c.F32(); v != 1.0 {
		t.Fatalf("F32 = %v, want 1", v)
	}
	if _, err := c.U8(); !errors.Is(err, cursor.ErrOutOfBounds) {
		t.Fatalf("read past end: got %v, want ErrOutOfBounds", err)
	}
	if c.Pos() != c.Size() {
		t.Fatalf("failed read moved the cursor to %v", c.Pos())
	}
}

func TestSeek(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	tests := []struct {
		name   string
		from   int64
		offset int64
		whence int
		want   int64
		ok     bool
	}{
		{"start", 3, 5, io.SeekStart, 5, true},
		{"start to end", 0, 8, io.SeekStart, 8, true},
		{"start past end", 0, 9, io.SeekStart, 0, false},
		{"start negative", 2, -1, io.SeekStart, 2, false},
		{"current", 2, 3, io.SeekCurrent, 5, true},
		{"current backwards", 6, -6, io.SeekCurrent, 0, true},
		{"current before start", 2, -3, io.SeekCurrent, 2, false},
		{"end", 0, -2, io.SeekEnd, 6, true},
		{"end positive", 0, 1, io.SeekEnd, 0, false},
		{"bad whence", 1, 0, 42, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := cursor.FromBytes(data)
			if _, err := c.Seek(tt.from, io.SeekStart); err != nil {
				t.Fatalf("initial seek failed: %v", err)
			}
			got, err := c.Seek(tt.offset, tt.whence)
			if (err == nil) != tt.ok {
				t.Fatalf("Seek error = %v, want ok=%v", err, tt.ok)
			}
			if got != tt.want || c.Pos() != tt.want {
				t.Fatalf("Seek position = %v (Pos %v), want %v", got, c.Pos(), tt.want)
			}
		})
	}
}

func TestSkipRejectsNegative(t *testing.T) {
	c, _ := cursor.FromBytes([]byte{1, 2, 3})
	c.Skip(2)
	if err := c.Skip(-1); !errors.Is(err, cursor.ErrInvalidSeek) {
		t.Fatalf("Skip(-1) = %v, want ErrInvalidSeek", err)
	}
	if c.Pos() != 2 {
		t.Fatalf("Pos = %v, want 2", c.Pos())
	}
}

func TestLimits(t *testing.T) {
	if _, err := cursor.FromBytes(nil); !errors.Is(err, cursor.ErrEmpty) {
		t.Fatalf("FromBytes(nil) = %v, want ErrEmpty", err)
	}
	if _, err := cursor.FromBytes(make([]byte, cursor.MaxSize+1)); !errors.Is(err, cursor.ErrTooBig) {
		t.Fatalf("oversized payload = %v, want ErrTooBig", err)
	}
}

func TestFromReaderMatchesFromBytes(t *testing.T) {
	data := []byte{0xaa, 0xe5, 0x8e, 0x26, 0x34, 0x12, 0x99}
	r := bytes.NewReader(data)
	r.Seek(1, io.SeekStart)
	c, err := cursor.FromReader(r)
	if err != nil {
		t.Fatalf("FromReader failed: %v", err)
	}
	if c.Size() != int64(len(data)-1) {
		t.Fatalf("Size = %v, want %v", c.Size(), len(data)-1)
	}
	v, err := c.VarU32()
	if err != nil || v != 624485 {
		t.Fatalf("VarU32 = %v, %v; want 624485", v, err)
	}
	if _, err := c.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	u, err := c.U16()
	if err != nil || u != 0x9912 {
		t.Fatalf("U16 = %#x, %v; want 0x9912", u, err)
	}
	if _, err := c.U8(); !errors.Is(err, cursor.ErrOutOfBounds) {
		t.Fatalf("read past end = %v, want ErrOutOfBounds", err)
	}
}

func TestRecordKeepsFirstError(t *testing.T) {
	c, _ := cursor.FromBytes([]byte{0x01, 0x02, 0x03})
	r := c.Record()
	if v := r.U16(); v != 0x0201 {
		t.Fatalf("U16 = %#x, want 0x201", v)
	}
	if v := r.U32(); v != 0 {
		t.Fatalf("U32 past end = %v, want 0", v)
	}
	if !errors.Is(r.Err(), cursor.ErrOutOfBounds) {
		t.Fatalf("Err = %v, want ErrOutOfBounds", r.Err())
	}
	if v := r.U8(); v != 0 {
		t.Fatalf("U8 after error = %v, want 0", v)
	}
	if c.Pos() != 2 {
		t.Fatalf("Pos = %v, want 2", c.Pos())
	}
}
