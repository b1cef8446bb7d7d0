// Package cursor implements a bounds-checked little-endian reader over either
// an in-memory buffer or a seekable stream.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxSize is the largest payload a Cursor accepts.
const MaxSize = 32 * 1024 * 1024

var (
	ErrEmpty           = errors.New("empty payload")
	ErrTooBig          = errors.New("payload exceeds maximum size")
	ErrOutOfBounds     = errors.New("read past end of payload")
	ErrInvalidSeek     = errors.New("invalid seek target")
	ErrMalformedVarint = errors.New("malformed variable-length integer")
)

// Cursor reads fixed-width and variable-length values from a payload of a
// known size. Either buf or rs is set.
type Cursor struct {
	buf     []byte
	rs      io.ReadSeeker
	pos     int64
	size    int64
	scratch [8]byte
}

// FromBytes returns a Cursor over b. The slice is not copied.
func FromBytes(b []byte) (*Cursor, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	if len(b) > MaxSize {
		return nil, ErrTooBig
	}
	return &Cursor{buf: b, size: int64(len(b))}, nil
}

// FromReader returns a Cursor over rs, measuring its size first. The cursor
// starts at the current position of rs.
func FromReader(rs io.ReadSeeker) (*Cursor, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("could not query stream position: %w", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("could not measure stream: %w", err)
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("could not rewind stream: %w", err)
	}
	size := end - start
	if size <= 0 {
		return nil, ErrEmpty
	}
	if size > MaxSize {
		return nil, ErrTooBig
	}
	return &Cursor{rs: &offsetReader{rs: rs, base: start}, size: size}, nil
}

// Size returns the total payload size in bytes.
func (c *Cursor) Size() int64 { return c.size }

// Pos returns the current read offset.
func (c *Cursor) Pos() int64 { return c.pos }

// Remaining returns the number of bytes left after the current offset.
func (c *Cursor) Remaining() int64 { return c.size - c.pos }

// Read fills p completely or fails with ErrOutOfBounds without consuming
// anything.
func (c *Cursor) Read(p []byte) error {
	n := int64(len(p))
	if n > c.Remaining() {
		return ErrOutOfBounds
	}
	if c.buf != nil {
		copy(p, c.buf[c.pos:c.pos+n])
		c.pos += n
		return nil
	}
	if _, err := c.rs.Seek(c.pos, io.SeekStart); err != nil {
		return fmt.Errorf("stream seek failed: %w", err)
	}
	if _, err := io.ReadFull(c.rs, p); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	c.pos += n
	return nil
}

// Seek moves the cursor. The target must lie within [0, Size()].
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = c.pos + offset
	case io.SeekEnd:
		target = c.size + offset
	default:
		return c.pos, ErrInvalidSeek
	}
	if target < 0 || target > c.size {
		return c.pos, ErrInvalidSeek
	}
	c.pos = target
	return c.pos, nil
}

// Skip advances the cursor by n bytes; negative n is rejected.
func (c *Cursor) Skip(n int64) error {
	if n < 0 {
		return ErrInvalidSeek
	}
	_, err := c.Seek(n, io.SeekCurrent)
	return err
}

// ReadFixed reads an integer of width 1, 2, 4 or 8 bytes, sign-extending it
// when signed is set.
func (c *Cursor) ReadFixed(width int, signed bool) (int64, error) {
	switch width {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("unsupported width %d", width)
	}
	b := c.scratch[:width]
	if err := c.Read(b); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		if signed {
			return int64(int8(b[0])), nil
		}
		return int64(b[0]), nil
	case 2:
		v := binary.LittleEndian.Uint16(b)
		if signed {
			return int64(int16(v)), nil
		}
		return int64(v), nil
	case 4:
		v := binary.LittleEndian.Uint32(b)
		if signed {
			return int64(int32(v)), nil
		}
		return int64(v), nil
	default:
		return int64(binary.LittleEndian.Uint64(b)), nil
	}
}

func (c *Cursor) U8() (uint8, error) {
	v, err := c.ReadFixed(1, false)
	return uint8(v), err
}

func (c *Cursor) S8() (int8, error) {
	v, err := c.ReadFixed(1, true)
	return int8(v), err
}

func (c *Cursor) U16() (uint16, error) {
	v, err := c.ReadFixed(2, false)
	return uint16(v), err
}

func (c *Cursor) U32() (uint32, error) {
	v, err := c.ReadFixed(4, false)
	return uint32(v), err
}

func (c *Cursor) S32() (int32, error) {
	v, err := c.ReadFixed(4, true)
	return int32(v), err
}

func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	return math.Float32frombits(v), err
}

// VarU32 reads a variable-length integer: 7-bit groups, least significant
// first, with the top bit of each byte flagging continuation. The fifth byte
// contributes its low four bits and must not flag continuation.
func (c *Cursor) VarU32() (uint32, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		b, err := c.U8()
		if err != nil {
			return 0, err
		}
		if i == 4 {
			if b&0x80 != 0 {
				return 0, ErrMalformedVarint
			}
			return v | uint32(b&0x0f)<<28, nil
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return v, nil
}

// VarS32 reads a variable-length integer and reinterprets it as signed.
func (c *Cursor) VarS32() (int32, error) {
	v, err := c.VarU32()
	return int32(v), err
}

// VarF32 reads a variable-length integer and reinterprets its bits as a
// float32.
func (c *Cursor) VarF32() (float32, error) {
	v, err := c.VarU32()
	return math.Float32frombits(v), err
}

// offsetReader rebases a stream so that the cursor's offset 0 is the stream
// position at construction.
type offsetReader struct {
	rs   io.ReadSeeker
	base int64
}

func (o *offsetReader) Read(p []byte) (int, error) { return o.rs.Read(p) }

func (o *offsetReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		offset += o.base
	}
	n, err := o.rs.Seek(offset, whence)
	return n - o.base, err
}
