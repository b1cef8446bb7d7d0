package cursor

// Record reads a run of fields and keeps the first error, so a fixed layout
// can be read without checking after every field. Once an error occurs, all
// further reads return zero values.
type Record struct {
	c   *Cursor
	err error
}

// Record starts reading a run of fields at the current position.
func (c *Cursor) Record() *Record { return &Record{c: c} }

// Err returns the first error encountered.
func (r *Record) Err() error { return r.err }

func (r *Record) fixed(width int, signed bool) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.ReadFixed(width, signed)
	r.err = err
	return v
}

func (r *Record) U8() uint8   { return uint8(r.fixed(1, false)) }
func (r *Record) S8() int8    { return int8(r.fixed(1, true)) }
func (r *Record) U16() uint16 { return uint16(r.fixed(2, false)) }
func (r *Record) U32() uint32 { return uint32(r.fixed(4, false)) }
func (r *Record) S32() int32  { return int32(r.fixed(4, true)) }

func (r *Record) F32() float32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.F32()
	r.err = err
	return v
}

func (r *Record) VarU32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.VarU32()
	r.err = err
	return v
}

func (r *Record) VarS32() int32 { return int32(r.VarU32()) }

func (r *Record) VarF32() float32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.VarF32()
	r.err = err
	return v
}

// Bytes reads n bytes into a new slice.
func (r *Record) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || int64(n) > r.c.Remaining() {
		r.err = ErrOutOfBounds
		return nil
	}
	b := make([]byte, n)
	r.err = r.c.Read(b)
	return b
}
