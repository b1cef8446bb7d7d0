package ptcop

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/japanese"

	"github.com/vsariola/ptcop/cursor"
)

const (
	assistSize    = 20
	assistNameMax = 16
)

// DecodeText converts a Shift-JIS string, as stored in project files, to
// UTF-8. Anything after the first NUL byte is ignored. Bytes that are not
// valid Shift-JIS are kept as they are.
func DecodeText(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	ret, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(ret)
}

// EncodeText converts s to Shift-JIS, replacing runes it cannot represent.
func EncodeText(s string) []byte {
	ret, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		b := make([]byte, 0, len(s))
		for _, r := range s {
			if r < 0x80 {
				b = append(b, byte(r))
			} else {
				b = append(b, '?')
			}
		}
		return b
	}
	return ret
}

func readText(c *cursor.Cursor) (string, error) {
	r := c.Record()
	size := r.S32()
	b := r.Bytes(int(size))
	if err := r.Err(); err != nil {
		return "", err
	}
	return DecodeText(b), nil
}

// readAssist reads an index and a fixed-size name.
func readAssist(c *cursor.Cursor) (int, string, error) {
	r := c.Record()
	size := r.U32()
	index := r.U16()
	reserved := r.U16()
	if err := r.Err(); err != nil {
		return 0, "", err
	}
	if size != assistSize || reserved != 0 {
		return 0, "", fmt.Errorf("malformed name record of %d bytes", size)
	}
	name := r.Bytes(assistNameMax)
	if err := r.Err(); err != nil {
		return 0, "", err
	}
	return int(index), DecodeText(name), nil
}
