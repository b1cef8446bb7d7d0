package oto

import (
	"encoding/binary"

	"github.com/vsariola/ptcop"
)

// AppendPCM appends the frames of buffer to dst as interleaved signed 16-bit
// little-endian samples, the format the oto context is opened with.
func AppendPCM(dst []byte, buffer ptcop.AudioBuffer) []byte {
	for _, f := range buffer {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[0]))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[1]))
	}
	return dst
}
