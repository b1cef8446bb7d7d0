package ptcop

type (
	// AudioBuffer is a buffer of stereo frames, left channel first.
	AudioBuffer [][2]int16

	// AudioSource renders audio into a buffer, returning how many frames
	// carry audio. Frames after those are zero.
	AudioSource interface {
		Render(buffer AudioBuffer) int
	}

	AudioSink interface {
		WriteAudio(buffer AudioBuffer) error
		Close() error
	}

	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)

// Float32 returns the interleaved samples scaled to [-1, 1].
func (b AudioBuffer) Float32() []float32 {
	ret := make([]float32, len(b)*2)
	for i, f := range b {
		ret[2*i] = float32(f[0]) / 32768
		ret[2*i+1] = float32(f[1]) / 32768
	}
	return ret
}

// Channel returns the samples of one channel, scaled to [-1, 1].
func (b AudioBuffer) Channel(ch int) []float32 {
	ret := make([]float32, len(b))
	for i, f := range b {
		ret[i] = float32(f[ch]) / 32768
	}
	return ret
}
