// Package oto plays rendered audio on the default output device.
package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/vsariola/ptcop"
)

type (
	OtoContext struct {
		context *oto.Context
	}

	// OtoOutput streams the buffers written to it to an oto player. Writes
	// block while the player buffer is full.
	OtoOutput struct {
		player    *oto.Player
		writer    *io.PipeWriter
		tmpBuffer []byte
		closeOnce sync.Once
	}
)

// otoBufferSize is 50 ms of stereo 16-bit audio.
const otoBufferSize = ptcop.SampleRate / 20 * ptcop.Channels * 2

// NewContext opens the audio device and waits until it is ready.
func NewContext() (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   ptcop.SampleRate,
		ChannelCount: ptcop.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

func (c *OtoContext) Output() ptcop.AudioSink {
	reader, writer := io.Pipe()
	player := c.context.NewPlayer(reader)
	player.SetBufferSize(otoBufferSize)
	player.Play()
	return &OtoOutput{player: player, writer: writer}
}

// Close suspends the device. An oto context cannot be reopened, so the
// process should not create another one afterwards.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (o *OtoOutput) WriteAudio(buffer ptcop.AudioBuffer) error {
	// we reuse the old capacity tmpBuffer by setting its length to zero. then,
	// we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = AppendPCM(o.tmpBuffer[:0], buffer)
	if _, err := o.writer.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close waits until everything written has been played.
func (o *OtoOutput) Close() (err error) {
	o.closeOnce.Do(func() {
		o.writer.Close()
		for o.player.IsPlaying() {
			time.Sleep(time.Millisecond * 10)
		}
		if e := o.player.Err(); e != nil && !errors.Is(e, io.EOF) {
			err = fmt.Errorf("oto player failed: %w", e)
		}
		if e := o.player.Close(); e != nil && err == nil {
			err = fmt.Errorf("cannot close oto player: %w", e)
		}
	})
	return
}
