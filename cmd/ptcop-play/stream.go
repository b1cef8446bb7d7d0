package main

import (
	"context"
	"time"

	"github.com/vsariola/ptcop"
	"github.com/vsariola/ptcop/synth"
)

const chunkFrames = 4096

type (
	// collector keeps a copy of everything written to it.
	collector struct {
		buffer ptcop.AudioBuffer
	}

	sinks []ptcop.AudioSink
)

func (c *collector) WriteAudio(buffer ptcop.AudioBuffer) error {
	c.buffer = append(c.buffer, buffer...)
	return nil
}

func (c *collector) Close() error { return nil }

func (s sinks) WriteAudio(buffer ptcop.AudioBuffer) error {
	for _, sink := range s {
		if err := sink.WriteAudio(buffer); err != nil {
			return err
		}
	}
	return nil
}

func (s sinks) Close() (err error) {
	for _, sink := range s {
		if e := sink.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}

func frames(d time.Duration) int {
	return int(d.Seconds() * ptcop.SampleRate)
}

// stream renders the player into sink until the song ends, length frames
// have been written or ctx is done. A length of zero means no limit. The fade
// out is timed to end together with the stream. It returns the number of
// frames written.
func stream(ctx context.Context, p *synth.Player, sink ptcop.AudioSink, length int, fadeOut time.Duration) (int, error) {
	buf := make(ptcop.AudioBuffer, chunkFrames)
	fadeAt := -1
	if fadeOut > 0 {
		end := length
		if !p.Loop() {
			remaining := p.TotalSamples() - p.CurrentSample()
			if end == 0 || remaining < end {
				end = remaining
			}
		}
		if end > 0 {
			fadeAt = max(0, end-frames(fadeOut))
		}
	}
	total := 0
	for !p.Ended() && (length == 0 || total < length) {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if total == fadeAt {
			p.SetFade(false, fadeOut)
			fadeAt = -1
		}
		n := len(buf)
		if length > 0 {
			n = min(n, length-total)
		}
		if fadeAt > total {
			n = min(n, fadeAt-total)
		}
		m := p.Render(buf[:n])
		if m == 0 {
			break
		}
		if err := sink.WriteAudio(buf[:m]); err != nil {
			return total, err
		}
		total += m
	}
	return total, nil
}
