package engine

import (
	"github.com/drgolem/go-portaudio/portaudio"
)

// audioCallback is the realtime pull function registered with the host
// audio layer. It runs on PortAudio's own callback thread, not a Go
// goroutine: it must never block, allocate, or touch anything but the
// ring and the atomics passed to it.
//
// While playing, it drains one ring block at a time into output,
// falling back to silence (and counting an underrun) when the ring runs
// dry. While paused or stopped it always emits silence, leaving
// buffered blocks untouched so playback resumes exactly where it left
// off.
func (c *Controller) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	state := PlayerState(c.state.Load())

	if state != StatePlaying {
		silence(output)
		return portaudio.Continue
	}

	channels := c.info.Channels
	framesNeeded := int(frameCount)
	samplesNeeded := framesNeeded * channels
	written := 0

	for written < samplesNeeded {
		slot, cur := c.ring.consumerSlot()
		if !cur {
			c.underruns.Add(1)
			break
		}

		if slot.frames == 0 && slot.last {
			c.ring.release()
			c.wake.signal()
			c.completed.Store(true)
			break
		}

		availableSamples := slot.frames * channels
		offset := c.consumeOffset
		remaining := availableSamples - offset
		toCopy := min(remaining, samplesNeeded-written)

		writeFloat32(output[written*4:(written+toCopy)*4], slot.samples[offset:offset+toCopy])
		written += toCopy
		offset += toCopy

		if offset >= availableSamples {
			last := slot.last
			c.ring.release()
			c.wake.signal()
			c.consumeOffset = 0
			if last {
				c.completed.Store(true)
				break
			}
		} else {
			c.consumeOffset = offset
		}
	}

	if written < samplesNeeded {
		silence(output[written*4 : samplesNeeded*4])
	}

	if c.completed.Load() {
		return portaudio.Complete
	}
	return portaudio.Continue
}

// consumeOffset (on Controller) tracks the sample offset already
// delivered from the current head block across calls. It is owned
// exclusively by this callback — PortAudio never invokes it
// concurrently with itself — so it needs no atomic.
