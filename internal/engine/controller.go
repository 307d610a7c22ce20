// Package engine implements the real-time audio streaming core: a
// bounded lock-free producer/consumer pipeline between a seekable
// decoder and a realtime host audio callback, and the Controller
// façade that drives its play/pause/stop/seek/destroy lifecycle.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/ringplayer/pkg/types"
)

// PlayerState is one of the three states the Controller's state machine
// can occupy.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePaused
	StatePlaying
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Config holds the tunable knobs of §6's configuration keys.
type Config struct {
	FramesPerBlock   int
	MaxBlocks        int
	WakeTimeout      time.Duration
	DestroyTimeout   time.Duration
	ProducerPriority int
	DeviceIndex      int
	Latency          time.Duration
}

// DefaultConfig returns the engine's out-of-the-box tuning: 256 frames
// per block with headroom for four blocks.
func DefaultConfig() Config {
	return Config{
		FramesPerBlock:   256,
		MaxBlocks:        4,
		WakeTimeout:      1 * time.Second,
		DestroyTimeout:   10 * time.Second,
		ProducerPriority: 0,
		DeviceIndex:      -1,
	}
}

// Controller is the public façade over the engine: it owns the decoder,
// the ring, the host stream, and the producer goroutine, and is the
// sole writer of player state. All exported methods are safe to call
// from any goroutine; the realtime callback and producer task only ever
// observe state through atomics or the seek mailbox.
type Controller struct {
	cfg     Config
	decoder types.AudioDecoder
	info    types.DecoderInfo

	ring    *ring
	seekReq *seekRequest
	wake    wake
	host    *hostStream

	producer   *producerTask
	shutdown   atomic.Bool
	shutdownCh chan struct{}

	state         atomic.Int32
	consumeOffset int // callback-owned, see callback.go
	playedFrames  atomic.Uint64
	underruns     atomic.Uint64
	completed     atomic.Bool

	mu        sync.Mutex
	destroyed bool
	fileName  string
	startTime time.Time

	// openStream defaults to openHostStream; tests substitute a fake to
	// exercise the Controller without a real host audio device.
	openStream func(deviceIndex, channels int, sampleRate float64, framesPerBuffer int, latencySeconds float64, cb callbackFunc) (*hostStream, error)
}

// Create opens source with decoder, allocates the ring, and returns a
// Controller in StateStopped. It does not open the host stream or start
// the producer goroutine; Play does both on each start from Stopped.
func Create(source string, decoder types.AudioDecoder, cfg Config) (*Controller, error) {
	if cfg.FramesPerBlock <= 0 || cfg.MaxBlocks <= 0 {
		return nil, fmt.Errorf("%w: frames_per_block and max_blocks must be positive", ErrResourceExhaustion)
	}

	if err := decoder.Open(source); err != nil {
		return nil, &DecodeError{FileName: source, Cause: err}
	}

	info := decoder.Info()

	c := &Controller{
		cfg:        cfg,
		decoder:    decoder,
		info:       info,
		ring:       newRing(cfg.MaxBlocks, cfg.FramesPerBlock, info.Channels),
		seekReq:    &seekRequest{},
		wake:       newWake(),
		shutdownCh: make(chan struct{}),
		fileName:   source,
		openStream: openHostStream,
	}
	c.state.Store(int32(StateStopped))

	return c, nil
}

// Play transitions Stopped or Paused into Playing. From Stopped it
// resets the ring and (re)opens the host stream and producer goroutine;
// from Paused it only flips the state so the callback resumes draining
// the (still intact) ring.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrDestroyed
	}

	switch PlayerState(c.state.Load()) {
	case StatePlaying:
		return nil
	case StatePaused:
		c.state.Store(int32(StatePlaying))
		return nil
	case StateStopped:
		// fall through to fresh start
	}

	c.ring.reset()
	c.consumeOffset = 0
	c.completed.Store(false)
	c.shutdown.Store(false)
	c.playedFrames.Store(0)
	c.underruns.Store(0)
	c.startTime = time.Now()

	sampleRate := float64(c.info.SampleRate)
	latencySeconds := c.cfg.Latency.Seconds()
	host, err := c.openStream(c.cfg.DeviceIndex, c.info.Channels, sampleRate, c.cfg.FramesPerBlock, latencySeconds, c.audioCallback)
	if err != nil {
		return err
	}
	c.host = host

	c.producer = newProducerTask(c.decoder, c.ring, c.seekReq, c.wake, c.shutdownCh, &c.shutdown, c.cfg.WakeTimeout, &c.playedFrames)
	go c.producer.run()

	c.state.Store(int32(StatePlaying))
	slog.Info("playback started", "file", c.fileName, "sample_rate", c.info.SampleRate, "channels", c.info.Channels)
	return nil
}

// Pause transitions Playing into Paused. The producer keeps filling the
// ring in the background; the callback stops draining it and emits
// silence, so resuming continues exactly where playback left off.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrDestroyed
	}

	switch PlayerState(c.state.Load()) {
	case StatePaused:
		return nil
	case StatePlaying:
		c.state.Store(int32(StatePaused))
		return nil
	default:
		return fmt.Errorf("%w: pause from stopped", ErrInvalidTransition)
	}
}

// Stop transitions any state back to Stopped, closing the host stream
// and joining the producer goroutine, and resets the decode cursor to
// the start of the stream. It does not flush the ring itself; Play
// clears it on the next fresh start.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrDestroyed
	}

	if PlayerState(c.state.Load()) == StateStopped {
		return nil
	}

	c.stopLocked()
	return c.seekLocked(0, io.SeekStart)
}

// stopLocked tears down the running producer and host stream. Caller
// must hold c.mu.
func (c *Controller) stopLocked() {
	c.state.Store(int32(StateStopped))
	c.shutdown.Store(true)
	close(c.shutdownCh)

	if c.producer != nil {
		<-c.producer.done
		c.producer = nil
	}

	if c.host != nil {
		if err := c.host.stop(); err != nil {
			slog.Warn("failed to stop stream", "error", err)
		}
		if err := c.host.close(); err != nil {
			slog.Warn("failed to close stream", "error", err)
		}
		c.host = nil
	}

	c.shutdownCh = make(chan struct{})
}

// Seek moves the decode cursor to offset frames relative to whence
// (io.SeekStart/SeekCurrent/SeekEnd). It blocks until the producer has
// applied the cursor move, not until the next block has been decoded
// and published.
func (c *Controller) Seek(offset int64, whence int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrDestroyed
	}
	if PlayerState(c.state.Load()) == StateStopped {
		return fmt.Errorf("%w: seek while stopped", ErrInvalidTransition)
	}
	return c.seekLocked(offset, whence)
}

// seekLocked performs the seek handshake without grabbing c.mu, so
// Stop can call it while already holding the lock. When the producer
// isn't running (stopped), the seek still needs somewhere to land: in
// that case Seek is applied directly to the decoder instead of via the
// mailbox.
func (c *Controller) seekLocked(offset int64, whence int) error {
	if c.producer == nil {
		pos, err := c.decoder.Seek(offset, whence)
		if err == nil {
			c.playedFrames.Store(uint64(pos))
		}
		return err
	}
	return c.seekReq.request(c.wake, offset, whence)
}

// Destroy stops playback, joins the producer goroutine, and releases
// the host stream and the decoder. If the producer does not observe
// shutdown within Config.DestroyTimeout, Destroy returns
// ErrShutdownTimeout without closing the host stream or the decoder.
// Destroy is idempotent and safe to call more than once.
func (c *Controller) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return nil
	}

	if PlayerState(c.state.Load()) != StateStopped {
		c.state.Store(int32(StateStopped))
		c.shutdown.Store(true)
		close(c.shutdownCh)

		if c.producer != nil {
			select {
			case <-c.producer.done:
			case <-time.After(c.cfg.DestroyTimeout):
				c.destroyed = true
				return ErrShutdownTimeout
			}
			c.producer = nil
		}

		if c.host != nil {
			c.host.stop()
			c.host.close()
			c.host = nil
		}
	}

	c.destroyed = true
	if err := c.decoder.Close(); err != nil {
		slog.Warn("failed to close decoder", "error", err)
	}
	return nil
}

// State returns the Controller's current player state.
func (c *Controller) State() PlayerState {
	return PlayerState(c.state.Load())
}

// PlayedFrames returns the producer's current absolute decode position:
// the number of frames it has read from the decoder in the current
// playback session, reset to the post-seek position whenever a seek
// completes.
func (c *Controller) PlayedFrames() uint64 {
	return c.playedFrames.Load()
}

// Underruns returns the number of callback cycles that emitted silence
// because the ring was empty.
func (c *Controller) Underruns() uint64 {
	return c.underruns.Load()
}

// Completed reports whether the callback has drained the final block of
// the current source. Unlike State, it is not cleared by Stop/Destroy,
// so callers can distinguish "played to the end" from "stopped early".
func (c *Controller) Completed() bool {
	return c.completed.Load()
}

// GetPlaybackStatus implements types.PlaybackMonitor.
func (c *Controller) GetPlaybackStatus() types.PlaybackStatus {
	c.mu.Lock()
	elapsed := time.Duration(0)
	if !c.startTime.IsZero() {
		elapsed = time.Since(c.startTime)
	}
	fileName := c.fileName
	c.mu.Unlock()

	return types.PlaybackStatus{
		FileName:       fileName,
		SampleRate:     c.info.SampleRate,
		Channels:       c.info.Channels,
		FramesPerBlock: c.cfg.FramesPerBlock,
		State:          c.State().String(),
		PlayedFrames:   c.playedFrames.Load(),
		Underruns:      c.underruns.Load(),
		ElapsedTime:    elapsed,
	}
}
