package engine

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/drgolem/ringplayer/pkg/types"
)

// fakeDecoder is an in-memory types.AudioDecoder backed by a slice of
// interleaved mono samples, generated so each frame is its own index
// value — cheap to assert on without needing a real audio file.
type fakeDecoder struct {
	mu     sync.Mutex
	opened bool
	closed bool

	samples []float32 // one channel, one sample per frame
	pos     int64
}

func newFakeDecoder(frames int) *fakeDecoder {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(i)
	}
	return &fakeDecoder{samples: samples}
}

func (f *fakeDecoder) Open(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	return nil
}

func (f *fakeDecoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeDecoder) Info() types.DecoderInfo {
	return types.DecoderInfo{
		Channels:    1,
		SampleRate:  44100,
		TotalFrames: int64(len(f.samples)),
	}
}

func (f *fakeDecoder) ReadFrames(dst []float32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	remaining := int64(len(f.samples)) - f.pos
	if remaining <= 0 {
		return 0, nil
	}
	n := int64(len(dst))
	if n > remaining {
		n = remaining
	}
	copy(dst[:n], f.samples[f.pos:f.pos+n])
	f.pos += n
	return int(n), nil
}

func (f *fakeDecoder) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos + offset
	case io.SeekEnd:
		target = int64(len(f.samples)) + offset
	}
	f.pos = target
	return target, nil
}

// fakeOpenStream stands in for openHostStream in tests: it never touches
// real host audio, and returns a *hostStream whose nil stream field makes
// stop/close safe no-ops.
func fakeOpenStream(deviceIndex, channels int, sampleRate float64, framesPerBuffer int, latencySeconds float64, cb callbackFunc) (*hostStream, error) {
	return &hostStream{channels: channels, bytesPerSamp: 4}, nil
}

func newTestController(t *testing.T, frames int) (*Controller, *fakeDecoder) {
	t.Helper()
	dec := newFakeDecoder(frames)
	cfg := DefaultConfig()
	cfg.FramesPerBlock = 16
	cfg.MaxBlocks = 4
	cfg.WakeTimeout = 10 * time.Millisecond
	cfg.DestroyTimeout = time.Second

	c, err := Create("fake.raw", dec, cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c.openStream = fakeOpenStream
	return c, dec
}

func TestControllerPlayPauseResume(t *testing.T) {
	c, _ := newTestController(t, 256)
	defer c.Destroy()

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := c.State(); got != StatePlaying {
		t.Fatalf("state after Play = %v, want playing", got)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := c.State(); got != StatePaused {
		t.Fatalf("state after Pause = %v, want paused", got)
	}

	if err := c.Play(); err != nil {
		t.Fatalf("resume Play: %v", err)
	}
	if got := c.State(); got != StatePlaying {
		t.Fatalf("state after resume = %v, want playing", got)
	}
}

func TestControllerPauseFromStoppedIsInvalid(t *testing.T) {
	c, _ := newTestController(t, 64)
	defer c.Destroy()

	if err := c.Pause(); err == nil {
		t.Fatal("expected error pausing from stopped")
	}
}

func TestControllerStopResetsPositionAndState(t *testing.T) {
	c, dec := newTestController(t, 256)
	defer c.Destroy()

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := c.State(); got != StateStopped {
		t.Fatalf("state after Stop = %v, want stopped", got)
	}

	dec.mu.Lock()
	pos := dec.pos
	dec.mu.Unlock()
	if pos != 0 {
		t.Fatalf("decoder position after Stop = %d, want 0", pos)
	}
	if got := c.PlayedFrames(); got != 0 {
		t.Fatalf("PlayedFrames after Stop = %d, want 0", got)
	}
}

func TestControllerSeekWhileStoppedIsInvalid(t *testing.T) {
	c, _ := newTestController(t, 64)
	defer c.Destroy()

	if err := c.Seek(0, io.SeekStart); err == nil {
		t.Fatal("expected error seeking while stopped")
	}
}

func TestControllerSeekWhilePlaying(t *testing.T) {
	c, dec := newTestController(t, 256)
	defer c.Destroy()

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	// No callback drains the ring here, so once it is full the producer
	// decodes nothing further after the seek.
	deadline := time.After(time.Second)
	for c.ring.availableBlocks() < c.cfg.MaxBlocks {
		select {
		case <-deadline:
			t.Fatal("ring never filled after Play")
		case <-time.After(time.Millisecond):
		}
	}

	if err := c.Seek(32, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	dec.mu.Lock()
	pos := dec.pos
	dec.mu.Unlock()
	if pos != 32 {
		t.Fatalf("decoder position after Seek = %d, want 32", pos)
	}
	if got := c.PlayedFrames(); got != 32 {
		t.Fatalf("PlayedFrames after Seek = %d, want 32 (invariant: seek(k) => played_frames()==k)", got)
	}
}

func TestControllerDestroyIsIdempotent(t *testing.T) {
	c, dec := newTestController(t, 64)

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("first Destroy: %v", err)
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}

	dec.mu.Lock()
	closed := dec.closed
	dec.mu.Unlock()
	if !closed {
		t.Fatal("expected decoder to be closed after Destroy")
	}

	if err := c.Play(); err != ErrDestroyed {
		t.Fatalf("Play after Destroy = %v, want ErrDestroyed", err)
	}
}

func TestControllerCallbackDeliversSilenceWhenNotPlaying(t *testing.T) {
	c, _ := newTestController(t, 64)
	defer c.Destroy()

	output := make([]byte, 16*4)
	for i := range output {
		output[i] = 0xFF
	}

	result := c.audioCallback(nil, output, 16, nil, 0)
	if result != portaudio.Continue {
		t.Fatalf("callback result = %v, want Continue", result)
	}
	for i, b := range output {
		if b != 0 {
			t.Fatalf("output[%d] = %d, want 0 (silence) while not playing", i, b)
		}
	}
}

func TestControllerCallbackCountsUnderrunOnEmptyRing(t *testing.T) {
	c, _ := newTestController(t, 64)
	defer c.Destroy()

	c.state.Store(int32(StatePlaying))
	output := make([]byte, 16*4)

	c.audioCallback(nil, output, 16, nil, 0)

	if got := c.Underruns(); got != 1 {
		t.Fatalf("underruns = %d, want 1", got)
	}
}

func TestControllerCallbackDrainsProducedBlock(t *testing.T) {
	c, _ := newTestController(t, 64)
	defer c.Destroy()

	c.state.Store(int32(StatePlaying))

	slot, ok := c.ring.producerSlot()
	if !ok {
		t.Fatal("expected a producer slot")
	}
	for i := range slot.samples {
		slot.samples[i] = float32(i + 1)
	}
	slot.frames = len(slot.samples)
	slot.last = false
	c.ring.publish()

	output := make([]byte, len(slot.samples)*4)
	c.audioCallback(nil, output, uint(len(slot.samples)), nil, 0)

	if got := c.Underruns(); got != 0 {
		t.Fatalf("underruns = %d, want 0", got)
	}
	if c.consumeOffset != 0 {
		t.Fatalf("consumeOffset = %d, want 0 after draining the whole block", c.consumeOffset)
	}
}

// TestControllerPlayedFramesTracksProducerDecodePosition exercises the
// full Play path (real producer goroutine) and checks that PlayedFrames
// is the producer's decode position, not a count of frames the callback
// has emitted to the host.
func TestControllerPlayedFramesTracksProducerDecodePosition(t *testing.T) {
	c, _ := newTestController(t, 4096)
	defer c.Destroy()

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	deadline := time.After(time.Second)
	for c.PlayedFrames() == 0 {
		select {
		case <-deadline:
			t.Fatal("PlayedFrames never advanced after Play")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestControllerGetPlaybackStatus(t *testing.T) {
	c, _ := newTestController(t, 128)
	defer c.Destroy()

	status := c.GetPlaybackStatus()
	if status.FileName != "fake.raw" {
		t.Errorf("FileName = %q, want fake.raw", status.FileName)
	}
	if status.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", status.SampleRate)
	}
	if status.State != "stopped" {
		t.Errorf("State = %q, want stopped", status.State)
	}

	if err := c.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	status = c.GetPlaybackStatus()
	if status.State != "playing" {
		t.Errorf("State after Play = %q, want playing", status.State)
	}
}
