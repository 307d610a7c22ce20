package engine

import (
	"io"
	"sync/atomic"
	"testing"
	"time"
)

// countingDecoder is a minimal decoderHandle that reports end of stream
// after totalFrames samples, counting the seeks it receives.
type countingDecoder struct {
	totalFrames int
	pos         int64
	seekCount   atomic.Int32
}

func (d *countingDecoder) ReadFrames(dst []float32) (int, error) {
	remaining := int64(d.totalFrames) - d.pos
	if remaining <= 0 {
		return 0, nil
	}
	n := int64(len(dst))
	if n > remaining {
		n = remaining
	}
	d.pos += n
	return int(n), nil
}

func (d *countingDecoder) Seek(offset int64, whence int) (int64, error) {
	d.seekCount.Add(1)
	switch whence {
	case io.SeekStart:
		d.pos = offset
	case io.SeekCurrent:
		d.pos += offset
	case io.SeekEnd:
		d.pos = int64(d.totalFrames) + offset
	}
	return d.pos, nil
}

func newTestProducer(dec decoderHandle, framesPerBlock, maxBlocks int) (*producerTask, *ring, chan struct{}, *atomic.Bool) {
	r := newRing(maxBlocks, framesPerBlock, 1)
	shutdownCh := make(chan struct{})
	var shutdown atomic.Bool
	var playedFrames atomic.Uint64
	p := newProducerTask(dec, r, &seekRequest{}, newWake(), shutdownCh, &shutdown, 10*time.Millisecond, &playedFrames)
	return p, r, shutdownCh, &shutdown
}

func TestProducerFillsRingThenIdles(t *testing.T) {
	dec := &countingDecoder{totalFrames: 32}
	p, r, shutdownCh, shutdown := newTestProducer(dec, 8, 4)

	go p.run()
	defer func() {
		shutdown.Store(true)
		close(shutdownCh)
		<-p.done
	}()

	deadline := time.After(time.Second)
	for r.availableBlocks() < 4 {
		select {
		case <-deadline:
			t.Fatalf("ring never filled, available=%d", r.availableBlocks())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestProducerSeekRequestAppliesAndSignalsDone(t *testing.T) {
	dec := &countingDecoder{totalFrames: 1024}
	p, r, shutdownCh, shutdown := newTestProducer(dec, 8, 2)

	go p.run()
	defer func() {
		shutdown.Store(true)
		close(shutdownCh)
		<-p.done
	}()

	// Let the ring fill first so the producer decodes nothing further
	// after the seek and playedFrames stays at the seek target.
	deadline := time.After(time.Second)
	for r.availableBlocks() < 2 {
		select {
		case <-deadline:
			t.Fatal("ring never filled")
		case <-time.After(time.Millisecond):
		}
	}

	if err := p.seekReq.request(p.wake, 100, io.SeekStart); err != nil {
		t.Fatalf("seek request: %v", err)
	}
	if got := dec.seekCount.Load(); got != 1 {
		t.Fatalf("seekCount = %d, want 1", got)
	}
	if got := p.playedFrames.Load(); got != 100 {
		t.Fatalf("playedFrames after seek = %d, want 100", got)
	}
}

func TestProducerTracksPlayedFramesAsItDecodes(t *testing.T) {
	dec := &countingDecoder{totalFrames: 64}
	p, r, shutdownCh, shutdown := newTestProducer(dec, 8, 2)

	go p.run()
	defer func() {
		shutdown.Store(true)
		close(shutdownCh)
		<-p.done
	}()

	deadline := time.After(time.Second)
	for p.playedFrames.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("playedFrames never advanced")
		case <-time.After(time.Millisecond):
		}
	}
	if got := p.playedFrames.Load(); got == 0 || got > uint64(dec.totalFrames) {
		t.Fatalf("playedFrames = %d, want in (0, %d]", got, dec.totalFrames)
	}
	_ = r
}

// TestProducerSeekWakesPromptlyWhenRingIsFull uses an hour-long wake
// timeout so the only way the seek can complete quickly is via an
// actual wake signal, not the idle-wait poll.
func TestProducerSeekWakesPromptlyWhenRingIsFull(t *testing.T) {
	dec := &countingDecoder{totalFrames: 1 << 20}
	r := newRing(2, 8, 1)
	shutdownCh := make(chan struct{})
	var shutdown atomic.Bool
	var playedFrames atomic.Uint64
	p := newProducerTask(dec, r, &seekRequest{}, newWake(), shutdownCh, &shutdown, time.Hour, &playedFrames)

	go p.run()
	defer func() {
		shutdown.Store(true)
		close(shutdownCh)
		<-p.done
	}()

	deadline := time.After(time.Second)
	for r.availableBlocks() < 2 {
		select {
		case <-deadline:
			t.Fatal("ring never filled")
		case <-time.After(time.Millisecond):
		}
	}

	start := time.Now()
	if err := p.seekReq.request(p.wake, 500, io.SeekStart); err != nil {
		t.Fatalf("seek request: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("seek took %v with a full ring and an hour-long wake timeout; wake signal was not delivered", elapsed)
	}
}

func TestProducerResumesAfterSeekPastEndOfStream(t *testing.T) {
	dec := &countingDecoder{totalFrames: 8}
	p, r, shutdownCh, shutdown := newTestProducer(dec, 8, 2)

	go p.run()
	defer func() {
		shutdown.Store(true)
		close(shutdownCh)
		<-p.done
	}()

	deadline := time.After(time.Second)
	for !p.finished.Load() {
		select {
		case <-deadline:
			t.Fatal("producer never reached end of stream")
		case <-time.After(time.Millisecond):
		}
	}

	// Drain the EOF marker block so a fresh producerSlot is available
	// after the seek rewinds the stream.
	for r.availableBlocks() > 0 {
		r.release()
	}

	if err := p.seekReq.request(p.wake, 0, io.SeekStart); err != nil {
		t.Fatalf("seek request: %v", err)
	}

	deadline = time.After(time.Second)
	for r.availableBlocks() == 0 {
		select {
		case <-deadline:
			t.Fatal("producer did not resume producing after seek")
		case <-time.After(time.Millisecond):
		}
	}
}
