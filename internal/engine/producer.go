package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// seekRequest is the mailbox the controller uses to hand a pending seek
// to the producer task. mu serializes Seek calls so only one handshake
// is ever in flight; offset/whence are plain fields, safe to read from
// the producer without synchronization of their own because the
// release-store of pending (by the controller) happens-after they are
// written, and the producer's acquire-load of pending happens-before it
// reads them.
type seekRequest struct {
	mu      sync.Mutex
	pending atomic.Bool
	offset  int64
	whence  int
	done    chan struct{}
	lastErr error
}

// request hands a new seek to the producer and blocks until it has
// applied the decoder cursor move. It does not wait for the producer to
// decode and publish the next block — only for the cursor itself to
// move, per the completion signal the controller observes. Signaling w
// wakes the producer immediately if it is parked waiting for a free
// ring slot or idling past end of stream, instead of leaving the seek
// to wait out WakeTimeout.
func (sr *seekRequest) request(w wake, offset int64, whence int) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.offset = offset
	sr.whence = whence
	sr.done = make(chan struct{})
	sr.pending.Store(true)
	w.signal()

	<-sr.done
	return sr.lastErr
}

// producerTask fills a ring from a decoder, servicing seek requests
// between fill cycles. It owns the decoder and the ring's producer side
// for one playback session: the Controller creates a new task on each
// Play from Stopped and joins it on Stop or Destroy.
type producerTask struct {
	decoder      decoderHandle
	ring         *ring
	seekReq      *seekRequest
	wake         wake
	shutdown     *atomic.Bool
	shutdownCh   chan struct{}
	wakeTimeout  time.Duration
	done         chan struct{}
	playedFrames *atomic.Uint64

	finished atomic.Bool
}

// decoderHandle is the subset of types.AudioDecoder the producer uses,
// named locally so producer.go doesn't need to import pkg/types.
type decoderHandle interface {
	ReadFrames(dst []float32) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

func newProducerTask(decoder decoderHandle, r *ring, seekReq *seekRequest, w wake, shutdownCh chan struct{}, shutdown *atomic.Bool, wakeTimeout time.Duration, playedFrames *atomic.Uint64) *producerTask {
	return &producerTask{
		decoder:      decoder,
		ring:         r,
		seekReq:      seekReq,
		wake:         w,
		shutdown:     shutdown,
		shutdownCh:   shutdownCh,
		wakeTimeout:  wakeTimeout,
		done:         make(chan struct{}),
		playedFrames: playedFrames,
	}
}

// run is the producer loop body, launched in its own goroutine by the
// Controller. It exits only when shutdown is observed, closing done. When
// the decoder reaches end of stream it publishes a final empty block and
// then idles, waking on the wake channel or WakeTimeout so that a later
// seek can resume decoding.
func (p *producerTask) run() {
	defer close(p.done)

	for {
		if p.shutdown.Load() {
			return
		}

		if p.seekReq.pending.Load() {
			pos, err := p.decoder.Seek(p.seekReq.offset, p.seekReq.whence)
			p.seekReq.lastErr = err
			p.seekReq.pending.Store(false)
			close(p.seekReq.done)
			if err != nil {
				slog.Warn("seek failed", "error", err)
			} else {
				p.playedFrames.Store(uint64(pos))
				p.finished.Store(false)
			}
			continue
		}

		if p.finished.Load() {
			select {
			case <-p.shutdownCh:
				return
			case <-p.wake.chanOf():
			case <-time.After(p.wakeTimeout):
			}
			continue
		}

		slot, ok := p.ring.producerSlot()
		if !ok {
			select {
			case <-p.wake.chanOf():
			case <-time.After(p.wakeTimeout):
			case <-p.shutdownCh:
				return
			}
			continue
		}

		n, err := p.decoder.ReadFrames(slot.samples)
		if err != nil {
			slog.Warn("decode error, treating as end of stream", "error", err)
			n = 0
		}
		if n == 0 {
			slot.frames = 0
			slot.last = true
			p.ring.publish()
			p.finished.Store(true)
			continue
		}

		slot.frames = n
		slot.last = false
		p.ring.publish()
		p.playedFrames.Add(uint64(n))
	}
}
