package engine

import "sync/atomic"

// block is one fixed-size slot of interleaved float32 audio frames. The
// slice is allocated once, sized for FramesPerBlock*Channels samples, and
// reused for the lifetime of the Ring: the producer overwrites it in
// place rather than allocating a new block per fill.
type block struct {
	samples []float32 // interleaved, length == framesPerBlock*channels
	frames  int       // valid frame count in samples, <= framesPerBlock
	last    bool       // true if this block ends the stream (decoder EOF)
}

// ring is the bounded single-producer/single-consumer queue of decoded
// blocks sitting between the producer task and the output callback. It
// is not a byte ring: capacity is counted in whole blocks, matching the
// engine's block-oriented pipeline rather than a byte-addressable stream.
//
// head is advanced only by the consumer (the realtime callback), tail
// only by the producer. available is the single point of cross-thread
// synchronization: the producer release-stores it after publishing a
// block's contents, and the callback acquire-loads it before reading.
type ring struct {
	blocks    []block
	capacity  int
	head      int // next slot the callback will consume
	tail      int // next slot the producer will fill
	available atomic.Int32
}

func newRing(capacity, framesPerBlock, channels int) *ring {
	if capacity < 2 {
		capacity = 2
	}
	r := &ring{
		blocks:   make([]block, capacity),
		capacity: capacity,
	}
	for i := range r.blocks {
		r.blocks[i].samples = make([]float32, framesPerBlock*channels)
	}
	return r
}

// reset returns the ring to its initial empty state. Only safe to call
// when the producer and callback are both quiesced (engine stopped).
func (r *ring) reset() {
	r.head = 0
	r.tail = 0
	r.available.Store(0)
}

// producerSlot returns the block the producer may fill next, or false if
// the ring is full. Must only be called from the producer task.
func (r *ring) producerSlot() (*block, bool) {
	if int(r.available.Load()) >= r.capacity {
		return nil, false
	}
	return &r.blocks[r.tail], true
}

// publish makes the just-filled producer slot visible to the callback.
// The release semantics of the atomic add ensure the block's contents
// (written before this call) are visible to the callback's subsequent
// acquire-load of available.
func (r *ring) publish() {
	r.tail = (r.tail + 1) % r.capacity
	r.available.Add(1)
}

// consumerSlot returns the next block for the callback to drain, or
// false if the ring is empty. Must only be called from the realtime
// callback.
func (r *ring) consumerSlot() (*block, bool) {
	if r.available.Load() == 0 {
		return nil, false
	}
	return &r.blocks[r.head], true
}

// release returns a drained slot to the producer.
func (r *ring) release() {
	r.head = (r.head + 1) % r.capacity
	r.available.Add(-1)
}

// availableBlocks reports how many filled blocks are waiting for the
// callback, for status reporting only.
func (r *ring) availableBlocks() int {
	return int(r.available.Load())
}
