package types

import "time"

// DecoderInfo describes the format of a decoded audio source: channel
// count, sample rate, and total frame count. TotalFrames is -1 when a
// source cannot report its length up front (e.g. some compressed streams).
type DecoderInfo struct {
	Channels    int
	SampleRate  int
	TotalFrames int64
}

// AudioDecoder is the contract the engine's producer task uses to pull
// decoded audio: an opaque, seekable source of interleaved float32 frames.
// Implementations are only ever called from the engine's producer
// goroutine and need not be safe for concurrent use.
type AudioDecoder interface {
	// Open opens an audio file for decoding.
	Open(fileName string) error

	// Close releases resources held by the decoder.
	Close() error

	// Info returns the decoder's format. Valid only after Open succeeds.
	Info() DecoderInfo

	// ReadFrames decodes up to len(dst)/Info().Channels frames into dst,
	// interleaved by channel, and returns the number of frames actually
	// written. A return of 0 frames with a nil error signals end of stream.
	ReadFrames(dst []float32) (int, error)

	// Seek repositions the decode cursor. whence is one of io.SeekStart,
	// io.SeekCurrent, io.SeekEnd as for io.Seeker, but offset and the
	// returned position are counted in frames rather than bytes. It
	// returns the absolute frame index after seeking.
	Seek(offset int64, whence int) (int64, error)
}

// PlaybackStatus holds a snapshot of engine playback state for monitoring
// and CLI status reporting.
type PlaybackStatus struct {
	FileName       string
	SampleRate     int
	Channels       int
	FramesPerBlock int
	State          string // "stopped" | "paused" | "playing"
	PlayedFrames   uint64
	Underruns      uint64
	ElapsedTime    time.Duration
}

// PlaybackMonitor is implemented by anything that can report its current
// playback status, allowing a single CLI status reporter to work across
// player implementations.
type PlaybackMonitor interface {
	GetPlaybackStatus() PlaybackStatus
}
