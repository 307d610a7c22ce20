// Package mp3 decodes MP3 files into interleaved float32 frames using
// github.com/imcarsen/go-mp3, which decodes straight to 16-bit stereo
// PCM and exposes an io.Seeker over that decoded stream.
package mp3

import (
	"errors"
	"fmt"
	"io"
	"os"

	gomp3 "github.com/imcarsen/go-mp3"

	"github.com/drgolem/ringplayer/pkg/types"
)

const (
	mp3Channels      = 2 // go-mp3 always decodes to stereo
	bytesPerPCMFrame = mp3Channels * 2
)

// Decoder implements types.AudioDecoder for MP3 sources.
type Decoder struct {
	file *os.File
	dec  *gomp3.Decoder

	info     types.DecoderInfo
	framePos int64
	rawBuf   []byte
}

// NewDecoder creates an unopened MP3 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(fileName string) error {
	f, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("open mp3: %w", err)
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("mp3 decode init: %w", err)
	}

	d.file = f
	d.dec = dec
	d.info = types.DecoderInfo{
		Channels:    mp3Channels,
		SampleRate:  dec.SampleRate(),
		TotalFrames: dec.Length() / bytesPerPCMFrame,
	}
	d.framePos = 0
	return nil
}

func (d *Decoder) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.dec = nil
	return err
}

func (d *Decoder) Info() types.DecoderInfo {
	return d.info
}

func (d *Decoder) ReadFrames(dst []float32) (int, error) {
	if d.dec == nil {
		return 0, errors.New("mp3: decoder not open")
	}

	framesRequested := len(dst) / mp3Channels
	if framesRequested == 0 {
		return 0, nil
	}

	byteCount := framesRequested * bytesPerPCMFrame
	if cap(d.rawBuf) < byteCount {
		d.rawBuf = make([]byte, byteCount)
	}
	buf := d.rawBuf[:byteCount]

	n, err := io.ReadFull(d.dec, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("mp3 read: %w", err)
	}

	framesRead := n / bytesPerPCMFrame
	d.framePos += int64(framesRead)

	for s := 0; s < framesRead*mp3Channels; s++ {
		off := s * 2
		v := int16(uint16(buf[off]) | uint16(buf[off+1])<<8)
		dst[s] = float32(v) / 32768
	}

	return framesRead, nil
}

// Seek repositions the decode cursor by frame count, translating to the
// byte offset go-mp3's io.Seeker expects (4 bytes per stereo 16-bit
// frame in either direction, so the same multiplier applies to
// SeekCurrent deltas as to SeekStart/SeekEnd absolutes).
func (d *Decoder) Seek(offset int64, whence int) (int64, error) {
	if d.dec == nil {
		return 0, errors.New("mp3: decoder not open")
	}

	bytePos, err := d.dec.Seek(offset*bytesPerPCMFrame, whence)
	if err != nil {
		return 0, fmt.Errorf("mp3 seek: %w", err)
	}

	d.framePos = bytePos / bytesPerPCMFrame
	return d.framePos, nil
}
