// Package vorbis decodes Ogg/Vorbis files into interleaved float32
// frames using github.com/jfreymuth/oggvorbis, which decodes straight
// to float32 and exposes frame-accurate SetPosition/Length — the
// teacher never handled this format, so this adapter is new.
package vorbis

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/drgolem/ringplayer/pkg/types"
)

// Decoder implements types.AudioDecoder for Ogg/Vorbis sources.
type Decoder struct {
	file   *os.File
	reader *oggvorbis.Reader

	info     types.DecoderInfo
	framePos int64
}

// NewDecoder creates an unopened Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(fileName string) error {
	f, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("open vorbis: %w", err)
	}

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("vorbis decode init: %w", err)
	}

	d.file = f
	d.reader = r
	d.info = types.DecoderInfo{
		Channels:    r.Channels(),
		SampleRate:  r.SampleRate(),
		TotalFrames: r.Length(),
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
	d.reader = nil
	return err
}

func (d *Decoder) Info() types.DecoderInfo {
	return d.info
}

func (d *Decoder) ReadFrames(dst []float32) (int, error) {
	if d.reader == nil {
		return 0, errors.New("vorbis: decoder not open")
	}

	channels := d.info.Channels
	n, err := d.reader.Read(dst)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("vorbis decode: %w", err)
	}

	framesRead := n / channels
	d.framePos += int64(framesRead)
	return framesRead, nil
}

// Seek repositions the decode cursor to the given frame index via the
// reader's native SetPosition.
func (d *Decoder) Seek(offset int64, whence int) (int64, error) {
	if d.reader == nil {
		return 0, errors.New("vorbis: decoder not open")
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.framePos + offset
	case io.SeekEnd:
		target = d.info.TotalFrames + offset
	default:
		return 0, fmt.Errorf("vorbis: invalid whence %d", whence)
	}
	if target < 0 {
		target = 0
	}
	if target > d.info.TotalFrames {
		target = d.info.TotalFrames
	}

	if err := d.reader.SetPosition(target); err != nil {
		return 0, fmt.Errorf("vorbis seek: %w", err)
	}

	d.framePos = target
	return target, nil
}
