// Package wav decodes PCM WAV files into interleaved float32 frames.
//
// No library in the dependency pack exposes the frame-addressable,
// arbitrary-seek contract types.AudioDecoder requires (the teacher's
// github.com/youpy/go-wav only walks forward sample-by-sample with no
// Seek), so this adapter parses the RIFF/WAVE container directly with
// encoding/binary and os, and seeks by computing a byte offset from the
// data chunk's start — WAV's fixed block alignment makes that exact.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/drgolem/ringplayer/pkg/types"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// Decoder implements types.AudioDecoder for uncompressed PCM/float WAV.
type Decoder struct {
	file *os.File

	dataOffset int64
	dataSize   int64
	blockAlign int

	info     types.DecoderInfo
	bits     int
	floatFmt bool

	framePos int64
	rawBuf   []byte
}

// NewDecoder creates an unopened WAV decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Open(fileName string) error {
	f, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("open wav: %w", err)
	}

	if err := d.parseHeader(f); err != nil {
		f.Close()
		return err
	}

	d.file = f
	d.framePos = 0
	return nil
}

func (d *Decoder) parseHeader(f *os.File) error {
	var riffHdr [12]byte
	if _, err := io.ReadFull(f, riffHdr[:]); err != nil {
		return fmt.Errorf("read riff header: %w", err)
	}
	if string(riffHdr[0:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return errors.New("not a RIFF/WAVE file")
	}

	var haveFmt, haveData bool
	var channels, rate, bitsPerSample int
	var formatTag uint16

	for !(haveFmt && haveData) {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(f, chunkHdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHdr[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHdr[4:8]))

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, body); err != nil {
				return fmt.Errorf("read fmt chunk: %w", err)
			}
			formatTag = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			rate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
			if chunkSize%2 != 0 {
				f.Seek(1, io.SeekCurrent)
			}
		case "data":
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return fmt.Errorf("seek data chunk: %w", err)
			}
			d.dataOffset = pos
			d.dataSize = chunkSize
			haveData = true
			if !haveFmt {
				// fmt not seen yet; keep scanning past data for it,
				// remembering where data starts
				if _, err := f.Seek(chunkSize+chunkSize%2, io.SeekCurrent); err != nil {
					return fmt.Errorf("skip data chunk: %w", err)
				}
			}
		default:
			if _, err := f.Seek(chunkSize+chunkSize%2, io.SeekCurrent); err != nil {
				return fmt.Errorf("skip chunk %s: %w", chunkID, err)
			}
		}
	}

	if !haveFmt || !haveData {
		return errors.New("wav: missing fmt or data chunk")
	}
	if formatTag != formatPCM && formatTag != formatIEEEFloat {
		return fmt.Errorf("wav: unsupported format tag %d", formatTag)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 24 && bitsPerSample != 32 {
		return fmt.Errorf("wav: unsupported bits per sample %d", bitsPerSample)
	}

	d.blockAlign = channels * (bitsPerSample / 8)
	d.bits = bitsPerSample
	d.floatFmt = formatTag == formatIEEEFloat
	d.info = types.DecoderInfo{
		Channels:    channels,
		SampleRate:  rate,
		TotalFrames: d.dataSize / int64(d.blockAlign),
	}

	// seek back to the start of the data chunk so streaming begins there
	if _, err := f.Seek(d.dataOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to data: %w", err)
	}
	return nil
}

func (d *Decoder) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *Decoder) Info() types.DecoderInfo {
	return d.info
}

func (d *Decoder) ReadFrames(dst []float32) (int, error) {
	if d.file == nil {
		return 0, errors.New("wav: decoder not open")
	}

	channels := d.info.Channels
	framesRequested := len(dst) / channels
	if framesRequested == 0 {
		return 0, nil
	}

	remainingFrames := d.info.TotalFrames - d.framePos
	if remainingFrames <= 0 {
		return 0, nil
	}
	toRead := framesRequested
	if int64(toRead) > remainingFrames {
		toRead = int(remainingFrames)
	}

	byteCount := toRead * d.blockAlign
	if cap(d.rawBuf) < byteCount {
		d.rawBuf = make([]byte, byteCount)
	}
	buf := d.rawBuf[:byteCount]

	n, err := io.ReadFull(d.file, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("read wav data: %w", err)
	}
	framesRead := n / d.blockAlign
	d.framePos += int64(framesRead)

	bytesPerSample := d.bits / 8
	for s := 0; s < framesRead*channels; s++ {
		off := s * bytesPerSample
		dst[s] = decodeSample(buf[off:off+bytesPerSample], d.bits, d.floatFmt)
	}

	return framesRead, nil
}

func decodeSample(b []byte, bits int, isFloat bool) float32 {
	switch {
	case isFloat && bits == 32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case bits == 8:
		return (float32(b[0]) - 128) / 128
	case bits == 16:
		v := int16(binary.LittleEndian.Uint16(b))
		return float32(v) / 32768
	case bits == 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= -1 << 24
		}
		return float32(v) / 8388608
	case bits == 32:
		v := int32(binary.LittleEndian.Uint32(b))
		return float32(v) / 2147483648
	default:
		return 0
	}
}

// Seek repositions the read cursor by frame count. offset/whence follow
// io.Seeker conventions, counted in frames rather than bytes.
func (d *Decoder) Seek(offset int64, whence int) (int64, error) {
	if d.file == nil {
		return 0, errors.New("wav: decoder not open")
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
		return 0, fmt.Errorf("wav: invalid whence %d", whence)
	}
	if target < 0 {
		target = 0
	}
	if target > d.info.TotalFrames {
		target = d.info.TotalFrames
	}

	bytePos := d.dataOffset + target*int64(d.blockAlign)
	if _, err := d.file.Seek(bytePos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("wav seek: %w", err)
	}
	d.framePos = target
	return target, nil
}
