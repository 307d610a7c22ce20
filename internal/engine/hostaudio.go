package engine

import (
	"encoding/binary"
	"math"

	"github.com/drgolem/go-portaudio/portaudio"
)

// hostStream wraps the PortAudio callback stream, translating between the
// engine's interleaved float32 blocks and the raw byte buffers the host
// callback contract deals in. Isolating this conversion here keeps
// audioCallback itself free of host-binding details.
type hostStream struct {
	stream       *portaudio.PaStream
	channels     int
	bytesPerSamp int
}

// callbackFunc matches the host binding's realtime pull-callback
// signature.
type callbackFunc func(input, output []byte, frameCount uint, timeInfo *portaudio.StreamCallbackTimeInfo, statusFlags portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult

// openHostStream opens and starts a PortAudio callback stream for the
// given device/channels/sample rate, delivering frames to cb.
func openHostStream(deviceIndex, channels int, sampleRate float64, framesPerBuffer int, latencySeconds float64, cb callbackFunc) (*hostStream, error) {
	params := &portaudio.PaStreamParameters{
		DeviceIndex:  deviceIndex,
		ChannelCount: channels,
		SampleFormat: portaudio.SampleFmtFloat32,
	}
	if latencySeconds > 0 {
		params.SuggestedLatency = latencySeconds
	}

	stream := &portaudio.PaStream{
		OutputParameters: params,
		SampleRate:       sampleRate,
	}

	if err := stream.OpenCallback(framesPerBuffer, cb); err != nil {
		return nil, &StreamError{Op: "open", Cause: err}
	}
	if err := stream.StartStream(); err != nil {
		stream.CloseCallback()
		return nil, &StreamError{Op: "start", Cause: err}
	}

	return &hostStream{
		stream:       stream,
		channels:     channels,
		bytesPerSamp: 4,
	}, nil
}

func (h *hostStream) stop() error {
	if h == nil || h.stream == nil {
		return nil
	}
	if err := h.stream.StopStream(); err != nil {
		return &StreamError{Op: "stop", Cause: err}
	}
	return nil
}

func (h *hostStream) close() error {
	if h == nil || h.stream == nil {
		return nil
	}
	if err := h.stream.CloseCallback(); err != nil {
		return &StreamError{Op: "close", Cause: err}
	}
	h.stream = nil
	return nil
}

// writeFloat32 encodes interleaved float32 samples into a little-endian
// byte buffer, the wire format PortAudio's float32 sample format expects.
// No allocation: dst must already be sized for len(samples)*4 bytes, which
// holds in the realtime callback since output is supplied by the host.
func writeFloat32(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// silence fills dst with zero-valued float32 samples.
func silence(dst []byte) {
	clear(dst)
}

// Device describes one PortAudio output device, as reported by
// portaudio.GetDeviceInfo.
type Device struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// ListDevices enumerates available output devices. PortAudio must already
// be initialized by the caller (engine.Initialize).
func ListDevices() ([]Device, error) {
	count, err := portaudio.GetDeviceCount()
	if err != nil {
		return nil, &StreamError{Op: "enumerate devices", Cause: err}
	}

	defaultIdx, _ := portaudio.GetDefaultOutputDevice()

	devices := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		info, err := portaudio.GetDeviceInfo(i)
		if err != nil {
			continue
		}
		if info.MaxOutputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:      i,
			Name:       info.Name,
			Channels:   info.MaxOutputChannels,
			SampleRate: info.DefaultSampleRate,
			Default:    i == defaultIdx,
		})
	}
	return devices, nil
}

// Initialize initializes the host audio library. Must be called once
// before any stream is opened or device enumerated.
func Initialize() error {
	return portaudio.Initialize()
}

// Terminate releases host audio library resources.
func Terminate() error {
	return portaudio.Terminate()
}
