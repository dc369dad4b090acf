package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/JxyV/Museum-RAG/audio"
)

const captureFrames = 1024

// Recorder captures microphone audio into the canonical WAV container.
// Record blocks the caller for roughly the requested duration.
type Recorder struct {
	logger *log.Logger
}

func NewRecorder(logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{logger: logger}
}

// Record captures duration worth of mono 16 kHz 16-bit PCM from the default
// input device and returns it WAV-wrapped. An unavailable device yields a
// *DeviceError. The context is only checked between buffer reads.
func (r *Recorder) Record(ctx context.Context, duration time.Duration) ([]byte, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("record duration must be positive")
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, &DeviceError{Op: "initialize", Err: err}
	}
	defer portaudio.Terminate()

	frame := make([]int16, captureFrames)
	stream, err := portaudio.OpenDefaultStream(audio.Channels, 0, float64(audio.SampleRate), len(frame), frame)
	if err != nil {
		return nil, &DeviceError{Op: "open input stream", Err: err}
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, &DeviceError{Op: "start input stream", Err: err}
	}
	defer stream.Stop()

	wantSamples := int(float64(audio.SampleRate) * duration.Seconds())
	pcm := make([]byte, 0, wantSamples*2)

	for got := 0; got < wantSamples; got += len(frame) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, &DeviceError{Op: "read input stream", Err: err}
		}
		for _, sample := range frame {
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(sample))
		}
	}

	wavData, err := audio.EncodeWAV(pcm)
	if err != nil {
		return nil, fmt.Errorf("wrap capture buffer: %w", err)
	}
	r.logger.Printf("recorded %s of audio (%d bytes)", duration, len(wavData))
	return wavData, nil
}

var _ AudioRecorder = (*Recorder)(nil)
