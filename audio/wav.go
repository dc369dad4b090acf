// Package audio handles the canonical audio container: mono, 16 kHz, 16-bit
// linear PCM in a WAV framing, used for both capture and synthesis output.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	Channels   = 1
	SampleRate = 16000
	BitDepth   = 16

	// BytesPerSecond of raw canonical PCM.
	BytesPerSecond = SampleRate * Channels * BitDepth / 8
)

// Format describes a decoded WAV payload.
type Format struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

// Canonical reports whether the format matches the container this system
// records and synthesizes.
func (f Format) Canonical() bool {
	return f.Channels == Channels && f.SampleRate == SampleRate && f.BitDepth == BitDepth
}

// EncodeWAV wraps raw 16-bit little-endian mono PCM at 16 kHz in a WAV
// container.
func EncodeWAV(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm payload must be whole 16-bit samples, got %d bytes", len(pcm))
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	buf := &seekBuffer{}
	enc := wav.NewEncoder(buf, SampleRate, BitDepth, Channels, 1)
	err := enc.Write(&gaudio.IntBuffer{
		Data:           samples,
		Format:         &gaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: BitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("write wav frames: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav container: %w", err)
	}
	return buf.data, nil
}

// DecodeWAV parses a WAV container and returns its format and the PCM
// payload converted to 16-bit little-endian samples.
func DecodeWAV(data []byte) (Format, []byte, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Format{}, nil, fmt.Errorf("not a valid wav payload")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Format{}, nil, fmt.Errorf("read wav frames: %w", err)
	}

	format := Format{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}

	shift := uint(0)
	switch dec.BitDepth {
	case 16:
	case 8:
		shift = 0 // handled below, 8-bit is unsigned
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return Format{}, nil, fmt.Errorf("unsupported wav bit depth %d", dec.BitDepth)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		var v int16
		if dec.BitDepth == 8 {
			v = int16((sample - 128) << 8)
		} else {
			v = int16(sample >> shift)
		}
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}
	return format, pcm, nil
}

// seekBuffer is the in-memory WriteSeeker the wav encoder needs to patch the
// header length fields after the frames are written.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case 0:
		next = int(offset)
	case 1:
		next = b.pos + int(offset)
	case 2:
		next = len(b.data) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek before start of buffer")
	}
	b.pos = next
	return int64(next), nil
}
