package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pcm := make([]byte, 0, 64)
	for _, sample := range []int16{0, 1000, -1000, 32767, -32768, 42} {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(sample))
	}

	wavData, err := EncodeWAV(pcm)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(wavData, []byte("RIFF")) {
		t.Fatal("expected RIFF container")
	}

	format, decoded, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !format.Canonical() {
		t.Fatalf("expected canonical format, got %+v", format)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", decoded, pcm)
	}
}

func TestEncodeWAVRejectsOddLength(t *testing.T) {
	if _, err := EncodeWAV([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for half a sample")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("definitely not audio")); err == nil {
		t.Fatal("expected error for invalid container")
	}
}

func TestFormatCanonical(t *testing.T) {
	if (Format{Channels: 2, SampleRate: 16000, BitDepth: 16}).Canonical() {
		t.Fatal("stereo must not be canonical")
	}
	if (Format{Channels: 1, SampleRate: 44100, BitDepth: 16}).Canonical() {
		t.Fatal("44.1 kHz must not be canonical")
	}
	if !(Format{Channels: 1, SampleRate: 16000, BitDepth: 16}).Canonical() {
		t.Fatal("mono 16 kHz 16-bit must be canonical")
	}
}
