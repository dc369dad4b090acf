// Package voice provides speech capture, transcription, synthesis, and
// playback around the question answering pipeline. Transcription and
// synthesis backends are pluggable; the realtime backends speak a streaming
// websocket protocol.
package voice

import (
	"context"
	"time"
)

// Transcriber converts a captured WAV buffer into text. Implementations
// return an empty string (not an error) when no speech is detected;
// connection and credential failures surface as *ConnectError.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// SynthesisResult is what one streaming synthesis call produces. Empty audio
// means the call timed out or the backend errored; callers must check.
type SynthesisResult struct {
	Audio        []byte
	FirstAudio   time.Duration
	Total        time.Duration
	ChineseChars int
}

func (r SynthesisResult) Empty() bool { return len(r.Audio) == 0 }

// Synthesizer converts text into audio. onChunk, when non-nil, receives each
// decoded audio chunk as it arrives for incremental playback; the full
// accumulated audio is returned either way.
type Synthesizer interface {
	SynthesizeStream(ctx context.Context, text, voice string, onChunk func([]byte)) (SynthesisResult, error)
}
