package voice

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/JxyV/Museum-RAG/config"
	"github.com/JxyV/Museum-RAG/timing"
)

// AudioRecorder captures one utterance as a WAV buffer.
type AudioRecorder interface {
	Record(ctx context.Context, duration time.Duration) ([]byte, error)
}

// AudioPlayer sends audio to the output device.
type AudioPlayer interface {
	Play(wavData []byte) error
	PlayChunk(chunk []byte) error
}

// Pipeline wires capture, transcription, synthesis, and playback together
// for the interactive voice loop.
type Pipeline struct {
	STT      Transcriber
	TTS      Synthesizer
	Recorder AudioRecorder
	Player   AudioPlayer

	voice  string
	logger *log.Logger
}

// NewPipeline builds the pipeline with the backends the configuration
// selects.
func NewPipeline(cfg config.Config, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.Default()
	}

	var stt Transcriber
	switch cfg.Voice.STTBackend {
	case config.STTRealtime:
		stt = NewRealtimeSTT(RealtimeSTTOptions{
			URL:    cfg.Voice.RealtimeURL,
			APIKey: cfg.Voice.DashScopeAPIKey,
			Model:  cfg.Voice.STTModel,
			Logger: logger,
		})
	case config.STTWhisper:
		stt = NewWhisperSTT(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Voice.WhisperModel)
	default:
		return nil, fmt.Errorf("unknown stt backend: %s", cfg.Voice.STTBackend)
	}

	tts := NewRealtimeTTS(RealtimeTTSOptions{
		URL:    cfg.Voice.RealtimeURL,
		APIKey: cfg.Voice.DashScopeAPIKey,
		Model:  cfg.Voice.TTSModel,
		Logger: logger,
	})

	return &Pipeline{
		STT:      stt,
		TTS:      tts,
		Recorder: NewRecorder(logger),
		Player:   NewPlayer(logger),
		voice:    cfg.Voice.TTSVoice,
		logger:   logger,
	}, nil
}

// SetVoice switches the synthesis voice for subsequent Speak calls.
func (p *Pipeline) SetVoice(voice string) {
	p.voice = voice
}

// ListenOnce records for duration and transcribes the capture. An empty
// string means no speech was detected.
func (p *Pipeline) ListenOnce(ctx context.Context, duration time.Duration) (string, error) {
	wavData, err := p.Recorder.Record(ctx, duration)
	if err != nil {
		return "", err
	}

	sw := timing.Start()
	text, err := p.STT.Transcribe(ctx, wavData)
	if err != nil {
		return "", err
	}
	p.logger.Printf("transcription took %.1f ms: %q", timing.Ms(sw.Elapsed()), text)
	return text, nil
}

// Speak synthesizes text and plays the whole buffer once complete. An empty
// synthesis result (timeout or backend silence) is reported, not played.
func (p *Pipeline) Speak(ctx context.Context, text string) (SynthesisResult, error) {
	result, err := p.TTS.SynthesizeStream(ctx, text, p.voice, nil)
	if err != nil {
		return result, err
	}
	if result.Empty() {
		return result, nil
	}
	if err := p.Player.Play(result.Audio); err != nil {
		return result, err
	}
	return result, nil
}

// SpeakStreaming plays each synthesis chunk as it arrives instead of waiting
// for the full buffer. Playback failures are logged and skipped so a flaky
// output device cannot kill the synthesis session.
func (p *Pipeline) SpeakStreaming(ctx context.Context, text string) (SynthesisResult, error) {
	return p.TTS.SynthesizeStream(ctx, text, p.voice, func(chunk []byte) {
		if err := p.Player.PlayChunk(chunk); err != nil {
			p.logger.Printf("chunk playback failed: %v", err)
		}
	})
}
