package voice

import (
	"bytes"
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperSTT is the batch transcription backend: one blocking call, no
// session.
type WhisperSTT struct {
	client *openai.Client
	model  string
}

func NewWhisperSTT(apiKey, baseURL, model string) *WhisperSTT {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperSTT{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *WhisperSTT) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "capture.wav",
	})
	if err != nil {
		return "", &ConnectError{Backend: "whisper", Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

var _ Transcriber = (*WhisperSTT)(nil)
