package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JxyV/Museum-RAG/llm"
	"github.com/JxyV/Museum-RAG/timing"
)

// GenerationResult carries whatever text was produced, even when the stream
// failed partway; the caller decides what to do with a partial answer.
type GenerationResult struct {
	Text       string
	FirstToken time.Duration
	Duration   time.Duration
}

// Generator streams tokens from the chat backend. Token delivery is
// single-writer: tokens arrive in order on the backend driver's goroutine,
// one at a time.
type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate runs the prompt and forwards each token to onToken (which may be
// nil). FirstToken is measured from the call start to the first non-empty
// token; it stays zero when the backend does not stream. On a mid-stream
// backend error the accumulated partial text is returned together with the
// error. No automatic retry.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, onToken func(string)) (GenerationResult, error) {
	if g.client == nil {
		return GenerationResult{}, fmt.Errorf("llm client is not configured")
	}

	sw := timing.Start()

	streamer, ok := g.client.(llm.StreamClient)
	if !ok {
		text, err := g.client.Generate(ctx, messages)
		result := GenerationResult{Text: strings.TrimSpace(text), Duration: sw.Elapsed()}
		if err != nil {
			return result, fmt.Errorf("llm generate: %w", err)
		}
		if onToken != nil && result.Text != "" {
			onToken(result.Text)
		}
		return result, nil
	}

	var (
		builder    strings.Builder
		firstToken time.Duration
	)
	err := streamer.GenerateStream(ctx, messages, func(token string) error {
		if token == "" {
			return nil
		}
		if firstToken == 0 {
			firstToken = sw.Elapsed()
		}
		builder.WriteString(token)
		if onToken != nil {
			onToken(token)
		}
		return nil
	})

	result := GenerationResult{
		Text:       strings.TrimSpace(builder.String()),
		FirstToken: firstToken,
		Duration:   sw.Elapsed(),
	}
	if err != nil {
		return result, fmt.Errorf("llm stream generate: %w", err)
	}
	return result, nil
}
