package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/JxyV/Museum-RAG/index"
	"github.com/JxyV/Museum-RAG/timing"
)

// NoAnswerMessage is the canonical response when retrieval finds nothing.
// An empty index is a valid outcome, not an error.
const NoAnswerMessage = "抱歉，未检索到相关内容。"

const defaultTopK = 4

// Retriever is the slice of the retrieval package the service consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.ScoredChunk, error)
}

// Service runs the retrieve -> assemble -> generate -> cite pipeline for one
// question at a time.
type Service struct {
	retriever Retriever
	generator *Generator
	logger    *log.Logger
	topK      int
}

func NewService(retriever Retriever, generator *Generator, logger *log.Logger, topK int) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		logger:    logger,
		topK:      topK,
	}
}

// Answer resolves one question. session may be nil for a stateless call;
// onToken may be nil when the caller does not want incremental tokens. When
// generation fails mid-stream the partial answer is returned alongside the
// error.
func (s *Service) Answer(ctx context.Context, question string, session *Session, onToken func(string)) (AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AnswerResult{}, fmt.Errorf("question cannot be empty")
	}
	if s.retriever == nil {
		return AnswerResult{}, fmt.Errorf("retriever is not configured")
	}
	if s.generator == nil {
		return AnswerResult{}, fmt.Errorf("generator is not configured")
	}

	total := timing.Start()

	retrieval := timing.Start()
	results, err := s.retriever.Retrieve(ctx, question, s.topK)
	retrievalTook := retrieval.Elapsed()
	if err != nil {
		return AnswerResult{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(results) == 0 {
		s.logger.Printf("no relevant chunks for question, returning no-knowledge answer")
		return AnswerResult{
			Text:      NoAnswerMessage,
			Citations: []Citation{},
			Timings: Timings{
				Retrieval: retrievalTook,
				Total:     total.Elapsed(),
			},
		}, nil
	}

	history := ""
	if session != nil {
		history = session.History()
	}
	messages := BuildMessages(question, history, FormatContext(results))

	generated, genErr := s.generator.Generate(ctx, messages, onToken)

	answer := AnswerResult{
		Text:      generated.Text,
		Citations: Citations(results),
		Timings: Timings{
			Retrieval:  retrievalTook,
			FirstToken: generated.FirstToken,
			Generation: generated.Duration,
			Total:      total.Elapsed(),
		},
	}
	if genErr != nil {
		// Partial text stays in the result so the caller can salvage it.
		return answer, genErr
	}

	if session != nil {
		session.Append(RoleUser, question)
		session.Append(RoleAssistant, answer.Text)
	}
	return answer, nil
}
