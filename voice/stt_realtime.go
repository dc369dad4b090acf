package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JxyV/Museum-RAG/audio"
)

// sttFrameSize is how much PCM one frame carries: 3200 bytes is roughly
// 100 ms of canonical audio.
const sttFrameSize = 3200

// DefaultTranscriptionTimeout bounds the wait for the final transcript after
// all frames have been pushed.
const DefaultTranscriptionTimeout = 15 * time.Second

type sttStartMessage struct {
	Type       string `json:"type"`
	Model      string `json:"model,omitempty"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

type sttStopMessage struct {
	Type string `json:"type"`
}

type sttServerMessage struct {
	Type          string `json:"type"`
	Text          string `json:"text,omitempty"`
	IsSentenceEnd bool   `json:"is_sentence_end,omitempty"`
	Message       string `json:"message,omitempty"`
}

// sttSession collects the transcript. text and errMsg are written only by
// the receive goroutine and read by the caller only after done is closed.
type sttSession struct {
	text   string
	errMsg string

	done chan struct{}
	once sync.Once
}

func (s *sttSession) finish() {
	s.once.Do(func() { close(s.done) })
}

// RealtimeSTTOptions configures the streaming transcription backend.
type RealtimeSTTOptions struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *log.Logger
}

// RealtimeSTT transcribes by opening a websocket session, pushing the PCM
// payload in ~100 ms frames, and stopping early once the backend signals
// sentence completion.
type RealtimeSTT struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	logger  *log.Logger
	dialer  *websocket.Dialer
}

func NewRealtimeSTT(opts RealtimeSTTOptions) *RealtimeSTT {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTranscriptionTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &RealtimeSTT{
		url:     opts.URL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		timeout: timeout,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
	}
}

// Transcribe pushes the audio and returns the recognized sentence. No speech
// yields an empty string with a nil error; connection problems yield a
// *ConnectError.
func (s *RealtimeSTT) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	_, pcm, err := audio.DecodeWAV(wavData)
	if err != nil {
		return "", fmt.Errorf("decode capture buffer: %w", err)
	}

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return "", &ConnectError{Backend: "stt", Err: err}
	}
	defer conn.Close()

	start := sttStartMessage{
		Type:       "start",
		Model:      s.model,
		Format:     "pcm",
		SampleRate: audio.SampleRate,
	}
	if err := conn.WriteJSON(start); err != nil {
		return "", &ConnectError{Backend: "stt", Err: fmt.Errorf("send start message: %w", err)}
	}

	sess := &sttSession{done: make(chan struct{})}
	go s.receiveLoop(conn, sess)

	// Push audio frames, stopping early if the backend already closed the
	// sentence.
frames:
	for offset := 0; offset < len(pcm); offset += sttFrameSize {
		select {
		case <-sess.done:
			break frames
		case <-ctx.Done():
			conn.Close()
			<-sess.done
			return "", ctx.Err()
		default:
		}

		end := offset + sttFrameSize
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[offset:end]); err != nil {
			break frames
		}
	}

	// Best effort: the backend may have closed already.
	_ = conn.WriteJSON(sttStopMessage{Type: "stop"})

	select {
	case <-sess.done:
	case <-ctx.Done():
		conn.Close()
		<-sess.done
		return "", ctx.Err()
	case <-time.After(s.timeout):
		s.logger.Printf("stt transcription timeout after %s", s.timeout)
		conn.Close()
		<-sess.done
	}

	if sess.errMsg != "" {
		return "", &ConnectError{Backend: "stt", Err: fmt.Errorf("%s", sess.errMsg)}
	}
	return strings.TrimSpace(sess.text), nil
}

// receiveLoop is the single writer of the session transcript. Each
// transcription message carries the full text so far; sentence end closes
// the session.
func (s *RealtimeSTT) receiveLoop(conn *websocket.Conn, sess *sttSession) {
	defer sess.finish()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg sttServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Printf("stt protocol violation, skipping malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case "transcription":
			sess.text = msg.Text
			if msg.IsSentenceEnd {
				return
			}
		case "error":
			sess.errMsg = msg.Message
			return
		default:
			s.logger.Printf("stt protocol violation, skipping unknown message type %q", msg.Type)
		}
	}
}

var _ Transcriber = (*RealtimeSTT)(nil)
