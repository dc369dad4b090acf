package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JxyV/Museum-RAG/audio"
	"github.com/JxyV/Museum-RAG/rag"
	"github.com/JxyV/Museum-RAG/timing"
)

// DefaultSynthesisTimeout bounds how long a caller waits for the backend to
// finish before giving up with an empty result.
const DefaultSynthesisTimeout = 30 * time.Second

// Connection states of one synthesis session.
type sessionState int

const (
	stateIdle sessionState = iota
	stateConnecting
	stateConfigSent
	stateAwaitingAudio
	stateReceiving
	stateDone
	stateError
	stateClosed
)

// Outbound wire messages, sent in order: config, text, end.
type configMessage struct {
	Type            string `json:"type"`
	Voice           string `json:"voice"`
	Format          string `json:"format"`
	SampleRate      int    `json:"sample_rate"`
	EnableTimestamp bool   `json:"enable_timestamp"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type endMessage struct {
	Type string `json:"type"`
}

// Inbound wire message: audio, audio.done, done, or error.
type serverMessage struct {
	Type    string `json:"type"`
	Audio   string `json:"audio,omitempty"`
	Message string `json:"message,omitempty"`
}

// synthesisSession holds the mutable state of one streaming call. Every
// field is written only by the receive goroutine; the caller reads them only
// after the done channel is closed, which is the memory hand-off point.
type synthesisSession struct {
	state      sessionState
	audio      bytes.Buffer
	firstAudio time.Duration
	completed  bool
	errMsg     string

	done chan struct{}
	once sync.Once
}

// finish marks the session completed and signals the waiting caller exactly
// once, whatever path got us here (done, error, transport close).
func (s *synthesisSession) finish(state sessionState) {
	s.once.Do(func() {
		s.state = state
		s.completed = true
		close(s.done)
	})
}

// RealtimeTTSOptions configures the realtime synthesizer. URL is the
// websocket endpoint without the model query parameter.
type RealtimeTTSOptions struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *log.Logger
}

// RealtimeTTS synthesizes speech over a persistent websocket connection:
// config, text, and end are sent up front, then audio chunks stream back
// until done.
type RealtimeTTS struct {
	url     string
	apiKey  string
	timeout time.Duration
	logger  *log.Logger
	dialer  *websocket.Dialer
}

func NewRealtimeTTS(opts RealtimeTTSOptions) *RealtimeTTS {
	url := opts.URL
	if opts.Model != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "model=" + opts.Model
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSynthesisTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &RealtimeTTS{
		url:     url,
		apiKey:  opts.APIKey,
		timeout: timeout,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
	}
}

// SynthesizeStream blocks until the backend reports completion or the
// timeout elapses. On timeout the result is empty with empty timings; audio
// received before the timeout is discarded. A backend error message yields
// an empty result and a *ConnectError.
func (t *RealtimeTTS) SynthesizeStream(ctx context.Context, text, voice string, onChunk func([]byte)) (SynthesisResult, error) {
	if strings.TrimSpace(text) == "" {
		return SynthesisResult{}, fmt.Errorf("text cannot be empty")
	}

	sw := timing.Start()

	header := http.Header{}
	if t.apiKey != "" {
		header.Set("Authorization", "Bearer "+t.apiKey)
	}

	sess := &synthesisSession{state: stateConnecting, done: make(chan struct{})}

	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return SynthesisResult{}, &ConnectError{Backend: "tts", Err: err}
	}
	defer conn.Close()

	// The connection is open: send config, text, and end in order before
	// any audio can arrive.
	if err := t.sendOpening(conn, text, voice); err != nil {
		return SynthesisResult{}, &ConnectError{Backend: "tts", Err: err}
	}
	sess.state = stateConfigSent

	go t.receiveLoop(conn, sess, sw, onChunk)

	select {
	case <-sess.done:
	case <-ctx.Done():
		conn.Close()
		<-sess.done
		return SynthesisResult{}, ctx.Err()
	case <-time.After(t.timeout):
		t.logger.Printf("tts synthesis timeout after %s, discarding partial audio", t.timeout)
		conn.Close()
		<-sess.done
		return SynthesisResult{}, nil
	}

	// completed is true here; the receive goroutine writes nothing further.
	if sess.errMsg != "" {
		t.logger.Printf("tts backend error: %s", sess.errMsg)
		return SynthesisResult{}, &ConnectError{Backend: "tts", Err: fmt.Errorf("%s", sess.errMsg)}
	}

	return SynthesisResult{
		Audio:        sess.audio.Bytes(),
		FirstAudio:   sess.firstAudio,
		Total:        sw.Elapsed(),
		ChineseChars: rag.CountChineseChars(text),
	}, nil
}

func (t *RealtimeTTS) sendOpening(conn *websocket.Conn, text, voice string) error {
	opening := []interface{}{
		configMessage{
			Type:       "config",
			Voice:      voice,
			Format:     "wav",
			SampleRate: audio.SampleRate,
		},
		textMessage{Type: "text", Text: text},
		endMessage{Type: "end"},
	}
	for _, msg := range opening {
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("send opening message: %w", err)
		}
	}
	return nil
}

// receiveLoop is the single writer of the session state. Malformed or
// unexpected messages are logged and skipped without ending the session;
// only done, a protocol error message, or a transport failure terminate it.
func (t *RealtimeTTS) receiveLoop(conn *websocket.Conn, sess *synthesisSession, sw timing.Stopwatch, onChunk func([]byte)) {
	defer sess.finish(stateClosed)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			// Transport error or close: completed regardless of done.
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.logger.Printf("tts protocol violation, skipping malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case "audio":
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				t.logger.Printf("tts protocol violation, skipping undecodable audio: %v", err)
				continue
			}
			if sess.state != stateReceiving {
				// First audio message: this is the first-audio latency
				// mark, not done.
				if sess.firstAudio == 0 {
					sess.firstAudio = sw.Elapsed()
				}
			}
			sess.state = stateReceiving
			sess.audio.Write(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		case "audio.done":
			// Informational: more audio may still follow.
			sess.state = stateAwaitingAudio
		case "done":
			sess.finish(stateDone)
			return
		case "error":
			sess.errMsg = msg.Message
			sess.finish(stateError)
			return
		default:
			t.logger.Printf("tts protocol violation, skipping unknown message type %q", msg.Type)
		}
	}
}

var _ Synthesizer = (*RealtimeTTS)(nil)
