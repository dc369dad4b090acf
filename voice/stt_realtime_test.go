package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JxyV/Museum-RAG/audio"
)

// testWAV builds a canonical container holding n silent samples.
func testWAV(t *testing.T, n int) []byte {
	t.Helper()
	wavData, err := audio.EncodeWAV(make([]byte, n*2))
	if err != nil {
		t.Fatalf("encode test wav: %v", err)
	}
	return wavData
}

// newScriptedSTTServer upgrades, reads the start message, then hands the
// connection to script.
func newScriptedSTTServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("read start message: %v", err)
			return
		}
		script(conn)
	}))
}

func TestTranscribeReturnsFinalSentence(t *testing.T) {
	srv := newScriptedSTTServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(sttServerMessage{Type: "transcription", Text: "武汉"})
		_ = conn.WriteJSON(sttServerMessage{Type: "transcription", Text: "武汉博物馆在哪里", IsSentenceEnd: true})
	})
	defer srv.Close()

	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: wsURL(srv), Logger: testVoiceLogger()})

	text, err := stt.Transcribe(context.Background(), testWAV(t, 8000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "武汉博物馆在哪里" {
		t.Fatalf("expected the final cumulative transcript, got %q", text)
	}
}

func TestTranscribeSendsStartAndFrames(t *testing.T) {
	type startMsg struct {
		Type       string `json:"type"`
		Model      string `json:"model"`
		Format     string `json:"format"`
		SampleRate int    `json:"sample_rate"`
	}

	got := make(chan startMsg, 1)
	frameBytes := make(chan int, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read start: %v", err)
			return
		}
		var start startMsg
		if err := json.Unmarshal(payload, &start); err != nil {
			t.Errorf("unmarshal start: %v", err)
			return
		}
		got <- start

		total := 0
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				if len(payload) > 3200 {
					t.Errorf("frame exceeds 3200 bytes: %d", len(payload))
				}
				total += len(payload)
				continue
			}
			// The stop message ends the push phase.
			frameBytes <- total
			_ = conn.WriteJSON(sttServerMessage{Type: "transcription", Text: "好的", IsSentenceEnd: true})
			return
		}
	}))
	defer srv.Close()

	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: wsURL(srv), Model: "gummy-chat-v1", Logger: testVoiceLogger()})

	// 5000 samples = 10000 PCM bytes: three full frames plus a short tail.
	if _, err := stt.Transcribe(context.Background(), testWAV(t, 5000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := <-got
	if start.Type != "start" || start.Model != "gummy-chat-v1" || start.Format != "pcm" || start.SampleRate != 16000 {
		t.Fatalf("start message: %+v", start)
	}
	if total := <-frameBytes; total != 10000 {
		t.Fatalf("expected 10000 PCM bytes pushed, got %d", total)
	}
}

func TestTranscribeNoSpeechYieldsEmptyString(t *testing.T) {
	srv := newScriptedSTTServer(t, func(conn *websocket.Conn) {
		// Close without any transcription: silence in, nothing out.
	})
	defer srv.Close()

	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: wsURL(srv), Timeout: time.Second, Logger: testVoiceLogger()})

	text, err := stt.Transcribe(context.Background(), testWAV(t, 1600))
	if err != nil {
		t.Fatalf("silence must not be an error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty transcript, got %q", text)
	}
}

func TestTranscribeBackendError(t *testing.T) {
	srv := newScriptedSTTServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(sttServerMessage{Type: "error", Message: "model unavailable"})
	})
	defer srv.Close()

	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: wsURL(srv), Logger: testVoiceLogger()})

	_, err := stt.Transcribe(context.Background(), testWAV(t, 1600))
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
}

func TestTranscribeDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := wsURL(srv)
	srv.Close()

	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: url, Logger: testVoiceLogger()})
	_, err := stt.Transcribe(context.Background(), testWAV(t, 1600))
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectError, got %v", err)
	}
}

func TestTranscribeRejectsInvalidContainer(t *testing.T) {
	stt := NewRealtimeSTT(RealtimeSTTOptions{URL: "ws://localhost:0", Logger: testVoiceLogger()})
	if _, err := stt.Transcribe(context.Background(), []byte("not a wav")); err == nil {
		t.Fatal("expected error for invalid audio")
	}
}
