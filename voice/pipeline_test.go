package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JxyV/Museum-RAG/config"
)

// stubSynthesizer renders text as its raw UTF-8 bytes so a paired stub
// transcriber can recover it exactly.
type stubSynthesizer struct {
	err      error
	gotText  string
	gotVoice string
}

func (s *stubSynthesizer) SynthesizeStream(ctx context.Context, text, voice string, onChunk func([]byte)) (SynthesisResult, error) {
	s.gotText = text
	s.gotVoice = voice
	if s.err != nil {
		return SynthesisResult{}, s.err
	}
	audio := []byte(text)
	if onChunk != nil {
		half := len(audio) / 2
		onChunk(audio[:half])
		onChunk(audio[half:])
	}
	return SynthesisResult{Audio: audio, FirstAudio: time.Millisecond, Total: 2 * time.Millisecond}, nil
}

var _ Synthesizer = (*stubSynthesizer)(nil)

type stubTranscriber struct {
	err error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return string(wavData), nil
}

var _ Transcriber = (*stubTranscriber)(nil)

type stubAudioRecorder struct {
	data []byte
	err  error
}

func (s *stubAudioRecorder) Record(ctx context.Context, duration time.Duration) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

var _ AudioRecorder = (*stubAudioRecorder)(nil)

type stubAudioPlayer struct {
	played  [][]byte
	chunks  [][]byte
	playErr error
}

func (s *stubAudioPlayer) Play(wavData []byte) error {
	if s.playErr != nil {
		return s.playErr
	}
	s.played = append(s.played, append([]byte(nil), wavData...))
	return nil
}

func (s *stubAudioPlayer) PlayChunk(chunk []byte) error {
	if s.playErr != nil {
		return s.playErr
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	return nil
}

var _ AudioPlayer = (*stubAudioPlayer)(nil)

func newStubPipeline(tts Synthesizer, stt Transcriber, rec AudioRecorder, player AudioPlayer) *Pipeline {
	return &Pipeline{
		STT:      stt,
		TTS:      tts,
		Recorder: rec,
		Player:   player,
		voice:    "Cherry",
		logger:   testVoiceLogger(),
	}
}

func TestPipelineRoundTripPreservesText(t *testing.T) {
	player := &stubAudioPlayer{}
	p := newStubPipeline(&stubSynthesizer{}, &stubTranscriber{}, &stubAudioRecorder{}, player)

	const text = "欢迎来到湖北省博物馆"
	result, err := p.Speak(context.Background(), text)
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if result.Empty() {
		t.Fatal("expected synthesized audio")
	}

	// Feed the synthesized buffer straight back through transcription.
	recovered, err := p.STT.Transcribe(context.Background(), result.Audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if recovered != text {
		t.Fatalf("round trip changed the text: %q != %q", recovered, text)
	}
}

func TestPipelineListenOnce(t *testing.T) {
	p := newStubPipeline(&stubSynthesizer{}, &stubTranscriber{}, &stubAudioRecorder{data: []byte("编钟在哪个展厅")}, &stubAudioPlayer{})

	text, err := p.ListenOnce(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "编钟在哪个展厅" {
		t.Fatalf("captured audio not forwarded to the transcriber: %q", text)
	}
}

func TestPipelineListenOnceRecorderFailure(t *testing.T) {
	rec := &stubAudioRecorder{err: &DeviceError{Op: "record", Err: errors.New("no input device")}}
	p := newStubPipeline(&stubSynthesizer{}, &stubTranscriber{}, rec, &stubAudioPlayer{})

	var devErr *DeviceError
	if _, err := p.ListenOnce(context.Background(), time.Second); !errors.As(err, &devErr) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
}

func TestPipelineSpeakUsesConfiguredVoice(t *testing.T) {
	tts := &stubSynthesizer{}
	player := &stubAudioPlayer{}
	p := newStubPipeline(tts, &stubTranscriber{}, &stubAudioRecorder{}, player)
	p.SetVoice("Ethan")

	if _, err := p.Speak(context.Background(), "你好"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tts.gotVoice != "Ethan" {
		t.Fatalf("voice not forwarded: %q", tts.gotVoice)
	}
	if len(player.played) != 1 || string(player.played[0]) != "你好" {
		t.Fatalf("player did not receive the full buffer: %v", player.played)
	}
}

func TestPipelineSpeakSkipsPlaybackOnEmptyResult(t *testing.T) {
	// A synthesizer timeout surfaces as an empty result with a nil error;
	// nothing must reach the player.
	tts := &emptySynthesizer{}
	player := &stubAudioPlayer{playErr: errors.New("must not be called")}
	p := newStubPipeline(tts, &stubTranscriber{}, &stubAudioRecorder{}, player)

	result, err := p.Speak(context.Background(), "超时")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Empty() {
		t.Fatal("expected empty result")
	}
}

type emptySynthesizer struct{}

func (emptySynthesizer) SynthesizeStream(ctx context.Context, text, voice string, onChunk func([]byte)) (SynthesisResult, error) {
	return SynthesisResult{}, nil
}

var _ Synthesizer = emptySynthesizer{}

func TestPipelineSpeakStreamingPlaysChunksInOrder(t *testing.T) {
	player := &stubAudioPlayer{}
	p := newStubPipeline(&stubSynthesizer{}, &stubTranscriber{}, &stubAudioRecorder{}, player)

	const text = "分段播放"
	result, err := p.SpeakStreaming(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(player.chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(player.chunks))
	}
	joined := append(append([]byte(nil), player.chunks[0]...), player.chunks[1]...)
	if string(joined) != text {
		t.Fatalf("chunks do not reassemble the audio: %q", joined)
	}
	if string(result.Audio) != text {
		t.Fatalf("accumulated audio mismatch: %q", result.Audio)
	}
}

func TestPipelineSpeakStreamingToleratesPlaybackFailure(t *testing.T) {
	player := &stubAudioPlayer{playErr: &DeviceError{Op: "play", Err: errors.New("device busy")}}
	p := newStubPipeline(&stubSynthesizer{}, &stubTranscriber{}, &stubAudioRecorder{}, player)

	result, err := p.SpeakStreaming(context.Background(), "继续合成")
	if err != nil {
		t.Fatalf("playback failures must not abort synthesis: %v", err)
	}
	if result.Empty() {
		t.Fatal("synthesis result lost")
	}
}

func TestNewPipelineSelectsBackends(t *testing.T) {
	cfg := config.Load()
	cfg.Voice.STTBackend = config.STTRealtime
	cfg.Voice.DashScopeAPIKey = "sk-test"

	p, err := NewPipeline(cfg, testVoiceLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.STT.(*RealtimeSTT); !ok {
		t.Fatalf("expected realtime transcriber, got %T", p.STT)
	}

	cfg.Voice.STTBackend = config.STTWhisper
	cfg.OpenAIAPIKey = "sk-test"
	p, err = NewPipeline(cfg, testVoiceLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.STT.(*WhisperSTT); !ok {
		t.Fatalf("expected whisper transcriber, got %T", p.STT)
	}

	cfg.Voice.STTBackend = "nope"
	if _, err := NewPipeline(cfg, testVoiceLogger()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
