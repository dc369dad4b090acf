package voice

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/JxyV/Museum-RAG/audio"
)

// fallbackPlayers are tried in order when direct device output is
// unavailable; each is invoked on a temporary WAV file.
var fallbackPlayers = [][]string{
	{"aplay"},
	{"afplay"},
	{"ffplay", "-autoexit", "-nodisp", "-loglevel", "quiet"},
}

// Player sends audio to the output device, falling back to an external
// player process when the device cannot be opened. The oto context is
// process-global and fixed to the canonical format, so it is created once.
type Player struct {
	logger *log.Logger

	once    sync.Once
	otoCtx  *oto.Context
	initErr error
}

func NewPlayer(logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{logger: logger}
}

func (p *Player) context() (*oto.Context, error) {
	p.once.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   audio.SampleRate,
			ChannelCount: audio.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			p.initErr = &DeviceError{Op: "open output device", Err: err}
			return
		}
		<-ready
		p.otoCtx = ctx
	})
	return p.otoCtx, p.initErr
}

// Play parses the WAV header and streams the frames to the output device.
// Non-canonical formats and unavailable devices go through the external
// player fallback.
func (p *Player) Play(wavData []byte) error {
	if len(wavData) == 0 {
		return fmt.Errorf("empty audio buffer")
	}

	format, pcm, err := audio.DecodeWAV(wavData)
	if err != nil {
		return fmt.Errorf("parse wav container: %w", err)
	}

	if !format.Canonical() {
		p.logger.Printf("non-canonical audio (%d ch, %d Hz, %d bit), using external player",
			format.Channels, format.SampleRate, format.BitDepth)
		return p.playExternal(wavData)
	}

	ctx, err := p.context()
	if err != nil {
		p.logger.Printf("direct playback unavailable, using external player: %v", err)
		return p.playExternal(wavData)
	}

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		return &DeviceError{Op: "close output stream", Err: err}
	}
	return nil
}

// PlayChunk wraps one incrementally-arriving synthesis chunk and plays it on
// its own. Chunks that already carry a WAV header are played as-is; raw PCM
// is wrapped in the canonical container. Gaps between chunks are tolerated.
func (p *Player) PlayChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if bytes.HasPrefix(chunk, []byte("RIFF")) {
		return p.Play(chunk)
	}
	if len(chunk)%2 != 0 {
		chunk = chunk[:len(chunk)-1]
	}
	wavData, err := audio.EncodeWAV(chunk)
	if err != nil {
		return fmt.Errorf("wrap audio chunk: %w", err)
	}
	return p.Play(wavData)
}

// playExternal writes the buffer to a temporary file and hands it to the
// first available system player. The temporary file is removed regardless of
// the player's outcome.
func (p *Player) playExternal(wavData []byte) error {
	tmp, err := os.CreateTemp("", "museum-rag-*.wav")
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(wavData); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp audio file: %w", err)
	}

	for _, candidate := range fallbackPlayers {
		bin, lookErr := exec.LookPath(candidate[0])
		if lookErr != nil {
			continue
		}
		args := append(append([]string{}, candidate[1:]...), path)
		if err := exec.Command(bin, args...).Run(); err != nil {
			return &DeviceError{Op: "external player " + candidate[0], Err: err}
		}
		return nil
	}
	return &DeviceError{Op: "external player", Err: fmt.Errorf("no system audio player found")}
}

var _ AudioPlayer = (*Player)(nil)
