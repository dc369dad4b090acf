package voice

import "fmt"

// DeviceError reports an unavailable capture or playback device. The caller
// decides whether to abort, retry, or fall back to an external player.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device unavailable (%s): %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ConnectError reports a transcription/synthesis backend that failed to
// connect, authenticate, or errored mid-session. It is deliberately distinct
// from the empty-text "no speech detected" outcome.
type ConnectError struct {
	Backend string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s backend connection: %v", e.Backend, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
