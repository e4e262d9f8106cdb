//go:build windows

package tts

import "errors"

// Windows has no SIGSTOP/SIGCONT, so a running espeak process cannot be suspended.
var errPauseUnsupported = errors.New("pausing eSpeak is not supported on Windows")

func (e *ESpeakEngine) pauseProcess() error {
	return errPauseUnsupported
}

func (e *ESpeakEngine) resumeProcess() error {
	return errPauseUnsupported
}
