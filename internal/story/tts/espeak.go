// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	config  Config
	path    string
	cmd     *exec.Cmd
	playing bool
	paused  bool
	stopped bool
	mutex   sync.RWMutex
}

func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	if config.Speed <= 0 {
		config.Speed = 1.0
	}
	if config.Volume <= 0 {
		config.Volume = 1.0
	}

	return &ESpeakEngine{config: config, path: espeakPath}, nil
}

func findESpeakExecutable() (string, error) {
	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// espeakArgs maps the config onto espeak flags: speed in words per minute
// (175 is 1.0x) and amplitude 0-200 (100 is 1.0).
func espeakArgs(config Config, text string) []string {
	var args []string

	if config.Voice != "" && config.Voice != "default" {
		args = append(args, "-v", config.Voice)
	}

	args = append(args, "-s", strconv.Itoa(int(175*config.Speed)))
	args = append(args, "-a", strconv.Itoa(int(100*config.Volume)))

	// "--" keeps headlines starting with "-" from being read as flags
	return append(args, "--", text)
}

func (e *ESpeakEngine) Speak(ctx context.Context, text string) error {
	e.mutex.Lock()
	if e.playing {
		e.mutex.Unlock()
		return fmt.Errorf("already playing")
	}

	cmd := exec.CommandContext(ctx, e.path, espeakArgs(e.config, text)...)
	if err := cmd.Start(); err != nil {
		e.mutex.Unlock()
		return fmt.Errorf("failed to start eSpeak: %w", err)
	}
	e.cmd = cmd
	e.playing = true
	e.paused = false
	e.stopped = false
	e.mutex.Unlock()

	err := cmd.Wait()

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.playing = false
	e.paused = false
	e.cmd = nil

	if e.stopped {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("eSpeak exited with %d", exitErr.ExitCode())
		}
		return err
	}
	return nil
}

func (e *ESpeakEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.cmd != nil && e.cmd.Process != nil {
		e.stopped = true
		if e.paused {
			_ = e.resumeProcess()
		}
		if err := e.cmd.Process.Kill(); err != nil {
			return err
		}
	}

	e.paused = false
	return nil
}

func (e *ESpeakEngine) Pause() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.playing || e.paused || e.cmd == nil || e.cmd.Process == nil {
		return nil
	}

	if err := e.pauseProcess(); err != nil {
		return err
	}
	e.paused = true
	return nil
}

func (e *ESpeakEngine) Resume() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.paused || e.cmd == nil || e.cmd.Process == nil {
		return nil
	}

	if err := e.resumeProcess(); err != nil {
		return err
	}
	e.paused = false
	return nil
}

func (e *ESpeakEngine) SetVoice(voice string) error {
	voices, err := e.AvailableVoices(context.Background())
	if err != nil {
		return err
	}

	for _, v := range voices {
		if v == voice {
			e.mutex.Lock()
			e.config.Voice = voice
			e.mutex.Unlock()
			return nil
		}
	}

	return fmt.Errorf("voice '%s' not available", voice)
}

func (e *ESpeakEngine) SetSpeed(speed float64) error {
	if speed < 0.1 || speed > 3.0 {
		return fmt.Errorf("speed must be between 0.1 and 3.0")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.config.Speed = speed
	return nil
}

func (e *ESpeakEngine) SetVolume(volume float64) error {
	if volume < 0 || volume > 2.0 {
		return fmt.Errorf("volume must be between 0 and 2.0")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.config.Volume = volume
	return nil
}

func (e *ESpeakEngine) IsPlaying() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.playing && !e.paused
}

func (e *ESpeakEngine) AvailableVoices(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

// parseESpeakVoices reads the VoiceName column of `espeak --voices`:
// Pty Language Age/Gender VoiceName File Other Languages
func parseESpeakVoices(output string) []string {
	voices := make([]string, 0)

	for i, line := range strings.Split(output, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}

	return voices
}
