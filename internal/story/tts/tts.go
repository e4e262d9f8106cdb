// Package tts reads text aloud. Engines block in Speak until the text has
// been spoken, Stop is called, or the context is cancelled.
package tts

import "context"

type Config struct {
	Type      string
	Voice     string
	Speed     float64
	Volume    float64
	CachePath string
}

// Engine interface for text-to-speech functionality
type Engine interface {
	Speak(ctx context.Context, text string) error
	SetVoice(voice string) error
	SetSpeed(speed float64) error
	SetVolume(volume float64) error
	Stop() error
	Pause() error
	Resume() error
	IsPlaying() bool
	AvailableVoices(ctx context.Context) ([]string, error)
}
