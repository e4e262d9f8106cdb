package tts

import (
	"context"
	"sync"
)

// MockEngine speaks nothing and remembers what it was asked to say
type MockEngine struct {
	mu      sync.Mutex
	spoken  []string
	playing bool
	paused  bool
	speed   float64
	volume  float64
	voice   string
}

func NewMockEngine(c Config) *MockEngine {
	voice := c.Voice
	if voice == "" {
		voice = "default"
	}
	return &MockEngine{
		speed:  c.Speed,
		volume: c.Volume,
		voice:  voice,
	}
}

func (m *MockEngine) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	return nil
}

// Spoken returns every text passed to Speak, in order.
func (m *MockEngine) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

func (m *MockEngine) Voice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice
}

func (m *MockEngine) SetVoice(voice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice = voice
	return nil
}

func (m *MockEngine) SetSpeed(speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = speed
	return nil
}

func (m *MockEngine) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	return nil
}

func (m *MockEngine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.paused = true
	}
	return nil
}

func (m *MockEngine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

func (m *MockEngine) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

func (m *MockEngine) AvailableVoices(context.Context) ([]string, error) {
	return []string{"default"}, nil
}
