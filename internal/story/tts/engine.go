package tts

import (
	"fmt"
	"os"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeGoogle EngineType = "google"
	EngineTypeAuto   EngineType = "auto" // google when credentials exist, else espeak
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a new TTS engine based on the provided config
func NewEngine(config Config) (Engine, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = bestEngine().String()
	}

	switch EngineType(config.Type) {
	case EngineTypeMock:
		return NewMockEngine(config), nil

	case EngineTypeESpeak:
		return newESpeakEngine(config)

	case EngineTypeGoogle:
		return newGoogleEngine(config)

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

func bestEngine() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogle
	}
	return EngineTypeESpeak
}

// AvailableEngines returns the engines that can be constructed here
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock}

	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, EngineTypeESpeak)
	}
	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogle)
	}

	return engines
}

func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
