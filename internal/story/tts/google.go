package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

const (
	defaultGoogleVoice = "en-US-Neural2-D"
	// the API rejects inputs above 5000 bytes
	googleChunkBytes = 4800
)

// GoogleEngine synthesises MP3 with Cloud Text-to-Speech, caches it on disk
// keyed by voice, rate, volume and text, and plays it through beep.
type GoogleEngine struct {
	client   *texttospeech.Client
	cacheDir string

	mu      sync.Mutex
	voice   string
	speed   float64
	volume  float64
	ctrl    *beep.Ctrl
	playing bool
	stop    chan struct{}

	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
}

func newGoogleEngine(config Config) (*GoogleEngine, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	voice := config.Voice
	if voice == "" || voice == "default" {
		voice = defaultGoogleVoice
	}
	speed := config.Speed
	if speed <= 0 {
		speed = 1.0
	}

	return &GoogleEngine{
		client:   client,
		cacheDir: config.CachePath,
		voice:    voice,
		speed:    speed,
		volume:   config.Volume,
	}, nil
}

func (g *GoogleEngine) Speak(ctx context.Context, text string) error {
	g.mu.Lock()
	voice, speed, volume := g.voice, g.speed, g.volume
	g.mu.Unlock()

	var files []string
	for i, chunk := range splitIntoChunks(text, googleChunkBytes) {
		path := filepath.Join(g.cacheDir, cacheKey(voice, speed, volume, chunk)+".mp3")

		if _, err := os.Stat(path); err == nil {
			logrus.WithFields(logrus.Fields{"chunk": i, "file": path}).Debug("using cached audio")
		} else if err := g.synthesize(ctx, voice, speed, volume, chunk, path); err != nil {
			return fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}

		files = append(files, path)
	}

	for _, path := range files {
		if err := g.play(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoogleEngine) synthesize(ctx context.Context, voice string, speed, volume float64, text, path string) error {
	audio := &texttospeechpb.AudioConfig{AudioEncoding: texttospeechpb.AudioEncoding_MP3}

	// Chirp voices reject speaking rate and gain
	if !strings.Contains(strings.ToLower(voice), "chirp") {
		audio.SpeakingRate = speed
		audio.VolumeGainDb = volumeGainDb(volume)
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voiceLanguage(voice),
			Name:         voice,
		},
		AudioConfig: audio,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, resp.AudioContent, 0644); err != nil {
		return fmt.Errorf("failed to write MP3 to %s: %w", path, err)
	}

	logrus.WithField("file", path).Debug("cached synthesized audio")
	return nil
}

func (g *GoogleEngine) initSpeaker(format beep.Format) error {
	g.speakerOnce.Do(func() {
		g.speakerRate = format.SampleRate
		g.speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	return g.speakerErr
}

// play blocks until the file finished playing, Stop was called or ctx is done.
func (g *GoogleEngine) play(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}
	defer streamer.Close()

	if err := g.initSpeaker(format); err != nil {
		return fmt.Errorf("failed to initialise speaker: %w", err)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != g.speakerRate {
		source = beep.Resample(4, format.SampleRate, g.speakerRate, streamer)
	}

	done := make(chan struct{})
	stop := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: source}

	g.mu.Lock()
	g.ctrl = ctrl
	g.stop = stop
	g.playing = true
	g.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))

	var result error
	select {
	case <-done:
	case <-stop:
		speaker.Clear()
	case <-ctx.Done():
		speaker.Clear()
		result = ctx.Err()
	}

	g.mu.Lock()
	g.ctrl = nil
	g.stop = nil
	g.playing = false
	g.mu.Unlock()

	return result
}

func (g *GoogleEngine) SetVoice(voice string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.voice = voice
	return nil
}

func (g *GoogleEngine) SetSpeed(speed float64) error {
	if speed < 0.25 || speed > 4.0 {
		return fmt.Errorf("speed must be between 0.25 and 4.0")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speed = speed
	return nil
}

func (g *GoogleEngine) SetVolume(volume float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.volume = volume
	return nil
}

func (g *GoogleEngine) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
	return nil
}

func (g *GoogleEngine) Pause() error {
	return g.setPaused(true)
}

func (g *GoogleEngine) Resume() error {
	return g.setPaused(false)
}

func (g *GoogleEngine) setPaused(paused bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctrl != nil {
		speaker.Lock()
		g.ctrl.Paused = paused
		speaker.Unlock()
	}
	return nil
}

func (g *GoogleEngine) IsPlaying() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playing && g.ctrl != nil && !g.ctrl.Paused
}

func (g *GoogleEngine) AvailableVoices(ctx context.Context) ([]string, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := make([]string, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

func (g *GoogleEngine) Close() error {
	return g.client.Close()
}

// voiceLanguage takes the BCP-47 prefix of a voice name: "en-GB-Neural2-A" is "en-GB".
func voiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// volumeGainDb maps a linear 0..2 volume onto the API's -96..16 dB range.
func volumeGainDb(volume float64) float64 {
	switch {
	case volume <= 0:
		return -96
	case volume >= 2:
		return 6
	default:
		return (volume - 1) * 6
	}
}

func cacheKey(voice string, speed, volume float64, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.2f|%.2f|%s", voice, speed, volume, text)))
	return hex.EncodeToString(sum[:8])
}

// splitIntoChunks cuts text into pieces of at most limit bytes without
// splitting a UTF-8 sequence.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	for len(text) > 0 {
		end := min(limit, len(text))
		for end > 0 && end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == 0 {
			// limit is smaller than the next rune; take the whole rune
			_, end = utf8.DecodeRuneInString(text)
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}
