package speech

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

// GoogleCloudEngine wraps the Cloud Text-to-Speech API.
type GoogleCloudEngine struct {
	credentialsFile string

	mu     sync.Mutex
	client *texttospeech.Client
}

func NewGoogleCloudEngine(credentialsFile string) *GoogleCloudEngine {
	return &GoogleCloudEngine{credentialsFile: strings.TrimSpace(credentialsFile)}
}

func (e *GoogleCloudEngine) Name() string { return EngineGoogleCloud }

func (e *GoogleCloudEngine) Available() bool {
	if e.credentialsFile == "" {
		return false
	}
	_, err := os.Stat(e.credentialsFile)
	return err == nil
}

func (e *GoogleCloudEngine) clientFor(ctx context.Context) (*texttospeech.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(e.credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("google tts client: %w", err)
	}
	e.client = client
	return client, nil
}

func (e *GoogleCloudEngine) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	client, err := e.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: googleLanguageCode(req.Language),
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  float64(speedOrDefault(req.Speed)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google tts synthesize: %w", err)
	}
	return &speech.TTSResponse{
		AudioData: resp.GetAudioContent(),
		Format:    "mp3",
		CreatedAt: time.Now(),
	}, nil
}

// Close releases the gRPC connection if one was opened.
func (e *GoogleCloudEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// googleLanguageCode maps a bare ISO 639-1 code to an Indian locale, which is
// where every supported alert language has a voice.
func googleLanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "en-IN"
	}
	if strings.Contains(lang, "-") {
		return lang
	}
	return strings.ToLower(lang) + "-IN"
}

func speedOrDefault(speed float32) float32 {
	if speed <= 0 {
		return 1
	}
	return speed
}
