package speech

import (
	"context"
	"errors"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

// Engine names as reported in results and metrics.
const (
	EngineVolcengine  = "volcengine"
	EngineGoogleCloud = "google-cloud"
	EngineGTTS        = "gtts"
	EngineCache       = "cache"
	EngineText        = "text"
	EngineNone        = "none"
)

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("tts text is empty")

// Engine is one text-to-speech backend.
type Engine interface {
	Name() string
	// Available is false when the engine lacks credentials or is disabled.
	Available() bool
	Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}
