package broadcast

import (
	"github.com/crowdshield/dashboard/backend/internal/model/advisory"
	"github.com/crowdshield/dashboard/backend/internal/model/alert"
	"github.com/crowdshield/dashboard/backend/internal/model/speech"
	"github.com/crowdshield/dashboard/backend/internal/model/translate"
)

// Request is the payload of POST /api/alerts/broadcast. An empty Severity is
// filled in by the risk assessment of State.
type Request struct {
	State     string   `json:"state" validate:"omitempty,max=64"`
	Severity  string   `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Drivers   []string `json:"drivers" validate:"max=16,dive,max=200"`
	Role      string   `json:"role" validate:"max=64"`
	Languages []string `json:"languages" validate:"max=8,dive,min=2,max=8"`
	To        string   `json:"to" validate:"omitempty,e164"`
	Audio     bool     `json:"audio"`
	SMS       bool     `json:"sms"`
}

// Message is the advisory rendered for one language.
type Message struct {
	Lang        string           `json:"lang"`
	Text        string           `json:"text"`
	Translation translate.Source `json:"translation"`
	Audio       *speech.Result   `json:"audio,omitempty"`
	AudioError  string           `json:"audioError,omitempty"`
	SMS         *alert.Result    `json:"sms,omitempty"`
}

// Result bundles the advisory and every rendered message.
type Result struct {
	Advisory advisory.Advisory `json:"advisory"`
	Messages []Message         `json:"messages"`
}
