package speech

// TTSRequest is one synthesis call against a single engine.
type TTSRequest struct {
	UID      string  `json:"uid,omitempty"`
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float32 `json:"speed,omitempty"`
	Volume   float32 `json:"volume,omitempty"`
	Format   string  `json:"format,omitempty"` // mp3 only for alerts
	Language string  `json:"language"`         // ISO 639-1, e.g. en, hi, ml
}

// SynthesizeRequest is the HTTP payload of /api/speech/synthesize.
type SynthesizeRequest struct {
	Text     string `json:"text" validate:"required,max=5000"`
	Lang     string `json:"lang" validate:"omitempty,max=16"`
	Filename string `json:"filename" validate:"omitempty,max=128"`
}
