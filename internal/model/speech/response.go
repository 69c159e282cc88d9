package speech

import "time"

// TTSResponse carries the raw audio produced by one engine.
type TTSResponse struct {
	AudioData []byte    `json:"-"`
	Duration  int64     `json:"duration"` // milliseconds
	Format    string    `json:"format"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result describes the artifact returned by the synthesizer. Path is a file
// path, or the input text itself when nothing could be written.
type Result struct {
	Path     string `json:"path"`
	URL      string `json:"url,omitempty"`
	Engine   string `json:"engine"`
	Language string `json:"language"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
}
