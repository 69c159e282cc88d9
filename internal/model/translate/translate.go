package translate

// Source tells which path produced a translation.
type Source string

const (
	SourceLive        Source = "live"
	SourceStatic      Source = "static"
	SourcePassthrough Source = "passthrough"
)

// Request is the payload of POST /api/translate.
type Request struct {
	Text string `json:"text" validate:"required,max=4000"`
	Lang string `json:"lang" validate:"omitempty,max=16"`
}

// Translation is the result of one translate call. Detected is the ISO 639-1
// code guessed for the input, empty when detection was not reliable.
type Translation struct {
	Text     string `json:"text"`
	Lang     string `json:"lang"`
	Detected string `json:"detected,omitempty"`
	Source   Source `json:"source"`
}
