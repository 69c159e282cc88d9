package advisory

// Source records which strategy produced an advisory.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
	SourceMock  Source = "mock"
)

// DefaultRole addresses advisories to the authority operating the dashboard.
const DefaultRole = "Authority"

// Request is the input of one advisory generation.
type Request struct {
	Severity string   `json:"severity" validate:"required,notblank,max=32"`
	Drivers  []string `json:"drivers" validate:"max=16,dive,max=200"`
	Role     string   `json:"role" validate:"max=64"`
}

// Advisory is the generated guidance text.
type Advisory struct {
	Severity string `json:"severity"`
	Text     string `json:"text"`
	Source   Source `json:"source"`
}
