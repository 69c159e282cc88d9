package config

import (
	"os"
	"strings"
)

// Mode tells whether an integration calls its vendor or its fallback.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeFallback Mode = "fallback"
)

// LookupFunc resolves a named secret. os.Getenv satisfies it.
type LookupFunc func(key string) string

// CredentialGroup lists the secrets that must all be present before an
// integration may attempt a live call.
type CredentialGroup struct {
	Name string
	Keys []string
}

// Missing returns the keys whose trimmed value is empty, in declaration order.
func (g CredentialGroup) Missing(lookup LookupFunc) []string {
	if lookup == nil {
		lookup = os.Getenv
	}

	var missing []string
	for _, key := range g.Keys {
		if strings.TrimSpace(lookup(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Complete reports whether every key of the group has a value.
func (g CredentialGroup) Complete(lookup LookupFunc) bool {
	return len(g.Missing(lookup)) == 0
}

// Known credential groups.
var (
	OpenAIGroup      = CredentialGroup{Name: "openai", Keys: []string{"OPENAI_API_KEY"}}
	OpenRouterGroup  = CredentialGroup{Name: "openrouter", Keys: []string{"OPENROUTER_API_KEY"}}
	TwilioGroup      = CredentialGroup{Name: "twilio", Keys: []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER", "TWILIO_TO_NUMBER"}}
	VolcengineGroup  = CredentialGroup{Name: "volcengine-tts", Keys: []string{"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN"}}
	GoogleCloudGroup = CredentialGroup{Name: "google-cloud-tts", Keys: []string{"GOOGLE_APPLICATION_CREDENTIALS"}}
	WeatherGroup     = CredentialGroup{Name: "openweather", Keys: []string{"OPENWEATHER_API_KEY"}}
)

// IntegrationStatus is the public view of one integration's credential state.
// Secret values are never included.
type IntegrationStatus struct {
	Name    string   `json:"name"`
	Mode    Mode     `json:"mode"`
	Missing []string `json:"missing,omitempty"`
}

func statusOf(name string, missing []string) IntegrationStatus {
	mode := ModeLive
	if len(missing) > 0 {
		mode = ModeFallback
	}
	return IntegrationStatus{Name: name, Mode: mode, Missing: missing}
}

// mapLookup adapts a map into a LookupFunc, mainly for sections that were
// already parsed.
func mapLookup(values map[string]string) LookupFunc {
	return func(key string) string {
		return values[key]
	}
}
