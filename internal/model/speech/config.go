package speech

// VolcengineConfig holds the Volcengine TTS credential group and voice defaults.
type VolcengineConfig struct {
	AppID       string  `json:"appId"`
	AccessToken string  `json:"accessToken"`
	TTSVoice    string  `json:"ttsVoice"`
	TTSSpeed    float32 `json:"ttsSpeed"`
	TTSVolume   float32 `json:"ttsVolume"`
	Timeout     int     `json:"timeout"` // seconds
}
