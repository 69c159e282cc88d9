package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Data    DataConfig
	LLM     LLMConfig
	SMS     SMSConfig
	Speech  SpeechConfig
	Weather WeatherConfig
	Routing RoutingConfig
	Reports ReportsConfig
	Auth    AuthConfig
}

// Load reads configuration from the process environment. Call godotenv.Load
// beforehand to pick up a project-root .env file.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	data, err := loadDataConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	sms, err := loadSMSConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(data)
	if err != nil {
		return nil, err
	}

	weather, err := loadWeatherConfig()
	if err != nil {
		return nil, err
	}

	routing, err := loadRoutingConfig(data)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Log:     loadLogConfig(),
		Data:    data,
		LLM:     llm,
		SMS:     sms,
		Speech:  speech,
		Weather: weather,
		Routing: routing,
		Reports: loadReportsConfig(),
		Auth:    AuthConfig{OperatorSecret: strings.TrimSpace(os.Getenv("OPERATOR_JWT_SECRET"))},
	}, nil
}

// Integrations reports the live/fallback mode of every vendor integration.
func (c *Config) Integrations() []IntegrationStatus {
	return []IntegrationStatus{
		statusOf("llm", c.LLM.Missing()),
		statusOf(TwilioGroup.Name, c.SMS.Missing()),
		statusOf(VolcengineGroup.Name, c.Speech.VolcengineMissing()),
		statusOf(GoogleCloudGroup.Name, c.Speech.GoogleCloudMissing()),
		statusOf(WeatherGroup.Name, c.Weather.Missing()),
	}
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	RateLimitRPS   float64
	RateLimitBurst int
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	rps, err := parseOptionalFloatEnv("RATE_LIMIT_RPS")
	if err != nil {
		return ServerConfig{}, err
	}
	burst, err := parseOptionalIntEnv("RATE_LIMIT_BURST")
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{RateLimitRPS: 20, RateLimitBurst: 40}
	if rps != nil {
		cfg.RateLimitRPS = *rps
	}
	if burst != nil {
		cfg.RateLimitBurst = *burst
	}

	switch {
	case strings.Contains(port, ":"):
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		cfg.Addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		cfg.Addr = ":" + port
	}

	return cfg, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// DataConfig locates the on-disk artifacts.
type DataConfig struct {
	Dir string
	// HazardSpreadKm grows every loaded hazard zone outward.
	HazardSpreadKm float64
}

func loadDataConfig() (DataConfig, error) {
	cfg := DataConfig{Dir: getEnvOrDefault("DATA_DIR", "data")}

	spread, err := parseOptionalFloatEnv("HAZARD_SPREAD_KM")
	if err != nil {
		return DataConfig{}, err
	}
	if spread != nil {
		if *spread < 0 {
			return DataConfig{}, fmt.Errorf("HAZARD_SPREAD_KM must not be negative")
		}
		cfg.HazardSpreadKm = *spread
	}
	return cfg, nil
}

// AdvisoryCachePath is the JSON file holding the last advisory per severity.
func (d DataConfig) AdvisoryCachePath() string {
	return filepath.Join(d.Dir, "cached_advisories.json")
}

// GraphPath is the cached street graph.
func (d DataConfig) GraphPath() string {
	return filepath.Join(d.Dir, "local_graph.json")
}

// AlertsDir receives generated audio and text fallbacks.
func (d DataConfig) AlertsDir() string {
	return filepath.Join(d.Dir, "alerts")
}

// LLMConfig describes the advisory/translation model providers.
type LLMConfig struct {
	OpenAIKey       string
	OpenRouterKey   string
	UseOpenRouter   bool
	Provider        string
	Model           string
	OpenRouterModel string
	MaxTokens       int
	Timeout         time.Duration
	Ark             ArkConfig
}

// ArkConfig holds the Volcengine Ark credentials.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
}

// Enabled reports whether the Ark key set is usable.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// LLMProvider is the resolved provider used to build a chat model.
type LLMProvider struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// ResolveProvider picks the live provider. OpenRouter wins when requested and
// keyed, then OpenAI, then Ark when LLM_PROVIDER=ark. ok is false when no
// credential group is complete.
func (c LLMConfig) ResolveProvider() (LLMProvider, bool) {
	switch {
	case c.UseOpenRouter && c.OpenRouterKey != "":
		return LLMProvider{Name: "openrouter", APIKey: c.OpenRouterKey, BaseURL: openRouterBaseURL, Model: c.OpenRouterModel}, true
	case c.OpenAIKey != "":
		return LLMProvider{Name: "openai", APIKey: c.OpenAIKey, Model: c.Model}, true
	case strings.EqualFold(c.Provider, "ark") && c.Ark.Enabled():
		return LLMProvider{Name: "ark", APIKey: c.Ark.APIKey, BaseURL: c.Ark.BaseURL, Model: c.Ark.Model}, true
	default:
		return LLMProvider{}, false
	}
}

// Missing lists the variables that would enable the default provider.
func (c LLMConfig) Missing() []string {
	if _, ok := c.ResolveProvider(); ok {
		return nil
	}
	if c.UseOpenRouter {
		return []string{"OPENROUTER_API_KEY"}
	}
	return []string{"OPENAI_API_KEY"}
}

func loadLLMConfig() (LLMConfig, error) {
	useOpenRouter, err := parseBoolEnv("USE_OPENROUTER", false)
	if err != nil {
		return LLMConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return LLMConfig{}, err
	}
	tokens := 150
	if maxTokens != nil && *maxTokens > 0 {
		tokens = *maxTokens
	}

	timeout, err := parseOptionalIntEnv("LLM_TIMEOUT_SECONDS")
	if err != nil {
		return LLMConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil && *timeout > 0 {
		timeoutSeconds = *timeout
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return LLMConfig{}, err
	}
	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		OpenAIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenRouterKey:   strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		UseOpenRouter:   useOpenRouter,
		Provider:        getEnvOrDefault("LLM_PROVIDER", "openai"),
		Model:           getEnvOrDefault("LLM_MODEL", "gpt-3.5-turbo"),
		OpenRouterModel: getEnvOrDefault("OPENROUTER_MODEL", "openai/gpt-3.5-turbo"),
		MaxTokens:       tokens,
		Timeout:         time.Duration(timeoutSeconds) * time.Second,
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("Model")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			TopP:        topP,
		},
	}, nil
}

// SMSConfig holds the Twilio credential group and send limits.
type SMSConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	ToNumber      string
	RatePerMinute float64
	Burst         int
}

// Missing lists absent members of the Twilio credential group.
func (c SMSConfig) Missing() []string {
	return TwilioGroup.Missing(mapLookup(map[string]string{
		"TWILIO_ACCOUNT_SID": c.AccountSID,
		"TWILIO_AUTH_TOKEN":  c.AuthToken,
		"TWILIO_FROM_NUMBER": c.FromNumber,
		"TWILIO_TO_NUMBER":   c.ToNumber,
	}))
}

// Enabled is true when all four Twilio values are present.
func (c SMSConfig) Enabled() bool {
	return len(c.Missing()) == 0
}

func loadSMSConfig() (SMSConfig, error) {
	rate, err := parseOptionalFloatEnv("SMS_RATE_PER_MINUTE")
	if err != nil {
		return SMSConfig{}, err
	}
	burst, err := parseOptionalIntEnv("SMS_BURST")
	if err != nil {
		return SMSConfig{}, err
	}

	cfg := SMSConfig{
		AccountSID:    strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:     strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		FromNumber:    strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		ToNumber:      strings.TrimSpace(os.Getenv("TWILIO_TO_NUMBER")),
		RatePerMinute: 10,
		Burst:         3,
	}
	if rate != nil {
		cfg.RatePerMinute = *rate
	}
	if burst != nil {
		cfg.Burst = *burst
	}
	return cfg, nil
}

// SpeechConfig describes the text-to-speech engines.
type SpeechConfig struct {
	// Volcengine
	AppID       string
	AccessToken string
	APIKey      string
	TTSVoice    string
	TTSSpeed    float32
	TTSVolume   float32
	Timeout     int

	// Google Cloud
	GoogleCredentialsFile string

	// gTTS endpoint and shared settings
	GTTSEnabled bool
	Language    string
	MaxRetries  int
	BaseDelay   time.Duration
	OutputDir   string
}

// VolcengineMissing lists absent members of the Volcengine group.
func (c SpeechConfig) VolcengineMissing() []string {
	token := c.AccessToken
	if token == "" {
		token = c.APIKey
	}
	return VolcengineGroup.Missing(mapLookup(map[string]string{
		"SPEECH_APP_ID":       c.AppID,
		"SPEECH_ACCESS_TOKEN": token,
	}))
}

// GoogleCloudMissing treats a credential path that does not exist as missing.
func (c SpeechConfig) GoogleCloudMissing() []string {
	path := strings.TrimSpace(c.GoogleCredentialsFile)
	if path == "" {
		return []string{"GOOGLE_APPLICATION_CREDENTIALS"}
	}
	if _, err := os.Stat(path); err != nil {
		return []string{"GOOGLE_APPLICATION_CREDENTIALS"}
	}
	return nil
}

func loadSpeechConfig(data DataConfig) (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	gtts, err := parseBoolEnv("GTTS_ENABLED", true)
	if err != nil {
		return SpeechConfig{}, err
	}

	retries, err := parseOptionalIntEnv("TTS_MAX_RETRIES")
	if err != nil {
		return SpeechConfig{}, err
	}
	maxRetries := 3
	if retries != nil && *retries > 0 {
		maxRetries = *retries
	}

	delay, err := parseOptionalIntEnv("TTS_BASE_DELAY_MS")
	if err != nil {
		return SpeechConfig{}, err
	}
	baseDelay := time.Second
	if delay != nil && *delay >= 0 {
		baseDelay = time.Duration(*delay) * time.Millisecond
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	apiKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if accessToken == "" {
		accessToken = apiKey
	}

	return SpeechConfig{
		AppID:                 strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:           accessToken,
		APIKey:                apiKey,
		TTSVoice:              getEnvOrDefault("SPEECH_TTS_VOICE", "en_female_amy_jupiter_bigtts"),
		TTSSpeed:              ttsSpeed,
		TTSVolume:             ttsVolume,
		Timeout:               timeoutSeconds,
		GoogleCredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GTTSEnabled:           gtts,
		Language:              getEnvOrDefault("TTS_LANGUAGE", "en"),
		MaxRetries:            maxRetries,
		BaseDelay:             baseDelay,
		OutputDir:             data.AlertsDir(),
	}, nil
}

// WeatherConfig configures the OpenWeather lookup.
type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Missing lists absent members of the OpenWeather group.
func (c WeatherConfig) Missing() []string {
	return WeatherGroup.Missing(mapLookup(map[string]string{"OPENWEATHER_API_KEY": c.APIKey}))
}

func loadWeatherConfig() (WeatherConfig, error) {
	return WeatherConfig{
		APIKey:  strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		BaseURL: getEnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		Timeout: 5 * time.Second,
	}, nil
}

// RoutingConfig configures the street graph loader.
type RoutingConfig struct {
	CenterLat   float64
	CenterLon   float64
	Dist        float64
	Online      bool
	OverpassURL string
	GraphPath   string
	GridSize    int
}

func loadRoutingConfig(data DataConfig) (RoutingConfig, error) {
	cfg := RoutingConfig{
		CenterLat:   9.9312,
		CenterLon:   76.2673,
		Dist:        1500,
		OverpassURL: getEnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		GraphPath:   data.GraphPath(),
		GridSize:    10,
	}

	lat, err := parseOptionalFloatEnv("ROUTING_CENTER_LAT")
	if err != nil {
		return RoutingConfig{}, err
	}
	if lat != nil {
		cfg.CenterLat = *lat
	}

	lon, err := parseOptionalFloatEnv("ROUTING_CENTER_LON")
	if err != nil {
		return RoutingConfig{}, err
	}
	if lon != nil {
		cfg.CenterLon = *lon
	}

	dist, err := parseOptionalFloatEnv("ROUTING_DIST")
	if err != nil {
		return RoutingConfig{}, err
	}
	if dist != nil && *dist > 0 {
		cfg.Dist = *dist
	}

	online, err := parseBoolEnv("ROUTING_ONLINE", true)
	if err != nil {
		return RoutingConfig{}, err
	}
	cfg.Online = online

	return cfg, nil
}

// ReportsConfig selects the incident report backend. An empty DBPath keeps
// reports in memory.
type ReportsConfig struct {
	DBPath    string
	IndexPath string
}

func loadReportsConfig() ReportsConfig {
	return ReportsConfig{
		DBPath:    strings.TrimSpace(os.Getenv("REPORTS_DB_PATH")),
		IndexPath: strings.TrimSpace(os.Getenv("REPORTS_INDEX_PATH")),
	}
}

// AuthConfig guards operator endpoints. Without a secret they stay open.
type AuthConfig struct {
	OperatorSecret string
}

// Enabled reports whether operator tokens are required.
func (c AuthConfig) Enabled() bool {
	return c.OperatorSecret != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
