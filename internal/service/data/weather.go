package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
	"github.com/crowdshield/dashboard/backend/internal/model/geo"
	"github.com/crowdshield/dashboard/backend/internal/model/state"
)

// Weather sources.
const (
	WeatherStatic      = "static"
	WeatherOpenWeather = "openweather"
)

// Static weather used without an OpenWeather key or when the call fails.
const (
	DefaultRainfallMM = 30
	DefaultWindKPH    = 25
)

// WeatherClient reads current conditions from OpenWeather.
type WeatherClient struct {
	cfg    config.WeatherConfig
	client *http.Client
	logger *zap.Logger
}

func NewWeatherClient(cfg config.WeatherConfig, logger *zap.Logger) *WeatherClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WeatherClient{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger.Named("weather")}
}

func (c *WeatherClient) Mode() config.Mode {
	if len(c.cfg.Missing()) > 0 {
		return config.ModeFallback
	}
	return config.ModeLive
}

// DefaultWeather is the static snapshot for a state.
func DefaultWeather(name string) geo.Weather {
	return geo.Weather{State: name, RainfallMM: DefaultRainfallMM, WindKPH: DefaultWindKPH, Source: WeatherStatic}
}

// Fetch never fails; any problem yields DefaultWeather.
func (c *WeatherClient) Fetch(ctx context.Context, st state.State) geo.Weather {
	fallback := DefaultWeather(st.Name)
	if c.Mode() == config.ModeFallback {
		metrics.ObserveIntegration(config.WeatherGroup.Name, string(config.ModeFallback), metrics.OutcomeSkipped)
		return fallback
	}

	start := time.Now()
	w, err := c.fetch(ctx, st)
	metrics.IntegrationDuration.WithLabelValues(config.WeatherGroup.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ObserveIntegration(config.WeatherGroup.Name, string(config.ModeLive), metrics.OutcomeError)
		c.logger.Warn("weather lookup failed", zap.String("state", st.Name), zap.Error(err))
		return fallback
	}
	metrics.ObserveIntegration(config.WeatherGroup.Name, string(config.ModeLive), metrics.OutcomeSuccess)
	return w
}

func (c *WeatherClient) fetch(ctx context.Context, st state.State) (geo.Weather, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(st.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(st.Lon, 'f', 4, 64))
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Weather{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Weather{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return geo.Weather{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Weather{}, fmt.Errorf("openweather status %d: %s", resp.StatusCode, gjson.GetBytes(body, "message").String())
	}
	if !gjson.ValidBytes(body) {
		return geo.Weather{}, fmt.Errorf("openweather returned invalid json")
	}

	parsed := gjson.ParseBytes(body)
	w := geo.Weather{
		State:      st.Name,
		RainfallMM: parsed.Get("rain.1h").Float(),
		WindKPH:    parsed.Get("wind.speed").Float() * 3.6,
		Source:     WeatherOpenWeather,
	}
	if dt := parsed.Get("dt"); dt.Exists() {
		ts := dt.Int()
		w.Timestamp = &ts
	}
	return w, nil
}
