package geo

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Risk levels carried by hazard zones.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// NormalizeRisk lower-cases a risk label and defaults unknown values to high.
func NormalizeRisk(risk string) string {
	switch r := strings.ToLower(strings.TrimSpace(risk)); r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return r
	default:
		return RiskHigh
	}
}

// RiskColor is the map fill colour for a risk level.
func RiskColor(risk string) string {
	switch NormalizeRisk(risk) {
	case RiskLow:
		return "yellow"
	case RiskMedium:
		return "orange"
	case RiskCritical:
		return "darkred"
	default:
		return "red"
	}
}

// RiskWeight scales routing penalties by risk level.
func RiskWeight(risk string) float64 {
	switch NormalizeRisk(risk) {
	case RiskLow:
		return 0.5
	case RiskMedium:
		return 1
	case RiskCritical:
		return 4
	default:
		return 2
	}
}

// Hazard is a polygonal danger zone.
type Hazard struct {
	Name       string         `json:"name"`
	Risk       string         `json:"risk"`
	Geometry   orb.Geometry   `json:"-"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Shelter is a safe zone with a head-count capacity.
type Shelter struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Capacity int     `json:"capacity"`
}

// CrowdPoint is one crowd telemetry sample.
type CrowdPoint struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	People int     `json:"people"`
}

// Weather is the per-state weather snapshot.
type Weather struct {
	State      string  `json:"state"`
	RainfallMM float64 `json:"rainfall_mm"`
	WindKPH    float64 `json:"wind_kph"`
	Timestamp  *int64  `json:"timestamp"`
	Source     string  `json:"source"`
}

// StateData bundles everything the dashboard shows for one state.
type StateData struct {
	State    string       `json:"state"`
	Hazards  []Hazard     `json:"hazards"`
	Shelters []Shelter    `json:"shelters"`
	Crowd    []CrowdPoint `json:"crowd"`
	Weather  Weather      `json:"weather"`
	LoadedAt time.Time    `json:"loadedAt"`
}

// TotalPeople sums the crowd telemetry.
func (d StateData) TotalPeople() int {
	total := 0
	for _, p := range d.Crowd {
		total += p.People
	}
	return total
}
