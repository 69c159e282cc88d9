package route

// Modes accepted by the planner.
const (
	ModeShortest = "shortest"
	ModeFastest  = "fastest"
	ModeSafest   = "safest"
)

// Point is a [lat, lon] pair.
type Point [2]float64

func (p Point) Lat() float64 { return p[0] }
func (p Point) Lon() float64 { return p[1] }

// Request is the payload of POST /api/routes. Target defaults to the nearest
// shelter of the state when omitted.
type Request struct {
	State        string  `json:"state" validate:"omitempty,max=64"`
	Origin       Point   `json:"origin"`
	Target       *Point  `json:"target,omitempty"`
	Mode         string  `json:"mode" validate:"omitempty,oneof=shortest fastest safest"`
	AvoidHazards bool    `json:"avoidHazards"`
	MarginMeters float64 `json:"marginMeters" validate:"gte=0,lte=5000"`
}

// Route is the planner's answer. Fallback is set when the street graph had no
// path and the straight line was returned instead.
type Route struct {
	Mode           string  `json:"mode"`
	Path           []Point `json:"path"`
	DistanceMeters float64 `json:"distanceMeters"`
	GraphSource    string  `json:"graphSource"`
	BlockedEdges   int     `json:"blockedEdges"`
	PenalizedEdges int     `json:"penalizedEdges"`
	Fallback       bool    `json:"fallback"`
	Target         Point   `json:"target"`
	TargetName     string  `json:"targetName,omitempty"`
}
