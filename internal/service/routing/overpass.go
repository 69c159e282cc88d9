package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OverpassClient downloads the walkable street network around a point.
type OverpassClient struct {
	endpoint string
	client   *http.Client
}

func NewOverpassClient(endpoint string, client *http.Client) *OverpassClient {
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &OverpassClient{endpoint: endpoint, client: client}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// nonWalkable highway values are excluded from the walk network.
var nonWalkable = map[string]bool{
	"motorway":      true,
	"motorway_link": true,
	"trunk":         true,
	"trunk_link":    true,
	"construction":  true,
	"proposed":      true,
	"raceway":       true,
	"bus_guideway":  true,
}

func overpassQuery(lat, lon, dist float64) string {
	return fmt.Sprintf(`[out:json][timeout:60];way["highway"](around:%.0f,%.6f,%.6f);(._;>;);out body;`, dist, lat, lon)
}

// Download fetches ways tagged highway within dist metres of (lat, lon).
func (c *OverpassClient) Download(ctx context.Context, lat, lon, dist float64) (*Graph, error) {
	form := url.Values{"data": {overpassQuery(lat, lon, dist)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	g := buildFromElements(payload.Elements)
	if g.NumEdges() == 0 {
		return nil, fmt.Errorf("overpass returned no walkable ways around %.4f,%.4f", lat, lon)
	}
	return g, nil
}

func walkable(tags map[string]string) bool {
	hw := tags["highway"]
	if hw == "" || nonWalkable[hw] {
		return false
	}
	if tags["foot"] == "no" || tags["access"] == "private" || tags["area"] == "yes" {
		return false
	}
	return true
}

func buildFromElements(elements []overpassElement) *Graph {
	coords := make(map[int64]overpassElement)
	for _, el := range elements {
		if el.Type == "node" {
			coords[el.ID] = el
		}
	}

	g := NewGraph()
	for _, el := range elements {
		if el.Type != "way" || !walkable(el.Tags) {
			continue
		}
		speed := parseMaxSpeed(el.Tags["maxspeed"])
		for i := 1; i < len(el.Nodes); i++ {
			a, okA := coords[el.Nodes[i-1]]
			b, okB := coords[el.Nodes[i]]
			if !okA || !okB {
				continue
			}
			g.AddNode(Node{ID: a.ID, Lat: a.Lat, Lon: a.Lon})
			g.AddNode(Node{ID: b.ID, Lat: b.Lat, Lon: b.Lon})
			g.AddEdge(Edge{From: a.ID, To: b.ID, SpeedKPH: speed})
		}
	}
	return g
}

// parseMaxSpeed reads "50", "30 mph" or "50 km/h". Unknown values give 0.
func parseMaxSpeed(raw string) float64 {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || v <= 0 {
		return 0
	}
	if len(fields) > 1 && strings.EqualFold(fields[1], "mph") {
		return v * 1.609344
	}
	return v
}
