package state

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// State is one supported region of the dashboard.
type State struct {
	ID   string  `yaml:"id" json:"id"`
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
	Zoom int     `yaml:"zoom" json:"zoom"`
}

// Slug is the file-name form used by the per-state data files.
func (s State) Slug() string {
	return Slugify(s.Name)
}

// Slugify lower-cases a state name and replaces spaces with underscores.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Fallback centre used for names outside the catalog.
const (
	FallbackLat = 20.5937
	FallbackLon = 78.9629
)

//go:embed states.yaml
var catalogYAML []byte

type catalogFile struct {
	States []State `yaml:"states"`
}

// Seed parses the embedded catalog of supported states.
func Seed() ([]State, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("decode state catalog: %w", err)
	}
	for i := range file.States {
		if file.States[i].ID == "" {
			file.States[i].ID = file.States[i].Slug()
		}
		if file.States[i].Zoom == 0 {
			file.States[i].Zoom = 11
		}
	}
	return file.States, nil
}

// MustSeed is Seed for process start-up and tests.
func MustSeed() []State {
	states, err := Seed()
	if err != nil {
		panic(err)
	}
	return states
}
