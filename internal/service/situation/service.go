// Package situation combines a state's geo data and field reports into a risk
// assessment.
package situation

import (
	"context"

	"github.com/samber/lo"

	"github.com/crowdshield/dashboard/backend/internal/analysis/risk"
	"github.com/crowdshield/dashboard/backend/internal/model/geo"
)

// recentNotes caps how many report notes feed the keyword scan.
const recentNotes = 50

type StateSource interface {
	StateData(ctx context.Context, name string) geo.StateData
}

type NoteSource interface {
	Notes(ctx context.Context, state string, limit int) []string
}

// Assessment is the risk decision together with the data it was computed from.
type Assessment struct {
	State    string        `json:"state"`
	Decision risk.Decision `json:"decision"`
	People   int           `json:"people"`
	Hazards  int           `json:"hazards"`
	Reports  int           `json:"reports"`
	Weather  geo.Weather   `json:"weather"`
}

type Service struct {
	data     StateSource
	notes    NoteSource
	analyzer *risk.Analyzer
}

// NewService wires the sources. notes may be nil.
func NewService(data StateSource, notes NoteSource, analyzer *risk.Analyzer) *Service {
	return &Service{data: data, notes: notes, analyzer: analyzer}
}

func (s *Service) Assess(ctx context.Context, state string) Assessment {
	sd := s.data.StateData(ctx, state)

	var notes []string
	if s.notes != nil {
		notes = s.notes.Notes(ctx, sd.State, recentNotes)
	}

	decision := s.analyzer.Assess(risk.Signals{
		Weather:     sd.Weather,
		People:      sd.TotalPeople(),
		HazardRisks: lo.Map(sd.Hazards, func(h geo.Hazard, _ int) string { return h.Risk }),
		Notes:       notes,
	})

	return Assessment{
		State:    sd.State,
		Decision: decision,
		People:   sd.TotalPeople(),
		Hazards:  len(sd.Hazards),
		Reports:  len(notes),
		Weather:  sd.Weather,
	}
}
