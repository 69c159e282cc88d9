package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crowdshield/dashboard/backend/internal/model/geo"
	"github.com/crowdshield/dashboard/backend/internal/model/state"
)

const preloadConcurrency = 4

// WeatherSource fetches weather for a state. *WeatherClient satisfies it.
type WeatherSource interface {
	Fetch(ctx context.Context, st state.State) geo.Weather
}

// Service loads per-state map data from DATA_DIR and keeps it in memory.
type Service struct {
	dir      string
	states   state.Store
	weather  WeatherSource
	spreadKm float64
	logger   *zap.Logger

	mu           sync.RWMutex
	weatherCache map[string]geo.Weather
	stateCache   map[string]geo.StateData
}

type Option func(*Service)

// WithHazardSpread grows every hazard zone by km when it is loaded.
func WithHazardSpread(km float64) Option {
	return func(s *Service) { s.spreadKm = km }
}

func NewService(dir string, states state.Store, weather WeatherSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		dir:          dir,
		states:       states,
		weather:      weather,
		logger:       logger.Named("data"),
		weatherCache: make(map[string]geo.Weather),
		stateCache:   make(map[string]geo.StateData),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// States exposes the catalog.
func (s *Service) States() state.Store { return s.states }

// Weather returns the cached snapshot for a state, fetching it on first use.
func (s *Service) Weather(ctx context.Context, name string) geo.Weather {
	st := s.states.Resolve(name)

	s.mu.RLock()
	w, ok := s.weatherCache[st.Name]
	s.mu.RUnlock()
	if ok {
		return w
	}

	if s.weather == nil {
		w = DefaultWeather(st.Name)
	} else {
		w = s.weather.Fetch(ctx, st)
	}
	s.mu.Lock()
	s.weatherCache[st.Name] = w
	s.mu.Unlock()
	return w
}

// Paths of the per-state data files. A state file that does not exist falls
// back to the generic file of the same kind.
func (s *Service) hazardPath(st state.State) string {
	return s.pick("hazard_zones_"+st.Slug()+".geojson", "hazard_zones.geojson")
}

func (s *Service) shelterPath(st state.State) string {
	return s.pick("safe_zones_"+st.Slug()+".csv", "safe_zones.csv")
}

func (s *Service) crowdPath(st state.State) string {
	return s.pick("crowd_sim_"+st.Slug()+".csv", "crowd_sim.csv")
}

func (s *Service) pick(specific, generic string) string {
	p := filepath.Join(s.dir, specific)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return filepath.Join(s.dir, generic)
}

// StateData returns the preloaded bundle for a state or loads it on demand.
// File errors are logged and degrade to the loaders' fallbacks.
func (s *Service) StateData(ctx context.Context, name string) geo.StateData {
	st := s.states.Resolve(name)

	s.mu.RLock()
	d, ok := s.stateCache[st.Name]
	s.mu.RUnlock()
	if ok {
		return d
	}
	return s.load(ctx, st)
}

func (s *Service) load(ctx context.Context, st state.State) geo.StateData {
	hazards, err := LoadHazards(s.hazardPath(st), s.spreadKm)
	if err != nil {
		s.logger.Warn("hazard file unreadable", zap.String("state", st.Name), zap.Error(err))
	}
	shelters, err := LoadShelters(s.shelterPath(st))
	if err != nil {
		s.logger.Warn("shelter file unreadable", zap.String("state", st.Name), zap.Error(err))
	}
	crowd, err := LoadCrowd(s.crowdPath(st))
	if err != nil {
		s.logger.Warn("crowd file unreadable", zap.String("state", st.Name), zap.Error(err))
	}
	return geo.StateData{
		State:    st.Name,
		Hazards:  hazards,
		Shelters: shelters,
		Crowd:    crowd,
		Weather:  s.Weather(ctx, st.Name),
		LoadedAt: time.Now(),
	}
}

// PreloadAll loads every catalog state concurrently and stores the results.
// It returns the names that were loaded.
func (s *Service) PreloadAll(ctx context.Context) ([]string, error) {
	states := s.states.List()
	results := make([]geo.StateData, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for i, st := range states {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.load(gctx, st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("preload states: %w", err)
	}

	names := make([]string, 0, len(results))
	s.mu.Lock()
	for _, d := range results {
		s.stateCache[d.State] = d
		names = append(names, d.State)
	}
	s.mu.Unlock()

	s.logger.Info("states preloaded", zap.Int("count", len(names)))
	return names, nil
}

// Preloaded lists the states currently held in memory, sorted.
func (s *Service) Preloaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.stateCache))
	for name := range s.stateCache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearCaches drops the weather and state caches.
func (s *Service) ClearCaches() {
	s.mu.Lock()
	s.weatherCache = make(map[string]geo.Weather)
	s.stateCache = make(map[string]geo.StateData)
	s.mu.Unlock()
}

// ErrUnknownState is returned by strict lookups for names outside the catalog.
var ErrUnknownState = errors.New("unknown state")

// Lookup resolves a catalog state strictly.
func (s *Service) Lookup(name string) (state.State, error) {
	st, ok := s.states.Find(name)
	if !ok {
		return state.State{}, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return st, nil
}
