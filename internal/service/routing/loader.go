package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
)

// Graph sources reported by Loader.Source and the graph_loads metric.
const (
	SourceMemory   = "memory"
	SourceCache    = "cache"
	SourceDownload = "download"
	SourceGrid     = "grid"
)

const downloadTimeout = 90 * time.Second

// Downloader fetches a fresh street graph. *OverpassClient satisfies it.
type Downloader interface {
	Download(ctx context.Context, lat, lon, dist float64) (*Graph, error)
}

// Loader owns the shared street graph. The first load prefers the cache file,
// then a download, then a synthetic grid; later calls return the memoized
// graph.
type Loader struct {
	cfg        config.RoutingConfig
	downloader Downloader
	logger     *zap.Logger

	group singleflight.Group

	mu     sync.RWMutex
	graph  *Graph
	source string
}

type LoaderOption func(*Loader)

func WithDownloader(d Downloader) LoaderOption {
	return func(l *Loader) { l.downloader = d }
}

func NewLoader(cfg config.RoutingConfig, logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		cfg:        cfg,
		downloader: NewOverpassClient(cfg.OverpassURL, nil),
		logger:     logger.Named("routing"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source tells where the memoized graph came from, empty before the first load.
func (l *Loader) Source() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source
}

func (l *Loader) memo() *Graph {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.graph
}

// Load returns the shared graph. Callers must Clone it before mutating.
// Concurrent first calls share one load.
func (l *Loader) Load(ctx context.Context, online bool) *Graph {
	if g := l.memo(); g != nil {
		metrics.GraphLoads.WithLabelValues(SourceMemory).Inc()
		return g
	}

	v, _, _ := l.group.Do("graph", func() (any, error) {
		if g := l.memo(); g != nil {
			return g, nil
		}
		// The load outlives any single caller's cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), downloadTimeout)
		defer cancel()

		g, source := l.load(loadCtx, online)
		l.mu.Lock()
		l.graph, l.source = g, source
		l.mu.Unlock()

		metrics.GraphLoads.WithLabelValues(source).Inc()
		metrics.GraphEdges.Set(float64(g.NumEdges()))
		l.logger.Info("street graph loaded",
			zap.String("source", source),
			zap.Int("nodes", g.NumNodes()),
			zap.Int("edges", g.NumEdges()))
		return g, nil
	})
	return v.(*Graph)
}

func (l *Loader) load(ctx context.Context, online bool) (*Graph, string) {
	if g, err := readGraphFile(l.cfg.GraphPath); err == nil {
		return g, SourceCache
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("cached graph unreadable", zap.String("path", l.cfg.GraphPath), zap.Error(err))
	}

	if online && l.downloader != nil {
		g, err := l.downloader.Download(ctx, l.cfg.CenterLat, l.cfg.CenterLon, l.cfg.Dist)
		if err == nil {
			if err := writeGraphFile(l.cfg.GraphPath, g); err != nil {
				l.logger.Warn("failed to cache graph", zap.String("path", l.cfg.GraphPath), zap.Error(err))
			}
			return g, SourceDownload
		}
		l.logger.Warn("graph download failed, using grid", zap.Error(err))
	}

	return BuildGrid(l.cfg.CenterLat, l.cfg.CenterLon, l.cfg.GridSize, 100), SourceGrid
}

// Refresh drops the cache file and the memo, then loads online.
func (l *Loader) Refresh(ctx context.Context) (*Graph, error) {
	if err := os.Remove(l.cfg.GraphPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove cached graph: %w", err)
	}
	l.Reset()
	return l.Load(ctx, true), nil
}

// Reset forgets the memoized graph without touching the cache file.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.graph, l.source = nil, ""
	l.mu.Unlock()
}

func readGraphFile(path string) (*Graph, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f graphFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode graph file: %w", err)
	}
	return graphFromFile(f), nil
}

func writeGraphFile(path string, g *Graph) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(g.toFile())
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
