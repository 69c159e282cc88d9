package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	geomodel "github.com/crowdshield/dashboard/backend/internal/model/geo"
	"github.com/crowdshield/dashboard/backend/internal/model/route"
)

const (
	// maxSnapMeters bounds how far an endpoint may be from the graph before
	// the planner gives up on the street network.
	maxSnapMeters       = 2000
	defaultMarginMeters = 200
)

// ErrNoTarget is returned when the request has no target and the state has
// no shelters.
var ErrNoTarget = errors.New("no target and no shelter to route to")

// Planner answers route requests on a per-request clone of the shared graph.
type Planner struct {
	loader *Loader
	online bool
	logger *zap.Logger
}

func NewPlanner(loader *Loader, online bool, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{loader: loader, online: online, logger: logger.Named("planner")}
}

// Loader exposes the graph loader.
func (p *Planner) Loader() *Loader { return p.loader }

// Plan routes from req.Origin to req.Target, or to the nearest shelter when
// no target is given. Hazards are blocked when AvoidHazards is set and are
// priced in by the safest mode.
func (p *Planner) Plan(ctx context.Context, req route.Request, hazards []geomodel.Hazard, shelters []geomodel.Shelter) (route.Route, error) {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = route.ModeShortest
	}

	out := route.Route{Mode: mode}
	if req.Target != nil {
		out.Target = *req.Target
	} else {
		shelter, ok := NearestShelter(req.Origin, shelters)
		if !ok {
			return route.Route{}, ErrNoTarget
		}
		out.Target = route.Point{shelter.Lat, shelter.Lon}
		out.TargetName = shelter.Name
	}

	g := p.loader.Load(ctx, p.online).Clone()
	out.GraphSource = p.loader.Source()

	if req.AvoidHazards {
		out.BlockedEdges = BlockEdgesByHazards(g, HazardPolygons(hazards))
	}
	if mode == route.ModeSafest {
		margin := req.MarginMeters
		if margin <= 0 {
			margin = defaultMarginMeters
		}
		out.PenalizedEdges = ApplyHazardPenalty(g, hazards, margin)
	}

	if !p.snaps(g, req.Origin) || !p.snaps(g, out.Target) {
		p.logger.Debug("endpoint outside street graph, using straight line")
		return p.straight(out, req.Origin), nil
	}

	points, err := ComputePath(g, req.Origin, out.Target, WeightFor(mode))
	if err != nil {
		p.logger.Debug("no street path", zap.String("mode", mode), zap.Error(err))
		return p.straight(out, req.Origin), nil
	}
	out.Path = points
	out.DistanceMeters = PathLength(points)
	return out, nil
}

func (p *Planner) snaps(g *Graph, pt route.Point) bool {
	_, d, ok := g.Nearest(pt.Lat(), pt.Lon())
	return ok && d <= maxSnapMeters
}

func (p *Planner) straight(out route.Route, origin route.Point) route.Route {
	out.Path = StraightLine(origin, out.Target)
	out.DistanceMeters = PathLength(out.Path)
	out.Fallback = true
	return out
}

// NearestShelter picks the shelter closest to origin.
func NearestShelter(origin route.Point, shelters []geomodel.Shelter) (geomodel.Shelter, bool) {
	from := orb.Point{origin.Lon(), origin.Lat()}
	var best geomodel.Shelter
	bestDist := -1.0
	for _, s := range shelters {
		d := geo.Distance(from, orb.Point{s.Lon, s.Lat})
		if bestDist < 0 || d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist >= 0
}
