package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geomodel "github.com/crowdshield/dashboard/backend/internal/model/geo"
	"github.com/crowdshield/dashboard/backend/internal/model/route"
)

func newOfflinePlanner(t *testing.T) (*Planner, *Graph) {
	t.Helper()
	cfg := testRoutingConfig(t)
	cfg.GridSize = 10
	loader := NewLoader(cfg, nil)
	planner := NewPlanner(loader, false, nil)
	return planner, loader.Load(context.Background(), false)
}

func nodePoint(t *testing.T, g *Graph, id int64) route.Point {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok)
	return route.Point{n.Lat, n.Lon}
}

func TestPlanAcrossGrid(t *testing.T) {
	p, g := newOfflinePlanner(t)
	origin, target := nodePoint(t, g, 0), nodePoint(t, g, 99)

	for _, mode := range []string{"", route.ModeShortest, route.ModeFastest, route.ModeSafest} {
		r, err := p.Plan(context.Background(), route.Request{Origin: origin, Target: &target, Mode: mode}, nil, nil)
		require.NoError(t, err, mode)
		assert.False(t, r.Fallback, mode)
		assert.Equal(t, SourceGrid, r.GraphSource)
		assert.Len(t, r.Path, 19, mode)
		assert.Equal(t, origin, r.Path[0])
		assert.Equal(t, target, r.Path[len(r.Path)-1])
		assert.InDelta(t, 1800, r.DistanceMeters, 10)
	}
}

func TestPlanDoesNotMutateSharedGraph(t *testing.T) {
	p, g := newOfflinePlanner(t)
	edges := g.NumEdges()

	everything := geomodel.Hazard{Name: "City flood", Risk: "critical", Geometry: square(70, 5, 80, 15)}
	origin, target := nodePoint(t, g, 0), nodePoint(t, g, 99)

	r, err := p.Plan(context.Background(), route.Request{Origin: origin, Target: &target, AvoidHazards: true, Mode: route.ModeSafest},
		[]geomodel.Hazard{everything}, nil)
	require.NoError(t, err)
	assert.True(t, r.Fallback)
	assert.Equal(t, edges, r.BlockedEdges)
	assert.Equal(t, []route.Point{origin, target}, r.Path)

	assert.Equal(t, edges, g.NumEdges())
	for _, e := range g.Edges() {
		assert.Zero(t, e.HazardPenalty)
	}
}

func TestPlanFarTargetUsesStraightLine(t *testing.T) {
	p, g := newOfflinePlanner(t)
	far := route.Point{28.7041, 77.1025}

	r, err := p.Plan(context.Background(), route.Request{Origin: nodePoint(t, g, 0), Target: &far}, nil, nil)
	require.NoError(t, err)
	assert.True(t, r.Fallback)
	assert.Len(t, r.Path, 2)
}

func TestPlanDefaultsToNearestShelter(t *testing.T) {
	p, g := newOfflinePlanner(t)
	target := nodePoint(t, g, 55)
	shelters := []geomodel.Shelter{
		{Name: "Far", Lat: 12, Lon: 78},
		{Name: "Town Hall", Lat: target.Lat(), Lon: target.Lon()},
	}

	r, err := p.Plan(context.Background(), route.Request{Origin: nodePoint(t, g, 0)}, nil, shelters)
	require.NoError(t, err)
	assert.Equal(t, "Town Hall", r.TargetName)
	assert.Equal(t, target, r.Path[len(r.Path)-1])

	_, err = p.Plan(context.Background(), route.Request{Origin: nodePoint(t, g, 0)}, nil, nil)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestSafestModePenalizesNearbyEdges(t *testing.T) {
	p, g := newOfflinePlanner(t)
	mid := nodePoint(t, g, 44)
	hazard := geomodel.Hazard{
		Name:     "Crowd crush",
		Risk:     "high",
		Geometry: square(mid.Lon()-0.0001, mid.Lat()-0.0001, mid.Lon()+0.0001, mid.Lat()+0.0001),
	}
	origin, target := nodePoint(t, g, 0), nodePoint(t, g, 99)

	r, err := p.Plan(context.Background(), route.Request{Origin: origin, Target: &target, Mode: route.ModeSafest, MarginMeters: 60},
		[]geomodel.Hazard{hazard}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, r.PenalizedEdges)
	assert.False(t, r.Fallback)
	assert.NotContains(t, r.Path, mid)
}

func TestNearestShelter(t *testing.T) {
	_, ok := NearestShelter(route.Point{10, 76}, nil)
	assert.False(t, ok)

	s, ok := NearestShelter(route.Point{10, 76}, []geomodel.Shelter{{Name: "a", Lat: 11, Lon: 76}, {Name: "b", Lat: 10.1, Lon: 76}})
	require.True(t, ok)
	assert.Equal(t, "b", s.Name)
}
