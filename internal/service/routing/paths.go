package routing

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/crowdshield/dashboard/backend/internal/model/route"
)

// ErrNoPath is returned when origin and target are not connected.
var ErrNoPath = errors.New("no path between origin and target")

// WeightFunc prices one edge.
type WeightFunc func(e *Edge) float64

// LengthWeight is the edge length in metres.
func LengthWeight(e *Edge) float64 {
	return e.Length
}

// TimeWeight is the traversal time in seconds at the edge speed, 30 km/h by
// default. Edges without a length cost 100/10.
func TimeWeight(e *Edge) float64 {
	speed := e.SpeedKPH
	if speed <= 0 {
		speed = 30
	}
	if e.Length > 0 {
		return e.Length / (speed * 1000 / 3600)
	}
	return 100.0 / 10
}

// SafeWeight inflates the length by the hazard penalty. Edges without a
// length count as 100 m.
func SafeWeight(e *Edge) float64 {
	length := e.Length
	if length <= 0 {
		length = 100
	}
	return length * (1 + e.HazardPenalty)
}

// WeightFor maps a route mode to its weight function.
func WeightFor(mode string) WeightFunc {
	switch mode {
	case route.ModeFastest:
		return TimeWeight
	case route.ModeSafest:
		return SafeWeight
	default:
		return LengthWeight
	}
}

// ComputePath snaps origin and target to their nearest nodes and runs
// Dijkstra under weight. The result is a list of [lat, lon] points.
func ComputePath(g *Graph, origin, target route.Point, weight WeightFunc) ([]route.Point, error) {
	if g == nil || g.NumNodes() == 0 {
		return nil, ErrNoPath
	}
	from, _, ok := g.Nearest(origin.Lat(), origin.Lon())
	if !ok {
		return nil, ErrNoPath
	}
	to, _, _ := g.Nearest(target.Lat(), target.Lon())

	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for id := range g.nodes {
		wg.AddNode(simple.Node(id))
	}
	for _, e := range g.edges {
		w := weight(e)
		if math.IsNaN(w) || w < 0 {
			continue
		}
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), w))
	}

	nodes, _ := path.DijkstraFrom(simple.Node(from.ID), wg).To(to.ID)
	if len(nodes) == 0 {
		return nil, ErrNoPath
	}
	points := make([]route.Point, 0, len(nodes))
	for _, n := range nodes {
		node := g.nodes[n.ID()]
		points = append(points, route.Point{node.Lat, node.Lon})
	}
	return points, nil
}

func ShortestPath(g *Graph, origin, target route.Point) ([]route.Point, error) {
	return ComputePath(g, origin, target, LengthWeight)
}

func FastestPath(g *Graph, origin, target route.Point) ([]route.Point, error) {
	return ComputePath(g, origin, target, TimeWeight)
}

func SafestPath(g *Graph, origin, target route.Point) ([]route.Point, error) {
	return ComputePath(g, origin, target, SafeWeight)
}

// StraightLine is the fallback when no street path exists.
func StraightLine(origin, target route.Point) []route.Point {
	return []route.Point{origin, target}
}

// PathLength sums the geodesic length of a point list in metres.
func PathLength(points []route.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		total += geo.Distance(orb.Point{a.Lon(), a.Lat()}, orb.Point{b.Lon(), b.Lat()})
	}
	return total
}
