package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	geomodel "github.com/crowdshield/dashboard/backend/internal/model/geo"
)

// contains reports whether p lies inside a polygonal geometry. Other geometry
// types never contain anything.
func contains(geom orb.Geometry, p orb.Point) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Collection:
		for _, inner := range g {
			if contains(inner, p) {
				return true
			}
		}
	}
	return false
}

// BlockEdgesByHazards removes every edge whose midpoint falls inside one of
// the polygons and returns how many were removed.
func BlockEdgesByHazards(g *Graph, polygons []orb.Geometry) int {
	if g == nil || len(polygons) == 0 {
		return 0
	}
	blocked := 0
	for k, e := range g.edges {
		mid := g.Midpoint(e)
		for _, poly := range polygons {
			if poly != nil && contains(poly, mid) {
				delete(g.edges, k)
				blocked++
				break
			}
		}
	}
	return blocked
}

// HazardPolygons extracts the geometries of hazards.
func HazardPolygons(hazards []geomodel.Hazard) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(hazards))
	for _, h := range hazards {
		if h.Geometry != nil {
			out = append(out, h.Geometry)
		}
	}
	return out
}

// ApplyHazardPenalty sets hazard_penalty on edges whose midpoint lies in a
// hazard's bounding box padded by marginMeters. Overlapping hazards keep the
// highest weight. It returns the number of edges penalized.
func ApplyHazardPenalty(g *Graph, hazards []geomodel.Hazard, marginMeters float64) int {
	if g == nil || len(hazards) == 0 {
		return 0
	}
	type zone struct {
		bound  orb.Bound
		weight float64
	}
	zones := make([]zone, 0, len(hazards))
	for _, h := range hazards {
		if h.Geometry == nil {
			continue
		}
		b := h.Geometry.Bound()
		if marginMeters > 0 {
			b = geo.BoundPad(b, marginMeters)
		}
		zones = append(zones, zone{bound: b, weight: geomodel.RiskWeight(h.Risk)})
	}

	penalized := 0
	for _, e := range g.edges {
		mid := g.Midpoint(e)
		hit := false
		for _, z := range zones {
			if z.bound.Contains(mid) {
				hit = true
				if z.weight > e.HazardPenalty {
					e.HazardPenalty = z.weight
				}
			}
		}
		if hit {
			penalized++
		}
	}
	return penalized
}
