package routing

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Node is a street intersection or way vertex.
type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (n Node) point() orb.Point { return orb.Point{n.Lon, n.Lat} }

// Edge is an undirected street segment. Zero Length or SpeedKPH means the
// attribute is unknown.
type Edge struct {
	From          int64   `json:"from"`
	To            int64   `json:"to"`
	Length        float64 `json:"length"`
	SpeedKPH      float64 `json:"speed_kph,omitempty"`
	HazardPenalty float64 `json:"hazard_penalty,omitempty"`
}

type edgeKey struct{ a, b int64 }

func keyOf(u, v int64) edgeKey {
	if u > v {
		u, v = v, u
	}
	return edgeKey{u, v}
}

// Graph is an undirected street network.
type Graph struct {
	nodes map[int64]Node
	edges map[edgeKey]*Edge
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[int64]Node), edges: make(map[edgeKey]*Edge)}
}

func (g *Graph) AddNode(n Node) {
	g.nodes[n.ID] = n
}

// AddEdge inserts or replaces the segment between two known nodes. A missing
// length is filled with the geodesic distance.
func (g *Graph) AddEdge(e Edge) bool {
	from, ok := g.nodes[e.From]
	if !ok {
		return false
	}
	to, ok := g.nodes[e.To]
	if !ok || e.From == e.To {
		return false
	}
	if e.Length <= 0 {
		e.Length = geo.Distance(from.point(), to.point())
	}
	g.edges[keyOf(e.From, e.To)] = &e
	return true
}

func (g *Graph) RemoveEdge(u, v int64) {
	delete(g.edges, keyOf(u, v))
}

func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) NumNodes() int { return len(g.nodes) }
func (g *Graph) NumEdges() int { return len(g.edges) }

// Edges returns the edges in no particular order. Mutating them mutates g.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// Clone returns a deep copy so routing requests can block or weight edges
// without touching the shared graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make(map[int64]Node, len(g.nodes)),
		edges: make(map[edgeKey]*Edge, len(g.edges)),
	}
	for id, n := range g.nodes {
		c.nodes[id] = n
	}
	for k, e := range g.edges {
		cp := *e
		c.edges[k] = &cp
	}
	return c
}

// Midpoint of an edge as an orb point (lon, lat).
func (g *Graph) Midpoint(e *Edge) orb.Point {
	a, b := g.nodes[e.From], g.nodes[e.To]
	return orb.Point{(a.Lon + b.Lon) / 2, (a.Lat + b.Lat) / 2}
}

// Nearest returns the node closest to (lat, lon) and its distance in metres.
func (g *Graph) Nearest(lat, lon float64) (Node, float64, bool) {
	target := orb.Point{lon, lat}
	best := math.Inf(1)
	var found Node
	ok := false
	for _, n := range g.nodes {
		d := geo.Distance(target, n.point())
		if d < best || (d == best && n.ID < found.ID) {
			best, found, ok = d, n, true
		}
	}
	return found, best, ok
}

// Bound covers every node of the graph.
func (g *Graph) Bound() orb.Bound {
	var mp orb.MultiPoint
	for _, n := range g.nodes {
		mp = append(mp, n.point())
	}
	return mp.Bound()
}

// graphFile is the on-disk form of the cached graph.
type graphFile struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (g *Graph) toFile() graphFile {
	f := graphFile{Nodes: make([]Node, 0, len(g.nodes)), Edges: make([]Edge, 0, len(g.edges))}
	for _, n := range g.nodes {
		f.Nodes = append(f.Nodes, n)
	}
	for _, e := range g.edges {
		f.Edges = append(f.Edges, *e)
	}
	return f
}

func graphFromFile(f graphFile) *Graph {
	g := NewGraph()
	for _, n := range f.Nodes {
		g.AddNode(n)
	}
	for _, e := range f.Edges {
		g.AddEdge(e)
	}
	return g
}

// BuildGrid lays out a size×size lattice around the centre with roughly
// spacing metres between neighbours.
func BuildGrid(centerLat, centerLon float64, size int, spacing float64) *Graph {
	if size < 2 {
		size = 2
	}
	if spacing <= 0 {
		spacing = 100
	}
	const metresPerDegree = 111_320.0
	dLat := spacing / metresPerDegree
	dLon := spacing / (metresPerDegree * math.Cos(centerLat*math.Pi/180))
	half := float64(size-1) / 2

	g := NewGraph()
	id := func(r, c int) int64 { return int64(r*size + c) }
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			g.AddNode(Node{
				ID:  id(r, c),
				Lat: centerLat + (float64(r)-half)*dLat,
				Lon: centerLon + (float64(c)-half)*dLon,
			})
		}
	}
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if c+1 < size {
				g.AddEdge(Edge{From: id(r, c), To: id(r, c+1)})
			}
			if r+1 < size {
				g.AddEdge(Edge{From: id(r, c), To: id(r+1, c)})
			}
		}
	}
	return g
}
