package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGrid(t *testing.T) {
	g := BuildGrid(10, 76, 3, 100)
	assert.Equal(t, 9, g.NumNodes())
	assert.Equal(t, 12, g.NumEdges())

	for _, e := range g.Edges() {
		assert.InDelta(t, 100, e.Length, 1.0)
	}

	centre, ok := g.Node(4)
	require.True(t, ok)
	assert.InDelta(t, 10, centre.Lat, 1e-9)
	assert.InDelta(t, 76, centre.Lon, 1e-9)
}

func TestGraphCloneIsIndependent(t *testing.T) {
	g := BuildGrid(10, 76, 2, 100)
	c := g.Clone()

	c.RemoveEdge(0, 1)
	for _, e := range c.Edges() {
		e.HazardPenalty = 3
	}

	assert.Equal(t, 4, g.NumEdges())
	assert.Equal(t, 3, c.NumEdges())
	for _, e := range g.Edges() {
		assert.Zero(t, e.HazardPenalty)
	}
}

func TestGraphAddEdgeRejectsUnknownNodesAndLoops(t *testing.T) {
	g := NewGraph()
	g.AddNode(Node{ID: 1, Lat: 10, Lon: 76})
	assert.False(t, g.AddEdge(Edge{From: 1, To: 2}))
	assert.False(t, g.AddEdge(Edge{From: 1, To: 1}))

	g.AddNode(Node{ID: 2, Lat: 10, Lon: 76.001})
	assert.True(t, g.AddEdge(Edge{From: 2, To: 1, Length: 5}))
	assert.True(t, g.AddEdge(Edge{From: 1, To: 2, Length: 7}))
	require.Equal(t, 1, g.NumEdges())
	assert.Equal(t, 7.0, g.Edges()[0].Length)
}

func TestGraphNearest(t *testing.T) {
	g := BuildGrid(10, 76, 3, 100)
	n, dist, ok := g.Nearest(10.00001, 76.00001)
	require.True(t, ok)
	assert.Equal(t, int64(4), n.ID)
	assert.Less(t, dist, 5.0)

	_, _, ok = NewGraph().Nearest(0, 0)
	assert.False(t, ok)
}

func TestGraphFileRoundTrip(t *testing.T) {
	g := BuildGrid(10, 76, 3, 100)
	restored := graphFromFile(g.toFile())
	assert.Equal(t, g.NumNodes(), restored.NumNodes())
	assert.Equal(t, g.NumEdges(), restored.NumEdges())
}
