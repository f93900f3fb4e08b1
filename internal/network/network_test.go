package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line() ([]string, [][]float64) {
	return []string{"a", "b", "c", "d"}, [][]float64{{0, 0}, {1, 0}, {2, 0}, {10, 0}}
}

func TestPercentile(t *testing.T) {
	assert.InDelta(t, 1.6, Percentile([]float64{4, 3, 2, 1}, 20), 1e-12)
	assert.InDelta(t, 1.0, Percentile([]float64{1, 2, 3}, 0), 1e-12)
	assert.InDelta(t, 3.0, Percentile([]float64{1, 2, 3}, 100), 1e-12)
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestBuildThresholdIsStrict(t *testing.T) {
	names, coords := line()
	// distances sorted: 1 1 2 8 9 10; 20th percentile is 1, nothing is below it
	p, err := Build(names, coords, 20)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.Threshold, 1e-12)
	assert.Empty(t, p.Edges())
}

func TestBuildEdgesAndDegree(t *testing.T) {
	names, coords := line()
	p, err := Build(names, coords, 50)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.Threshold, 1e-12)

	edges := p.Edges()
	require.Len(t, edges, 3)
	assert.InDelta(t, 1.0, edges[0].Distance, 1e-12)
	assert.InDelta(t, 2.0, edges[2].Distance, 1e-12)
	assert.Equal(t, "a", edges[2].From)
	assert.Equal(t, "c", edges[2].To)
	assert.InDelta(t, 0.5, edges[2].Weight, 1e-12)

	assert.Equal(t, 2, p.Degree("a"))
	assert.Equal(t, 0, p.Degree("d"))
	assert.Equal(t, -1, p.Degree("zzz"))
	assert.Equal(t, []Hub{{"a", 2}, {"b", 2}}, p.Hubs(2))
	assert.Len(t, p.Hubs(10), 3)

	w := p.Graph.WeightedEdge(0, 1)
	require.NotNil(t, w)
	assert.InDelta(t, 1.0, w.Weight(), 1e-12)
}

func TestBuildCoincidentPoints(t *testing.T) {
	p, err := Build([]string{"x", "y", "z"}, [][]float64{{0}, {0}, {5}}, 50)
	require.NoError(t, err)
	edges := p.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, 0.0, edges[0].Distance)
	assert.InDelta(t, 1e12, edges[0].Weight, 1)
}

func TestBuildSmallAndInvalid(t *testing.T) {
	p, err := Build([]string{"only"}, [][]float64{{1, 2}}, 20)
	require.NoError(t, err)
	assert.Empty(t, p.Edges())
	assert.Equal(t, 0, p.Degree("only"))

	_, err = Build([]string{"a", "b"}, [][]float64{{1}}, 20)
	assert.ErrorIs(t, err, ErrShape)
	_, err = Build([]string{"a", "b"}, [][]float64{{1}, {1, 2}}, 20)
	assert.ErrorIs(t, err, ErrShape)
	_, err = Build([]string{"a", "b"}, [][]float64{{1}, {2}}, 120)
	assert.Error(t, err)
}

func TestBetweenness(t *testing.T) {
	names, coords := line()
	p, err := Build(names, coords, 50)
	require.NoError(t, err)
	bc := p.Betweenness()
	require.Len(t, bc, 4)
	// a, b, c form a triangle: no vertex lies on a shortest path between the others
	for _, n := range names {
		assert.Equal(t, 0.0, bc[n])
	}
}
