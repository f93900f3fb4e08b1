// Package network links variables that sit close together in MCA space.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	gonetwork "gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// ErrShape is returned when names and coordinates disagree in size.
var ErrShape = errors.New("network: shape mismatch")

// coincident is the distance used in place of zero when weighting edges.
const coincident = 1e-12

// Edge is a pair of variables closer than the threshold.
type Edge struct {
	From, To string
	Distance float64
	Weight   float64
}

// Proximity is the thresholded closeness graph over a set of variables.
type Proximity struct {
	Names     []string
	Coords    [][]float64
	Threshold float64
	Graph     *simple.WeightedUndirectedGraph

	edges []Edge
}

// Build connects every pair whose Euclidean distance is strictly below the
// given percentile (0-100) of all pairwise distances. Edge weight is 1/d.
func Build(names []string, coords [][]float64, percentile float64) (*Proximity, error) {
	if len(names) != len(coords) {
		return nil, fmt.Errorf("%w: %d names, %d coordinate rows", ErrShape, len(names), len(coords))
	}
	if percentile < 0 || percentile > 100 || math.IsNaN(percentile) {
		return nil, fmt.Errorf("network: percentile %v outside [0,100]", percentile)
	}
	for i := 1; i < len(coords); i++ {
		if len(coords[i]) != len(coords[0]) {
			return nil, fmt.Errorf("%w: %q has %d dims, want %d", ErrShape, names[i], len(coords[i]), len(coords[0]))
		}
	}

	p := &Proximity{
		Names:  names,
		Coords: coords,
		Graph:  simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
	}
	for i := range names {
		p.Graph.AddNode(simple.Node(int64(i)))
	}
	n := len(names)
	if n < 2 {
		return p, nil
	}

	dist := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist = append(dist, floats.Distance(coords[i], coords[j], 2))
		}
	}
	p.Threshold = Percentile(dist, percentile)

	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist[k]
			k++
			if !(d < p.Threshold) {
				continue
			}
			w := 1 / math.Max(d, coincident)
			p.Graph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(int64(i)), T: simple.Node(int64(j)), W: w})
			p.edges = append(p.edges, Edge{From: names[i], To: names[j], Distance: d, Weight: w})
		}
	}
	sort.SliceStable(p.edges, func(a, b int) bool { return p.edges[a].Distance < p.edges[b].Distance })
	return p, nil
}

// Percentile returns the q-th percentile of xs using linear interpolation
// between closest ranks, position q/100*(n-1) in the sorted data.
func Percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	pos := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo] + frac*(s[hi]-s[lo])
}

// Edges returns the edges ordered by increasing distance.
func (p *Proximity) Edges() []Edge {
	return append([]Edge(nil), p.edges...)
}

// Degree returns the number of neighbours of a variable, or -1 if unknown.
func (p *Proximity) Degree(name string) int {
	id := p.index(name)
	if id < 0 {
		return -1
	}
	it := p.Graph.From(int64(id))
	deg := 0
	for it.Next() {
		deg++
	}
	return deg
}

// Hub is a variable and its number of neighbours.
type Hub struct {
	Name   string
	Degree int
}

// Hubs returns up to n variables with the highest degree. Ties keep the
// input order; isolated variables are left out.
func (p *Proximity) Hubs(n int) []Hub {
	hubs := make([]Hub, 0, len(p.Names))
	for _, name := range p.Names {
		if d := p.Degree(name); d > 0 {
			hubs = append(hubs, Hub{Name: name, Degree: d})
		}
	}
	sort.SliceStable(hubs, func(a, b int) bool { return hubs[a].Degree > hubs[b].Degree })
	if n >= 0 && len(hubs) > n {
		hubs = hubs[:n]
	}
	return hubs
}

// Betweenness returns the betweenness centrality of every variable.
func (p *Proximity) Betweenness() map[string]float64 {
	out := make(map[string]float64, len(p.Names))
	for _, name := range p.Names {
		out[name] = 0
	}
	for id, v := range gonetwork.Betweenness(p.Graph) {
		out[p.Names[id]] = v
	}
	return out
}

func (p *Proximity) index(name string) int {
	for i, n := range p.Names {
		if n == name {
			return i
		}
	}
	return -1
}
