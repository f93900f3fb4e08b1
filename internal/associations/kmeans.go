package associations

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dogvoc/dogvoc-cli/internal/dataset"
)

const (
	maxIterations = 300
	restarts      = 10
)

// Clustering is the result of k-means over standardized columns.
type Clustering struct {
	K       int
	Columns []string
	Labels  []int
	Sizes   []int
	// Centroids holds the mean z-score of every column per cluster.
	Centroids [][]float64
	Inertia   float64
}

// Standardize centers every column and scales it to unit population
// standard deviation. Constant columns become zeros.
func Standardize(t *dataset.Table) [][]float64 {
	n, m := t.NumRows(), t.NumCols()
	z := make([][]float64, n)
	for i := range z {
		z[i] = make([]float64, m)
	}
	col := make([]float64, n)
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			col[i] = t.Rows[i][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		sd := math.Sqrt(variance)
		for i := 0; i < n; i++ {
			if sd > 0 {
				z[i][j] = (col[i] - mean) / sd
			}
		}
	}
	return z
}

// KMeans clusters the rows of t into k groups. Seeding is k-means++ from a
// generator seeded with seed; the best of several restarts by inertia is
// kept, so equal seeds give equal labels.
func KMeans(t *dataset.Table, k int, seed int64) (*Clustering, error) {
	if k <= 0 {
		return nil, fmt.Errorf("associations: k must be > 0, got %d", k)
	}
	if t.NumRows() < k || t.NumCols() == 0 {
		return nil, fmt.Errorf("%w: %d rows for %d clusters", ErrInsufficientData, t.NumRows(), k)
	}
	z := Standardize(t)
	rng := rand.New(rand.NewSource(seed))

	var best *Clustering
	for r := 0; r < restarts; r++ {
		c := lloyd(z, seedCentroids(z, k, rng))
		if best == nil || c.Inertia < best.Inertia {
			best = c
		}
	}
	best.K = k
	best.Columns = append([]string(nil), t.Columns...)
	return best, nil
}

// seedCentroids picks k starting centroids with k-means++.
func seedCentroids(z [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := [][]float64{append([]float64(nil), z[rng.Intn(len(z))]...)}
	d2 := make([]float64, len(z))
	for len(centroids) < k {
		var total float64
		for i, x := range z {
			d2[i] = math.Inf(1)
			for _, c := range centroids {
				d2[i] = math.Min(d2[i], sqDist(x, c))
			}
			total += d2[i]
		}
		next := len(centroids) % len(z)
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range d2 {
				if d == 0 {
					continue
				}
				next = i
				if target -= d; target <= 0 {
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), z[next]...))
	}
	return centroids
}

func lloyd(z [][]float64, centroids [][]float64) *Clustering {
	k, m := len(centroids), len(z[0])
	labels := make([]int, len(z))
	for i := range labels {
		labels[i] = -1
	}
	for it := 0; it < maxIterations; it++ {
		changed := false
		for i, x := range z {
			l := nearest(x, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, m)
		}
		for i, x := range z {
			floats.Add(sums[labels[i]], x)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	out := &Clustering{Labels: labels, Sizes: make([]int, k), Centroids: centroids}
	for i, x := range z {
		out.Sizes[labels[i]]++
		out.Inertia += sqDist(x, centroids[labels[i]])
	}
	return out
}

func nearest(x []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := sqDist(x, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
