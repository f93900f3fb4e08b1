// Package report renders fitted MCA results as markdown and PNG composites.
package report

import "go.uber.org/zap"

// Options control report and figure rendering.
type Options struct {
	// SizeScale multiplies a variable's Dim1 contribution into a marker area.
	SizeScale float64
	// SizeMin is the smallest marker area.
	SizeMin float64
	// DefaultSize is used when a variable has no matching contribution.
	DefaultSize float64
	TopN        int
	HeatmapDims int
	// Percentile of pairwise distances under which variables are linked.
	Percentile float64
	WidthIn    float64
	HeightIn   float64
	DPI        int
	Logger     *zap.Logger
}

// DefaultOptions returns the stock rendering options.
func DefaultOptions() Options {
	return Options{
		SizeScale:   1000,
		SizeMin:     100,
		DefaultSize: 500,
		TopN:        5,
		HeatmapDims: 3,
		Percentile:  20,
		WidthIn:     20,
		HeightIn:    15,
		DPI:         150,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// markerSize maps a contribution to a marker area in square points.
func (o Options) markerSize(contrib float64, ok bool) float64 {
	if !ok {
		return o.DefaultSize
	}
	s := contrib * o.SizeScale
	if s < o.SizeMin {
		return o.SizeMin
	}
	return s
}
