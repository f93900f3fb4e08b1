package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/dogvoc/dogvoc-cli/internal/network"
	"github.com/dogvoc/dogvoc-cli/internal/results"
	"github.com/dogvoc/dogvoc-cli/internal/utils"
)

var (
	aboveMean = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	belowMean = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	nodeBlue  = color.RGBA{R: 173, G: 216, B: 230, A: 204}
	edgeGray  = color.RGBA{R: 80, G: 80, B: 80, A: 60}
)

// RenderStats summarizes one rendered figure.
type RenderStats struct {
	Path      string
	Unmatched int
	Edges     int
}

// RenderPNG draws the 2x2 composite (inertia, proximity network,
// contribution heatmap, biplot) for res and writes it to path.
func RenderPNG(res *results.Results, path string, opt Options) (*RenderStats, error) {
	if res == nil || res.Components <= 0 {
		return nil, fmt.Errorf("render %s: %w", path, results.ErrSchema)
	}
	log := opt.logger().With(zap.String("figure", path))
	stats := &RenderStats{Path: path}
	pts := collectPoints(res, opt, log, stats)

	inertia, err := inertiaPlot(res)
	if err != nil {
		return nil, fmt.Errorf("inertia plot: %w", err)
	}
	net, edges, err := networkPlot(res, pts, opt)
	if err != nil {
		return nil, fmt.Errorf("network plot: %w", err)
	}
	stats.Edges = edges
	heat, err := heatmapPlot(res, opt)
	if err != nil {
		return nil, fmt.Errorf("heatmap plot: %w", err)
	}
	scatter, err := scatterPlot(res, pts)
	if err != nil {
		return nil, fmt.Errorf("scatter plot: %w", err)
	}

	w := vg.Length(opt.WidthIn) * vg.Inch
	h := vg.Length(opt.HeightIn) * vg.Inch
	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(opt.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2, Cols: 2,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	plots := [][]*plot.Plot{{inertia, net}, {heat, scatter}}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	err = utils.WithFile(path, func(out io.Writer) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(out)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug("figure written", zap.Int("unmatched", stats.Unmatched), zap.Int("edges", stats.Edges))
	return stats, nil
}

// point is one variable placed on the Dim1 x Dim2 plane.
type point struct {
	name    string
	x, y    float64
	size    float64
	contrib float64
	matched bool
}

func collectPoints(res *results.Results, opt Options, log *zap.Logger, stats *RenderStats) []point {
	var pts []point
	for _, c := range res.Columns {
		coord, ok := res.Coordinate(c)
		if !ok || len(coord) == 0 {
			warnMatch(log, stats, &MatchError{Variable: c, Field: "coordinate"})
			continue
		}
		p := point{name: c, x: coord[0]}
		if len(coord) > 1 {
			p.y = coord[1]
		}
		contrib, ok := res.Contribution(c)
		if ok && len(contrib) > 0 && isFinite(contrib[0]) {
			p.contrib, p.matched = contrib[0], true
		} else {
			warnMatch(log, stats, &MatchError{Variable: c, Field: "contribution"})
		}
		p.size = opt.markerSize(p.contrib, p.matched)
		pts = append(pts, p)
	}
	return pts
}

func warnMatch(log *zap.Logger, stats *RenderStats, err *MatchError) {
	stats.Unmatched++
	log.Warn("variable not matched, using defaults", zap.Error(err))
}

func inertiaPlot(res *results.Results) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Explained Inertia: " + utils.Title(res.Name)
	p.X.Label.Text = "Dimension"
	p.Y.Label.Text = "Explained inertia (%)"

	var mean float64
	for _, x := range res.ExplainedInertia {
		mean += x
	}
	if n := len(res.ExplainedInertia); n > 0 {
		mean /= float64(n)
	}
	labels := make([]string, len(res.ExplainedInertia))
	for i, x := range res.ExplainedInertia {
		bar, err := plotter.NewBarChart(plotter.Values{x * 100}, vg.Points(28))
		if err != nil {
			return nil, err
		}
		bar.XMin = float64(i)
		bar.LineStyle.Width = vg.Length(0)
		bar.Color = belowMean
		if x > mean {
			bar.Color = aboveMean
		}
		p.Add(bar)
		labels[i] = fmt.Sprintf("Dim %d", i+1)

		l, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: float64(i), Y: x * 100}},
			Labels: []string{fmt.Sprintf("%.1f%%", x*100)},
		})
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}
	p.NominalX(labels...)
	p.Y.Min = 0
	p.Add(plotter.NewGrid())
	return p, nil
}

// contribGrid lays variables along Y and dimensions along X.
type contribGrid struct {
	z    [][]float64
	dims int
}

func (g contribGrid) Dims() (c, r int) { return g.dims, len(g.z) }
func (g contribGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g contribGrid) X(c int) float64 { return float64(c) }
func (g contribGrid) Y(r int) float64 { return float64(r) }

func heatmapPlot(res *results.Results, opt Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Variable Contributions"
	dims := opt.HeatmapDims
	if dims <= 0 || dims > res.Components {
		dims = res.Components
	}
	g := contribGrid{dims: dims}
	names := make([]string, 0, len(res.Columns))
	lo, hi := math.Inf(1), math.Inf(-1)
	var (
		xys    plotter.XYs
		labels []string
	)
	for r, c := range res.Columns {
		contrib, ok := res.Contribution(c)
		row := make([]float64, dims)
		for d := 0; d < dims; d++ {
			row[d] = math.NaN()
			if ok && d < len(contrib) && isFinite(contrib[d]) {
				row[d] = contrib[d]
				lo, hi = math.Min(lo, contrib[d]), math.Max(hi, contrib[d])
				xys = append(xys, plotter.XY{X: float64(d), Y: float64(r)})
				labels = append(labels, fmt.Sprintf("%.2f", contrib[d]))
			}
		}
		g.z = append(g.z, row)
		names = append(names, c)
	}
	if len(g.z) == 0 || len(xys) == 0 {
		return p, nil
	}
	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	if hi <= lo {
		hi = lo + 1
	}
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	dimNames := make([]string, dims)
	for d := range dimNames {
		dimNames[d] = fmt.Sprintf("Dim %d", d+1)
	}
	p.NominalX(dimNames...)
	p.NominalY(names...)
	return p, nil
}

func scatterPlot(res *results.Results, pts []point) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "MCA Biplot: " + utils.Title(res.Name)
	p.X.Label.Text = axisLabel(res, 0)
	p.Y.Label.Text = axisLabel(res, 1)
	p.Add(plotter.NewGrid())
	if len(pts) == 0 {
		return p, nil
	}

	var maxContrib float64
	for _, pt := range pts {
		if pt.matched {
			maxContrib = math.Max(maxContrib, pt.contrib)
		}
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(1)

	xys := make(plotter.XYs, len(pts))
	labels := make([]string, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.x, Y: pt.y}
		labels[i] = pt.name
		if pt.matched {
			labels[i] = fmt.Sprintf("%s (%.1f%%)", pt.name, pt.contrib*100)
		}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		pt := pts[i]
		col := color.Color(belowMean)
		if pt.matched {
			v := 0.0
			if maxContrib > 0 {
				v = pt.contrib / maxContrib
			}
			if c, err := cmap.At(clamp01(v)); err == nil {
				col = c
			}
		}
		return draw.GlyphStyle{Color: col, Radius: radius(pt.size), Shape: draw.CircleGlyph{}}
	}
	p.Add(sc)

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	p.Add(l)
	return p, nil
}

func networkPlot(res *results.Results, pts []point, opt Options) (*plot.Plot, int, error) {
	p := plot.New()
	p.Title.Text = "Network of Behavioral Variables: " + utils.Title(res.Name)
	p.X.Label.Text = "Dimension 1"
	p.Y.Label.Text = "Dimension 2"
	names, coords := plottable(res)
	if len(names) == 0 {
		return p, 0, nil
	}

	pos := make(map[string]plotter.XY, len(pts))
	for _, pt := range pts {
		pos[pt.name] = plotter.XY{X: pt.x, Y: pt.y}
	}
	prox, err := network.Build(names, coords, opt.Percentile)
	if err != nil {
		return nil, 0, err
	}
	edges := prox.Edges()
	for _, e := range edges {
		ln, err := plotter.NewLine(plotter.XYs{pos[e.From], pos[e.To]})
		if err != nil {
			return nil, 0, err
		}
		ln.Color = edgeGray
		p.Add(ln)
	}

	xys := make(plotter.XYs, len(names))
	for i, n := range names {
		xys[i] = pos[n]
	}
	nodes, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, 0, err
	}
	nodes.GlyphStyle = draw.GlyphStyle{Color: nodeBlue, Radius: radius(opt.DefaultSize), Shape: draw.CircleGlyph{}}
	p.Add(nodes)

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, 0, err
	}
	p.Add(l)
	return p, len(edges), nil
}

func axisLabel(res *results.Results, d int) string {
	if d >= len(res.ExplainedInertia) {
		return fmt.Sprintf("Dimension %d", d+1)
	}
	return fmt.Sprintf("Dimension %d (%.1f%%)", d+1, res.ExplainedInertia[d]*100)
}

// radius converts a marker area in square points into a glyph radius.
func radius(area float64) vg.Length {
	if area <= 0 {
		return vg.Points(1)
	}
	return vg.Points(math.Sqrt(area) / 2)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
