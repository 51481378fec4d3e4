// Package visualization renders the intermediate stages of a clustering run
// as PNG images: the unblurred charge image, the blurred image, and the
// blurred image with cluster cells overlaid. It consumes pipeline outputs
// off the critical path and never affects clustering results.
package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"blurcluster/pkg/cluster"
	"blurcluster/pkg/hitmap"
)

// Recorder writes per-stage images for clustering runs into an output
// directory. A Recorder constructed with an empty directory is disabled and
// all its methods are no-ops.
type Recorder struct {
	outputDir string
}

// NewRecorder creates a Recorder writing into outputDir. An empty outputDir
// disables recording.
func NewRecorder(outputDir string) *Recorder {
	return &Recorder{outputDir: outputDir}
}

// Enabled reports whether the Recorder writes anything.
func (r *Recorder) Enabled() bool { return r.outputDir != "" }

// SavePlane renders the stages of one pipeline run. label distinguishes
// planes/events in filenames (e.g. "plane2").
func (r *Recorder) SavePlane(label string, res *cluster.Result) error {
	if !r.Enabled() || res.Image.NBins() == 0 {
		return nil
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	stages := []struct {
		name     string
		values   []float64
		clusters [][]int
	}{
		{"stage1_unblurred", res.Image.Charge, nil},
		{"stage2_blurred", res.Blurred, nil},
		{"stage3_cell_clusters", res.Blurred, res.CellClusters},
		{"stage4_output_clusters", res.Blurred, hitCells(res)},
	}

	for _, s := range stages {
		file := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s.png", label, s.name))
		if err := saveStage(file, s.name, res.Image, s.values, s.clusters); err != nil {
			return err
		}
	}
	return nil
}

// hitCells maps the emitted hit clusters back onto image cells so stage 4
// shows only the hits that survived materialization.
func hitCells(res *cluster.Result) [][]int {
	binOf := make(map[int]int) // hit index → image cell
	for bin := 0; bin < res.Image.NBins(); bin++ {
		if i, ok := res.Image.HitAt(bin); ok {
			binOf[i] = bin
		}
	}

	cells := make([][]int, len(res.Clusters))
	for ci, hits := range res.Clusters {
		for _, hi := range hits {
			if bin, ok := binOf[hi]; ok {
				cells[ci] = append(cells[ci], bin)
			}
		}
	}
	return cells
}

// chargeGrid adapts a flat charge grid to the plotter's grid interface,
// mapping cell indices back to global wire/tick coordinates.
type chargeGrid struct {
	values []float64
	bounds hitmap.Bounds
}

func (g chargeGrid) Dims() (int, int)   { return g.bounds.NWires(), g.bounds.NTicks() }
func (g chargeGrid) Z(c, r int) float64 { return g.values[r*g.bounds.NWires()+c] }
func (g chargeGrid) X(c int) float64    { return float64(g.bounds.LowerWire + c) }
func (g chargeGrid) Y(r int) float64    { return float64(g.bounds.LowerTick + r) }

var overlayColors = []color.Color{
	color.RGBA{R: 0x00, G: 0xb0, B: 0xff, A: 0xff},
	color.RGBA{R: 0x00, G: 0xe0, B: 0x40, A: 0xff},
	color.RGBA{R: 0xff, G: 0x00, B: 0xe0, A: 0xff},
	color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff},
}

func saveStage(file, title string, img *hitmap.Image, values []float64, clusters [][]int) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Wire number"
	p.Y.Label.Text = "Tick number"

	heat := plotter.NewHeatMap(chargeGrid{values: values, bounds: img.Bounds}, palette.Heat(12, 1))
	p.Add(heat)

	for ci, cells := range clusters {
		pts := make(plotter.XYs, 0, len(cells))
		for _, bin := range cells {
			localWire, localTick := img.WireTick(bin)
			pts = append(pts, plotter.XY{
				X: float64(localWire + img.Bounds.LowerWire),
				Y: float64(localTick + img.Bounds.LowerTick),
			})
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build cluster overlay: %w", err)
		}
		scatter.GlyphStyle.Color = overlayColors[ci%len(overlayColors)]
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(scatter)
	}

	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("failed to save %s: %w", file, err)
	}
	return nil
}
