// Package cluster implements seeded region-growing clustering on a blurred
// charge image, and the pipeline that ties rasterization, blurring and
// clustering together for one plane's hit set.
package cluster

import (
	"fmt"
	"sync"

	"blurcluster/pkg/blur"
	"blurcluster/pkg/config"
	"blurcluster/pkg/hitmap"
)

// Pipeline runs the full clustering chain for one plane's hits:
// hits → charge image → blurred image → cell clusters → hit clusters.
// A Pipeline is immutable after construction and safe to share across
// concurrent Run calls; all per-run state lives in the Result.
type Pipeline struct {
	cfg       *config.Config
	normalize hitmap.WireNormalizer
	detector  hitmap.DetectorProperties
}

// Result holds the outputs of one pipeline run. The intermediate images are
// retained so side consumers (debug rendering) can inspect them; they are
// never fed back into clustering.
type Result struct {
	// Image is the rasterized charge/width image for the run.
	Image *hitmap.Image

	// Blurred is the charge image after Gaussian blurring. If blurring
	// was disabled it aliases Image.Charge.
	Blurred []float64

	// CellClusters are the accepted clusters as sets of image cell bins,
	// in seeding order, before materialization.
	CellClusters [][]int

	// Clusters are the emitted hit groups: for each cluster, the indices
	// of its real hits in the slice passed to Run.
	Clusters [][]int
}

// New builds a Pipeline. The configuration is validated here, once; a tier
// set without the value 1 is a fatal configuration error. normalize and det
// are the external coordinate and detector-window collaborators and may be
// nil (identity wire coordinates, hit-derived tick bounds).
func New(cfg *config.Config, normalize hitmap.WireNormalizer, det hitmap.DetectorProperties) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Pipeline{cfg: cfg, normalize: normalize, detector: det}, nil
}

// Run clusters one plane's hit set. Zero hits yield a Result with zero
// clusters; undersized or hit-free clusters are filtered, not errors.
func (p *Pipeline) Run(hits []hitmap.Hit) *Result {
	img := hitmap.Build(hits, p.normalize, p.detector)

	blurred := blur.GaussianBlur(img, blur.Config{
		WireRadius:        p.cfg.Blur.WireRadius,
		TickRadius:        p.cfg.Blur.TickRadius,
		WireSigma:         p.cfg.Blur.WireSigma,
		TickSigma:         p.cfg.Blur.TickSigma,
		TickWidthRescale:  p.cfg.Blur.TickWidthRescale,
		MaxTickWidthScale: p.cfg.Blur.MaxTickWidthScale,
		Tiers:             p.cfg.Blur.Kernels,
	})

	cells := findClusters(img, blurred, p.cfg)

	return &Result{
		Image:        img,
		Blurred:      blurred,
		CellClusters: cells,
		Clusters:     materialize(img, cells, p.cfg.Cluster.MinSize),
	}
}

// materialize translates cell clusters back into groups of real hits. Cells
// with no backing hit are dropped; a cluster is emitted only if its real-hit
// count reaches minSize. This is a second size filter, distinct from the
// cell-count gates during growing: a cell cluster can be large yet contain
// few real hits.
func materialize(img *hitmap.Image, cellClusters [][]int, minSize int) [][]int {
	var clusters [][]int
	for _, cells := range cellClusters {
		var hits []int
		for _, bin := range cells {
			if i, ok := img.HitAt(bin); ok {
				hits = append(hits, i)
			}
		}
		if len(hits) < minSize {
			continue
		}
		clusters = append(clusters, hits)
	}
	return clusters
}

// RunPlanes clusters several independent planes concurrently. Planes share
// no state: each gets its own image, mask and cluster list, so no
// synchronization beyond the final join is needed. Results are returned in
// plane order.
func RunPlanes(p *Pipeline, planes [][]hitmap.Hit) []*Result {
	results := make([]*Result, len(planes))

	var wg sync.WaitGroup
	for i := range planes {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = p.Run(planes[idx])
		}(i)
	}
	wg.Wait()

	return results
}
