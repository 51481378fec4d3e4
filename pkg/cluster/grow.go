package cluster

import (
	"math"
	"sort"

	"blurcluster/pkg/config"
	"blurcluster/pkg/hitmap"
)

// grower holds the mutable state of one region-growing pass over one blurred
// image. It is created per run and never shared.
type grower struct {
	img     *hitmap.Image
	blurred []float64
	nWires  int
	nTicks  int
	cfg     *config.Config

	used    []bool
	order   []int // bins sorted by descending blurred charge
	cluster []int
	times   []float64 // peak times of real hits admitted so far
}

// findClusters runs seeded region growing over the blurred image and returns
// the accepted cell clusters in seeding order.
func findClusters(img *hitmap.Image, blurred []float64, cfg *config.Config) [][]int {
	nBins := img.NBins()
	if nBins == 0 {
		return nil
	}

	g := &grower{
		img:     img,
		blurred: blurred,
		nWires:  img.Bounds.NWires(),
		nTicks:  img.Bounds.NTicks(),
		cfg:     cfg,
		used:    make([]bool, nBins),
		order:   make([]int, nBins),
	}
	for bin := range g.order {
		g.order[bin] = bin
	}
	// Descending charge; bin number breaks ties so runs are reproducible.
	sort.Slice(g.order, func(i, j int) bool {
		bi, bj := g.order[i], g.order[j]
		if blurred[bi] != blurred[bj] {
			return blurred[bi] > blurred[bj]
		}
		return bi < bj
	})

	var clusters [][]int
	for _, seed := range g.order {
		// Seeds are taken in strictly non-increasing charge order, so the
		// first one below threshold ends the whole pass.
		if g.blurred[seed] < cfg.Cluster.MinSeed {
			break
		}
		if g.used[seed] {
			continue
		}

		g.used[seed] = true
		g.cluster = []int{seed}
		g.times = g.times[:0]
		g.recordTime(seed)

		g.grow()

		if len(g.cluster) < cfg.Cluster.MinSize {
			g.release()
			continue
		}

		g.fillHoles()
		g.prune()

		if len(g.cluster) < cfg.Cluster.MinSize {
			g.release()
			continue
		}

		clusters = append(clusters, g.cluster)
		g.cluster = nil
	}

	return clusters
}

// grow repeatedly scans every cell in the cluster, admitting unused
// neighbors within the configured wire/tick distance whose blurred charge
// clears the threshold, until a full scan adds nothing. Real hits must also
// lie within the time-coincidence window of a previously recorded time;
// synthetic cells carry no time and bypass that check.
func (g *grower) grow() {
	for {
		added := 0
		for idx := 0; idx < len(g.cluster); idx++ {
			wire, tick := g.img.WireTick(g.cluster[idx])

			for x := wire - g.cfg.Cluster.WireDistance; x <= wire+g.cfg.Cluster.WireDistance; x++ {
				for y := tick - g.cfg.Cluster.TickDistance; y <= tick+g.cfg.Cluster.TickDistance; y++ {
					if x == wire && y == tick {
						continue
					}
					if x < 0 || x >= g.nWires || y < 0 || y >= g.nTicks {
						continue
					}

					bin := g.img.Bin(x, y)
					if g.used[bin] {
						continue
					}
					if g.blurred[bin] <= g.cfg.Cluster.ChargeThreshold {
						continue
					}
					if !g.passesTimeCut(bin) {
						continue
					}

					g.used[bin] = true
					g.cluster = append(g.cluster, bin)
					g.recordTime(bin)
					added++
				}
			}
		}
		if added == 0 {
			return
		}
	}
}

// fillHoles admits unused cells adjacent to the cluster whose own used
// 8-neighbor count exceeds the configured threshold, subject to the same
// time cut as growth. Cells admitted here are scanned in turn, so a filled
// hole can expose further holes. Image-border cells are never touched.
func (g *grower) fillHoles() {
	for idx := 0; idx < len(g.cluster); idx++ {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}

				bin := g.cluster[idx] + dx + dy*g.nWires
				if g.isBorder(bin) {
					continue
				}
				if g.used[bin] {
					continue
				}
				if g.countUsedNeighbours(bin) <= g.cfg.Cluster.NeighboursThreshold {
					continue
				}
				if !g.passesTimeCut(bin) {
					continue
				}

				g.used[bin] = true
				g.cluster = append(g.cluster, bin)
				g.recordTime(bin)
			}
		}
	}
}

// prune iteratively removes clustered cells with too few used 8-neighbors,
// scanning in reverse so removal indices stay valid, until a full pass
// removes nothing. Border cells are exempt.
func (g *grower) prune() {
	for {
		removed := 0
		for idx := len(g.cluster) - 1; idx >= 0; idx-- {
			bin := g.cluster[idx]
			if g.isBorder(bin) {
				continue
			}
			if g.countUsedNeighbours(bin) < g.cfg.Cluster.MinNeighbours {
				g.used[bin] = false
				g.cluster = append(g.cluster[:idx], g.cluster[idx+1:]...)
				removed++
			}
		}
		if removed == 0 {
			return
		}
	}
}

// release returns a rejected cluster's cells to the unused pool.
func (g *grower) release() {
	for _, bin := range g.cluster {
		g.used[bin] = false
	}
	g.cluster = nil
}

// recordTime notes the peak time of the real hit at bin, if any.
func (g *grower) recordTime(bin int) {
	if t := g.img.TimeOf(bin); t > 0 {
		g.times = append(g.times, t)
	}
}

// passesTimeCut reports whether the cell at bin may join the cluster under
// the time-coincidence rule: a real hit must lie within the time threshold
// of at least one recorded time, unless no time has been recorded yet.
// Synthetic cells always pass.
func (g *grower) passesTimeCut(bin int) bool {
	t := g.img.TimeOf(bin)
	if t <= 0 || len(g.times) == 0 {
		return true
	}
	for _, recorded := range g.times {
		if math.Abs(t-recorded) < g.cfg.Cluster.TimeThreshold {
			return true
		}
	}
	return false
}

// isBorder reports whether bin lies on the outermost ring of the image,
// where an 8-neighborhood would leave the grid.
func (g *grower) isBorder(bin int) bool {
	return bin < g.nWires ||
		bin%g.nWires == 0 ||
		bin%g.nWires == g.nWires-1 ||
		bin >= g.nWires*(g.nTicks-1)
}

// countUsedNeighbours counts the used cells among the 8 immediate neighbors
// of bin. The caller must exclude border bins.
func (g *grower) countUsedNeighbours(bin int) int {
	count := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.used[bin+dx+dy*g.nWires] {
				count++
			}
		}
	}
	return count
}
