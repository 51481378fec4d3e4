// Package hitmap rasterizes detector hits into a dense 2D charge image.
// Hits are binned by (wire, tick); the resulting image keeps a parallel
// width grid and a reverse index from image cells back to the hits that
// produced them, so cell clusters found downstream can be translated back
// into groups of real hits.
package hitmap

import "math"

// BoundsMargin is the fixed padding, in wires and ticks, added around the
// extent of the input hits when sizing the image.
const BoundsMargin = 20

// SyntheticTime is the sentinel returned by Image.TimeOf for cells that were
// filled by blurring rather than by a real hit.
const SyntheticTime = -10000

// Hit is a single detector signal reading. Hits are owned by the caller; the
// image refers to them by index into the slice passed to Build.
type Hit struct {
	// Wire is the module-local wire number of the reading.
	Wire int

	// Module identifies the readout module the wire belongs to.
	Module int

	// PeakTime is the time coordinate in ticks. It is real-valued but
	// binned at integer granularity.
	PeakTime float64

	// Charge is the integrated signal magnitude.
	Charge float64

	// Width is the temporal spread (RMS) of the signal.
	Width float64
}

// WireNormalizer maps a module-local wire number to a globally unique 1D
// wire coordinate. It must be deterministic and total for all valid inputs.
// A nil normalizer leaves the wire number unchanged.
type WireNormalizer func(wire, module int) int

// DetectorProperties supplies the size of the active acquisition window in
// time samples. It is only used as the initial scan bound when computing the
// image extent, never as a clustering limit.
type DetectorProperties interface {
	ReadoutWindowSize() int
}

// Bounds is the rectangle covering all input hits, expanded by BoundsMargin
// on each side in both axes.
type Bounds struct {
	LowerWire, UpperWire int
	LowerTick, UpperTick int
}

// NWires returns the number of wire bins in the image.
func (b Bounds) NWires() int { return b.UpperWire - b.LowerWire }

// NTicks returns the number of tick bins in the image.
func (b Bounds) NTicks() int { return b.UpperTick - b.LowerTick }

type cellKey struct {
	wire, tick int
}

// Image is the dense charge/width raster for one plane's hit set, together
// with the reverse index from occupied cells to hit handles. It is owned by
// the pipeline run that built it and borrows the hit slice for its lifetime.
//
// Grids are flat and row-major: bin = localTick*NWires + localWire, where
// local coordinates are global coordinates shifted by the lower bounds.
type Image struct {
	Bounds Bounds

	// Charge holds the per-cell charge; for cells hit more than once it
	// keeps the maximum (see Build).
	Charge []float64

	// Width holds the temporal width of the hit that set each cell's
	// charge; zero for unoccupied cells.
	Width []float64

	hits  []Hit
	index map[cellKey]int
}

// Build rasterizes hits into a new Image. The image extent is the hit extent
// plus BoundsMargin on each side. When two hits land on the same cell the
// one with more charge wins: it overwrites charge and width and replaces the
// loser in the reverse index.
//
// An empty hit slice yields a zero-size image; downstream stages produce
// zero clusters from it without error.
func Build(hits []Hit, normalize WireNormalizer, det DetectorProperties) *Image {
	if normalize == nil {
		normalize = func(wire, module int) int { return wire }
	}

	img := &Image{index: make(map[cellKey]int), hits: hits}
	if len(hits) == 0 {
		return img
	}

	lowerTick := math.MaxInt
	if det != nil {
		lowerTick = det.ReadoutWindowSize()
	}
	upperTick := 0
	lowerWire := math.MaxInt
	upperWire := 0
	for _, h := range hits {
		wire := normalize(h.Wire, h.Module)
		tick := int(h.PeakTime)
		if tick < lowerTick {
			lowerTick = tick
		}
		if tick > upperTick {
			upperTick = tick
		}
		if wire < lowerWire {
			lowerWire = wire
		}
		if wire > upperWire {
			upperWire = wire
		}
	}
	img.Bounds = Bounds{
		LowerWire: lowerWire - BoundsMargin,
		UpperWire: upperWire + BoundsMargin,
		LowerTick: lowerTick - BoundsMargin,
		UpperTick: upperTick + BoundsMargin,
	}

	n := img.Bounds.NWires() * img.Bounds.NTicks()
	img.Charge = make([]float64, n)
	img.Width = make([]float64, n)

	for i, h := range hits {
		wire := normalize(h.Wire, h.Module)
		tick := int(h.PeakTime)
		bin := img.Bin(wire-img.Bounds.LowerWire, tick-img.Bounds.LowerTick)
		if h.Charge > img.Charge[bin] {
			img.Charge[bin] = h.Charge
			img.Width[bin] = h.Width
			img.index[cellKey{wire, tick}] = i
		}
	}

	return img
}

// NBins returns the total number of cells in the image.
func (im *Image) NBins() int { return len(im.Charge) }

// Bin linearizes a local (wire, tick) cell address.
func (im *Image) Bin(localWire, localTick int) int {
	return localTick*im.Bounds.NWires() + localWire
}

// WireTick is the inverse of Bin.
func (im *Image) WireTick(bin int) (localWire, localTick int) {
	n := im.Bounds.NWires()
	return bin % n, bin / n
}

// HitAt reports whether bin corresponds to a real hit and, if so, returns
// the index of that hit in the slice passed to Build.
func (im *Image) HitAt(bin int) (int, bool) {
	localWire, localTick := im.WireTick(bin)
	i, ok := im.index[cellKey{
		wire: localWire + im.Bounds.LowerWire,
		tick: localTick + im.Bounds.LowerTick,
	}]
	return i, ok
}

// TimeOf returns the peak time of the real hit at bin, or SyntheticTime if
// no hit occupies the cell.
func (im *Image) TimeOf(bin int) float64 {
	if i, ok := im.HitAt(bin); ok {
		return im.hits[i].PeakTime
	}
	return SyntheticTime
}

// NHits returns the number of cells backed by a real hit.
func (im *Image) NHits() int { return len(im.index) }
