package blur

import "math"

// Kernel is a flat array of weights over a rectangular window, addressed by
// offset from the window center.
type Kernel []float64

// KernelSet holds one kernel per configured width tier. All kernels share a
// single window geometry sized for the largest tier, so one addressing
// scheme serves every tier; only the weights differ.
type KernelSet struct {
	// Width and Height are the shared window dimensions in bins.
	Width, Height int

	// WireRadius and TickRadius are the blur radii the set was built for.
	// The tick-axis reach of tier t is TickRadius*t.
	WireRadius, TickRadius int

	// Ceiling is the tier ceiling the window height was sized for.
	Ceiling int

	byTier map[int]Kernel
	tiers  map[int]bool
}

// BuildKernels constructs one anisotropic Gaussian kernel per tier. The
// tier's kernel uses the base tick sigma multiplied by the tier value; the
// wire sigma is common to all tiers. It is a pure function of its inputs and
// retains no state between calls.
//
// Weights are the product of two discretized zero-mean Gaussian densities
// and are deliberately not renormalized afterwards: exact energy
// conservation is traded for preserving relative amplitude across tiers,
// and the downstream seed and charge thresholds are tuned against these
// unnormalized values.
func BuildKernels(p Params, tiers []int, ceiling int) KernelSet {
	heightScale := ceiling + 1
	ks := KernelSet{
		Width:      2*p.WireRadius + 1,
		Height:     2*p.TickRadius*heightScale + 1,
		WireRadius: p.WireRadius,
		TickRadius: p.TickRadius,
		Ceiling:    ceiling,
		byTier:     make(map[int]Kernel, len(tiers)),
		tiers:      make(map[int]bool, len(tiers)),
	}

	for _, tier := range tiers {
		kernel := make(Kernel, ks.Width*ks.Height)
		sigmaWire := float64(p.WireSigma)
		sigmaTick := float64(p.TickSigma * tier)

		for i := -p.WireRadius; i <= p.WireRadius; i++ {
			for j := -p.TickRadius * heightScale; j <= p.TickRadius*heightScale; j++ {
				kernel[ks.Index(i, j)] = gauss(float64(i), sigmaWire) * gauss(float64(j), sigmaTick)
			}
		}

		ks.byTier[tier] = kernel
		ks.tiers[tier] = true
	}

	return ks
}

// gauss is the zero-mean Gaussian density at x.
func gauss(x, sigma float64) float64 {
	s2 := 2 * sigma * sigma
	return math.Exp(-x*x/s2) / math.Sqrt(s2*math.Pi)
}

// Index linearizes a (wire, tick) offset from the window center.
func (ks KernelSet) Index(i, j int) int {
	return ks.Width*(ks.Height/2+j) + (ks.Width/2 + i)
}

// Select returns the kernel for the given computed width tier, falling back
// downward through the configured tiers when the exact value is absent. As
// long as tier 1 is configured the search always terminates with a kernel.
func (ks KernelSet) Select(tier int) Kernel {
	for t := tier; t >= 1; t-- {
		if ks.tiers[t] {
			return ks.byTier[t]
		}
	}
	// Unreachable for validated configurations; tier 1 is mandatory.
	return ks.byTier[1]
}
