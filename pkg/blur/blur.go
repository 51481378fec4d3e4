// Package blur implements the direction-adaptive Gaussian blur applied to a
// charge image before clustering. The blur direction follows the dominant
// trend of the hit distribution; the amount of tick-axis smearing applied to
// each cell scales with the width of the hit that filled it, via a set of
// kernels keyed by discrete width tiers.
package blur

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"blurcluster/pkg/hitmap"
)

// Config carries the blur-related configuration for one run.
type Config struct {
	// WireRadius and TickRadius are the base blur radii in bins.
	WireRadius int
	TickRadius int

	// WireSigma and TickSigma are the base Gaussian sigmas. When both are
	// zero, blurring is skipped and the raw charge image is used as-is.
	WireSigma float64
	TickSigma float64

	// TickWidthRescale divides a cell's hit width to obtain its width tier.
	TickWidthRescale float64

	// MaxTickWidthScale is the ceiling on the computed width tier.
	MaxTickWidthScale int

	// Tiers is the set of width tiers for which kernels are built. It must
	// contain 1 so that tier resolution always finds a kernel.
	Tiers []int
}

// Params are the direction-adapted blur radii and sigmas for one image.
type Params struct {
	WireRadius int
	TickRadius int
	WireSigma  int
	TickSigma  int
}

// FindParameters estimates the dominant direction of the hit distribution
// and scales the configured base radii and sigmas by the components of the
// corresponding unit vector. Each result is rounded to the nearest integer,
// sign-stripped, and floored at 1 so a degenerate direction never disables
// an axis entirely.
//
// The direction is the least-squares slope of tick against wire over all
// indexed hits. When the wire coordinates have zero spread the slope is
// undefined; the direction then falls back to the tick axis, the limiting
// direction of an ever-steeper trend.
func FindParameters(img *hitmap.Image, cfg Config) Params {
	var wires, ticks []float64
	for bin := 0; bin < img.NBins(); bin++ {
		if _, ok := img.HitAt(bin); !ok {
			continue
		}
		localWire, localTick := img.WireTick(bin)
		wires = append(wires, float64(localWire+img.Bounds.LowerWire))
		ticks = append(ticks, float64(localTick+img.Bounds.LowerTick))
	}

	_, slope := stat.LinearRegression(wires, ticks, nil, false)

	// Unit vector along (1, slope); tick-aligned for the degenerate case.
	ux, uy := 0.0, 1.0
	if !math.IsNaN(slope) && !math.IsInf(slope, 0) {
		norm := math.Hypot(1, slope)
		ux, uy = 1/norm, slope/norm
	}

	return Params{
		WireRadius: scaleComponent(float64(cfg.WireRadius), ux),
		TickRadius: scaleComponent(float64(cfg.TickRadius), uy),
		WireSigma:  scaleComponent(cfg.WireSigma, ux),
		TickSigma:  scaleComponent(cfg.TickSigma, uy),
	}
}

func scaleComponent(base, component float64) int {
	v := math.Round(math.Abs(base * component))
	if v < 1 {
		return 1
	}
	return int(v)
}

// GaussianBlur runs the full blur stage: parameter estimation, kernel
// construction and convolution. When both base sigmas are zero the blur is
// bypassed and the image's raw charge grid is returned unchanged (the
// caller must treat it as read-only in that case).
func GaussianBlur(img *hitmap.Image, cfg Config) []float64 {
	if img.NBins() == 0 || (cfg.WireSigma == 0 && cfg.TickSigma == 0) {
		return img.Charge
	}

	params := FindParameters(img, cfg)
	kernels := BuildKernels(params, cfg.Tiers, cfg.MaxTickWidthScale)
	return Convolve(img, kernels, cfg.TickWidthRescale)
}
