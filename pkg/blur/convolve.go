package blur

import "blurcluster/pkg/hitmap"

// Convolve produces the blurred image. This is a scatter-add, not a classic
// sliding-window convolution: each non-zero source cell picks its own kernel
// from its width tier and adds its kernel-weighted charge to the cells it
// reaches. The tick-axis reach grows with the tier while the kernel window
// geometry stays fixed.
//
// Contributions that fall outside the image rectangle are dropped; charge
// leaving the image is lost.
func Convolve(img *hitmap.Image, kernels KernelSet, tickWidthRescale float64) []float64 {
	nWires := img.Bounds.NWires()
	nTicks := img.Bounds.NTicks()
	blurred := make([]float64, img.NBins())

	for tick := 0; tick < nTicks; tick++ {
		for wire := 0; wire < nWires; wire++ {
			bin := img.Bin(wire, tick)
			charge := img.Charge[bin]
			if charge == 0 {
				continue
			}

			// Tick blurring scales with the width of the source hit.
			tier := int(img.Width[bin] / tickWidthRescale)
			if tier > kernels.Ceiling {
				tier = kernels.Ceiling
			}
			if tier < 1 {
				tier = 1
			}
			kernel := kernels.Select(tier)

			for j := -kernels.TickRadius * tier; j <= kernels.TickRadius*tier; j++ {
				destTick := tick + j
				if destTick < 0 || destTick >= nTicks {
					continue
				}
				for i := -kernels.WireRadius; i <= kernels.WireRadius; i++ {
					destWire := wire + i
					if destWire < 0 || destWire >= nWires {
						continue
					}
					blurred[img.Bin(destWire, destTick)] += kernel[kernels.Index(i, j)] * charge
				}
			}
		}
	}

	return blurred
}
