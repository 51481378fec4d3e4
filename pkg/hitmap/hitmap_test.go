package hitmap

import "testing"

type fixedWindow int

func (w fixedWindow) ReadoutWindowSize() int { return int(w) }

func TestBuildBounds(t *testing.T) {
	img := Build([]Hit{{Wire: 10, PeakTime: 100.5, Charge: 5, Width: 1}}, nil, nil)

	want := Bounds{LowerWire: -10, UpperWire: 30, LowerTick: 80, UpperTick: 120}
	if img.Bounds != want {
		t.Errorf("bounds = %+v, want %+v", img.Bounds, want)
	}
	if img.Bounds.NWires() != 40 || img.Bounds.NTicks() != 40 {
		t.Errorf("grid = %dx%d, want 40x40", img.Bounds.NWires(), img.Bounds.NTicks())
	}
	if img.NBins() != 1600 {
		t.Errorf("NBins = %d, want 1600", img.NBins())
	}
}

func TestBuildUsesReadoutWindowAsScanBound(t *testing.T) {
	// A readout window below the lowest hit tick becomes the lower tick
	// bound; it is a scan seed, not a clamp.
	img := Build([]Hit{{Wire: 10, PeakTime: 100, Charge: 5}}, nil, fixedWindow(50))

	if img.Bounds.LowerTick != 30 {
		t.Errorf("LowerTick = %d, want 30", img.Bounds.LowerTick)
	}
	if img.Bounds.UpperTick != 120 {
		t.Errorf("UpperTick = %d, want 120", img.Bounds.UpperTick)
	}
}

func TestBuildEmpty(t *testing.T) {
	img := Build(nil, nil, nil)
	if img.NBins() != 0 {
		t.Errorf("NBins = %d, want 0", img.NBins())
	}
	if img.NHits() != 0 {
		t.Errorf("NHits = %d, want 0", img.NHits())
	}
}

func TestBuildNormalizer(t *testing.T) {
	// Two hits with equal module-local wires on different modules must land
	// on different cells once normalized.
	offset := func(wire, module int) int { return wire + 100*module }
	img := Build([]Hit{
		{Wire: 3, Module: 0, PeakTime: 50, Charge: 1},
		{Wire: 3, Module: 1, PeakTime: 50, Charge: 2},
	}, offset, nil)

	if img.Bounds.LowerWire != -17 || img.Bounds.UpperWire != 123 {
		t.Errorf("wire bounds = [%d, %d), want [-17, 123)", img.Bounds.LowerWire, img.Bounds.UpperWire)
	}
	if img.NHits() != 2 {
		t.Errorf("NHits = %d, want 2", img.NHits())
	}
}

func TestBuildKeepsMaxCharge(t *testing.T) {
	// Three hits on one cell: the middle one carries the most charge and
	// must win the cell, evicting the first from the reverse index.
	hits := []Hit{
		{Wire: 10, PeakTime: 100.2, Charge: 5, Width: 1},
		{Wire: 10, PeakTime: 100.7, Charge: 9, Width: 3},
		{Wire: 10, PeakTime: 100.4, Charge: 2, Width: 7},
	}
	img := Build(hits, nil, nil)

	bin := img.Bin(10-img.Bounds.LowerWire, 100-img.Bounds.LowerTick)
	if img.Charge[bin] != 9 {
		t.Errorf("Charge = %f, want 9", img.Charge[bin])
	}
	if img.Width[bin] != 3 {
		t.Errorf("Width = %f, want 3", img.Width[bin])
	}
	i, ok := img.HitAt(bin)
	if !ok || i != 1 {
		t.Errorf("HitAt = (%d, %t), want (1, true)", i, ok)
	}
	if img.NHits() != 1 {
		t.Errorf("NHits = %d, want 1", img.NHits())
	}
}

func TestBinRoundTrip(t *testing.T) {
	img := Build([]Hit{{Wire: 10, PeakTime: 100, Charge: 5}}, nil, nil)

	for _, c := range []struct{ wire, tick int }{{0, 0}, {5, 7}, {39, 39}} {
		bin := img.Bin(c.wire, c.tick)
		wire, tick := img.WireTick(bin)
		if wire != c.wire || tick != c.tick {
			t.Errorf("round trip (%d, %d) -> %d -> (%d, %d)", c.wire, c.tick, bin, wire, tick)
		}
	}
}

func TestTimeOf(t *testing.T) {
	img := Build([]Hit{{Wire: 10, PeakTime: 100.5, Charge: 5}}, nil, nil)

	bin := img.Bin(10-img.Bounds.LowerWire, 100-img.Bounds.LowerTick)
	if got := img.TimeOf(bin); got != 100.5 {
		t.Errorf("TimeOf(hit cell) = %f, want 100.5", got)
	}
	if got := img.TimeOf(0); got != SyntheticTime {
		t.Errorf("TimeOf(empty cell) = %f, want %d", got, SyntheticTime)
	}
}
