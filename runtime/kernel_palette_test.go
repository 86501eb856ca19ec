package runtime

import "testing"

func TestKernelPaletteHueCycleProducesOpaqueRGBA(t *testing.T) {
	out := kernelPaletteHueCycle([]float64{0.0})
	if len(out) != 4 {
		t.Fatalf("expected 4 components (r,g,b,a), got %d", len(out))
	}
	if out[3] != 1 {
		t.Fatalf("expected fully opaque alpha, got %v", out[3])
	}
	for i, v := range out[:3] {
		if v < 0 || v > 1 {
			t.Fatalf("expected component %d in [0,1], got %v", i, v)
		}
	}
}

func TestKernelPaletteHueCycleWrapsHueAboveOne(t *testing.T) {
	a := kernelPaletteHueCycle([]float64{0.25})
	b := kernelPaletteHueCycle([]float64{1.25})
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected hue to wrap modulo 1, component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHSLToRGBGrayscaleAtZeroSaturation(t *testing.T) {
	r, g, b := hslToRGB(0.5, 0, 0.4)
	if r != 0.4 || g != 0.4 || b != 0.4 {
		t.Fatalf("expected zero saturation to yield gray (l,l,l), got (%v,%v,%v)", r, g, b)
	}
}

func TestHSLToRGBPrimaryRed(t *testing.T) {
	r, g, b := hslToRGB(0, 1, 0.5)
	if r < 0.99 {
		t.Fatalf("expected hue 0 full saturation/mid lightness to be near-pure red, got r=%v", r)
	}
	if g > 0.01 || b > 0.01 {
		t.Fatalf("expected green/blue near zero for pure red, got g=%v b=%v", g, b)
	}
}
