package runtime

import "math"

// KernelFunc is a pure function over component-aligned float64 slices,
// the runtime's concrete implementation of the symbolic KernelFunc
// names compiler/lower emits (spec.md §3.3, §4.7.1). A stateful
// primitive lowers to one or more of these (Phasor uses three);
// UnitDelay uses none.
type KernelFunc func(args ...[]float64) []float64

var kernels = map[string]KernelFunc{
	"lag.linear":              kernelLagLinear,
	"lag.exponential":         kernelLagExponential,
	"phasor.advance":          kernelPhasorAdvance,
	"phasor.wrapEvent":        kernelPhasorWrapEvent,
	"math.fract":              kernelFract,
	"sampleAndHold.latch":     kernelSampleAndHoldLatch,
	"accumulator.add":         kernelAccumulatorAdd,
	"accumulator.addWithReset": kernelAccumulatorAddWithReset,
	"slew.step":               kernelSlewStep,
	"palette.hueCycle":        kernelPaletteHueCycle,
}

func lookupKernel(name string) (KernelFunc, bool) {
	fn, ok := kernels[name]
	return fn, ok
}

// elementwise applies fn component-by-component, broadcasting any
// length-1 argument against the widest argument (spec.md §4.7.2's
// implicit-lift broadcast rule, applied at the value level).
func elementwise(fn func(vals ...float64) float64, args ...[]float64) []float64 {
	n := 1
	for _, a := range args {
		if len(a) > n {
			n = len(a)
		}
	}
	out := make([]float64, n)
	vals := make([]float64, len(args))
	for i := 0; i < n; i++ {
		for j, a := range args {
			if len(a) == 1 {
				vals[j] = a[0]
			} else {
				vals[j] = a[i]
			}
		}
		out[i] = fn(vals...)
	}
	return out
}

func kernelLagLinear(args ...[]float64) []float64 {
	prev, target, riseTau, fallTau, dt := args[0], args[1], args[2], args[3], args[4]
	return elementwise(func(v ...float64) float64 {
		p, t, rise, fall, d := v[0], v[1], v[2], v[3], v[4]
		tau := rise
		if t < p {
			tau = fall
		}
		if tau <= 0 {
			return t
		}
		rate := d / tau
		if rate > 1 {
			rate = 1
		}
		return p + rate*(t-p)
	}, prev, target, riseTau, fallTau, dt)
}

func kernelLagExponential(args ...[]float64) []float64 {
	prev, target, riseTau, fallTau, dt := args[0], args[1], args[2], args[3], args[4]
	return elementwise(func(v ...float64) float64 {
		p, t, rise, fall, d := v[0], v[1], v[2], v[3], v[4]
		tau := rise
		if t < p {
			tau = fall
		}
		if tau <= 0 {
			return t
		}
		alpha := 1 - math.Exp(-d/tau)
		return p + alpha*(t-p)
	}, prev, target, riseTau, fallTau, dt)
}

func kernelPhasorAdvance(args ...[]float64) []float64 {
	prevPhase, rate, dt := args[0], args[1], args[2]
	return elementwise(func(v ...float64) float64 {
		return v[0] + v[1]*v[2]
	}, prevPhase, rate, dt)
}

func kernelFract(args ...[]float64) []float64 {
	x := args[0]
	return elementwise(func(v ...float64) float64 {
		return v[0] - math.Floor(v[0])
	}, x)
}

func kernelPhasorWrapEvent(args ...[]float64) []float64 {
	prevPhase, nextRaw := args[0], args[1]
	return elementwise(func(v ...float64) float64 {
		if math.Floor(v[1]) != math.Floor(v[0]) {
			return 1
		}
		return 0
	}, prevPhase, nextRaw)
}

func kernelSampleAndHoldLatch(args ...[]float64) []float64 {
	prevHeld, in, trigger := args[0], args[1], args[2]
	return elementwise(func(v ...float64) float64 {
		if v[2] != 0 {
			return v[1]
		}
		return v[0]
	}, prevHeld, in, trigger)
}

func kernelAccumulatorAdd(args ...[]float64) []float64 {
	prevSum, delta := args[0], args[1]
	return elementwise(func(v ...float64) float64 {
		return v[0] + v[1]
	}, prevSum, delta)
}

func kernelAccumulatorAddWithReset(args ...[]float64) []float64 {
	prevSum, delta, reset := args[0], args[1], args[2]
	return elementwise(func(v ...float64) float64 {
		if v[2] != 0 {
			return v[1]
		}
		return v[0] + v[1]
	}, prevSum, delta, reset)
}

// kernelPaletteHueCycle expands a 0..1 hue value (driven by phaseA, the
// rail closest to a dedicated palette clock) into an opaque RGBA color
// via HSL with fixed saturation/lightness, the default-source color
// macro's concrete implementation (spec.md §4.2).
func kernelPaletteHueCycle(args ...[]float64) []float64 {
	hue := args[0]
	out := make([]float64, 4)
	r, g, b := hslToRGB(hue[0]-math.Floor(hue[0]), 0.65, 0.55)
	out[0], out[1], out[2], out[3] = r, g, b, 1
	return out
}

func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r = hueToRGB(p, q, h+1.0/3.0)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3.0)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

func kernelSlewStep(args ...[]float64) []float64 {
	prevY, target, dt, tau := args[0], args[1], args[2], args[3]
	return elementwise(func(v ...float64) float64 {
		p, t, d, tauV := v[0], v[1], v[2], v[3]
		if tauV <= 0 {
			return t
		}
		alpha := d / tauV
		if alpha > 1 {
			alpha = 1
		}
		return p + alpha*(t-p)
	}, prevY, target, dt, tau)
}
