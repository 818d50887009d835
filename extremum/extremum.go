// Package extremum scans a Hessian-response pyramid for scale-space
// extrema: pixels whose determinant response is strictly greater (or
// smaller) than all 26 neighbors in a 3x3x3 cube spanning the pixel's own
// level and its two adjacent levels, refined to sub-pixel and sub-scale
// precision by fitting a local quadratic.
package extremum

import (
	"math"

	"github.com/naisuuuu/surf/hessian"
)

// Polarity selects which kind of extremum to keep.
type Polarity int

const (
	// Both keeps maxima and minima.
	Both Polarity = iota
	// Maxima keeps only local maxima.
	Maxima
	// Minima keeps only local minima.
	Minima
)

// Candidate is a refined extremum: a sub-pixel position on the image
// plane and a sub-scale radius on the continuous scale axis, together
// with the raw response strength at the integer location that produced
// it.
type Candidate struct {
	X, Y     float64
	Scale    float64
	Strength float32
}

// Thresholds bounds which raw response values are worth refining at all.
// Set a side to ±Inf (as NoThreshold does) to disable that side's check: the
// threshold is only meant to apply early when locations are selected in
// Absolute mode, letting every other mode defer filtering to the
// location-selection stage.
type Thresholds struct {
	Max float64 // maxima candidates must be >= Max
	Min float64 // minima candidates must be <= Min
}

// NoThreshold disables both sides of Thresholds.
func NoThreshold() Thresholds {
	return Thresholds{Max: math.Inf(-1), Min: math.Inf(1)}
}

// Search scans every interior level of stack (every level except the
// first and last, which have no scale-axis neighbor on one side) for
// extrema and returns their refined candidates.
func Search(stack *hessian.Stack, polarity Polarity, thresh Thresholds) []Candidate {
	var out []Candidate
	for i := 1; i < len(stack.Levels)-1; i++ {
		out = append(out, searchLevel(stack, i, polarity, thresh)...)
	}
	return out
}

func searchLevel(stack *hessian.Stack, i int, polarity Polarity, thresh Thresholds) []Candidate {
	prev := &stack.Levels[i-1]
	level := &stack.Levels[i]
	next := &stack.Levels[i+1]

	step := stack.SampleSteps[i]
	if step <= 0 {
		return nil
	}

	scale := hessian.Scale(level.KernelSize)
	scalePrev := hessian.Scale(prev.KernelSize)
	scaleNext := hessian.Scale(next.KernelSize)

	eta := scale - scalePrev
	chi := scaleNext - scale

	coeffs := scaleCoefficients(eta, chi)

	ignoreMax := polarity == Minima
	ignoreMin := polarity == Maxima

	width, height := level.Width, level.Height
	rows := height - step
	cols := width - step

	fstep := float64(step)
	twostepi := 1.0 / (2.0 * fstep)
	sqrstepi := 1.0 / (fstep * fstep)
	sqrstep4 := sqrstepi / 4.0

	var out []Candidate

	for y := step; y < rows; y += step {
		for x := step; x < cols; x += step {
			val := level.At(x, y)
			left := level.At(x-step, y)
			right := level.At(x+step, y)
			top := level.At(x, y-step)
			bottom := level.At(x, y+step)
			below := prev.At(x, y)
			above := next.At(x, y)

			isMin := left > val
			isMax := left < val
			if !isMin && !isMax {
				continue
			}
			if isMin {
				if ignoreMin || right <= val || top <= val || bottom <= val ||
					above <= val || below <= val || float64(val) > thresh.Min {
					continue
				}
			} else {
				if ignoreMax || right >= val || top >= val || bottom >= val ||
					above >= val || below >= val || float64(val) < thresh.Max {
					continue
				}
			}
			// Remaining cells of the 3x3x3 cube must also compare strictly.
			strict := true
			for _, l := range [3]*hessian.Level{prev, level, next} {
				for ny := y - step; ny <= y+step; ny += step {
					for nx := x - step; nx <= x+step; nx += step {
						n := l.At(nx, ny)
						if !(l == level && nx == x && ny == y) && ((isMax && n >= val) || (isMin && n <= val)) {
							strict = false
						}
					}
				}
			}
			if !strict {
				continue
			}

			cand, ok := refine(prev, level, next, x, y, step, val, left, right, top, bottom, below, above,
				coeffs, twostepi, sqrstepi, sqrstep4, fstep, eta, chi, scale)
			if !ok {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

// scaleQuadCoefficients are the finite-difference weights for first and
// second derivatives of a quadratic fit through three non-uniformly
// spaced samples on the scale axis, taken at offsets -eta, 0, +chi from
// the current level.
type scaleQuadCoefficients struct {
	kp, k, kn    float64
	kkp, kk, kkn float64
}

func scaleCoefficients(eta, chi float64) scaleQuadCoefficients {
	etapchi := eta + chi
	etaxchi := eta * chi
	return scaleQuadCoefficients{
		kp: -chi / (eta * etapchi),
		k:  (chi - eta) / etaxchi,
		kn: eta / (chi * etapchi),

		kkp: 2.0 / (eta * etapchi),
		kk:  -2.0 / etaxchi,
		kkn: 2.0 / (chi * etapchi),
	}
}

func refine(prev, level, next *hessian.Level, x, y, step int,
	val, left, right, top, bottom, below, above float32,
	c scaleQuadCoefficients, twostepi, sqrstepi, sqrstep4, fstep, eta, chi, scale float64) (Candidate, bool) {

	gx := float64(right-left) * twostepi
	gy := float64(bottom-top) * twostepi
	gs := c.kp*float64(below) + c.k*float64(val) + c.kn*float64(above)

	hxx := float64(left+right-2*val) * sqrstepi
	hyy := float64(top+bottom-2*val) * sqrstepi
	hss := c.kkp*float64(below) + c.kk*float64(val) + c.kkn*float64(above)

	hxy := float64(level.At(x-step, y-step)+level.At(x+step, y+step)-
		level.At(x+step, y-step)-level.At(x-step, y+step)) * sqrstep4

	hxs := (c.kp*float64(prev.At(x+step, y)-prev.At(x-step, y)) +
		c.k*float64(right-left) +
		c.kn*float64(next.At(x+step, y)-next.At(x-step, y))) * twostepi

	hys := (c.kp*float64(prev.At(x, y+step)-prev.At(x, y-step)) +
		c.k*float64(bottom-top) +
		c.kn*float64(next.At(x, y+step)-next.At(x, y-step))) * twostepi

	det := hxx*hyy*hss - hxx*hys*hys - hxy*hxy*hss + 2*hxy*hxs*hys - hxs*hxs*hyy

	if math.Abs(det) < epsilon {
		return Candidate{}, false
	}

	ihxy := -hxy*hss + hxs*hys
	ihxs := hxy*hys - hxs*hyy
	ihys := -hxx*hys + hxy*hxs
	ihxx := hyy*hss - hys*hys
	ihyy := hxx*hss - hxs*hxs
	ihss := hxx*hyy - hxy*hxy

	dx := -(ihxx*gx + ihxy*gy + ihxs*gs) / det
	dy := -(ihxy*gx + ihyy*gy + ihys*gs) / det
	ds := -(ihxs*gx + ihys*gy + ihss*gs) / det

	if math.Abs(dx) >= fstep || math.Abs(dy) >= fstep || ds < -eta || ds > chi {
		return Candidate{}, false
	}

	return Candidate{
		X:        dx + float64(x),
		Y:        dy + float64(y),
		Scale:    ds + scale,
		Strength: val,
	}, true
}

// epsilon matches float32's machine epsilon: below this the 3x3 Hessian
// is too close to singular to invert safely.
const epsilon = 1.1920929e-07
