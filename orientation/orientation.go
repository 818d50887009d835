// Package orientation assigns a dominant gradient angle to each detected
// location, by accumulating Haar-wavelet responses sampled over a
// circular neighborhood into a small number of overlapping angular
// windows and picking the window with the largest resultant vector.
package orientation

import (
	"math"

	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/internal/lut"
	"github.com/naisuuuu/surf/location"
)

// WindowWidthUnit disambiguates Params.WindowWidth. The zero value, Auto,
// applies a magnitude heuristic: a value already smaller than a full
// turn is read as radians, anything larger is assumed to be degrees. Set
// Radians or Degrees explicitly to bypass the heuristic, e.g. for a
// deliberately narrow window given in degrees.
type WindowWidthUnit int

const (
	Auto WindowWidthUnit = iota
	Radians
	Degrees
)

// Params configures angle estimation.
type Params struct {
	// NeighborhoodFactor and SamplingStepFactor together size the fixed
	// circular sampling grid: radius = NeighborhoodFactor/SamplingStepFactor.
	NeighborhoodFactor float64
	SamplingStepFactor float64
	// WaveletSizeFactor scales a location's own scale into the side
	// length of the Haar wavelet used at each sample.
	WaveletSizeFactor float64
	// GaussianFactor is the standard deviation, in neighborhood-grid
	// units, of the Gaussian weight applied to each sample.
	GaussianFactor float64
	// WindowWidth is the angular window width, interpreted per
	// WindowWidthUnit.
	WindowWidth     float64
	WindowWidthUnit WindowWidthUnit
	// NumberOfWindows is how many overlapping angular windows partition
	// the circle.
	NumberOfWindows int
	Boundary        integral.BoundaryPolicy
}

// DefaultParams mirrors the reference detector's defaults.
func DefaultParams() Params {
	return Params{
		NeighborhoodFactor: 6,
		SamplingStepFactor: 1,
		WaveletSizeFactor:  4,
		GaussianFactor:     2.5,
		WindowWidth:        60,
		WindowWidthUnit:    Auto,
		NumberOfWindows:    6,
		Boundary:           integral.Zero,
	}
}

func (p Params) windowWidthRadians() float64 {
	switch p.WindowWidthUnit {
	case Degrees:
		return p.WindowWidth * math.Pi / 180.0
	case Radians:
		return p.WindowWidth
	default:
		if p.WindowWidth < 2*math.Pi {
			return p.WindowWidth
		}
		return p.WindowWidth * math.Pi / 180.0
	}
}

// Estimator holds the fixed-shape sampling grid and window accumulator
// built once from Params, reused (spatially rescaled per location) for
// every call to Estimate.
type Estimator struct {
	params Params
	grid   neighborhoodGrid
	acc    accumulator
}

// NewEstimator precomputes the circular sampling grid and Gaussian
// weights for params.
func NewEstimator(params Params) *Estimator {
	numWnds := params.NumberOfWindows
	if numWnds < 1 {
		numWnds = 1
	}
	return &Estimator{
		params: params,
		grid:   buildNeighborhoodGrid(params),
		acc:    newAccumulator(numWnds, params.windowWidthRadians()),
	}
}

// EstimateAll fills in the Angle field of every location in place.
// Estimator is not safe for concurrent use; callers that want to
// parallelize across locations should construct one Estimator per
// goroutine from the same Params.
func (e *Estimator) EstimateAll(img *integral.Image, locs []location.Location) {
	for i := range locs {
		locs[i].Angle = e.Estimate(img, locs[i])
	}
}

// Estimate computes the dominant angle, in [0,2*pi), for a single
// location.
func (e *Estimator) Estimate(img *integral.Image, loc location.Location) float64 {
	e.acc.reset()

	s := loc.Scale
	tmp := int(math.Round(s * e.params.WaveletSizeFactor))
	wls := tmp
	if tmp%2 == 0 {
		wls++
	}
	wlsh := wls / 2

	step := s * e.params.SamplingStepFactor

	fromY, toY := -e.grid.iradius, e.grid.iradius

	fcBorder := float64(toY)*step + 2.0 + float64(wlsh)
	fast := loc.X > fcBorder && loc.Y > fcBorder &&
		loc.X < float64(img.Width()-1)-fcBorder &&
		loc.Y < float64(img.Height()-1)-fcBorder

	var sum func(x0, y0, x1, y1 int) float64
	if fast {
		sum = img.InternalSum
	} else {
		policy := e.params.Boundary
		sum = func(x0, y0, x1, y1 int) float64 { return img.Sum(policy, x0, y0, x1, y1) }
	}

	for y := fromY; y <= toY; y++ {
		pos := e.grid.circLUT[y+e.grid.iradius]
		row := e.grid.gauss[y+e.grid.iradius]
		yy := float64(y)*step + loc.Y
		py := int(math.Round(yy))
		for x := -pos; x <= pos; x++ {
			xx := float64(x) * step
			px := int(math.Round(xx + loc.X))
			weight := row[x+pos]

			wx := weight * (sum(px, py-wlsh, px+wlsh, py+wlsh) -
				sum(px-wlsh, py-wlsh, px, py+wlsh))
			wy := weight * (sum(px-wlsh, py, px+wlsh, py+wlsh) -
				sum(px-wlsh, py-wlsh, px+wlsh, py))

			e.acc.acc(wx, wy)
		}
	}

	return e.acc.result()
}

// neighborhoodGrid is the fixed circular disk of sample offsets and
// their Gaussian weights, built once and reused for every location
// (spatial extent is rescaled per-location via the sampling step, not
// by rebuilding the grid).
type neighborhoodGrid struct {
	iradius int
	circLUT []int
	gauss   [][]float64
}

func buildNeighborhoodGrid(p Params) neighborhoodGrid {
	radius0 := p.NeighborhoodFactor / p.SamplingStepFactor
	diameter := int(math.Round(2*radius0 + 1))
	iradius := diameter / 2
	radius := float64(iradius) + 0.49
	variance := p.GaussianFactor * p.GaussianFactor

	n := 2*iradius + 1
	circLUT := make([]int, n)
	gauss := make([][]float64, n)
	for y := -iradius; y <= iradius; y++ {
		// radius carries a 0.49 fudge to keep the disk from rounding a
		// half-pixel short at the cardinal rows.
		rowPos := int(math.Round(math.Sqrt(radius*radius - float64(y*y))))
		circLUT[y+iradius] = rowPos
		row := make([]float64, 2*rowPos+1)
		for x := -rowPos; x <= rowPos; x++ {
			row[x+rowPos] = math.Exp(-0.5 * float64(x*x+y*y) / variance)
		}
		gauss[y+iradius] = row
	}
	return neighborhoodGrid{iradius: iradius, circLUT: circLUT, gauss: gauss}
}

// accumulator sorts Haar-wavelet responses into NumberOfWindows
// overlapping angular windows and reports the dominant window's
// resultant angle.
type accumulator struct {
	numWnds  int
	wndX     []float64
	wndY     []float64
	afactor  float64
	wndDelta float64
}

func newAccumulator(numWnds int, wndWidth float64) accumulator {
	afactor := float64(numWnds) / (2 * math.Pi)
	return accumulator{
		numWnds:  numWnds,
		wndX:     make([]float64, numWnds),
		wndY:     make([]float64, numWnds),
		afactor:  afactor,
		wndDelta: (afactor * wndWidth) / 2.0001,
	}
}

func (a *accumulator) reset() {
	for i := range a.wndX {
		a.wndX[i] = 0
		a.wndY[i] = 0
	}
}

func (a *accumulator) acc(dx, dy float64) {
	angle := lut.Atan2(dy, dx)
	ia := angle * a.afactor
	from := int(math.Round(ia - a.wndDelta))
	to := int(math.Round(ia + a.wndDelta))
	for j := from; j <= to; j++ {
		idx := ((j % a.numWnds) + a.numWnds) % a.numWnds
		a.wndX[idx] += dx
		a.wndY[idx] += dy
	}
}

func (a *accumulator) result() float64 {
	maxMag := a.wndX[0]*a.wndX[0] + a.wndY[0]*a.wndY[0]
	angle := lut.Atan2(a.wndY[0], a.wndX[0])
	for i := 1; i < a.numWnds; i++ {
		mag := a.wndX[i]*a.wndX[i] + a.wndY[i]*a.wndY[i]
		if mag > maxMag {
			maxMag = mag
			angle = lut.Atan2(a.wndY[i], a.wndX[i])
		}
	}
	return angle
}
