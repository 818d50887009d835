// Package descriptor builds a rotation-normalized feature vector for each
// detected location: a square grid of Gaussian-weighted Haar responses,
// accumulated per subregion and concatenated in row-major order.
//
// One of three modes decides how the location's angle is used: Ignore
// samples an axis-aligned grid and throws the angle away, Approximate
// rotates the sample positions about the location by its angle and steers
// each axis-aligned box response analytically, and Cluster groups
// locations by angle, rotates the source image once per cluster, and
// samples an axis-aligned grid on the rotated image.
package descriptor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/location"
)

// ErrInvalidParameters is returned by NewDescriber when Params describe a
// geometrically empty or otherwise unusable grid.
var ErrInvalidParameters = errors.New("descriptor: invalid parameters")

// Vector is one location's descriptor: numberOfSubregions^2 subregions,
// each contributing 4 or 8 components, in row-major subregion order.
type Vector []float64

// OrientationMode selects how a location's estimated angle is used when
// sampling its descriptor window.
type OrientationMode int

const (
	// Ignore samples the window axis-aligned, discarding the angle.
	Ignore OrientationMode = iota
	// Approximate analytically rotates each sample's Haar response by
	// the location's angle, without touching the source image.
	Approximate
	// Cluster groups locations into angular clusters and rotates the
	// source image once per cluster so every location in it can be
	// sampled axis-aligned.
	Cluster
)

// Image is the source a Describer samples from. Ignore and Approximate
// modes only ever need Integral; Cluster additionally rotates the
// underlying raster once per angular cluster and works from the rotated
// image's own integral image.
type Image interface {
	// Integral returns the integral image of the source at its current
	// orientation.
	Integral() *integral.Image
	// Rotate returns the source rotated by angle radians about the
	// origin, resized to fit the rotated bounding box, together with
	// the offset that must be subtracted from a rotated original-image
	// coordinate to land it in the returned image's own coordinate
	// frame.
	Rotate(angle float64) (rotated Image, offsetX, offsetY float64, err error)
}

// Params configures descriptor extraction.
type Params struct {
	// NumberOfSubregions and SubregionSamples size the sampling grid:
	// a NumberOfSubregions x NumberOfSubregions array of subregions,
	// each SubregionSamples x SubregionSamples samples wide.
	NumberOfSubregions int
	SubregionSamples   int
	// WaveletSize scales a location's radius into the side of the Haar
	// wavelet used at each sample (half-side = round(radius*WaveletSize/2)).
	WaveletSize float64
	// GaussianWeight is the standard deviation of the Gaussian window
	// precomputed once over the full sampling grid.
	GaussianWeight float64
	// SignSplit selects the 8-component per-subregion accumulator
	// instead of the plain 4-component one.
	SignSplit bool
	// Normalize divides the finished vector by its L2 norm.
	Normalize bool
	// Clip caps every component at +/-ClippingValue and renormalizes,
	// after the initial L2 normalization.
	Clip          bool
	ClippingValue float64

	OrientationMode     OrientationMode
	OrientationClusters int

	Boundary integral.BoundaryPolicy
}

// DefaultParams mirrors the reference descriptor's defaults. Clip and
// ClippingValue have no reference default: clipping large descriptor
// components is left off by default, with ClippingValue set to a
// commonly used SIFT/SURF descriptor clip of 0.2 for callers that enable
// it.
func DefaultParams() Params {
	return Params{
		NumberOfSubregions:  4,
		SubregionSamples:    5,
		WaveletSize:         2,
		GaussianWeight:      3.5,
		SignSplit:           false,
		Normalize:           true,
		Clip:                false,
		ClippingValue:       0.2,
		OrientationMode:     Approximate,
		OrientationClusters: 12,
		Boundary:            integral.Zero,
	}
}

func (p Params) validate() error {
	if p.NumberOfSubregions <= 0 {
		return fmt.Errorf("%w: NumberOfSubregions must be positive, got %d", ErrInvalidParameters, p.NumberOfSubregions)
	}
	if p.SubregionSamples <= 0 {
		return fmt.Errorf("%w: SubregionSamples must be positive, got %d", ErrInvalidParameters, p.SubregionSamples)
	}
	if p.WaveletSize <= 0 {
		return fmt.Errorf("%w: WaveletSize must be positive, got %g", ErrInvalidParameters, p.WaveletSize)
	}
	if p.GaussianWeight <= 0 {
		return fmt.Errorf("%w: GaussianWeight must be positive, got %g", ErrInvalidParameters, p.GaussianWeight)
	}
	if p.OrientationMode == Cluster && p.OrientationClusters <= 0 {
		return fmt.Errorf("%w: OrientationClusters must be positive for Cluster mode, got %d", ErrInvalidParameters, p.OrientationClusters)
	}
	if p.Clip && p.ClippingValue <= 0 {
		return fmt.Errorf("%w: ClippingValue must be positive when Clip is enabled, got %g", ErrInvalidParameters, p.ClippingValue)
	}
	return nil
}

// Describer holds the sampling grid geometry and precomputed Gaussian
// window shared by every location described with the same Params.
type Describer struct {
	params   Params
	gaussian [][]float64
	winSize  int
	hSide    int
	dSize    int
}

// NewDescriber validates params and precomputes the Gaussian window.
func NewDescriber(params Params) (*Describer, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	winSize := params.NumberOfSubregions * params.SubregionSamples
	return &Describer{
		params:   params,
		gaussian: buildGaussianWindow(winSize, params.GaussianWeight),
		winSize:  winSize,
		hSide:    winSize / 2,
		dSize:    params.NumberOfSubregions * params.NumberOfSubregions * blockSize(params.SignSplit),
	}, nil
}

func buildGaussianWindow(winSize int, weight float64) [][]float64 {
	w := float64(winSize) / 2.0
	g := make([][]float64, winSize)
	for y := 0; y < winSize; y++ {
		row := make([]float64, winSize)
		for x := 0; x < winSize; x++ {
			row[x] = math.Exp(-0.5 * (sqr(float64(x)-w) + sqr(float64(y)-w)) / sqr(weight))
		}
		g[y] = row
	}
	return g
}

func sqr(v float64) float64 { return v * v }

func (d *Describer) newBlockAcc() block {
	if d.params.SignSplit {
		return &block8{}
	}
	return &block4{}
}

// DescribeAll computes one Vector per location in locs, in the same
// order, fanning the work out across up to runtime.NumCPU() goroutines
// (Cluster mode fans out by cluster instead of by location, since every
// location in a cluster shares one rotated image).
func (d *Describer) DescribeAll(ctx context.Context, img Image, locs []location.Location) ([]Vector, error) {
	if d.params.OrientationMode == Cluster {
		return d.describeCluster(ctx, img, locs)
	}
	return d.describeConcurrent(ctx, img.Integral(), locs)
}

func (d *Describer) describeConcurrent(ctx context.Context, integ *integral.Image, locs []location.Location) ([]Vector, error) {
	out := make([]Vector, len(locs))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	for i := range locs {
		i := i
		loc := locs[i]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			var vct Vector
			if d.params.OrientationMode == Approximate {
				vct = d.describeApprox(integ, loc)
			} else {
				sum := func(x0, y0, x1, y1 int) float64 { return integ.Sum(d.params.Boundary, x0, y0, x1, y1) }
				vct = d.axisAligned(sum, integ.Width(), integ.Height(), loc.X, loc.Y, loc.Scale)
			}
			out[i] = d.finish(vct)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Describer) describeCluster(ctx context.Context, img Image, locs []location.Location) ([]Vector, error) {
	clusters := clusterByAngle(locs, d.params.OrientationClusters)
	out := make([]Vector, len(locs))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	for _, cl := range clusters {
		cl := cl
		if len(cl.indices) == 0 {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			rotated, offsetX, offsetY, err := img.Rotate(-cl.angle)
			if err != nil {
				return fmt.Errorf("descriptor: rotating cluster at angle %g: %w", cl.angle, err)
			}
			integ := rotated.Integral()
			width, height := integ.Width(), integ.Height()
			cosa := math.Cos(cl.angle)
			sina := math.Sin(cl.angle)
			sum := func(x0, y0, x1, y1 int) float64 { return integ.Sum(d.params.Boundary, x0, y0, x1, y1) }

			for _, idx := range cl.indices {
				loc := locs[idx]
				lx := math.Round(cosa*loc.X + sina*loc.Y - offsetX)
				ly := math.Round(-sina*loc.X + cosa*loc.Y - offsetY)
				vct := d.axisAligned(sum, width, height, lx, ly, loc.Scale)
				out[idx] = d.finish(vct)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// axisAligned samples the unrotated subregion grid centered at
// (originX, originY) and scaled by radius, shared by Ignore mode (sampled
// directly on the source image) and Cluster mode (sampled on a rotated
// image, with originX/originY already remapped into its frame).
func (d *Describer) axisAligned(sum func(x0, y0, x1, y1 int) float64, width, height int, originX, originY, radius float64) Vector {
	ns := d.params.NumberOfSubregions
	ss := d.params.SubregionSamples
	lhSide := float64(d.hSide) * radius
	wlsh := int(math.Round(radius * d.params.WaveletSize / 2.0))

	vct := make(Vector, d.dSize)
	acc := d.newBlockAcc()
	idx := 0
	for y := 0; y < ns; y++ {
		yoff := y * ss
		for x := 0; x < ns; x++ {
			xoff := x * ss
			acc.reset()
			ry := originY - lhSide + float64(yoff)*radius
			for yy := 0; yy < ss; yy++ {
				iry := int(math.Round(ry))
				ry += radius
				if iry < 0 || iry >= height {
					continue
				}
				rx := originX - lhSide + float64(xoff)*radius
				for xx := 0; xx < ss; xx++ {
					irx := int(math.Round(rx))
					rx += radius
					if irx < 0 || irx >= width {
						continue
					}
					weight := d.gaussian[yy+yoff][xx+xoff]
					dx := weight * (sum(irx, iry-wlsh, irx+wlsh, iry+wlsh) - sum(irx-wlsh, iry-wlsh, irx, iry+wlsh))
					dy := weight * (sum(irx-wlsh, iry, irx+wlsh, iry+wlsh) - sum(irx-wlsh, iry-wlsh, irx+wlsh, iry))
					acc.acc(dx, dy)
				}
			}
			acc.load(vct, &idx)
		}
	}
	return vct
}

// describeApprox samples the same subregion grid rotated by the
// location's own angle, replacing a true image rotation with a steering
// correction applied to each sample's Haar response.
func (d *Describer) describeApprox(integ *integral.Image, loc location.Location) Vector {
	width, height := integ.Width(), integ.Height()
	ns := d.params.NumberOfSubregions
	ss := d.params.SubregionSamples

	cosa := math.Cos(loc.Angle)
	sina := math.Sin(loc.Angle)
	rcosa := loc.Scale * cosa
	rsina := loc.Scale * sina
	hSide := float64(d.hSide)

	tx := loc.X - hSide*(rcosa-rsina)
	ty := loc.Y - hSide*(rcosa+rsina)
	wlsh := int(math.Round(loc.Scale * d.params.WaveletSize / 2.0))

	sum := func(x0, y0, x1, y1 int) float64 { return integ.Sum(d.params.Boundary, x0, y0, x1, y1) }

	vct := make(Vector, d.dSize)
	acc := d.newBlockAcc()
	idx := 0
	for y := 0; y < ns; y++ {
		yoff := y * ss
		for x := 0; x < ns; x++ {
			xoff := x * ss
			acc.reset()
			for yy := 0; yy < ss; yy++ {
				yyy := yy + yoff
				rx := float64(xoff)*rcosa - float64(yyy)*rsina + tx
				ry := float64(xoff)*rsina + float64(yyy)*rcosa + ty
				for xx := 0; xx < ss; xx++ {
					irx := int(math.Round(rx))
					iry := int(math.Round(ry))
					rx += rcosa
					ry += rsina
					if irx < 0 || irx >= width || iry < 0 || iry >= height {
						continue
					}
					weight := d.gaussian[yyy][xx+xoff]
					dx := weight * (sum(irx, iry-wlsh, irx+wlsh, iry+wlsh) - sum(irx-wlsh, iry-wlsh, irx, iry+wlsh))
					dy := weight * (sum(irx-wlsh, iry, irx+wlsh, iry+wlsh) - sum(irx-wlsh, iry-wlsh, irx+wlsh, iry))

					// Steer the axis-aligned response by the location's
					// angle instead of rotating the image; an
					// approximation on top of an already-approximate
					// box-filter response.
					rdx := dx*cosa + dy*sina
					rdy := -dx*sina + dy*cosa
					acc.acc(rdx, rdy)
				}
			}
			acc.load(vct, &idx)
		}
	}
	return vct
}

func (d *Describer) finish(v Vector) Vector {
	if !d.params.Normalize {
		return v
	}
	l2normalize(v)
	if d.params.Clip {
		for i, c := range v {
			switch {
			case c > d.params.ClippingValue:
				v[i] = d.params.ClippingValue
			case c < -d.params.ClippingValue:
				v[i] = -d.params.ClippingValue
			}
		}
		l2normalize(v)
	}
	return v
}

func l2normalize(v Vector) {
	var sumSq float64
	for _, c := range v {
		sumSq += c * c
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}
