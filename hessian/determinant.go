package hessian

import (
	"math"

	"github.com/naisuuuu/surf/integral"
)

// frobRatioGauss is the fixed ratio between the Frobenius norms of the
// Gaussian second-derivative kernels that the box filters approximate;
// it does not depend on kernel size.
const frobRatioGauss = 0.577658 * 0.577658

// computeDeterminant evaluates the box-filter Hessian determinant
// response over the whole image at the given kernel size and sampling
// step. Positions skipped by the sampling step are left at zero.
//
// The image is split into a main region, where every filter tap lies at
// least one kernel half-width inside the image so the unchecked
// integral.Image.InternalSum applies, and a border region sampled with
// integral.Image.Sum under the configured boundary policy. Splitting the
// two keeps the boundary-policy dispatch off the hot interior loop.
func computeDeterminant(img *integral.Image, kernelSize, sampleStep int, normPower float64, sourceIsInteger bool, boundary integral.BoundaryPolicy) ([]float32, error) {
	width, height := img.Width(), img.Height()
	det := make([]float32, width*height)

	var norm float64
	if sourceIsInteger {
		norm = 1.0 / math.Pow(float64(kernelSize), normPower)
	} else {
		norm = (255.0 * 255.0) / math.Pow(float64(kernelSize), normPower)
	}

	hSide := (kernelSize - 1) / 2
	dxx1Height := (hSide + 1) / 2
	dxx2Width := hSide - kernelSize/3
	dxyFr := kernelSize - 2*(kernelSize/3)
	dxyEx := hSide - (dxyFr-dxyFr/3)/2
	dxyIn := dxyEx - kernelSize/3 + 1

	frobRatio := frobRatioGauss * (float64(dxx1Height*2+1) * 4.5 / float64(kernelSize))

	geom := blockGeometry{
		hSide:      hSide,
		dxx1Height: dxx1Height,
		dxx2Width:  dxx2Width,
		dxyEx:      dxyEx,
		dxyIn:      dxyIn,
		frobRatio:  frobRatio,
		norm:       norm,
	}

	startPos := alignUp(hSide+1, sampleStep)
	lastMainLoopRow := height - hSide
	lastMainLoopCol := width - hSide

	// Main loop: fully interior, uses the unchecked InternalSum path.
	for y := startPos; y < lastMainLoopRow; y += sampleStep {
		for x := startPos; x < lastMainLoopCol; x += sampleStep {
			det[y*width+x] = float32(geom.internal(img, x, y))
		}
	}

	if boundary == integral.NoBoundary {
		// No boundary policy to extend the image with: border
		// responses stay at zero, the same as an un-visited extremum
		// candidate.
		return det, nil
	}

	// Upper part.
	yTop := minInt(startPos, height)
	for y := 0; y < yTop; y += sampleStep {
		for x := 0; x < width; x += sampleStep {
			det[y*width+x] = float32(geom.bounded(img, boundary, x, y))
		}
	}

	startBottom := alignUp(maxInt(yTop, lastMainLoopRow), sampleStep)
	for y := startBottom; y < height; y += sampleStep {
		for x := 0; x < width; x += sampleStep {
			det[y*width+x] = float32(geom.bounded(img, boundary, x, y))
		}
	}

	// Sides, restricted to the row band the main loop already covered
	// vertically.
	xLeft := minInt(startPos, width)
	xRight := alignUp(maxInt(xLeft, lastMainLoopCol), sampleStep)
	for y := startPos; y < lastMainLoopRow; y += sampleStep {
		for x := 0; x < xLeft; x += sampleStep {
			det[y*width+x] = float32(geom.bounded(img, boundary, x, y))
		}
		for x := xRight; x < width; x += sampleStep {
			det[y*width+x] = float32(geom.bounded(img, boundary, x, y))
		}
	}

	return det, nil
}

// blockGeometry holds the per-kernel-size tap offsets so internal and
// bounded evaluation share one formula, parameterized only by which
// rectangle-sum primitive they call.
type blockGeometry struct {
	hSide      int
	dxx1Height int
	dxx2Width  int
	dxyEx      int
	dxyIn      int
	frobRatio  float64
	norm       float64
}

func (g blockGeometry) internal(img *integral.Image, x, y int) float64 {
	return g.eval(x, y, func(x0, y0, x1, y1 int) float64 {
		return img.InternalSum(x0, y0, x1, y1)
	})
}

func (g blockGeometry) bounded(img *integral.Image, policy integral.BoundaryPolicy, x, y int) float64 {
	return g.eval(x, y, func(x0, y0, x1, y1 int) float64 {
		return img.Sum(policy, x0, y0, x1, y1)
	})
}

func (g blockGeometry) eval(x, y int, sum func(x0, y0, x1, y1 int) float64) float64 {
	dxx := sum(x-g.hSide, y-g.dxx1Height, x+g.hSide, y+g.dxx1Height)
	dxx -= 3.0 * sum(x-g.dxx2Width, y-g.dxx1Height, x+g.dxx2Width, y+g.dxx1Height)

	dyy := sum(x-g.dxx1Height, y-g.hSide, x+g.dxx1Height, y+g.hSide)
	dyy -= 3.0 * sum(x-g.dxx1Height, y-g.dxx2Width, x+g.dxx1Height, y+g.dxx2Width)

	dxy := sum(x-g.dxyEx, y-g.dxyEx, x-g.dxyIn, y-g.dxyIn) +
		sum(x+g.dxyIn, y+g.dxyIn, x+g.dxyEx, y+g.dxyEx) -
		sum(x-g.dxyEx, y+g.dxyIn, x-g.dxyIn, y+g.dxyEx) -
		sum(x+g.dxyIn, y-g.dxyEx, x+g.dxyEx, y-g.dxyIn)

	return (dxx*dyy - g.frobRatio*dxy*dxy) * g.norm
}

func alignUp(v, step int) int {
	if r := v % step; r != 0 {
		return v + (step - r)
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
