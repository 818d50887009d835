// Package integral implements the summed-area table (integral image)
// primitive shared by the rest of the detector pipeline: building the
// table and answering arbitrary rectangle-sum queries under five
// boundary policies without a per-pixel loop.
package integral

import "errors"

// ErrEmptyInput is returned by IntegrateUint8 and IntegrateFloat32 when
// the source has zero area.
var ErrEmptyInput = errors.New("integral: empty input image")

// BoundaryPolicy selects how pixels outside the image are treated when a
// requested rectangle extends past the image bounds. The policy is
// dispatched once per Sum call, never per pixel.
type BoundaryPolicy int

const (
	// NoBoundary makes any window touching the exterior sum to 0.
	NoBoundary BoundaryPolicy = iota
	// Zero treats exterior pixels as zero.
	Zero
	// Constant replicates the nearest border pixel.
	Constant
	// Periodic wraps exterior pixels modulo the image dimensions.
	Periodic
	// Mirror reflects exterior pixels across the boundary.
	Mirror
)

// Image is a summed-area table: element (y,x) holds the sum of every
// source pixel (j,i) with j<=y and i<=x. Sums are accumulated in float64
// regardless of source type; for uint8 sources this holds exactly for any
// image within realistic memory limits (255*width*height stays far below
// 2^53), which is equivalent to a much wider integer accumulator without
// juggling two numeric storage types through the rest of the pipeline.
type Image struct {
	width, height int
	sums          []float64
}

// Width returns the width of the source image.
func (img *Image) Width() int { return img.width }

// Height returns the height of the source image.
func (img *Image) Height() int { return img.height }

// IntegrateUint8 builds the summed-area table of an 8-bit grayscale image
// stored row-major in pix with the given stride (pix[y*stride+x]).
func IntegrateUint8(pix []uint8, width, height, stride int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyInput
	}
	sums := make([]float64, width*height)
	for y := 0; y < height; y++ {
		var rowSum float64
		srcRow := y * stride
		dstRow := y * width
		for x := 0; x < width; x++ {
			rowSum += float64(pix[srcRow+x])
			sums[dstRow+x] = rowSum
			if y > 0 {
				sums[dstRow+x] += sums[dstRow-width+x]
			}
		}
	}
	return &Image{width: width, height: height, sums: sums}, nil
}

// IntegrateFloat32 builds the summed-area table of a float32 image stored
// row-major in pix with the given stride.
func IntegrateFloat32(pix []float32, width, height, stride int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyInput
	}
	sums := make([]float64, width*height)
	for y := 0; y < height; y++ {
		var rowSum float64
		srcRow := y * stride
		dstRow := y * width
		for x := 0; x < width; x++ {
			rowSum += float64(pix[srcRow+x])
			sums[dstRow+x] = rowSum
			if y > 0 {
				sums[dstRow+x] += sums[dstRow-width+x]
			}
		}
	}
	return &Image{width: width, height: height, sums: sums}, nil
}

// at returns the table value at (y,x), treating x==-1 or y==-1 as the
// zero border implied by the summed-area definition. x and y must
// otherwise be within [0,width-1] and [0,height-1].
func (img *Image) at(x, y int) float64 {
	if x < 0 || y < 0 {
		return 0
	}
	return img.sums[y*img.width+x]
}

// inside returns the sum of the closed rectangle [x0,x1]x[y0,y1], which
// must already lie within [0,width-1]x[0,height-1].
func (img *Image) inside(x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	return img.at(x1, y1) - img.at(x0-1, y1) - img.at(x1, y0-1) + img.at(x0-1, y0-1)
}

// InternalSum is the unchecked fast path: it assumes
// 1 <= x0 <= x1 <= width-1 and 1 <= y0 <= y1 <= height-1 and performs no
// bounds checking. Its behavior is undefined outside that precondition;
// debug builds assert it (see assert.go).
func (img *Image) InternalSum(x0, y0, x1, y1 int) float64 {
	assertInternalSumPrecondition(img, x0, y0, x1, y1)
	return img.sums[y1*img.width+x1] - img.sums[y1*img.width+x0-1] -
		img.sums[(y0-1)*img.width+x1] + img.sums[(y0-1)*img.width+x0-1]
}

// Sum returns the sum of source pixels in the closed rectangle
// [x0,x1]x[y0,y1], interpreted under policy. The rectangle may extend
// arbitrarily far past the image bounds in either direction; at least one
// pixel must overlap the image for the result to be meaningful. A
// non-overlapping request does not panic: under NoBoundary and Zero it
// returns 0, while Constant, Periodic and Mirror sum the replicated,
// wrapped or reflected pixels it covers.
func (img *Image) Sum(policy BoundaryPolicy, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	if policy == NoBoundary {
		if x0 < 0 || y0 < 0 || x1 > img.width-1 || y1 > img.height-1 {
			return 0
		}
		return img.inside(x0, y0, x1, y1)
	}

	xsegs := axisSegments(x0, x1, img.width, policy)
	ysegs := axisSegments(y0, y1, img.height, policy)

	var total float64
	for _, xs := range xsegs {
		for _, ys := range ysegs {
			total += float64(xs.mult) * float64(ys.mult) * img.inside(xs.lo, ys.lo, xs.hi, ys.hi)
		}
	}
	return total
}

// segment describes a contiguous run of virtual (possibly out-of-range)
// coordinates that all resolve, under some boundary policy, to the same
// in-image index range [lo,hi], visited mult times each.
type segment struct {
	mult   int
	lo, hi int
}

// axisSegments decomposes the 1-D virtual coordinate range [a,b] into a
// small number of segments, each mapping to an in-image [lo,hi] range
// under policy. This lets Sum answer a rectangle query with a bounded
// number of inside-rectangle lookups regardless of how far [a,b] extends,
// satisfying the "no per-pixel loop" requirement.
func axisSegments(a, b, n int, policy BoundaryPolicy) []segment {
	switch policy {
	case Zero:
		lo, hi := a, b
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		if lo > hi {
			return nil
		}
		return []segment{{mult: 1, lo: lo, hi: hi}}
	case Constant:
		return constantSegments(a, b, n)
	case Periodic:
		return periodicSegments(a, b, n)
	case Mirror:
		return mirrorSegments(a, b, n)
	default:
		return nil
	}
}

func constantSegments(a, b, n int) []segment {
	var segs []segment
	if a <= -1 {
		hi := b
		if hi > -1 {
			hi = -1
		}
		count := hi - a + 1
		if count > 0 {
			segs = append(segs, segment{mult: count, lo: 0, hi: 0})
		}
	}
	midLo, midHi := a, b
	if midLo < 0 {
		midLo = 0
	}
	if midHi > n-1 {
		midHi = n - 1
	}
	if midLo <= midHi {
		segs = append(segs, segment{mult: 1, lo: midLo, hi: midHi})
	}
	if b >= n {
		lo := a
		if lo < n {
			lo = n
		}
		count := b - lo + 1
		if count > 0 {
			segs = append(segs, segment{mult: count, lo: n - 1, hi: n - 1})
		}
	}
	return segs
}

func floorMod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func periodicSegments(a, b, n int) []segment {
	length := b - a + 1
	nFull := length / n
	rem := length % n

	var segs []segment
	if nFull > 0 {
		segs = append(segs, segment{mult: nFull, lo: 0, hi: n - 1})
	}
	if rem > 0 {
		start := floorMod(a, n)
		if start+rem-1 < n {
			segs = append(segs, segment{mult: 1, lo: start, hi: start + rem - 1})
		} else {
			segs = append(segs, segment{mult: 1, lo: start, hi: n - 1})
			segs = append(segs, segment{mult: 1, lo: 0, hi: rem - 1 - (n - start)})
		}
	}
	return segs
}

// mirrorSegments decomposes [a,b] under reflective boundary handling
// that repeats the edge pixel, with period 2n: reflect(-1)==0,
// reflect(-2)==1, ..., matching the mirror-symmetry invariant in the test
// suite.
func mirrorSegments(a, b, n int) []segment {
	period := 2 * n
	length := b - a + 1
	nFull := length / period
	rem := length % period

	var segs []segment
	if nFull > 0 {
		// Each full period folds into two full passes over [0,n-1].
		segs = append(segs, segment{mult: 2 * nFull, lo: 0, hi: n - 1})
	}
	if rem > 0 {
		start := floorMod(a, period)
		if start+rem-1 < period {
			segs = append(segs, mirrorFold(start, start+rem-1, n)...)
		} else {
			segs = append(segs, mirrorFold(start, period-1, n)...)
			segs = append(segs, mirrorFold(0, rem-1-(period-start), n)...)
		}
	}
	return segs
}

// mirrorFold maps a contiguous virtual range [vlo,vhi] within one period
// [0,2n-1] to at most two in-image segments, splitting at the fold point
// n where the mapping changes from identity to reflection.
func mirrorFold(vlo, vhi, n int) []segment {
	var segs []segment
	if vlo < n {
		hi := vhi
		if hi > n-1 {
			hi = n - 1
		}
		segs = append(segs, segment{mult: 1, lo: vlo, hi: hi})
	}
	if vhi >= n {
		lo := vlo
		if lo < n {
			lo = n
		}
		// m in [lo,vhi] maps to 2n-1-m; the resulting index set is the
		// contiguous range [2n-1-vhi, 2n-1-lo] (order doesn't matter for a sum).
		segs = append(segs, segment{mult: 1, lo: 2*n - 1 - vhi, hi: 2*n - 1 - lo})
	}
	return segs
}
