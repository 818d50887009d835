package imgconv

import (
	"fmt"
	"image"
	"math"

	ximgdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/naisuuuu/surf/descriptor"
	"github.com/naisuuuu/surf/integral"
)

// Image adapts a grayscale raster to descriptor.Image: it owns the
// integral image of its current raster, and knows how to produce a
// rotated copy of itself (raster rotated, new integral image built),
// which is all descriptor.Cluster orientation mode needs from its
// source.
type Image struct {
	gray  *image.Gray
	integ *integral.Image
}

// NewImage builds an Image from a grayscale raster, integrating it once
// up front so repeated Integral calls are free. The integral image is
// accumulated from the raster's uint8 samples directly, for
// hessian.Params.SourceIsInteger == true pipelines.
func NewImage(gray *image.Gray) (*Image, error) {
	b := gray.Bounds()
	integ, err := integral.IntegrateUint8(gray.Pix, b.Dx(), b.Dy(), gray.Stride)
	if err != nil {
		return nil, fmt.Errorf("imgconv: %w", err)
	}
	return &Image{gray: gray, integ: integ}, nil
}

// NewImageFloat32 builds an Image whose integral image is accumulated
// from a float32-widened raster instead of the raw uint8 samples, for
// hessian.Params.SourceIsInteger == false pipelines. img is converted to
// both representations independently: GrayscaleFloat32 for the integral
// image, Grayscale for the raster Rotate resamples from. The two carry
// identical intensities, so a cluster rotation's own resampling error
// dominates whatever this raster keeps for Cluster mode after the first
// rotation downgrades back to a uint8-backed Image.
func NewImageFloat32(img image.Image) (*Image, error) {
	pix, w, h, stride := GrayscaleFloat32(img)
	integ, err := integral.IntegrateFloat32(pix, w, h, stride)
	if err != nil {
		return nil, fmt.Errorf("imgconv: %w", err)
	}
	return &Image{gray: Grayscale(img), integ: integ}, nil
}

// Integral implements descriptor.Image.
func (im *Image) Integral() *integral.Image { return im.integ }

// Rotate implements descriptor.Image. It rotates im's raster by angle
// radians about the origin, using golang.org/x/image/draw's CatmullRom
// resampling, resizing the destination so the rotated bounding box
// starts at (0,0), and returns the (offsetX, offsetY) a caller must
// subtract from a point already forward-rotated by the same angle
// (R(angle) applied directly, not its inverse) to land that point in
// the returned image's own coordinate frame:
//
//	lx, ly = cos(angle)*x - sin(angle)*y - offsetX, sin(angle)*x + cos(angle)*y - offsetY
//
// descriptor.describeCluster applies exactly that remap after calling
// Rotate with the negated cluster angle (its cos/sin are taken of the
// cluster angle itself, which flips the sine terms), so the cluster's dominant
// direction becomes axis-aligned in the rotated image.
func (im *Image) Rotate(angle float64) (descriptor.Image, float64, float64, error) {
	b := im.gray.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cos, sin := math.Cos(angle), math.Sin(angle)

	// Bounding box of the source rectangle's four corners after a
	// forward rotation by angle about the origin.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		rx := c[0]*cos - c[1]*sin
		ry := c[0]*sin + c[1]*cos
		minX, maxX = math.Min(minX, rx), math.Max(maxX, rx)
		minY, maxY = math.Min(minY, ry), math.Max(maxY, ry)
	}

	dstW := int(math.Ceil(maxX - minX))
	dstH := int(math.Ceil(maxY - minY))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	dst := image.NewGray(image.Rect(0, 0, dstW, dstH))

	// s2d maps a source pixel (x,y) to its destination, as Transform
	// expects: rotate by angle, then subtract (minX, minY), the same
	// mapping the bounding box above was built with.
	s2d := f64.Aff3{
		cos, -sin, -minX,
		sin, cos, -minY,
	}
	ximgdraw.CatmullRom.Transform(dst, s2d, im.gray, im.gray.Bounds(), ximgdraw.Src, nil)

	rotated, err := NewImage(dst)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("imgconv: rotating by %g rad: %w", angle, err)
	}
	return rotated, minX, minY, nil
}
