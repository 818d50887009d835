// Package imgconv converts stdlib image.Image values into the plain
// row-major grayscale rasters the detector pipeline consumes: a small
// switch over the concrete decoded type, with a slow draw.Draw fallback
// for anything unrecognized.
package imgconv

import (
	"image"
	stddraw "image/draw"
	"runtime"
	"sync"
)

// Grayscale converts img to an *image.Gray, copying the source pixels
// into a new image when img is already gray, taking the fast path for *RGBA
// (the concrete type image/jpeg and golang.org/x/image/webp both decode
// to after an alpha-less JFIF/WebP frame goes through color model
// conversion), and falling back to draw.Draw for every other concrete
// type.
func Grayscale(img image.Image) *image.Gray {
	switch i := img.(type) {
	case *image.Gray:
		return cp(i)
	case *image.RGBA:
		return rgbaToGray(i)
	default:
		return drawGray(img)
	}
}

// GrayscaleFloat32 is Grayscale's float32 counterpart: it produces the
// same luma values as Grayscale, widened to float32, for
// hessian.Params.SourceIsInteger == false pipelines (see
// imgconv.NewImageFloat32). *image.Gray and *image.RGBA sources are
// converted in a single pass over img; every other type is first drawn
// into an *image.Gray by drawGray and then widened in a second pass.
func GrayscaleFloat32(img image.Image) (pix []float32, width, height, stride int) {
	switch i := img.(type) {
	case *image.Gray:
		return grayToFloat32(i)
	case *image.RGBA:
		return rgbaToGrayFloat32(i)
	default:
		return grayToFloat32(drawGray(img))
	}
}

// drawGray is the slow fallback conversion for image types with no
// dedicated fast path above.
func drawGray(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, b.Min, stddraw.Src)
	return dst
}

func cp(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(dst.Pix, src.Pix)
	return dst
}

func grayToFloat32(src *image.Gray) (pix []float32, width, height, stride int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, w*h)
	concurrentIterate(h, func(y int) {
		srcRow := y * src.Stride
		dstRow := y * w
		for x := 0; x < w; x++ {
			out[dstRow+x] = float32(src.Pix[srcRow+x])
		}
	})
	return out, w, h, w
}

// rgbToGray returns a grayscale value from alpha-premultiplied red,
// green and blue values, using the same JFIF luma weights as the
// standard library's own RGBToYCbCr.
func rgbToGray(r, g, b uint32) uint8 {
	t := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
	return uint8(t)
}

// rgbaTriple reads and 16-bit-expands one pixel's premultiplied RGB
// components, shared by rgbaToGray and rgbaToGrayFloat32 so the two
// never drift apart on how a sample is read.
func rgbaTriple(src *image.RGBA, i int) (r, g, b uint32) {
	s := src.Pix[i : i+3 : i+3]
	r, g, b = uint32(s[0]), uint32(s[1]), uint32(s[2])
	r |= r << 8
	g |= g << 8
	b |= b << 8
	return
}

func rgbaToGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	concurrentIterate(b.Dy(), func(y int) {
		for x := 0; x < dst.Stride; x++ {
			r, g, bb := rgbaTriple(src, y*src.Stride+x*4)
			dst.Pix[y*dst.Stride+x] = rgbToGray(r, g, bb)
		}
	})
	return dst
}

func rgbaToGrayFloat32(src *image.RGBA) (pix []float32, width, height, stride int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, w*h)
	concurrentIterate(h, func(y int) {
		for x := 0; x < w; x++ {
			r, g, bb := rgbaTriple(src, y*src.Stride+x*4)
			out[y*w+x] = float32(rgbToGray(r, g, bb))
		}
	})
	return out, w, h, w
}

// concurrentIterate fans fn out over limit indices across up to
// GOMAXPROCS goroutines, each processing a contiguous chunk.
func concurrentIterate(limit int, fn func(int)) {
	cpus := runtime.GOMAXPROCS(0)
	if limit < cpus {
		cpus = limit
	}
	if cpus < 1 {
		cpus = 1
	}
	var wg sync.WaitGroup
	chunk := (limit + cpus - 1) / cpus
	for start := 0; start < limit; start += chunk {
		end := start + chunk
		if end > limit {
			end = limit
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				fn(y)
			}
		}(start, end)
	}
	wg.Wait()
}
