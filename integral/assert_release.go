//go:build !debug

package integral

// assertInternalSumPrecondition is a no-op in release builds.
func assertInternalSumPrecondition(img *Image, x0, y0, x1, y1 int) {}
