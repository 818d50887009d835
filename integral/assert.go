//go:build debug

package integral

import "fmt"

// assertInternalSumPrecondition panics when InternalSum is called outside
// its documented safe region. Compiled only with the "debug" build tag;
// release builds pay nothing for the check and the precondition violation
// is undefined behavior, per the InternalPrecondition error kind.
func assertInternalSumPrecondition(img *Image, x0, y0, x1, y1 int) {
	if x0 < 1 || y0 < 1 || x1 < x0 || y1 < y0 || x1 > img.width-1 || y1 > img.height-1 {
		panic(fmt.Sprintf("integral: InternalSum precondition violated: x0=%d y0=%d x1=%d y1=%d width=%d height=%d",
			x0, y0, x1, y1, img.width, img.height))
	}
}
