package orientation_test

import (
	"math"
	"testing"

	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/location"
	"github.com/naisuuuu/surf/orientation"
)

// verticalEdgeImage builds an image that is dark on the left half and
// bright on the right half, so the dominant local gradient at the seam
// points in the +x direction (angle 0).
func verticalEdgeImage(t *testing.T, size int) *integral.Image {
	t.Helper()
	pix := make([]uint8, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x >= size/2 {
				pix[y*size+x] = 255
			}
		}
	}
	img, err := integral.IntegrateUint8(pix, size, size, size)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestEstimateFindsGradientDirection(t *testing.T) {
	const size = 96
	img := verticalEdgeImage(t, size)

	est := orientation.NewEstimator(orientation.DefaultParams())
	loc := location.Location{X: size / 2, Y: size / 2, Scale: 1.2}

	angle := est.Estimate(img, loc)
	if angle < 0 || angle >= 2*math.Pi {
		t.Fatalf("angle %v out of [0,2pi) range", angle)
	}
	// The gradient at a left-dark/right-bright vertical seam points
	// along +x, i.e. angle 0 (mod 2pi).
	dist := angle
	if dist > math.Pi {
		dist = 2*math.Pi - dist
	}
	if dist > math.Pi/4 {
		t.Errorf("angle %v radians is not close to 0 (a +x gradient)", angle)
	}
}

func TestEstimateAllSetsEveryLocation(t *testing.T) {
	const size = 96
	img := verticalEdgeImage(t, size)
	est := orientation.NewEstimator(orientation.DefaultParams())

	locs := []location.Location{
		{X: 40, Y: 48, Scale: 1.2},
		{X: 56, Y: 48, Scale: 1.2},
	}
	est.EstimateAll(img, locs)
	for i, l := range locs {
		if l.Angle < 0 || l.Angle >= 2*math.Pi {
			t.Errorf("location %d: angle %v out of range", i, l.Angle)
		}
	}
}

func TestWindowWidthUnitHeuristic(t *testing.T) {
	// A value under 2*pi is read as radians by the legacy heuristic; a
	// larger value is read as degrees. Both should yield a usable,
	// finite estimator without panicking.
	for _, p := range []orientation.Params{
		func() orientation.Params { p := orientation.DefaultParams(); p.WindowWidth = 1.0; return p }(),
		func() orientation.Params { p := orientation.DefaultParams(); p.WindowWidth = 60; return p }(),
		func() orientation.Params {
			p := orientation.DefaultParams()
			p.WindowWidth = 1.0
			p.WindowWidthUnit = orientation.Radians
			return p
		}(),
		func() orientation.Params {
			p := orientation.DefaultParams()
			p.WindowWidth = 60
			p.WindowWidthUnit = orientation.Degrees
			return p
		}(),
	} {
		est := orientation.NewEstimator(p)
		img := verticalEdgeImage(t, 64)
		angle := est.Estimate(img, location.Location{X: 32, Y: 32, Scale: 1.2})
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			t.Errorf("params %+v: got non-finite angle %v", p, angle)
		}
	}
}
