package descriptor_test

import (
	"context"
	"math"
	"testing"

	"github.com/naisuuuu/surf/descriptor"
	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/location"
)

// cornerImage builds a bright square in the middle of an otherwise dark
// image, giving every sampling mode real gradient structure to respond
// to around the center location.
func cornerImage(t *testing.T, size int) *integral.Image {
	t.Helper()
	pix := make([]uint8, size*size)
	for y := size / 4; y < 3*size/4; y++ {
		for x := size / 4; x < 3*size/4; x++ {
			pix[y*size+x] = 200
		}
	}
	img, err := integral.IntegrateUint8(pix, size, size, size)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

// fakeImage adapts a plain *integral.Image to descriptor.Image for
// Ignore/Approximate-mode tests, and to a no-op Rotate for Cluster-mode
// tests where the cluster angle is already zero.
type fakeImage struct {
	integ *integral.Image
}

func (f fakeImage) Integral() *integral.Image { return f.integ }

func (f fakeImage) Rotate(angle float64) (descriptor.Image, float64, float64, error) {
	return f, 0, 0, nil
}

func TestDescribeAllIgnoreProducesNormalizedVectors(t *testing.T) {
	const size = 96
	img := fakeImage{integ: cornerImage(t, size)}

	params := descriptor.DefaultParams()
	params.OrientationMode = descriptor.Ignore
	d, err := descriptor.NewDescriber(params)
	if err != nil {
		t.Fatal(err)
	}

	locs := []location.Location{{X: size / 2, Y: size / 2, Scale: 1.2}}
	out, err := d.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d vectors, want 1", len(out))
	}

	wantLen := params.NumberOfSubregions * params.NumberOfSubregions * 4
	if len(out[0]) != wantLen {
		t.Errorf("got vector length %d, want %d", len(out[0]), wantLen)
	}

	var sumSq float64
	for _, c := range out[0] {
		sumSq += c * c
	}
	if math.Abs(sumSq-1) > 1e-9 {
		t.Errorf("expected a unit-norm vector, got squared norm %v", sumSq)
	}
}

func TestSignSplitDoublesVectorLength(t *testing.T) {
	const size = 96
	img := fakeImage{integ: cornerImage(t, size)}

	params := descriptor.DefaultParams()
	params.OrientationMode = descriptor.Ignore
	params.SignSplit = true
	d, err := descriptor.NewDescriber(params)
	if err != nil {
		t.Fatal(err)
	}

	locs := []location.Location{{X: size / 2, Y: size / 2, Scale: 1.2}}
	out, err := d.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}
	wantLen := params.NumberOfSubregions * params.NumberOfSubregions * 8
	if len(out[0]) != wantLen {
		t.Errorf("got vector length %d, want %d", len(out[0]), wantLen)
	}
}

func TestApproximateMatchesIgnoreAtZeroAngle(t *testing.T) {
	const size = 96
	img := fakeImage{integ: cornerImage(t, size)}

	base := descriptor.DefaultParams()
	base.Normalize = false

	ignoreParams := base
	ignoreParams.OrientationMode = descriptor.Ignore
	approxParams := base
	approxParams.OrientationMode = descriptor.Approximate

	ignoreD, err := descriptor.NewDescriber(ignoreParams)
	if err != nil {
		t.Fatal(err)
	}
	approxD, err := descriptor.NewDescriber(approxParams)
	if err != nil {
		t.Fatal(err)
	}

	locs := []location.Location{{X: size / 2, Y: size / 2, Scale: 1.2, Angle: 0}}
	ignoreOut, err := ignoreD.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}
	approxOut, err := approxD.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}

	for i := range ignoreOut[0] {
		if math.Abs(ignoreOut[0][i]-approxOut[0][i]) > 1e-6 {
			t.Errorf("component %d: ignore=%v approx=%v, want equal at angle 0", i, ignoreOut[0][i], approxOut[0][i])
		}
	}
}

func TestClusterModeSharesRotationAcrossLocations(t *testing.T) {
	const size = 96
	img := fakeImage{integ: cornerImage(t, size)}

	params := descriptor.DefaultParams()
	params.OrientationMode = descriptor.Cluster
	params.OrientationClusters = 2
	d, err := descriptor.NewDescriber(params)
	if err != nil {
		t.Fatal(err)
	}

	locs := []location.Location{
		{X: size/2 - 5, Y: size / 2, Scale: 1.2, Angle: 0},
		{X: size/2 + 5, Y: size / 2, Scale: 1.2, Angle: 0},
	}
	out, err := d.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d vectors, want 2", len(out))
	}
	for i, v := range out {
		if len(v) == 0 {
			t.Errorf("location %d: empty descriptor", i)
		}
	}
}

func TestNewDescriberRejectsInvalidParams(t *testing.T) {
	params := descriptor.DefaultParams()
	params.NumberOfSubregions = 0
	if _, err := descriptor.NewDescriber(params); err == nil {
		t.Error("expected an error for NumberOfSubregions=0")
	}

	params = descriptor.DefaultParams()
	params.OrientationMode = descriptor.Cluster
	params.OrientationClusters = 0
	if _, err := descriptor.NewDescriber(params); err == nil {
		t.Error("expected an error for OrientationClusters=0 in Cluster mode")
	}
}

func TestClipRenormalizesAfterCapping(t *testing.T) {
	const size = 96
	img := fakeImage{integ: cornerImage(t, size)}

	params := descriptor.DefaultParams()
	params.OrientationMode = descriptor.Ignore
	params.Clip = true
	params.ClippingValue = 0.05
	d, err := descriptor.NewDescriber(params)
	if err != nil {
		t.Fatal(err)
	}

	locs := []location.Location{{X: size / 2, Y: size / 2, Scale: 1.2}}
	out, err := d.DescribeAll(context.Background(), img, locs)
	if err != nil {
		t.Fatal(err)
	}
	// Clip caps each component before a second L2 normalization, so the
	// result is unit-norm again; an individual component can still end
	// up above the clipping value once the vector is rescaled back up.
	var sumSq float64
	for _, c := range out[0] {
		sumSq += c * c
	}
	if math.Abs(sumSq-1) > 1e-9 {
		t.Errorf("expected a unit-norm vector after clip+renormalize, got squared norm %v", sumSq)
	}
}
