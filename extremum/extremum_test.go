package extremum_test

import (
	"math"
	"testing"

	"github.com/naisuuuu/surf/extremum"
	"github.com/naisuuuu/surf/hessian"
)

const levelSide = 9

func flatLevel(kernelSize, step int, peak func(x, y int) float32) hessian.Level {
	det := make([]float32, levelSide*levelSide)
	for y := 0; y < levelSide; y++ {
		for x := 0; x < levelSide; x++ {
			det[y*levelSide+x] = peak(x, y)
		}
	}
	return hessian.Level{
		KernelSize: kernelSize,
		SampleStep: step,
		Width:      levelSide,
		Height:     levelSide,
		Det:        det,
	}
}

// bump returns a response surface with a single well-isolated peak at
// (cx,cy) within a grid whose non-peak cells are a shallow paraboloid, so
// the quadratic sub-pixel fit has a well-conditioned Hessian to invert.
func bump(cx, cy int, height float32) func(x, y int) float32 {
	return func(x, y int) float32 {
		dx := float32(x - cx)
		dy := float32(y - cy)
		return height - (dx*dx + dy*dy)
	}
}

func TestSearchFindsIsolatedMaximum(t *testing.T) {
	stack := &hessian.Stack{
		Levels: []hessian.Level{
			flatLevel(9, 2, bump(4, 4, 90)),
			flatLevel(15, 2, bump(4, 4, 100)),
			flatLevel(21, 2, bump(4, 4, 80)),
		},
		SampleSteps: []int{2, 2, 2},
	}

	cands := extremum.Search(stack, extremum.Both, extremum.NoThreshold())
	if len(cands) == 0 {
		t.Fatal("expected at least one candidate")
	}
	found := false
	for _, c := range cands {
		if math.Abs(c.X-4) < 1.5 && math.Abs(c.Y-4) < 1.5 {
			found = true
			if c.Strength <= 0 {
				t.Errorf("expected positive strength at the peak, got %v", c.Strength)
			}
		}
	}
	if !found {
		t.Errorf("no candidate found near the known peak, got %+v", cands)
	}
}

func TestSearchRespectsMaximaOnlyPolarity(t *testing.T) {
	stack := &hessian.Stack{
		Levels: []hessian.Level{
			flatLevel(9, 2, bump(4, 4, -90)),
			flatLevel(15, 2, invert(bump(4, 4, 100))),
			flatLevel(21, 2, bump(4, 4, -80)),
		},
		SampleSteps: []int{2, 2, 2},
	}
	// The middle level has a minimum at (4,4); asking for Maxima only
	// must not return it.
	cands := extremum.Search(stack, extremum.Maxima, extremum.NoThreshold())
	for _, c := range cands {
		if math.Abs(c.X-4) < 1.5 && math.Abs(c.Y-4) < 1.5 {
			t.Errorf("Maxima polarity returned a minimum candidate: %+v", c)
		}
	}
}

func invert(f func(x, y int) float32) func(x, y int) float32 {
	return func(x, y int) float32 { return -f(x, y) }
}

func TestThresholdsFilterWeakCandidates(t *testing.T) {
	stack := &hessian.Stack{
		Levels: []hessian.Level{
			flatLevel(9, 2, bump(4, 4, 1)),
			flatLevel(15, 2, bump(4, 4, 2)),
			flatLevel(21, 2, bump(4, 4, 1)),
		},
		SampleSteps: []int{2, 2, 2},
	}
	strict := extremum.Thresholds{Max: 1000, Min: math.Inf(1)}
	cands := extremum.Search(stack, extremum.Both, strict)
	for _, c := range cands {
		if math.Abs(c.X-4) < 1.5 && math.Abs(c.Y-4) < 1.5 {
			t.Errorf("expected the weak peak to be filtered by the threshold, got %+v", c)
		}
	}
}
