// Package hessian builds the scale-space pyramid of box-filter Hessian
// determinant responses ("Fast-Hessian" levels) from an integral image,
// approximating the determinant of the Gaussian-smoothed Hessian with
// integer box filters at a sequence of growing kernel sizes.
package hessian

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/naisuuuu/surf/integral"
)

// ErrInvalidParameters is returned by Compute when Params describe a
// pyramid with no levels or a non-positive kernel progression.
var ErrInvalidParameters = errors.New("hessian: invalid parameters")

// LevelSelectionMethod chooses how kernel sizes grow from one level to
// the next.
type LevelSelectionMethod int

const (
	// Blocks grows the kernel size by a step that doubles every
	// LevelGroupSize levels.
	Blocks LevelSelectionMethod = iota
	// Exponential grows the kernel size along a geometric series with
	// LevelGroupSize levels per octave, rounded to the nearest odd
	// multiple of three.
	Exponential
)

// Params configures the pyramid. The zero value is not usable; callers
// should start from DefaultParams and override only what they need.
type Params struct {
	NumberOfLevels       int
	InitialKernelSize    int
	InitialKernelStep    int
	LevelGroupSize       int
	LevelSelectionMethod LevelSelectionMethod
	NormPower            float64
	SubsampleLevels      bool
	InitialSamplingStep  int
	Boundary             integral.BoundaryPolicy
	// SourceIsInteger selects the normalization constant: integer
	// sources normalize by 1/kernelSize^NormPower, float sources by
	// 255^2/kernelSize^NormPower.
	SourceIsInteger bool
}

// DefaultParams mirrors the reference detector's defaults.
func DefaultParams() Params {
	return Params{
		NumberOfLevels:       12,
		InitialKernelSize:    9,
		InitialKernelStep:    6,
		LevelGroupSize:       4,
		LevelSelectionMethod: Blocks,
		NormPower:            4.0,
		SubsampleLevels:      true,
		InitialSamplingStep:  2,
		Boundary:             integral.Zero,
		SourceIsInteger:      true,
	}
}

func (p Params) validate() error {
	if p.NumberOfLevels <= 0 {
		return fmt.Errorf("%w: NumberOfLevels must be positive, got %d", ErrInvalidParameters, p.NumberOfLevels)
	}
	if p.InitialKernelSize <= 0 || p.InitialKernelSize%2 == 0 {
		return fmt.Errorf("%w: InitialKernelSize must be a positive odd number, got %d", ErrInvalidParameters, p.InitialKernelSize)
	}
	if p.LevelGroupSize <= 0 {
		return fmt.Errorf("%w: LevelGroupSize must be positive, got %d", ErrInvalidParameters, p.LevelGroupSize)
	}
	if p.InitialSamplingStep <= 0 {
		return fmt.Errorf("%w: InitialSamplingStep must be positive, got %d", ErrInvalidParameters, p.InitialSamplingStep)
	}
	if p.LevelSelectionMethod == Blocks && p.InitialKernelStep <= 0 {
		return fmt.Errorf("%w: InitialKernelStep must be positive for Blocks selection, got %d", ErrInvalidParameters, p.InitialKernelStep)
	}
	return nil
}

// Level holds one pyramid level's box-filter determinant response. Det
// is row-major with the same width/height as the source image; entries
// the sampling step skipped over are left at zero.
type Level struct {
	KernelSize int
	// SampleStep is the step that was actually used to populate Det
	// (the previous level's group step, per the off-by-one lag
	// described on Stack.SampleSteps).
	SampleStep int
	Width      int
	Height     int
	Det        []float32
}

// At returns the response at (x,y), or 0 if that position was not
// computed under this level's sampling step.
func (l *Level) At(x, y int) float32 {
	return l.Det[y*l.Width+x]
}

// Scale converts a level's kernel size to the continuous scale axis value
// used for the cross-level quadratic refinement: kernel size 9 is the
// canonical scale 1.2 unit.
func Scale(kernelSize int) float64 {
	return float64(kernelSize) * 1.2 / 9.0
}

// Stack is the ordered sequence of pyramid levels for one image, from
// smallest to largest kernel size.
type Stack struct {
	Levels []Level
	// SampleSteps holds the nominal group step of each level, i.e. the
	// step that level would use if it were filling its own matrix. This
	// is one group behind the step Levels[i].SampleStep actually used to
	// populate Det (computeDeterminant(level i) is filled with
	// SampleSteps[i-1]): extremum search walks a level at its own nominal
	// step rather than the step it was filled with, which only matters at
	// the one or two levels per octave where the step doubles.
	SampleSteps []int
}

// Compute builds the full pyramid for img, computing one level's
// determinant response per goroutine up to GOMAXPROCS workers.
func Compute(ctx context.Context, img *integral.Image, params Params) (*Stack, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	kernelSizes := kernelSizeProgression(params)
	sampleSteps := sampleStepProgression(params, kernelSizes)

	levels := make([]Level, len(kernelSizes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range kernelSizes {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			step := params.InitialSamplingStep
			if i >= 1 {
				step = sampleSteps[i-1]
			}
			det, err := computeDeterminant(img, kernelSizes[i], step, params.NormPower, params.SourceIsInteger, params.Boundary)
			if err != nil {
				return fmt.Errorf("hessian: level %d (kernel %d): %w", i, kernelSizes[i], err)
			}
			levels[i] = Level{
				KernelSize: kernelSizes[i],
				SampleStep: step,
				Width:      img.Width(),
				Height:     img.Height(),
				Det:        det,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Stack{Levels: levels, SampleSteps: sampleSteps}, nil
}

// kernelSizeProgression computes the kernel size of each pyramid level.
func kernelSizeProgression(params Params) []int {
	if params.LevelSelectionMethod == Exponential {
		return exponentialKernelSizes(params.NumberOfLevels, params.InitialKernelSize, params.LevelGroupSize)
	}
	return blocksKernelSizes(params.NumberOfLevels, params.InitialKernelSize, params.InitialKernelStep, params.LevelGroupSize)
}

func blocksKernelSizes(n, initSize, initStep, groupSize int) []int {
	sizes := make([]int, n)
	kSize := initSize
	kStep := initStep
	i := 0
	for i < n {
		sizes[i] = kSize
		i++
		kSize += kStep
		if i%groupSize == 0 {
			kStep *= 2
		}
	}
	return sizes
}

func exponentialKernelSizes(n, initSize, groupSize int) []int {
	sizes := make([]int, n)
	if n == 0 {
		return sizes
	}
	alpha := math.Pow(2.0, 1.0/float64(groupSize))
	sizes[0] = initSize
	kSize := float64(initSize) * alpha
	for i := 1; i < n; i++ {
		var theSize int
		for {
			theSize = int(math.Round((kSize-3.0)/6.0))*6 + 3
			kSize *= alpha
			if theSize != sizes[i-1] {
				break
			}
		}
		sizes[i] = theSize
	}
	return sizes
}

// sampleStepProgression computes the per-level subsampling step as
// InitialSamplingStep * 2^round(log2(ratio)). Note the ratio
// kernelSizes[i]/baseKSize is truncating integer division, not a
// real-valued ratio, so the step doubles each time the truncated ratio
// reaches 2, 3, 6, 12, ... and stays constant between those points.
func sampleStepProgression(params Params, kernelSizes []int) []int {
	steps := make([]int, len(kernelSizes))
	if !params.SubsampleLevels {
		for i := range steps {
			steps[i] = params.InitialSamplingStep
		}
		return steps
	}
	baseKSize := kernelSizes[0]
	const base2log = 0.6931471805599453 // ln(2)
	for i, k := range kernelSizes {
		ratio := k / baseKSize
		exp := 0
		if ratio > 0 {
			exp = int(math.Round(math.Log(float64(ratio)) / base2log))
		}
		if exp < 0 {
			exp = 0
		}
		shift := 1 << uint(exp)
		if shift < 1 {
			shift = 1
		}
		steps[i] = params.InitialSamplingStep * shift
	}
	return steps
}
