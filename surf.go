// Package surf wires together the six components of a scale- and
// rotation-invariant interest-point pipeline — an integral image, a
// Fast-Hessian scale-space pyramid, a scale-space extremum finder, a
// location selector, an orientation estimator, and a SURF-family local
// descriptor — into a single Detect call.
package surf

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/naisuuuu/surf/descriptor"
	"github.com/naisuuuu/surf/extremum"
	"github.com/naisuuuu/surf/hessian"
	"github.com/naisuuuu/surf/imgconv"
	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/location"
	"github.com/naisuuuu/surf/orientation"
)

// ErrInvalidParameters is returned by New when Config describes a
// pipeline that cannot run, such as too few Hessian levels for the
// extremum finder to have a middle scale.
var ErrInvalidParameters = errors.New("surf: invalid parameters")

// ErrEmptyInput is returned by Detect when the source image has zero
// area.
var ErrEmptyInput = errors.New("surf: empty input image")

// Config is the flat configuration record for the whole pipeline,
// aggregating every stage's own Params.
type Config struct {
	Hessian     hessian.Params
	Polarity    extremum.Polarity
	Thresholds  extremum.Thresholds
	Location    location.Params
	Orientation orientation.Params
	Descriptor  descriptor.Params
}

// DefaultConfig returns the reference detector's default configuration:
// both polarities, no absolute threshold (deferred to the Location
// stage's All mode), and each stage's own DefaultParams.
func DefaultConfig() Config {
	return Config{
		Hessian:     hessian.DefaultParams(),
		Polarity:    extremum.Both,
		Thresholds:  extremum.NoThreshold(),
		Location:    location.Params{Mode: location.All},
		Orientation: orientation.DefaultParams(),
		Descriptor:  descriptor.DefaultParams(),
	}
}

// validate checks the one cross-stage invariant that spans two stages:
// NumberOfLevels must leave the extremum finder a middle level to
// search. Each stage otherwise validates its own Params independently
// when it runs.
func (c Config) validate() error {
	if c.Hessian.NumberOfLevels < 3 {
		return fmt.Errorf("%w: Hessian.NumberOfLevels must be >= 3, got %d", ErrInvalidParameters, c.Hessian.NumberOfLevels)
	}
	return nil
}

// Result is one Detect call's output: Locations and Descriptors are the
// same length and share an index, Descriptors[i] describing Locations[i].
type Result struct {
	Locations   []location.Location
	Descriptors []descriptor.Vector
}

// Detector runs the full pipeline for a fixed Config. It is safe for
// concurrent use: Detect builds its own per-call orientation estimator
// and reuses only the read-only descriptor.Describer built at
// construction time.
type Detector struct {
	cfg       Config
	describer *descriptor.Describer
}

// New validates cfg and builds a Detector, precomputing the descriptor
// stage's fixed-shape Gaussian window once.
func New(cfg Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	describer, err := descriptor.NewDescriber(cfg.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("surf: %w", err)
	}
	return &Detector{cfg: cfg, describer: describer}, nil
}

// Detect runs the pipeline on img: grayscale conversion, integral
// image, Hessian pyramid, extremum search, location selection,
// orientation estimation and descriptor extraction, in that order,
// aborting at the first stage that fails. The integral image is
// accumulated from uint8 or float32 samples according to
// cfg.Hessian.SourceIsInteger.
func (d *Detector) Detect(ctx context.Context, img image.Image) (Result, error) {
	var integ *imgconv.Image
	var err error
	if d.cfg.Hessian.SourceIsInteger {
		integ, err = imgconv.NewImage(imgconv.Grayscale(img))
	} else {
		integ, err = imgconv.NewImageFloat32(img)
	}
	if err != nil {
		if errors.Is(err, integral.ErrEmptyInput) {
			return Result{}, ErrEmptyInput
		}
		return Result{}, fmt.Errorf("surf: %w", err)
	}

	stack, err := hessian.Compute(ctx, integ.Integral(), d.cfg.Hessian)
	if err != nil {
		return Result{}, fmt.Errorf("surf: hessian stage: %w", err)
	}

	cands := extremum.Search(stack, d.cfg.Polarity, d.cfg.Thresholds)
	cands = location.Select(cands, d.cfg.Location)
	locs := location.FromCandidates(cands)

	orientation.NewEstimator(d.cfg.Orientation).EstimateAll(integ.Integral(), locs)

	vectors, err := d.describer.DescribeAll(ctx, integ, locs)
	if err != nil {
		return Result{}, fmt.Errorf("surf: descriptor stage: %w", err)
	}

	return Result{Locations: locs, Descriptors: vectors}, nil
}
