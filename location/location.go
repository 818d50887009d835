// Package location turns the raw extremum candidates produced by the
// extremum package into the final set of detected locations, by
// thresholding or ranking them according to a selection mode.
package location

import (
	"math"
	"sort"

	"github.com/naisuuuu/surf/extremum"
)

// Location is a selected interest point, carried forward through the
// orientation and descriptor stages. Angle is left at its zero value
// until the orientation stage fills it in.
type Location struct {
	X, Y, Scale float64
	Strength    float32
	Angle       float64
}

// FromCandidates converts selected extremum candidates into Locations
// ready for the orientation stage.
func FromCandidates(cands []extremum.Candidate) []Location {
	out := make([]Location, len(cands))
	for i, c := range cands {
		out[i] = Location{X: c.X, Y: c.Y, Scale: c.Scale, Strength: c.Strength}
	}
	return out
}

// Mode chooses how candidates are filtered down to the final location
// set. Absolute thresholding happens earlier, during extremum search
// itself (see extremum.Thresholds); Select treats All and Absolute
// identically, passing candidates through unchanged.
type Mode int

const (
	// All keeps every candidate.
	All Mode = iota
	// Absolute keeps candidates already filtered by a fixed threshold
	// applied during extremum search.
	Absolute
	// Relative keeps candidates whose strength is at least Threshold
	// times the strongest maximum (or at most Threshold times the
	// most negative minimum).
	Relative
	// Conspicuous keeps candidates whose strength is Threshold standard
	// deviations away from the mean strength.
	Conspicuous
	// Number keeps the Threshold strongest candidates (rounded to the
	// nearest integer, at least one).
	Number
)

// Params configures Select.
type Params struct {
	Mode      Mode
	Threshold float64
	Polarity  extremum.Polarity
}

// Select filters cands according to params. The input slice is never
// modified; the returned slice may alias it when Mode is All or
// Absolute.
func Select(cands []extremum.Candidate, params Params) []extremum.Candidate {
	switch params.Mode {
	case All, Absolute:
		return cands
	case Relative:
		return selectRelative(cands, params)
	case Conspicuous:
		return selectConspicuous(cands, params)
	case Number:
		return selectNumber(cands, params)
	default:
		return cands
	}
}

func stats(cands []extremum.Candidate) (min, max float64, mean, stdDev float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	var sum, sum2 float64
	n := float64(len(cands))
	for _, c := range cands {
		v := float64(c.Strength)
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
		sum += v
		sum2 += v * v
	}
	if n > 0 {
		mean = sum / n
		stdDev = math.Sqrt((sum2 - (sum*sum)/n) / n)
	}
	return
}

func selectRelative(cands []extremum.Candidate, params Params) []extremum.Candidate {
	if len(cands) == 0 {
		return nil
	}
	min, max, _, _ := stats(cands)
	highThresh := max * params.Threshold
	lowThresh := min * params.Threshold
	return thresholdSelect(cands, params.Polarity, highThresh, lowThresh)
}

func selectConspicuous(cands []extremum.Candidate, params Params) []extremum.Candidate {
	if len(cands) == 0 {
		return nil
	}
	_, _, mean, stdDev := stats(cands)
	highThresh := mean + params.Threshold*stdDev
	lowThresh := mean - params.Threshold*stdDev
	return thresholdSelect(cands, params.Polarity, highThresh, lowThresh)
}

func thresholdSelect(cands []extremum.Candidate, polarity extremum.Polarity, highThresh, lowThresh float64) []extremum.Candidate {
	ignoreMax := polarity == extremum.Minima
	ignoreMin := polarity == extremum.Maxima

	out := make([]extremum.Candidate, 0, len(cands))
	for _, c := range cands {
		v := float64(c.Strength)
		if (!ignoreMax && v >= highThresh) || (!ignoreMin && v <= lowThresh) {
			out = append(out, c)
		}
	}
	return out
}

func selectNumber(cands []extremum.Candidate, params Params) []extremum.Candidate {
	if len(cands) == 0 {
		return nil
	}
	sortKey := make([]float64, len(cands))
	for i, c := range cands {
		v := float64(c.Strength)
		if params.Polarity == extremum.Both {
			v = math.Abs(v)
		}
		sortKey[i] = v
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	if params.Polarity == extremum.Minima {
		sort.SliceStable(order, func(i, j int) bool { return sortKey[order[i]] < sortKey[order[j]] })
	} else {
		sort.SliceStable(order, func(i, j int) bool { return sortKey[order[i]] > sortKey[order[j]] })
	}

	n := int(math.Round(params.Threshold))
	if n < 1 {
		n = 1
	}
	if n > len(cands) {
		n = len(cands)
	}

	out := make([]extremum.Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = cands[order[i]]
	}
	return out
}
