package location_test

import (
	"testing"

	"github.com/naisuuuu/surf/extremum"
	"github.com/naisuuuu/surf/location"
)

func cands(strengths ...float32) []extremum.Candidate {
	out := make([]extremum.Candidate, len(strengths))
	for i, s := range strengths {
		out[i] = extremum.Candidate{X: float64(i), Y: float64(i), Strength: s}
	}
	return out
}

func TestAllAndAbsolutePassThrough(t *testing.T) {
	in := cands(1, 2, 3)
	for _, mode := range []location.Mode{location.All, location.Absolute} {
		out := location.Select(in, location.Params{Mode: mode})
		if len(out) != len(in) {
			t.Errorf("mode %v: got %d candidates, want %d", mode, len(out), len(in))
		}
	}
}

func TestRelativeKeepsStrongMaxima(t *testing.T) {
	in := cands(10, 50, 100, -100, -50)
	out := location.Select(in, location.Params{
		Mode:      location.Relative,
		Threshold: 0.6,
		Polarity:  extremum.Both,
	})
	for _, c := range out {
		if c.Strength > 0 && c.Strength < 60 {
			t.Errorf("weak positive candidate %v survived a 0.6 relative threshold", c.Strength)
		}
	}
	var sawStrongMax, sawStrongMin bool
	for _, c := range out {
		if c.Strength == 100 {
			sawStrongMax = true
		}
		if c.Strength == -100 {
			sawStrongMin = true
		}
	}
	if !sawStrongMax || !sawStrongMin {
		t.Errorf("expected both the strongest maximum and minimum to survive, got %+v", out)
	}
}

func TestNumberKeepsTopNByMagnitude(t *testing.T) {
	in := cands(5, -80, 30, 90, -10)
	out := location.Select(in, location.Params{
		Mode:      location.Number,
		Threshold: 2,
		Polarity:  extremum.Both,
	})
	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
	if out[0].Strength != 90 || out[1].Strength != -80 {
		t.Errorf("got strengths %v,%v; want 90,-80 (ranked by magnitude)", out[0].Strength, out[1].Strength)
	}
}

func TestNumberMinimaPolarityRanksAscending(t *testing.T) {
	in := cands(5, -80, 30, 90, -10)
	out := location.Select(in, location.Params{
		Mode:      location.Number,
		Threshold: 1,
		Polarity:  extremum.Minima,
	})
	if len(out) != 1 || out[0].Strength != -80 {
		t.Fatalf("got %+v, want the single most negative candidate", out)
	}
}

func TestNumberClampsThresholdToAtLeastOne(t *testing.T) {
	in := cands(5, 10)
	out := location.Select(in, location.Params{Mode: location.Number, Threshold: 0})
	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1 (threshold clamped up)", len(out))
	}
}

func TestFromCandidatesCarriesFields(t *testing.T) {
	in := []extremum.Candidate{{X: 1, Y: 2, Scale: 3, Strength: 4}}
	out := location.FromCandidates(in)
	if len(out) != 1 {
		t.Fatalf("got %d locations, want 1", len(out))
	}
	got := out[0]
	if got.X != 1 || got.Y != 2 || got.Scale != 3 || got.Strength != 4 || got.Angle != 0 {
		t.Errorf("got %+v, want X=1 Y=2 Scale=3 Strength=4 Angle=0", got)
	}
}

func TestConspicuousKeepsOutliers(t *testing.T) {
	in := cands(10, 11, 9, 10, 500)
	out := location.Select(in, location.Params{
		Mode:      location.Conspicuous,
		Threshold: 1.0,
		Polarity:  extremum.Both,
	})
	found := false
	for _, c := range out {
		if c.Strength == 500 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the clear outlier to survive, got %+v", out)
	}
}
