package genebridge_test

import (
	"math"
	"testing"

	"github.com/naisuuuu/surf/genebridge"
)

func TestDirectUintRoundTripsOnGrid(t *testing.T) {
	f := genebridge.Field{Name: "levelGroupSize", Bits: 5, Kind: genebridge.DirectUint, Min: 2}
	maxRaw := uint64(1<<5) - 1
	for raw := uint64(0); raw <= maxRaw; raw++ {
		value := f.Decode(raw)
		got := f.Encode(value)
		if got != raw {
			t.Errorf("raw %d: decode->encode round trip got %d, want %d (value %v)", raw, got, raw, value)
		}
	}
}

func TestAffineRoundTripsOnGrid(t *testing.T) {
	f := genebridge.Field{Name: "normPower", Bits: 8, Kind: genebridge.Affine, Min: 3.5, Max: 4.5}
	maxRaw := uint64(1<<8) - 1
	for raw := uint64(0); raw <= maxRaw; raw++ {
		value := f.Decode(raw)
		got := f.Encode(value)
		if got != raw {
			t.Errorf("raw %d: decode->encode round trip got %d, want %d (value %v)", raw, got, raw, value)
		}
	}
}

func TestAffineClampsOutOfRangeValues(t *testing.T) {
	f := genebridge.Field{Name: "threshold", Bits: 6, Kind: genebridge.Affine, Min: 0, Max: 1}
	if got := f.Encode(-5); got != 0 {
		t.Errorf("Encode(-5) = %d, want 0 (clamped to the low end)", got)
	}
	maxRaw := uint64(1<<6) - 1
	if got := f.Encode(100); got != maxRaw {
		t.Errorf("Encode(100) = %d, want %d (clamped to the high end)", got, maxRaw)
	}
}

func TestLogReciprocalRoundTripsOnGrid(t *testing.T) {
	f := genebridge.Field{Name: "orientationWindowWidth", Bits: 8, Kind: genebridge.LogReciprocal, LogBase: 360}
	maxRaw := uint64(1<<8) - 1
	for raw := uint64(1); raw <= maxRaw; raw++ {
		value := f.Decode(raw)
		got := f.Encode(value)
		if got != raw {
			t.Errorf("raw %d: decode->encode round trip got %d, want %d (value %v)", raw, got, raw, value)
		}
	}
}

func TestLogReciprocalFinerAnglesUseMoreOfTheGrid(t *testing.T) {
	f := genebridge.Field{Name: "orientationWindowWidth", Bits: 8, Kind: genebridge.LogReciprocal, LogBase: 360}
	fine := f.Encode(1)   // 1 degree: needs fine resolution
	coarse := f.Encode(90) // 90 degrees: coarse is fine
	if fine <= coarse {
		t.Errorf("expected a finer angle to consume a larger raw code than a coarser one, got fine=%d coarse=%d", fine, coarse)
	}
}

func TestBitsForSizesDiscreteEnums(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
	}
	for _, c := range cases {
		if got := genebridge.BitsFor(c.n); got != c.want {
			t.Errorf("BitsFor(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestSchemaRoundTripsMultipleFields(t *testing.T) {
	schema := genebridge.Schema{
		{Name: "numberOfLevels", Bits: 6, Kind: genebridge.DirectUint, Min: 3},
		{Name: "normPower", Bits: 8, Kind: genebridge.Affine, Min: 3.5, Max: 4.5},
		{Name: "levelSelectionMethod", Bits: genebridge.BitsFor(2), Kind: genebridge.DirectUint, Min: 0},
		{Name: "orientationWindowWidth", Bits: 8, Kind: genebridge.LogReciprocal, LogBase: 360},
	}

	values := map[string]float64{
		"numberOfLevels":         12,
		"normPower":              4.0,
		"levelSelectionMethod":   1,
		"orientationWindowWidth": 60,
	}

	chromosome := schema.Encode(values)
	if len(chromosome) != schema.Bits() {
		t.Fatalf("got chromosome of %d bits, want %d", len(chromosome), schema.Bits())
	}

	decoded, err := schema.Decode(chromosome)
	if err != nil {
		t.Fatal(err)
	}

	if got := decoded["numberOfLevels"]; got != 12 {
		t.Errorf("numberOfLevels round-tripped to %v, want 12", got)
	}
	if got := decoded["levelSelectionMethod"]; got != 1 {
		t.Errorf("levelSelectionMethod round-tripped to %v, want 1", got)
	}
	if math.Abs(decoded["normPower"]-4.0) > 1.0/255 {
		t.Errorf("normPower round-tripped to %v, want close to 4.0", decoded["normPower"])
	}
	if math.Abs(decoded["orientationWindowWidth"]-60) > 1 {
		t.Errorf("orientationWindowWidth round-tripped to %v, want close to 60", decoded["orientationWindowWidth"])
	}

	// Re-encoding the decoded values must land back on the exact same
	// chromosome, since decoded values are themselves grid points.
	reEncoded := schema.Encode(decoded)
	for i := range chromosome {
		if chromosome[i] != reEncoded[i] {
			t.Fatalf("bit %d differs after decode->encode round trip", i)
		}
	}
}

func TestSchemaDecodeRejectsWrongWidth(t *testing.T) {
	schema := genebridge.Schema{{Name: "x", Bits: 4, Kind: genebridge.DirectUint}}
	if _, err := schema.Decode(make(genebridge.Chromosome, 3)); err == nil {
		t.Error("expected an error decoding a chromosome of the wrong width")
	}
}
