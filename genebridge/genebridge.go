// Package genebridge encodes detector configuration values into
// fixed-width bit fields and back, the representation an external
// genetic-algorithm-style optimizer would search over. It has no
// dependency on any concrete optimizer or on the surf package itself: a
// caller builds a Schema describing the fields it wants tunable and
// encodes/decodes plain float64 values by name.
package genebridge

import (
	"fmt"
	"math"
	"math/bits"
)

// Kind selects how a Field's bits map to a value.
type Kind int

const (
	// DirectUint stores value-Min directly as an unsigned integer; Max
	// is only used to size Bits, never consulted by Encode/Decode.
	DirectUint Kind = iota
	// Affine maps [Min,Max] linearly onto the field's full bit range.
	Affine
	// LogReciprocal maps a value through its reciprocal before
	// quantizing, so that smaller values (finer angular resolutions)
	// get more of the available bit range: raw = round(LogBase/value),
	// value = LogBase/max(1,raw). Used for angular-width parameters
	// where the field is naturally log-spaced (a window width of 1
	// degree needs far more precision than one of 90 degrees).
	LogReciprocal
)

// Field describes one chromosome segment.
type Field struct {
	Name string
	Bits int
	Kind Kind
	// Min and Max bound the represented range. LogReciprocal fields do
	// not consult Min or Max: their decoded value spans
	// LogBase/(2^Bits-1) up to LogBase.
	Min, Max float64
	// LogBase is the numerator used by LogReciprocal fields (e.g. 360
	// for a degrees-denominated angular width). Unused by other kinds.
	LogBase float64
}

func (f Field) maxRaw() uint64 {
	if f.Bits <= 0 {
		return 0
	}
	return (uint64(1) << uint(f.Bits)) - 1
}

func clampRaw(v float64, maxRaw uint64) uint64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	r := uint64(math.Round(v))
	if r > maxRaw {
		return maxRaw
	}
	return r
}

// Encode quantizes value onto the field's representable grid.
func (f Field) Encode(value float64) uint64 {
	maxRaw := f.maxRaw()
	switch f.Kind {
	case DirectUint:
		return clampRaw(value-f.Min, maxRaw)
	case Affine:
		span := f.Max - f.Min
		if span == 0 {
			return 0
		}
		return clampRaw((value-f.Min)/span*float64(maxRaw), maxRaw)
	case LogReciprocal:
		if value == 0 {
			return maxRaw
		}
		return clampRaw(f.LogBase/value, maxRaw)
	default:
		return 0
	}
}

// Decode returns the value a raw bit pattern represents. raw is clamped
// to the field's bit width before interpretation.
func (f Field) Decode(raw uint64) float64 {
	maxRaw := f.maxRaw()
	if raw > maxRaw {
		raw = maxRaw
	}
	switch f.Kind {
	case DirectUint:
		return f.Min + float64(raw)
	case Affine:
		if maxRaw == 0 {
			return f.Min
		}
		return f.Min + (f.Max-f.Min)*float64(raw)/float64(maxRaw)
	case LogReciprocal:
		r := raw
		if r < 1 {
			r = 1
		}
		return f.LogBase / float64(r)
	default:
		return 0
	}
}

// BitsFor returns the number of bits needed to represent n distinct
// values (0..n-1), the natural width for a discrete enum-valued field.
func BitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// Chromosome is a fixed-width sequence of bits, written and read
// field-by-field in Schema order.
type Chromosome []bool

// Schema is the ordered list of fields making up one chromosome. Field
// order determines bit position: earlier fields occupy lower offsets.
type Schema []Field

// Bits returns the total chromosome width described by the schema.
func (s Schema) Bits() int {
	total := 0
	for _, f := range s {
		total += f.Bits
	}
	return total
}

// NewChromosome allocates a zeroed chromosome sized for the schema.
func (s Schema) NewChromosome() Chromosome {
	return make(Chromosome, s.Bits())
}

// Encode packs values, keyed by field name, into a chromosome. Fields
// absent from values encode their zero value.
func (s Schema) Encode(values map[string]float64) Chromosome {
	c := s.NewChromosome()
	pos := 0
	for _, f := range s {
		writeBits(c, pos, f.Bits, f.Encode(values[f.Name]))
		pos += f.Bits
	}
	return c
}

// Decode unpacks a chromosome back into values keyed by field name.
func (s Schema) Decode(c Chromosome) (map[string]float64, error) {
	if len(c) != s.Bits() {
		return nil, fmt.Errorf("genebridge: chromosome has %d bits, schema expects %d", len(c), s.Bits())
	}
	out := make(map[string]float64, len(s))
	pos := 0
	for _, f := range s {
		out[f.Name] = f.Decode(readBits(c, pos, f.Bits))
		pos += f.Bits
	}
	return out, nil
}

func writeBits(c Chromosome, pos, n int, raw uint64) {
	for i := 0; i < n; i++ {
		c[pos+i] = (raw>>uint(n-1-i))&1 == 1
	}
}

func readBits(c Chromosome, pos, n int) uint64 {
	var raw uint64
	for i := 0; i < n; i++ {
		raw <<= 1
		if c[pos+i] {
			raw |= 1
		}
	}
	return raw
}
