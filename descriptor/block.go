package descriptor

import "math"

// block accumulates Haar responses for one subregion into the values
// that land in the final vector, either 4 components (plain sums) or 8
// (split by the sign of the orthogonal component).
type block interface {
	acc(dx, dy float64)
	reset()
	load(vct Vector, idx *int)
}

// block4 is the signSplit=false accumulator: (sum dx, sum |dx|, sum dy,
// sum |dy|).
type block4 struct {
	dx, dy, adx, ady float64
}

func (b *block4) acc(dx, dy float64) {
	b.dx += dx
	b.dy += dy
	b.adx += math.Abs(dx)
	b.ady += math.Abs(dy)
}

func (b *block4) reset() { *b = block4{} }

func (b *block4) load(vct Vector, idx *int) {
	vct[*idx] = b.dx
	*idx++
	vct[*idx] = b.adx
	*idx++
	vct[*idx] = b.dy
	*idx++
	vct[*idx] = b.ady
	*idx++
}

// block8 is the signSplit=true accumulator: dx sums are split by the
// sign of dy, dy sums are split by the sign of dx.
type block8 struct {
	pdx, pdy, padx, pady float64
	ndx, ndy, nadx, nady float64
}

func (b *block8) acc(dx, dy float64) {
	if dy < 0 {
		b.ndx += dx
		b.nadx += math.Abs(dx)
	} else {
		b.pdx += dx
		b.padx += math.Abs(dx)
	}
	if dx < 0 {
		b.ndy += dy
		b.nady += math.Abs(dy)
	} else {
		b.pdy += dy
		b.pady += math.Abs(dy)
	}
}

func (b *block8) reset() { *b = block8{} }

func (b *block8) load(vct Vector, idx *int) {
	vct[*idx] = b.pdx
	*idx++
	vct[*idx] = b.pdy
	*idx++
	vct[*idx] = b.padx
	*idx++
	vct[*idx] = b.pady
	*idx++
	vct[*idx] = b.ndx
	*idx++
	vct[*idx] = b.ndy
	*idx++
	vct[*idx] = b.nadx
	*idx++
	vct[*idx] = b.nady
	*idx++
}

func blockSize(signSplit bool) int {
	if signSplit {
		return 8
	}
	return 4
}
