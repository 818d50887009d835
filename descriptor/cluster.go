package descriptor

import (
	"math"

	"github.com/naisuuuu/surf/internal/lut"
	"github.com/naisuuuu/surf/location"
)

// clusterEpsilon bounds the variance a cluster must have on both axes
// before it is considered a donor for an empty cluster.
const clusterEpsilon = 1.1920929e-07

// clusterInfo is one angular cluster: the indices (into the slice passed
// to clusterByAngle) of the locations assigned to it, and the cluster's
// mean angle.
type clusterInfo struct {
	indices []int
	angle   float64
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// adist is the unsigned angular distance used to decide cluster
// membership during k-means refinement.
func adist(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > math.Pi {
		return 2*math.Pi - d
	}
	return d
}

// sadist is the signed angular distance (b relative to a) used to decide
// which half of a split cluster a member moves to.
func sadist(a, b float64) float64 {
	d := b - a
	switch {
	case d < -math.Pi:
		return 2*math.Pi + d
	case d > math.Pi:
		return d - 2*math.Pi
	default:
		return d
	}
}

// circularStats computes the mean and variance, in cartesian
// sine/cosine space, of the angles named by indices.
func circularStats(sines, cosines []float64, indices []int) (meanSin, meanCos, varSin, varCos float64) {
	n := float64(len(indices))
	if n == 0 {
		return
	}
	var sumSin, sumCos, sumSin2, sumCos2 float64
	for _, idx := range indices {
		sumSin += sines[idx]
		sumCos += cosines[idx]
		sumSin2 += sines[idx] * sines[idx]
		sumCos2 += cosines[idx] * cosines[idx]
	}
	varCos = (sumCos2 - sumCos*sumCos/n) / n
	varSin = (sumSin2 - sumSin*sumSin/n) / n
	meanCos = sumCos / n
	meanSin = sumSin / n
	return
}

// clusterByAngle groups locs into at most numClusters groups by their
// Angle field, using constrained k-means on the unit circle: regular
// angle-slice initialization, empty-cluster reseeding by splitting the
// most populated cluster with nonzero variance on both axes, then
// iterative nearest-mean reassignment for up to 10 rounds.
//
// Each candidate cluster k is compared against its own mean angle during
// reassignment, not against the mean of the cluster being emptied — the
// latter would make every comparison use the same distance and so never
// trigger a move.
func clusterByAngle(locs []location.Location, numClusters int) []clusterInfo {
	total := len(locs)
	if total == 0 {
		return nil
	}
	if numClusters > total {
		numClusters = total
	}
	if numClusters < 1 {
		numClusters = 1
	}

	angles := make([]float64, total)
	sines := make([]float64, total)
	cosines := make([]float64, total)
	for i, l := range locs {
		a := normalizeAngle(l.Angle)
		angles[i] = a
		sines[i] = math.Sin(a)
		cosines[i] = math.Cos(a)
	}

	clusters := make([][]int, numClusters)
	meanAngle := make([]float64, numClusters)
	meanSin := make([]float64, numClusters)
	meanCos := make([]float64, numClusters)
	varSin := make([]float64, numClusters)
	varCos := make([]float64, numClusters)

	slice := math.Pi / float64(numClusters)
	for i := 0; i < total; i++ {
		idx := int((angles[i]+slice)*float64(numClusters)/(2*math.Pi)) % numClusters
		clusters[idx] = append(clusters[idx], i)
	}
	for c := range clusters {
		meanSin[c], meanCos[c], varSin[c], varCos[c] = circularStats(sines, cosines, clusters[c])
	}

	for c := range clusters {
		if len(clusters[c]) != 0 {
			continue
		}
		best, bestN := -1, -1
		for j := range clusters {
			if len(clusters[j]) > 0 && varCos[j] > clusterEpsilon && varSin[j] > clusterEpsilon && len(clusters[j]) > bestN {
				bestN = len(clusters[j])
				best = j
			}
		}
		if best < 0 {
			break
		}
		jAngle := lut.Atan2(meanSin[best], meanCos[best])
		var kept, moved []int
		for _, idx := range clusters[best] {
			if sadist(angles[idx], jAngle) < 0 {
				moved = append(moved, idx)
			} else {
				kept = append(kept, idx)
			}
		}
		clusters[best] = kept
		clusters[c] = moved
		meanSin[best], meanCos[best], varSin[best], varCos[best] = circularStats(sines, cosines, clusters[best])
		meanSin[c], meanCos[c], varSin[c], varCos[c] = circularStats(sines, cosines, clusters[c])
	}

	for c := range clusters {
		meanAngle[c] = lut.Atan2(meanSin[c], meanCos[c])
	}

	for iter := 0; iter < 10; iter++ {
		changed := 0
		for c := range clusters {
			var kept []int
			for _, idx := range clusters[c] {
				best := c
				minDist := adist(angles[idx], meanAngle[c])
				for k := range clusters {
					d := adist(angles[idx], meanAngle[k])
					if d < minDist {
						minDist = d
						best = k
					}
				}
				if best != c {
					clusters[best] = append(clusters[best], idx)
					changed++
				} else {
					kept = append(kept, idx)
				}
			}
			clusters[c] = kept
		}
		if changed == 0 {
			break
		}
		for c := range clusters {
			meanSin[c], meanCos[c], varSin[c], varCos[c] = circularStats(sines, cosines, clusters[c])
			meanAngle[c] = lut.Atan2(meanSin[c], meanCos[c])
		}
	}

	out := make([]clusterInfo, numClusters)
	for c := range clusters {
		out[c] = clusterInfo{indices: clusters[c], angle: meanAngle[c]}
	}
	return out
}
