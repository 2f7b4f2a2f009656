package dataset

import (
	"fmt"
	"math/rand/v2"
)

// Split partitions the design into train and test by a seeded random
// permutation. testFrac is the fraction of rows held out.
func (d *Design) Split(testFrac float64, rng *rand.Rand) (train, test *Design, err error) {
	n := d.NRows()
	nTest := int(float64(n) * testFrac)
	if nTest < 1 || nTest >= n {
		return nil, nil, fmt.Errorf("split: test fraction %.2f leaves %d test rows of %d", testFrac, nTest, n)
	}
	perm := rng.Perm(n)
	return d.Rows(perm[nTest:]), d.Rows(perm[:nTest]), nil
}

// Resample draws n rows with replacement: a bootstrap sample the same
// size as the source.
func (d *Design) Resample(rng *rand.Rand) *Design {
	n := d.NRows()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return d.Rows(idx)
}

// KFold assigns each of n rows to one of k folds via a seeded
// permutation and returns the per-fold index lists.
func KFold(n, k int, rng *rand.Rand) [][]int {
	folds := make([][]int, k)
	for i, idx := range rng.Perm(n) {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}
