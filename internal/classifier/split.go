package classifier

import "math/rand/v2"

func permutation(n int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	return rng.Perm(n)
}

// TrainTestSplit shuffles 0..n-1 with seed and holds out ratio of them for
// testing. At least one row lands on each side when n >= 2.
func TrainTestSplit(n int, ratio float64, seed uint64) (train, test []int) {
	perm := permutation(n, seed)
	nTest := int(float64(n)*ratio + 0.999999)
	if n >= 2 {
		nTest = max(1, min(nTest, n-1))
	} else {
		nTest = 0
	}
	return perm[nTest:], perm[:nTest]
}

// Fold is one train/validation partition of a k-fold split.
type Fold struct {
	Train []int
	Valid []int
}

// KFold partitions 0..n-1 into k shuffled folds. Folds differ in size by at
// most one. k is capped at n.
func KFold(n, k int, seed uint64) []Fold {
	if n == 0 || k < 2 {
		return nil
	}
	k = min(k, n)
	perm := permutation(n, seed)
	folds := make([]Fold, 0, k)
	start := 0
	for f := range k {
		size := n / k
		if f < n%k {
			size++
		}
		valid := perm[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[start+size:]...)
		folds = append(folds, Fold{Train: train, Valid: valid})
		start += size
	}
	return folds
}

// Subset gathers rows and labels by index.
func Subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	sx := make([][]float64, len(idx))
	sy := make([]int, len(idx))
	for i, j := range idx {
		sx[i], sy[i] = X[j], y[j]
	}
	return sx, sy
}
