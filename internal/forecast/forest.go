package forecast

import "math/rand"

// Forest is an ensemble of regression trees, each fitted on a bootstrap
// resample of the training rows. Trees are grown sequentially from a single
// seeded random source, so the same seed and data always yield the same
// ensemble.
type Forest struct {
	trees []*treeNode
}

// trainForest fits size trees on the standardized feature matrix.
func trainForest(x [][]float64, y []float64, size int, seed int64) *Forest {
	rng := rand.New(rand.NewSource(seed))
	f := &Forest{trees: make([]*treeNode, size)}

	n := len(x)
	for t := 0; t < size; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees[t] = growTree(x, y, idx, 0)
	}
	return f
}

// predict averages the trees' outputs for one standardized feature vector.
func (f *Forest) predict(x []float64) float64 {
	var sum float64
	for _, tree := range f.trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.trees))
}
