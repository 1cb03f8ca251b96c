package forecast

import "sort"

// Tree depth and leaf-size caps. Depth 12 is ample for four calendar
// features over a few years of daily data.
const (
	maxTreeDepth = 12
	minLeafSize  = 2
)

// treeNode is one node of a regression tree. Leaves carry the mean target
// of their training rows; internal nodes route on feature <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode

	leaf  bool
	value float64
}

// growTree fits a regression tree on the rows indexed by idx, splitting to
// minimize the summed squared error of the two children.
func growTree(x [][]float64, y []float64, idx []int, depth int) *treeNode {
	mean := meanOf(y, idx)
	if depth >= maxTreeDepth || len(idx) < 2*minLeafSize || pure(y, idx) {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := bestSplit(x, y, idx)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < minLeafSize || len(right) < minLeafSize {
		return &treeNode{leaf: true, value: mean}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(x, y, left, depth+1),
		right:     growTree(x, y, right, depth+1),
	}
}

// bestSplit scans every feature and every midpoint between adjacent distinct
// values, returning the split with the lowest weighted squared error.
func bestSplit(x [][]float64, y []float64, idx []int) (feature int, threshold float64, ok bool) {
	bestErr := sse(y, idx)
	features := len(x[idx[0]])

	order := make([]int, len(idx))
	for f := 0; f < features; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		// Running sums over the sorted prefix give each candidate split's
		// error in one pass.
		var leftSum, leftSq float64
		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += y[i]
			totalSq += y[i] * y[i]
		}
		n := float64(len(order))

		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			cur, next := x[i][f], x[order[k+1]][f]
			if cur == next {
				continue
			}

			nl := float64(k + 1)
			nr := n - nl
			errLeft := leftSq - leftSum*leftSum/nl
			errRight := (totalSq - leftSq) - (totalSum-leftSum)*(totalSum-leftSum)/nr
			if err := errLeft + errRight; err < bestErr {
				bestErr = err
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// predict walks the tree for one standardized feature vector.
func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func meanOf(y []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sse(y []float64, idx []int) float64 {
	mean := meanOf(y, idx)
	var out float64
	for _, i := range idx {
		d := y[i] - mean
		out += d * d
	}
	return out
}

func pure(y []float64, idx []int) bool {
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}
