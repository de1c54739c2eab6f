package trendtap

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// runAgglomerative performs Ward-linkage hierarchical clustering down to k
// clusters. Labels are numbered by each cluster's first member in row order.
func runAgglomerative(data *mat.Dense, k int) []int {
	n, _ := data.Dims()
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	// Lance-Williams updates on squared Euclidean distances give Ward linkage.
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, squaredDistance(data.RawRowView(i), data.RawRowView(j)))
		}
	}

	members := make([][]int, n)
	active := make([]bool, n)
	for i := range members {
		members[i] = []int{i}
		active[i] = true
	}

	for remaining := n; remaining > k; remaining-- {
		minDist := math.Inf(1)
		mergeI, mergeJ := -1, -1
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && dist.At(i, j) < minDist {
					minDist = dist.At(i, j)
					mergeI, mergeJ = i, j
				}
			}
		}
		if mergeI == -1 {
			break
		}

		ni, nj := float64(len(members[mergeI])), float64(len(members[mergeJ]))
		for m := 0; m < n; m++ {
			if !active[m] || m == mergeI || m == mergeJ {
				continue
			}
			nm := float64(len(members[m]))
			updated := ((ni+nm)*dist.At(mergeI, m) + (nj+nm)*dist.At(mergeJ, m) - nm*minDist) / (ni + nj + nm)
			dist.SetSym(mergeI, m, updated)
		}
		members[mergeI] = append(members[mergeI], members[mergeJ]...)
		members[mergeJ] = nil
		active[mergeJ] = false
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	next := 0
	for row := 0; row < n; row++ {
		if labels[row] != -1 {
			continue
		}
		for c := range members {
			if !active[c] || !containsInt(members[c], row) {
				continue
			}
			for _, idx := range members[c] {
				labels[idx] = next
			}
			next++
			break
		}
	}
	return labels
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
