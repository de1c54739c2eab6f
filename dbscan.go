package trendtap

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const noiseLabel = -1

// runDBSCAN labels rows by density reachability using Euclidean distance.
// A point's neighbourhood includes the point itself; unreachable points get noiseLabel.
func runDBSCAN(data *mat.Dense, eps float64, minSamples int) []int {
	n, _ := data.Dims()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	visited := make([]bool, n)
	currentCluster := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		neighbors := findNeighbors(data, i, eps)
		if len(neighbors) < minSamples {
			continue
		}
		visited[i] = true
		expandCluster(data, i, neighbors, currentCluster, eps, minSamples, visited, labels)
		currentCluster++
	}
	return labels
}

// findNeighbors returns all rows within eps of pointIdx, itself included
func findNeighbors(data *mat.Dense, pointIdx int, eps float64) []int {
	n, _ := data.Dims()
	point := data.RawRowView(pointIdx)
	var neighbors []int
	for i := 0; i < n; i++ {
		if math.Sqrt(squaredDistance(point, data.RawRowView(i))) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}

func expandCluster(data *mat.Dense, pointIdx int, neighbors []int, clusterID int, eps float64, minSamples int, visited []bool, labels []int) {
	labels[pointIdx] = clusterID
	queued := make(map[int]bool, len(neighbors))
	for _, idx := range neighbors {
		queued[idx] = true
	}

	for i := 0; i < len(neighbors); i++ {
		idx := neighbors[i]
		if labels[idx] == noiseLabel {
			labels[idx] = clusterID
		}
		if visited[idx] {
			continue
		}
		visited[idx] = true

		next := findNeighbors(data, idx, eps)
		if len(next) < minSamples {
			continue
		}
		for _, candidate := range next {
			if !queued[candidate] {
				queued[candidate] = true
				neighbors = append(neighbors, candidate)
			}
		}
	}
}
