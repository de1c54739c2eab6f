package trendtap

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	kmeansSeed          = 42
	kmeansInitRuns      = 10
	kmeansMaxIterations = 300
	kmeansTolerance     = 1e-4
)

// kmeansResult holds the best labelling found over all initialisations
type kmeansResult struct {
	Labels  []int
	Inertia float64
}

// runKMeans runs seeded k-means++ nInit times and keeps the lowest inertia.
// Distances are squared Euclidean.
func runKMeans(data *mat.Dense, k, nInit int, seed int64) kmeansResult {
	n, _ := data.Dims()
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	if nInit < 1 {
		nInit = 1
	}

	rng := rand.New(rand.NewSource(seed))
	best := kmeansResult{Inertia: math.Inf(1)}
	for run := 0; run < nInit; run++ {
		centroids := initializeCentroidsKMeansPlusPlus(data, k, rng)
		labels, inertia := lloyd(data, centroids)
		if inertia < best.Inertia {
			best = kmeansResult{Labels: labels, Inertia: inertia}
		}
	}
	return best
}

func lloyd(data, centroids *mat.Dense) ([]int, float64) {
	n, _ := data.Dims()
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	for iteration := 0; iteration < kmeansMaxIterations; iteration++ {
		newAssignments, _ := assignPointsToClusters(data, centroids)

		converged := true
		for i := range assignments {
			if assignments[i] != newAssignments[i] {
				converged = false
				break
			}
		}
		assignments = newAssignments
		if converged {
			break
		}

		newCentroids := updateCentroids(data, assignments, centroids)
		shift := calculateCentroidChange(centroids, newCentroids)
		centroids = newCentroids
		if shift < kmeansTolerance {
			assignments, _ = assignPointsToClusters(data, centroids)
			break
		}
	}

	_, inertia := assignPointsToClusters(data, centroids)
	return assignments, inertia
}

// initializeCentroidsKMeansPlusPlus picks k seeds with probability
// proportional to the squared distance from the nearest chosen seed
func initializeCentroidsKMeansPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)
	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		totalWeight := 0.0
		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				if dist := squaredDistance(point, centroids.RawRowView(c)); dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist
			totalWeight += minDist
		}

		if totalWeight == 0 {
			// all points coincide with chosen seeds
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		chosen := n - 1
		cumWeight := 0.0
		for j, dist := range distances {
			cumWeight += dist
			if cumWeight >= target && dist > 0 {
				chosen = j
				break
			}
		}
		centroids.SetRow(i, data.RawRowView(chosen))
	}
	return centroids
}

// assignPointsToClusters returns the nearest centroid per row and the
// summed squared distance. Ties go to the lowest centroid index.
func assignPointsToClusters(data, centroids *mat.Dense) ([]int, float64) {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	assignments := make([]int, n)
	inertia := 0.0

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		minDist := math.Inf(1)
		bestCluster := 0
		for j := 0; j < k; j++ {
			if dist := squaredDistance(point, centroids.RawRowView(j)); dist < minDist {
				minDist = dist
				bestCluster = j
			}
		}
		assignments[i] = bestCluster
		inertia += minDist
	}
	return assignments, inertia
}

// updateCentroids recalculates centroids; an emptied cluster keeps its previous centroid
func updateCentroids(data *mat.Dense, assignments []int, previous *mat.Dense) *mat.Dense {
	k, d := previous.Dims()
	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i, clusterID := range assignments {
		floats.Add(centroids.RawRowView(clusterID), data.RawRowView(i))
		counts[clusterID]++
	}

	for i := 0; i < k; i++ {
		row := centroids.RawRowView(i)
		if counts[i] == 0 {
			copy(row, previous.RawRowView(i))
			continue
		}
		floats.Scale(1/float64(counts[i]), row)
	}
	return centroids
}

// calculateCentroidChange sums squared centroid movement
func calculateCentroidChange(oldCentroids, newCentroids *mat.Dense) float64 {
	k, _ := oldCentroids.Dims()
	total := 0.0
	for i := 0; i < k; i++ {
		total += squaredDistance(oldCentroids.RawRowView(i), newCentroids.RawRowView(i))
	}
	return total
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
