package trendtap

// ChooseK estimates a cluster count with the elbow heuristic over k-means
// inertia of unigram TF-IDF vectors. The result is approximate.
func ChooseK(prepared []PreparedKeyword, maxClusters int) int {
	if len(prepared) < 4 {
		return 2
	}

	upper := min(maxClusters, len(prepared)/2, 10)
	data := vectorizeKeywords(prepared, 1)

	var inertias []float64
	for k := 2; k <= upper; k++ {
		inertias = append(inertias, runKMeans(data, k, kmeansInitRuns, kmeansSeed).Inertia)
	}
	return elbow(inertias)
}

// elbow returns the k (offset by 2) after which inertia drops the most
func elbow(inertias []float64) int {
	if len(inertias) < 3 {
		return 2
	}

	bestIdx := -1
	bestDrop := 0.0
	for i := 0; i+1 < len(inertias); i++ {
		drop := inertias[i] - inertias[i+1]
		if drop > bestDrop {
			bestDrop = drop
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return 3
	}
	return bestIdx + 2
}
