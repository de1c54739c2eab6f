package trendtap

import (
	"fmt"
)

// ClusterMethod selects the clustering algorithm
type ClusterMethod string

const (
	MethodKMeans        ClusterMethod = "kmeans"
	MethodDBSCAN        ClusterMethod = "dbscan"
	MethodAgglomerative ClusterMethod = "agglomerative"

	dbscanEps = 0.3
)

// ParseClusterMethod validates a method name
func ParseClusterMethod(s string) (ClusterMethod, error) {
	switch m := ClusterMethod(s); m {
	case MethodKMeans, MethodDBSCAN, MethodAgglomerative:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
}

// AssignLabels vectorises the keywords (unigrams and bigrams) and returns one
// label per keyword. For dbscan, noiseLabel is a regular label.
func AssignLabels(prepared []PreparedKeyword, method ClusterMethod, k, minClusterSize int) ([]int, error) {
	if _, err := ParseClusterMethod(string(method)); err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, nil
	}

	data := vectorizeKeywords(prepared, 2)
	switch method {
	case MethodKMeans:
		return runKMeans(data, k, kmeansInitRuns, kmeansSeed).Labels, nil
	case MethodDBSCAN:
		return runDBSCAN(data, dbscanEps, minClusterSize), nil
	default:
		return runAgglomerative(data, k), nil
	}
}

// GroupByLabel groups keywords by label. Groups are ordered by the first
// appearance of their label; members keep input order.
func GroupByLabel(prepared []PreparedKeyword, labels []int) [][]PreparedKeyword {
	index := make(map[int]int)
	var groups [][]PreparedKeyword
	for i, label := range labels {
		g, ok := index[label]
		if !ok {
			g = len(groups)
			index[label] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], prepared[i])
	}
	return groups
}

// ClusterPrepared groups keywords with the given method and drops groups
// smaller than minClusterSize.
func ClusterPrepared(prepared []PreparedKeyword, method ClusterMethod, k, minClusterSize int) ([][]PreparedKeyword, error) {
	labels, err := AssignLabels(prepared, method, k, minClusterSize)
	if err != nil {
		return nil, err
	}

	var kept [][]PreparedKeyword
	for _, group := range GroupByLabel(prepared, labels) {
		if len(group) >= minClusterSize {
			kept = append(kept, group)
		}
	}
	return kept, nil
}
