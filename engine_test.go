package trendtap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTopicKeywords() []KeywordRecord {
	return []KeywordRecord{
		{Keyword: "running shoes", SearchVolume: 5000, Difficulty: 55},
		{Keyword: "best running shoes", SearchVolume: 3000, Difficulty: 60},
		{Keyword: "running shoes for women", SearchVolume: 1200, Difficulty: 40},
		{Keyword: "trail running shoes", SearchVolume: 900, Difficulty: 35},
		{Keyword: "running shoes review", SearchVolume: 700, Difficulty: 30},
		{Keyword: "cheap running shoes", SearchVolume: 600, Difficulty: 25},
		{Keyword: "coffee maker", SearchVolume: 4000, Difficulty: 50},
		{Keyword: "best coffee maker", SearchVolume: 2500, Difficulty: 58},
		{Keyword: "drip coffee maker", SearchVolume: 800, Difficulty: 33},
		{Keyword: "coffee maker review", SearchVolume: 650, Difficulty: 28},
		{Keyword: "coffee maker with grinder", SearchVolume: 500, Difficulty: 22},
		{Keyword: "single serve coffee maker", SearchVolume: 450, Difficulty: 20},
	}
}

func allMethods() []ClusterMethod {
	return []ClusterMethod{MethodKMeans, MethodDBSCAN, MethodAgglomerative}
}

func texts(group []PreparedKeyword) []string {
	out := make([]string, len(group))
	for i, kw := range group {
		out[i] = kw.Text
	}
	return out
}

func TestParseClusterMethod(t *testing.T) {
	for _, m := range allMethods() {
		got, err := ParseClusterMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseClusterMethod("spectral")
	assert.True(t, errors.Is(err, ErrUnsupportedMethod))
}

func TestAssignLabels_UnsupportedMethod(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())

	labels, err := AssignLabels(prepared, "spectral", 2, 3)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Nil(t, labels)

	groups, err := ClusterPrepared(prepared, "spectral", 2, 3)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Nil(t, groups)
}

func TestAssignLabels_Deterministic(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())
	for _, m := range allMethods() {
		t.Run(string(m), func(t *testing.T) {
			first, err := AssignLabels(prepared, m, 3, 3)
			require.NoError(t, err)
			second, err := AssignLabels(prepared, m, 3, 3)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestGroupByLabel_CoversEveryKeyword(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())
	for _, m := range allMethods() {
		t.Run(string(m), func(t *testing.T) {
			labels, err := AssignLabels(prepared, m, 4, 3)
			require.NoError(t, err)
			require.Len(t, labels, len(prepared))

			total := 0
			for _, group := range GroupByLabel(prepared, labels) {
				total += len(group)
			}
			assert.Equal(t, len(prepared), total)
		})
	}
}

func TestGroupByLabel_FirstAppearanceOrder(t *testing.T) {
	prepared := Prepare([]KeywordRecord{{Keyword: "a1"}, {Keyword: "b1"}, {Keyword: "a2"}, {Keyword: "c1"}, {Keyword: "b2"}})
	groups := GroupByLabel(prepared, []int{7, -1, 7, 0, -1})

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"a1", "a2"}, texts(groups[0]))
	assert.Equal(t, []string{"b1", "b2"}, texts(groups[1]))
	assert.Equal(t, []string{"c1"}, texts(groups[2]))
}

func TestClusterPrepared_KMeansTwoTopics(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())

	groups, err := ClusterPrepared(prepared, MethodKMeans, 2, 3)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	total := 0
	for _, group := range groups {
		assert.GreaterOrEqual(t, len(group), 3)
		total += len(group)
	}
	assert.LessOrEqual(t, total, len(prepared))
	assertTopicSplit(t, groups)
}

func assertTopicSplit(t *testing.T, groups [][]PreparedKeyword) {
	t.Helper()
	require.Len(t, groups, 2)
	// the group holding the first keyword comes first
	assert.Equal(t, "running shoes", groups[0][0].Text)
	for _, kw := range groups[0] {
		assert.True(t, strings.Contains(kw.Text, "running shoes"), kw.Text)
	}
	for _, kw := range groups[1] {
		assert.True(t, strings.Contains(kw.Text, "coffee maker"), kw.Text)
	}
}

func TestClusterPrepared_AgglomerativeSeparatesTopics(t *testing.T) {
	prepared := Prepare(twoTopicKeywords())

	groups, err := ClusterPrepared(prepared, MethodAgglomerative, 2, 3)
	require.NoError(t, err)
	assertTopicSplit(t, groups)
}

func TestClusterPrepared_DBSCANDropsSmallNoise(t *testing.T) {
	prepared := Prepare([]KeywordRecord{
		{Keyword: "quantum physics"},
		{Keyword: "running shoes"},
		{Keyword: "Running Shoes"},
		{Keyword: "chocolate cake"},
		{Keyword: "  running   shoes "},
		{Keyword: "RUNNING SHOES"},
		{Keyword: "running shoes "},
		{Keyword: "garden hose"},
		{Keyword: "Running shoes"},
	})

	labels, err := AssignLabels(prepared, MethodDBSCAN, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 0, -1, 0, 0, 0, -1, 0}, labels)

	groups, err := ClusterPrepared(prepared, MethodDBSCAN, 0, 5)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 6)
}

func TestClusterPrepared_DBSCANKeepsLargeNoiseGroup(t *testing.T) {
	prepared := Prepare([]KeywordRecord{
		{Keyword: "chocolate cake"},
		{Keyword: "running shoes"},
		{Keyword: "running shoes"},
		{Keyword: "running shoes"},
		{Keyword: "garden hose"},
	})

	groups, err := ClusterPrepared(prepared, MethodDBSCAN, 0, 2)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"chocolate cake", "garden hose"}, texts(groups[0]))
	assert.Len(t, groups[1], 3)
}

func TestClusterPrepared_SingleKeyword(t *testing.T) {
	prepared := Prepare([]KeywordRecord{{Keyword: "running shoes"}})
	for _, m := range allMethods() {
		groups, err := ClusterPrepared(prepared, m, 2, 1)
		require.NoError(t, err)
		require.Len(t, groups, 1, string(m))
		assert.Len(t, groups[0], 1)
	}
}
