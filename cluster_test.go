package trendtap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitionLevel(t *testing.T) {
	tests := []struct {
		difficulty float64
		want       string
	}{
		{0, "low"},
		{30, "low"},
		{30.01, "medium"},
		{60, "medium"},
		{60.01, "high"},
		{100, "high"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.difficulty), func(t *testing.T) {
			assert.Equal(t, tt.want, CompetitionLevel(tt.difficulty))
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	group := Prepare([]KeywordRecord{
		{Keyword: "how to run", SearchVolume: 100, Difficulty: 20, CPC: 1},
		{Keyword: "buy shoes", SearchVolume: 200, Difficulty: 40, CPC: 2},
		{Keyword: "best shoes", SearchVolume: 300, Difficulty: 60, CPC: 3},
	})

	m := ComputeMetrics(group)
	assert.InDelta(t, 200, m.AvgSearchVolume, 1e-9)
	assert.InDelta(t, 40, m.AvgDifficulty, 1e-9)
	assert.InDelta(t, 2, m.AvgCPC, 1e-9)
	assert.Equal(t, 600, m.TotalSearchVolume)
	assert.Equal(t, "medium", m.CompetitionLevel)
	assert.InDelta(t, 0.3, m.Density, 1e-9)
	assert.InDelta(t, 0.8, m.SemanticSimilarity, 1e-9)
	// three different intents over three keywords
	assert.InDelta(t, 1.0, m.IntentConsistency, 1e-9)
	assert.InDelta(t, 65, m.QualityScore, 1e-9)
	assert.InDelta(t, 2, m.RelevanceScore, 1e-9)
	assert.InDelta(t, 27.8, m.ContentPotentialScore, 1e-9)
}

func TestComputeMetrics_Bounds(t *testing.T) {
	records := make([]KeywordRecord, 12)
	for i := range records {
		records[i] = KeywordRecord{Keyword: fmt.Sprintf("how to run %d", i), SearchVolume: 1_000_000, Difficulty: 0}
	}
	m := ComputeMetrics(Prepare(records))

	assert.InDelta(t, 1.0, m.Density, 1e-9)
	assert.InDelta(t, 100, m.RelevanceScore, 1e-9)
	assert.InDelta(t, 1.0/12, m.IntentConsistency, 1e-9)
	assert.InDelta(t, 100, m.ContentPotentialScore, 1e-9)
}

func TestComputeMetrics_ContentPotentialIsNotClamped(t *testing.T) {
	records := make([]KeywordRecord, 10)
	for i := range records {
		records[i] = KeywordRecord{Keyword: fmt.Sprintf("a%d", i), SearchVolume: 20_000, Difficulty: -50}
	}

	m := ComputeMetrics(Prepare(records))
	assert.Equal(t, "low", m.CompetitionLevel)
	assert.InDelta(t, 0.4*100+0.3*150+0.3*100, m.ContentPotentialScore, 1e-9)
	assert.Greater(t, m.ContentPotentialScore, 100.0)
}

func TestComputeMetrics_Empty(t *testing.T) {
	assert.Equal(t, ClusterMetrics{}, ComputeMetrics(nil))
}

func TestSelectKeywords_PrimaryTieBreak(t *testing.T) {
	group := Prepare([]KeywordRecord{
		{Keyword: "a", SearchVolume: 100, Difficulty: 10},
		{Keyword: "b", SearchVolume: 100, Difficulty: 5},
		{Keyword: "c", SearchVolume: 50, Difficulty: 50},
	})

	tiers := SelectKeywords(group)
	assert.Equal(t, "b", tiers.Primary)
	assert.Equal(t, []string{"a", "c"}, tiers.Secondary)
	assert.Empty(t, tiers.LongTail)
}

func TestSelectKeywords_SecondaryCap(t *testing.T) {
	records := make([]KeywordRecord, 8)
	for i := range records {
		records[i] = KeywordRecord{Keyword: fmt.Sprintf("kw%d", i), SearchVolume: (i + 1) * 10}
	}

	tiers := SelectKeywords(Prepare(records))
	assert.Equal(t, "kw7", tiers.Primary)
	assert.Equal(t, []string{"kw6", "kw5", "kw4", "kw3", "kw2"}, tiers.Secondary)
	assert.NotContains(t, tiers.Secondary, tiers.Primary)
}

func TestSelectKeywords_LongTail(t *testing.T) {
	var records []KeywordRecord
	for i := 0; i < 12; i++ {
		records = append(records, KeywordRecord{Keyword: fmt.Sprintf("long tail keyword %d", i)})
		records = append(records, KeywordRecord{Keyword: fmt.Sprintf("short %d", i)})
	}

	tiers := SelectKeywords(Prepare(records))
	require.Len(t, tiers.LongTail, 10)
	for i, kw := range tiers.LongTail {
		assert.Equal(t, fmt.Sprintf("long tail keyword %d", i), kw)
	}
}

func TestSelectKeywords_KeepsOriginalSpelling(t *testing.T) {
	tiers := SelectKeywords(Prepare([]KeywordRecord{{Keyword: "Running Shoes", SearchVolume: 10}}))
	assert.Equal(t, "Running Shoes", tiers.Primary)
	assert.Empty(t, tiers.Secondary)
}

func TestBuildCluster(t *testing.T) {
	group := Prepare(twoTopicKeywords()[:6])
	owner := ClusterContext{UserID: "user-1", WorkflowSessionID: "session-1", SourceResultID: "result-1"}

	cluster, err := BuildCluster(context.Background(), group, 0, owner, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(cluster.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Cluster 1: running shoes", cluster.ClusterName)
	assert.Equal(t, ClusterTypeSemantic, cluster.ClusterType)
	assert.Equal(t, "running shoes", cluster.PrimaryKeyword)
	assert.Equal(t, "user-1", cluster.UserID)
	assert.Equal(t, "session-1", cluster.WorkflowSessionID)
	assert.Equal(t, "result-1", cluster.SourceResultID)
	assert.Equal(t, 6, cluster.ClusterSize)
	assert.Len(t, cluster.Keywords, 6)
	assert.True(t, cluster.IsActive)
	assert.True(t, cluster.IsProcessed)
	assert.False(t, cluster.IsUsedForContent)
	assert.Len(t, cluster.ContentIdeas, 5)
	assert.Len(t, cluster.ContentAngles, 3)
	assert.Len(t, cluster.TargetAudiences, 3)
	assert.Equal(t, "Complete Guide to running shoes", cluster.ContentIdeas[0])
	assert.Equal(t, cluster.CreatedAt, cluster.UpdatedAt)
}

type failingCollateral struct{ err error }

func (f failingCollateral) Generate(context.Context, *Cluster) (Collateral, error) {
	return Collateral{}, f.err
}

func TestBuildCluster_Errors(t *testing.T) {
	_, err := BuildCluster(context.Background(), nil, 0, ClusterContext{}, nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = BuildCluster(context.Background(), Prepare(twoTopicKeywords()[:3]), 0, ClusterContext{}, failingCollateral{err: boom})
	assert.ErrorIs(t, err, boom)
}
