package trendtap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	ClusterTypeSemantic = "semantic"

	// semanticSimilarityPlaceholder is not computed from the keywords.
	// Quality scores are tuned against this value.
	semanticSimilarityPlaceholder = 0.8

	maxSecondaryKeywords = 5
	maxLongTailKeywords  = 10
	longTailMinWords     = 3
)

// Cluster is a persisted keyword cluster
type Cluster struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	WorkflowSessionID  string          `json:"workflow_session_id"`
	SourceResultID     string          `json:"source_result_id,omitempty"`
	ClusterName        string          `json:"cluster_name"`
	ClusterDescription string          `json:"cluster_description"`
	ClusterType        string          `json:"cluster_type"`
	Keywords           []KeywordRecord `json:"keywords"`
	PrimaryKeyword     string          `json:"primary_keyword"`
	SecondaryKeywords  []string        `json:"secondary_keywords"`
	LongTailKeywords   []string        `json:"long_tail_keywords"`

	AvgSearchVolume      float64 `json:"avg_search_volume"`
	AvgKeywordDifficulty float64 `json:"avg_keyword_difficulty"`
	AvgCPC               float64 `json:"avg_cpc"`
	TotalSearchVolume    int     `json:"total_search_volume"`
	CompetitionLevel     string  `json:"competition_level"`

	ClusterSize           int     `json:"cluster_size"`
	ClusterDensity        float64 `json:"cluster_density"`
	SemanticSimilarity    float64 `json:"semantic_similarity"`
	IntentConsistency     float64 `json:"intent_consistency"`
	ClusterQualityScore   float64 `json:"cluster_quality_score"`
	KeywordRelevanceScore float64 `json:"keyword_relevance_score"`
	ContentPotentialScore float64 `json:"content_potential_score"`

	ContentIdeas    []string `json:"content_ideas"`
	ContentAngles   []string `json:"content_angles"`
	TargetAudiences []string `json:"target_audiences"`
	ProcessingNotes string   `json:"processing_notes,omitempty"`

	IsActive         bool      `json:"is_active"`
	IsProcessed      bool      `json:"is_processed"`
	IsUsedForContent bool      `json:"is_used_for_content"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ClusterMetrics are the aggregate numbers derived from a keyword group
type ClusterMetrics struct {
	AvgSearchVolume       float64
	AvgDifficulty         float64
	AvgCPC                float64
	TotalSearchVolume     int
	CompetitionLevel      string
	Density               float64
	SemanticSimilarity    float64
	IntentConsistency     float64
	QualityScore          float64
	RelevanceScore        float64
	ContentPotentialScore float64
}

// CompetitionLevel buckets a difficulty; bounds are inclusive on the low side
func CompetitionLevel(difficulty float64) string {
	switch {
	case difficulty <= 30:
		return "low"
	case difficulty <= 60:
		return "medium"
	default:
		return "high"
	}
}

// ComputeMetrics derives the cluster metrics of a group.
//
// IntentConsistency is distinct intents over group size, so a higher value
// means more varied intents. ContentPotentialScore is not clamped and can exceed 100.
func ComputeMetrics(group []PreparedKeyword) ClusterMetrics {
	var m ClusterMetrics
	if len(group) == 0 {
		return m
	}

	size := float64(len(group))
	volume, difficulty, cpc := 0.0, 0.0, 0.0
	intents := make(map[Intent]bool)
	for _, kw := range group {
		volume += float64(kw.Original.SearchVolume)
		difficulty += kw.Original.Difficulty
		cpc += kw.Original.CPC
		m.TotalSearchVolume += kw.Original.SearchVolume
		intents[kw.Intent] = true
	}

	m.AvgSearchVolume = volume / size
	m.AvgDifficulty = difficulty / size
	m.AvgCPC = cpc / size
	m.CompetitionLevel = CompetitionLevel(m.AvgDifficulty)

	m.Density = min(1.0, size/10.0)
	m.SemanticSimilarity = semanticSimilarityPlaceholder
	m.IntentConsistency = float64(len(intents)) / size

	m.QualityScore = 100 * (0.3*m.Density + 0.3*m.SemanticSimilarity + 0.2*m.IntentConsistency + 0.2*(1-m.AvgDifficulty/100))
	m.RelevanceScore = min(100, m.AvgSearchVolume/100)
	m.ContentPotentialScore = 0.4*m.RelevanceScore + 0.3*(100-m.AvgDifficulty) + 0.3*(m.Density*100)
	return m
}

// KeywordTiers is the primary/secondary/long-tail split of a group
type KeywordTiers struct {
	Primary   string
	Secondary []string
	LongTail  []string
}

// SelectKeywords picks the primary keyword by (volume desc, difficulty asc),
// the next five by volume as secondaries and up to ten long-tail keywords in
// group order.
func SelectKeywords(group []PreparedKeyword) KeywordTiers {
	var tiers KeywordTiers
	if len(group) == 0 {
		return tiers
	}

	byPriority := make([]PreparedKeyword, len(group))
	copy(byPriority, group)
	sort.SliceStable(byPriority, func(i, j int) bool {
		a, b := byPriority[i].Original, byPriority[j].Original
		if a.SearchVolume != b.SearchVolume {
			return a.SearchVolume > b.SearchVolume
		}
		return a.Difficulty < b.Difficulty
	})
	primary := byPriority[0]
	tiers.Primary = primary.Original.Keyword

	byVolume := make([]PreparedKeyword, len(group))
	copy(byVolume, group)
	sort.SliceStable(byVolume, func(i, j int) bool {
		return byVolume[i].Original.SearchVolume > byVolume[j].Original.SearchVolume
	})
	skippedPrimary := false
	tiers.Secondary = []string{}
	for _, kw := range byVolume {
		if !skippedPrimary && kw.Original == primary.Original {
			skippedPrimary = true
			continue
		}
		if len(tiers.Secondary) == maxSecondaryKeywords {
			break
		}
		tiers.Secondary = append(tiers.Secondary, kw.Original.Keyword)
	}

	tiers.LongTail = []string{}
	for _, kw := range group {
		if kw.Length >= longTailMinWords && len(tiers.LongTail) < maxLongTailKeywords {
			tiers.LongTail = append(tiers.LongTail, kw.Original.Keyword)
		}
	}
	return tiers
}

// ClusterContext carries the ownership fields stamped on every built cluster
type ClusterContext struct {
	UserID            string
	WorkflowSessionID string
	SourceResultID    string
}

// BuildCluster assembles a cluster record for the index-th group
func BuildCluster(ctx context.Context, group []PreparedKeyword, index int, owner ClusterContext, collateral CollateralGenerator) (*Cluster, error) {
	if len(group) == 0 {
		return nil, fmt.Errorf("empty keyword group")
	}

	metrics := ComputeMetrics(group)
	tiers := SelectKeywords(group)

	keywords := make([]KeywordRecord, len(group))
	for i, kw := range group {
		keywords[i] = kw.Original
	}

	now := time.Now().UTC()
	cluster := &Cluster{
		ID:                 uuid.NewString(),
		UserID:             owner.UserID,
		WorkflowSessionID:  owner.WorkflowSessionID,
		SourceResultID:     owner.SourceResultID,
		ClusterName:        fmt.Sprintf("Cluster %d: %s", index+1, tiers.Primary),
		ClusterDescription: fmt.Sprintf("Keyword cluster built around %q with %d keywords", tiers.Primary, len(group)),
		ClusterType:        ClusterTypeSemantic,
		Keywords:           keywords,
		PrimaryKeyword:     tiers.Primary,
		SecondaryKeywords:  tiers.Secondary,
		LongTailKeywords:   tiers.LongTail,

		AvgSearchVolume:      metrics.AvgSearchVolume,
		AvgKeywordDifficulty: metrics.AvgDifficulty,
		AvgCPC:               metrics.AvgCPC,
		TotalSearchVolume:    metrics.TotalSearchVolume,
		CompetitionLevel:     metrics.CompetitionLevel,

		ClusterSize:           len(group),
		ClusterDensity:        metrics.Density,
		SemanticSimilarity:    metrics.SemanticSimilarity,
		IntentConsistency:     metrics.IntentConsistency,
		ClusterQualityScore:   metrics.QualityScore,
		KeywordRelevanceScore: metrics.RelevanceScore,
		ContentPotentialScore: metrics.ContentPotentialScore,

		IsActive:    true,
		IsProcessed: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if collateral == nil {
		collateral = TemplateCollateral{}
	}
	c, err := collateral.Generate(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("failed to generate collateral: %w", err)
	}
	cluster.ContentIdeas = c.ContentIdeas
	cluster.ContentAngles = c.ContentAngles
	cluster.TargetAudiences = c.TargetAudiences
	return cluster, nil
}
