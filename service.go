package trendtap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMinClusterSize = 3
	DefaultMaxClusters    = 20
)

// KeywordSource loads keyword batches stored by the research tools
type KeywordSource interface {
	LoadKeywords(ctx context.Context, resultID string) ([]KeywordRecord, error)
}

// ClusterStore persists clusters and marks the stored batch they came from
type ClusterStore interface {
	SaveCluster(ctx context.Context, cluster *Cluster) error
	MarkResultProcessed(ctx context.Context, resultID string, clusters []*Cluster) error
}

// ClusterRepository serves persisted clusters back to callers
type ClusterRepository interface {
	ListClusters(ctx context.Context, filter ClusterFilter) ([]*Cluster, error)
	GetCluster(ctx context.Context, id string) (*Cluster, error)
	UpdateCluster(ctx context.Context, id string, update ClusterUpdate) (*Cluster, error)
	DeleteCluster(ctx context.Context, id string) error
}

// ClusterRequest describes one clustering run. Exactly one of
// ExternalToolResultID and Keywords must be set.
type ClusterRequest struct {
	UserID               string
	WorkflowSessionID    string
	ExternalToolResultID string
	Keywords             []KeywordRecord

	Method         ClusterMethod // default kmeans
	NClusters      int           // 0 selects k with ChooseK
	MinClusterSize int           // default 3
	MaxClusters    int           // default 20

	// TimeBudget bounds the clustering computation; zero means unbounded
	TimeBudget time.Duration
}

// ClusterMetadata summarises a clustering run
type ClusterMetadata struct {
	Method                 ClusterMethod `json:"method"`
	NClusters              int           `json:"n_clusters"`
	TotalKeywordsIn        int           `json:"total_keywords_in"`
	TotalKeywordsClustered int           `json:"total_keywords_clustered"`
}

// ClusterResult holds the persisted clusters of a run.
// Clusters may be empty even when no error is returned.
type ClusterResult struct {
	Clusters []*Cluster      `json:"clusters"`
	Metadata ClusterMetadata `json:"metadata"`
}

// KeywordClusteringService clusters keyword batches and persists the result
type KeywordClusteringService struct {
	source     KeywordSource
	store      ClusterStore
	collateral CollateralGenerator
	log        *zap.SugaredLogger
}

// NewKeywordClusteringService wires the collaborators. A nil collateral
// generator means TemplateCollateral, a nil logger discards output.
func NewKeywordClusteringService(source KeywordSource, store ClusterStore, collateral CollateralGenerator, log *zap.SugaredLogger) *KeywordClusteringService {
	if collateral == nil {
		collateral = TemplateCollateral{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &KeywordClusteringService{source: source, store: store, collateral: collateral, log: log}
}

// ClusterKeywords resolves the keyword source, clusters the keywords and
// persists one record per surviving group. A cluster that fails to build or
// store is logged and skipped.
func (s *KeywordClusteringService) ClusterKeywords(ctx context.Context, req ClusterRequest) (*ClusterResult, error) {
	req = withDefaults(req)
	if _, err := ParseClusterMethod(string(req.Method)); err != nil {
		return nil, err
	}

	records, err := s.resolveKeywords(ctx, req)
	if err != nil {
		return nil, err
	}

	prepared := Prepare(records)
	if len(prepared) == 0 {
		return nil, ErrEmptyInput
	}

	s.log.Infow("clustering keywords",
		"user_id", req.UserID,
		"workflow_session_id", req.WorkflowSessionID,
		"method", req.Method,
		"keywords", len(prepared))

	run, err := s.computeGroups(ctx, prepared, req)
	if err != nil {
		return nil, err
	}

	owner := ClusterContext{
		UserID:            req.UserID,
		WorkflowSessionID: req.WorkflowSessionID,
		SourceResultID:    req.ExternalToolResultID,
	}

	result := &ClusterResult{
		Clusters: []*Cluster{},
		Metadata: ClusterMetadata{
			Method:          req.Method,
			NClusters:       run.k,
			TotalKeywordsIn: len(prepared),
		},
	}
	for _, group := range run.groups {
		result.Metadata.TotalKeywordsClustered += len(group)
	}

	for i, group := range run.groups {
		cluster, err := s.persistGroup(ctx, group, i, owner)
		if err != nil {
			var perr *ClusterPersistenceError
			if errors.As(err, &perr) {
				s.log.Errorw("failed to persist cluster, skipping",
					"index", perr.Index, "cluster", perr.Name, "size", len(group), "error", perr.Err)
				continue
			}
			return nil, err
		}
		result.Clusters = append(result.Clusters, cluster)
	}

	if req.ExternalToolResultID != "" {
		if err := s.store.MarkResultProcessed(ctx, req.ExternalToolResultID, result.Clusters); err != nil {
			return nil, fmt.Errorf("failed to mark result %s processed: %w", req.ExternalToolResultID, err)
		}
	}

	s.log.Infow("keyword clustering complete",
		"clusters", len(result.Clusters),
		"keywords_in", result.Metadata.TotalKeywordsIn,
		"keywords_clustered", result.Metadata.TotalKeywordsClustered)
	return result, nil
}

func withDefaults(req ClusterRequest) ClusterRequest {
	if req.Method == "" {
		req.Method = MethodKMeans
	}
	if req.MinClusterSize <= 0 {
		req.MinClusterSize = DefaultMinClusterSize
	}
	if req.MaxClusters <= 0 {
		req.MaxClusters = DefaultMaxClusters
	}
	return req
}

func (s *KeywordClusteringService) resolveKeywords(ctx context.Context, req ClusterRequest) ([]KeywordRecord, error) {
	switch {
	case req.ExternalToolResultID != "" && len(req.Keywords) > 0:
		return nil, ErrAmbiguousSource
	case req.ExternalToolResultID != "":
		records, err := s.source.LoadKeywords(ctx, req.ExternalToolResultID)
		if err != nil {
			return nil, fmt.Errorf("failed to load keywords for result %s: %w", req.ExternalToolResultID, err)
		}
		if len(records) == 0 {
			return nil, ErrEmptyInput
		}
		return records, nil
	case len(req.Keywords) > 0:
		return req.Keywords, nil
	default:
		return nil, ErrEmptyInput
	}
}

type groupRun struct {
	k      int
	groups [][]PreparedKeyword
	err    error
}

// computeGroups runs the CPU-bound phase off the calling goroutine so the
// time budget and ctx can be enforced.
func (s *KeywordClusteringService) computeGroups(ctx context.Context, prepared []PreparedKeyword, req ClusterRequest) (groupRun, error) {
	if err := ctx.Err(); err != nil {
		return groupRun{}, err
	}

	runCtx := ctx
	if req.TimeBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.TimeBudget)
		defer cancel()
	}

	start := time.Now()
	done := make(chan groupRun, 1)
	go func() {
		done <- clusterGroups(prepared, req)
	}()

	select {
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return groupRun{}, ctx.Err()
		}
		return groupRun{}, fmt.Errorf("%w after %v", ErrTimeBudgetExceeded, req.TimeBudget)
	case run := <-done:
		if run.err != nil {
			return groupRun{}, run.err
		}
		if elapsed := time.Since(start); req.TimeBudget > 0 && elapsed > req.TimeBudget {
			return groupRun{}, fmt.Errorf("%w: took %v, budget %v", ErrTimeBudgetExceeded, elapsed, req.TimeBudget)
		}
		return run, nil
	}
}

func clusterGroups(prepared []PreparedKeyword, req ClusterRequest) groupRun {
	k := req.NClusters
	if req.Method != MethodDBSCAN && k <= 0 {
		k = ChooseK(prepared, req.MaxClusters)
	}

	labels, err := AssignLabels(prepared, req.Method, k, req.MinClusterSize)
	if err != nil {
		return groupRun{err: err}
	}

	all := GroupByLabel(prepared, labels)
	if req.Method == MethodDBSCAN {
		k = len(all)
	}

	var kept [][]PreparedKeyword
	for _, group := range all {
		if len(group) >= req.MinClusterSize {
			kept = append(kept, group)
		}
	}
	return groupRun{k: k, groups: kept}
}

func (s *KeywordClusteringService) persistGroup(ctx context.Context, group []PreparedKeyword, index int, owner ClusterContext) (*Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cluster, err := BuildCluster(ctx, group, index, owner, s.collateral)
	if err != nil {
		return nil, &ClusterPersistenceError{Index: index, Name: fmt.Sprintf("group %d", index+1), Err: err}
	}
	if err := s.store.SaveCluster(ctx, cluster); err != nil {
		return nil, &ClusterPersistenceError{Index: index, Name: cluster.ClusterName, Err: err}
	}
	return cluster, nil
}
