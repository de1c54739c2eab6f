package trendtap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ExternalToolResult is a keyword batch stored by a research tool
type ExternalToolResult struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	WorkflowSessionID string          `json:"workflow_session_id"`
	ToolName          string          `json:"tool_name"`
	Keywords          []KeywordRecord `json:"keywords"`
	ClustersData      json.RawMessage `json:"clusters_data,omitempty"`
	TotalClusters     int             `json:"total_clusters"`
	IsProcessed       bool            `json:"is_processed"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ClusterFilter narrows ListClusters. Empty fields match everything.
type ClusterFilter struct {
	UserID            string
	WorkflowSessionID string
	ActiveOnly        bool
	Limit             int
}

// ClusterUpdate changes the mutable fields of a cluster; nil fields are left as is
type ClusterUpdate struct {
	IsActive         *bool
	IsUsedForContent *bool
	ContentIdeas     []string
	ContentAngles    []string
	TargetAudiences  []string
	ProcessingNotes  *string
}

// ClusterUpdateFromMap builds an update from a JSON-style patch. Keys outside
// the mutable set fail with ErrFieldNotUpdatable.
func ClusterUpdateFromMap(patch map[string]any) (ClusterUpdate, error) {
	var update ClusterUpdate
	for key, value := range patch {
		var err error
		switch key {
		case "is_active":
			update.IsActive, err = boolPtr(key, value)
		case "is_used_for_content":
			update.IsUsedForContent, err = boolPtr(key, value)
		case "content_ideas":
			update.ContentIdeas, err = stringSlice(key, value)
		case "content_angles":
			update.ContentAngles, err = stringSlice(key, value)
		case "target_audiences":
			update.TargetAudiences, err = stringSlice(key, value)
		case "processing_notes":
			s, ok := value.(string)
			if !ok {
				err = fmt.Errorf("%s must be a string", key)
			}
			update.ProcessingNotes = &s
		default:
			return ClusterUpdate{}, fmt.Errorf("%w: %s", ErrFieldNotUpdatable, key)
		}
		if err != nil {
			return ClusterUpdate{}, err
		}
	}
	return update, nil
}

func boolPtr(key string, value any) (*bool, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &b, nil
}

func stringSlice(key string, value any) ([]string, error) {
	switch t := value.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
}

// SQLiteStore keeps keyword batches and clusters in a SQLite database.
// It implements KeywordSource, ClusterStore and ClusterRepository.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and creates if needed) the database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases consistent
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS external_tool_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		workflow_session_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		keywords_json TEXT NOT NULL,
		clusters_json TEXT,
		total_clusters INTEGER NOT NULL DEFAULT 0,
		is_processed INTEGER NOT NULL DEFAULT 0,
		processed_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS keyword_clusters (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		workflow_session_id TEXT NOT NULL,
		source_result_id TEXT,
		cluster_name TEXT NOT NULL,
		quality_score REAL NOT NULL,
		is_active INTEGER NOT NULL,
		cluster_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clusters_user ON keyword_clusters(user_id);
	CREATE INDEX IF NOT EXISTS idx_clusters_session ON keyword_clusters(workflow_session_id);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateResult stores a keyword batch and returns it with its id set
func (s *SQLiteStore) CreateResult(ctx context.Context, result ExternalToolResult) (*ExternalToolResult, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	keywordsJSON, err := json.Marshal(result.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO external_tool_results (id, user_id, workflow_session_id, tool_name, keywords_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.UserID, result.WorkflowSessionID, result.ToolName, string(keywordsJSON), result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert result: %w", err)
	}
	return &result, nil
}

// GetResult loads a stored keyword batch
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*ExternalToolResult, error) {
	var (
		result       ExternalToolResult
		keywordsJSON string
		clustersJSON sql.NullString
		processedAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT id, user_id, workflow_session_id, tool_name, keywords_json, clusters_json,
		total_clusters, is_processed, processed_at, created_at
	FROM external_tool_results WHERE id = ?`, id).Scan(
		&result.ID, &result.UserID, &result.WorkflowSessionID, &result.ToolName, &keywordsJSON, &clustersJSON,
		&result.TotalClusters, &result.IsProcessed, &processedAt, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(keywordsJSON), &result.Keywords); err != nil {
		return nil, fmt.Errorf("failed to parse keywords for %s: %w", id, err)
	}
	if clustersJSON.Valid {
		result.ClustersData = json.RawMessage(clustersJSON.String)
	}
	if processedAt.Valid {
		t := processedAt.Time
		result.ProcessedAt = &t
	}
	return &result, nil
}

// LoadKeywords implements KeywordSource
func (s *SQLiteStore) LoadKeywords(ctx context.Context, resultID string) ([]KeywordRecord, error) {
	result, err := s.GetResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return result.Keywords, nil
}

// clusterSummary is the per-cluster entry written to clusters_json
type clusterSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"cluster_name"`
	PrimaryKeyword string  `json:"primary_keyword"`
	Size           int     `json:"cluster_size"`
	QualityScore   float64 `json:"cluster_quality_score"`
}

// MarkResultProcessed implements ClusterStore
func (s *SQLiteStore) MarkResultProcessed(ctx context.Context, resultID string, clusters []*Cluster) error {
	summaries := make([]clusterSummary, 0, len(clusters))
	for _, c := range clusters {
		summaries = append(summaries, clusterSummary{
			ID:             c.ID,
			Name:           c.ClusterName,
			PrimaryKeyword: c.PrimaryKeyword,
			Size:           c.ClusterSize,
			QualityScore:   c.ClusterQualityScore,
		})
	}
	clustersJSON, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster summaries: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE external_tool_results
	SET clusters_json = ?, total_clusters = ?, is_processed = 1, processed_at = ?
	WHERE id = ?`, string(clustersJSON), len(clusters), time.Now().UTC(), resultID)
	if err != nil {
		return fmt.Errorf("failed to update result: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrResultNotFound, resultID))
}

// SaveCluster implements ClusterStore
func (s *SQLiteStore) SaveCluster(ctx context.Context, cluster *Cluster) error {
	clusterJSON, err := json.Marshal(cluster)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO keyword_clusters (id, user_id, workflow_session_id, source_result_id, cluster_name,
		quality_score, is_active, cluster_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cluster.ID, cluster.UserID, cluster.WorkflowSessionID, nullString(cluster.SourceResultID), cluster.ClusterName,
		cluster.ClusterQualityScore, cluster.IsActive, string(clusterJSON), cluster.CreatedAt, cluster.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert cluster: %w", err)
	}
	return nil
}

// ListClusters returns clusters ordered by quality score, best first
func (s *SQLiteStore) ListClusters(ctx context.Context, filter ClusterFilter) ([]*Cluster, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.WorkflowSessionID != "" {
		where = append(where, "workflow_session_id = ?")
		args = append(args, filter.WorkflowSessionID)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}

	query := "SELECT cluster_json FROM keyword_clusters"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY quality_score DESC, created_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []*Cluster
	for rows.Next() {
		var clusterJSON string
		if err := rows.Scan(&clusterJSON); err != nil {
			return nil, err
		}
		var c Cluster
		if err := json.Unmarshal([]byte(clusterJSON), &c); err != nil {
			return nil, fmt.Errorf("failed to parse cluster: %w", err)
		}
		clusters = append(clusters, &c)
	}
	return clusters, rows.Err()
}

// GetCluster loads one cluster
func (s *SQLiteStore) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	var clusterJSON string
	err := s.db.QueryRowContext(ctx, "SELECT cluster_json FROM keyword_clusters WHERE id = ?", id).Scan(&clusterJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var c Cluster
	if err := json.Unmarshal([]byte(clusterJSON), &c); err != nil {
		return nil, fmt.Errorf("failed to parse cluster %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCluster applies update to the mutable fields of a cluster
func (s *SQLiteStore) UpdateCluster(ctx context.Context, id string, update ClusterUpdate) (*Cluster, error) {
	c, err := s.GetCluster(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.IsActive != nil {
		c.IsActive = *update.IsActive
	}
	if update.IsUsedForContent != nil {
		c.IsUsedForContent = *update.IsUsedForContent
	}
	if update.ContentIdeas != nil {
		c.ContentIdeas = update.ContentIdeas
	}
	if update.ContentAngles != nil {
		c.ContentAngles = update.ContentAngles
	}
	if update.TargetAudiences != nil {
		c.TargetAudiences = update.TargetAudiences
	}
	if update.ProcessingNotes != nil {
		c.ProcessingNotes = *update.ProcessingNotes
	}
	c.UpdatedAt = time.Now().UTC()

	clusterJSON, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cluster: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE keyword_clusters SET is_active = ?, cluster_json = ?, updated_at = ? WHERE id = ?`,
		c.IsActive, string(clusterJSON), c.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update cluster: %w", err)
	}
	if err := requireRow(res, fmt.Errorf("%w: %s", ErrClusterNotFound, id)); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCluster removes a cluster permanently
func (s *SQLiteStore) DeleteCluster(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM keyword_clusters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cluster: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrClusterNotFound, id))
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
