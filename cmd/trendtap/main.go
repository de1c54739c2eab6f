package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ideaburst/trendtap"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    trendtap.Config
	logger *zap.SugaredLogger
	store  *trendtap.SQLiteStore
)

func main() {
	// .env is optional; the environment wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:           "trendtap",
		Short:         "Keyword clustering for content research",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = trendtap.LoadConfig()
			if err != nil {
				return err
			}
			logger, err = trendtap.NewLogger(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			store, err = trendtap.OpenSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				if err := store.Close(); err != nil {
					logger.Warnw("failed to close database", "error", err)
				}
			}
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func readKeywordFile(path string) ([]trendtap.KeywordRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return trendtap.KeywordRecordsFromMaps(raws), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func importCmd() *cobra.Command {
	var userID, sessionID, toolName string
	cmd := &cobra.Command{
		Use:   "import <keywords.json>",
		Short: "Store a keyword batch exported by a research tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readKeywordFile(args[0])
			if err != nil {
				return err
			}
			result, err := store.CreateResult(cmd.Context(), trendtap.ExternalToolResult{
				UserID:            userID,
				WorkflowSessionID: sessionID,
				ToolName:          toolName,
				Keywords:          records,
			})
			if err != nil {
				return err
			}
			logger.Infow("stored keyword batch", "result_id", result.ID, "keywords", len(records))
			fmt.Println(result.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owning user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "workflow session id")
	cmd.Flags().StringVar(&toolName, "tool", "manual", "name of the tool that produced the batch")
	return cmd
}

func clusterCmd() *cobra.Command {
	var (
		userID, sessionID, resultID, file, method string
		nClusters, minSize, maxClusters           int
	)
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster a stored keyword batch or a keyword file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := trendtap.ClusterRequest{
				UserID:               userID,
				WorkflowSessionID:    sessionID,
				ExternalToolResultID: resultID,
				Method:               trendtap.ClusterMethod(method),
				NClusters:            nClusters,
				MinClusterSize:       minSize,
				MaxClusters:          maxClusters,
				TimeBudget:           cfg.TimeBudget,
			}
			if file != "" {
				records, err := readKeywordFile(file)
				if err != nil {
					return err
				}
				req.Keywords = records
			}

			service := trendtap.NewKeywordClusteringService(store, store, collateralGenerator(), logger)
			result, err := service.ClusterKeywords(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owning user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "workflow session id")
	cmd.Flags().StringVar(&resultID, "result-id", "", "stored keyword batch to cluster")
	cmd.Flags().StringVar(&file, "file", "", "JSON keyword file to cluster")
	cmd.Flags().StringVar(&method, "method", string(trendtap.MethodKMeans), "kmeans, dbscan or agglomerative")
	cmd.Flags().IntVar(&nClusters, "clusters", 0, "number of clusters (0 chooses automatically)")
	cmd.Flags().IntVar(&minSize, "min-size", trendtap.DefaultMinClusterSize, "minimum keywords per cluster")
	cmd.Flags().IntVar(&maxClusters, "max-clusters", trendtap.DefaultMaxClusters, "upper bound for automatic cluster count")
	return cmd
}

func collateralGenerator() trendtap.CollateralGenerator {
	if cfg.Collateral == "openai" {
		return trendtap.NewOpenAICollateral(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	}
	return trendtap.TemplateCollateral{}
}

func listCmd() *cobra.Command {
	var filter trendtap.ClusterFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored clusters, best quality first",
		RunE: func(cmd *cobra.Command, args []string) error {
			clusters, err := store.ListClusters(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(clusters)
		},
	}
	cmd.Flags().StringVar(&filter.UserID, "user", "", "filter by user id")
	cmd.Flags().StringVar(&filter.WorkflowSessionID, "session", "", "filter by workflow session id")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "only active clusters")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of clusters")
	return cmd
}

func updateCmd() *cobra.Command {
	var patchJSON string
	cmd := &cobra.Command{
		Use:   "update <cluster-id>",
		Short: "Update the mutable fields of a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch map[string]any
			if err := json.Unmarshal([]byte(patchJSON), &patch); err != nil {
				return fmt.Errorf("failed to parse --patch: %w", err)
			}
			update, err := trendtap.ClusterUpdateFromMap(patch)
			if err != nil {
				return err
			}
			cluster, err := store.UpdateCluster(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			return printJSON(cluster)
		},
	}
	cmd.Flags().StringVar(&patchJSON, "patch", "{}", `JSON patch, e.g. {"is_active": false}`)
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <cluster-id>",
		Short: "Delete a cluster permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.DeleteCluster(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.Infow("deleted cluster", "cluster_id", args[0])
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	var (
		filter trendtap.ClusterFilter
		out    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a markdown or HTML report of stored clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			clusters, err := store.ListClusters(cmd.Context(), filter)
			if err != nil {
				return err
			}

			var content string
			if strings.EqualFold(filepath.Ext(out), ".md") {
				content = trendtap.RenderReportMarkdown(clusters)
			} else {
				content, err = trendtap.RenderReportHTML("Keyword Clusters", clusters, time.Now())
				if err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			logger.Infow("report generated", "path", out, "clusters", len(clusters))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.UserID, "user", "", "filter by user id")
	cmd.Flags().StringVar(&filter.WorkflowSessionID, "session", "", "filter by workflow session id")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", true, "only active clusters")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of clusters")
	cmd.Flags().StringVar(&out, "out", "report.html", "output file (.md or .html)")
	return cmd
}
