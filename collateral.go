package trendtap

import (
	"context"
	"fmt"
)

// Collateral is the content material attached to a cluster
type Collateral struct {
	ContentIdeas    []string `json:"content_ideas" jsonschema:"description=Article or video ideas built around the cluster"`
	ContentAngles   []string `json:"content_angles" jsonschema:"description=Editorial angles for covering the cluster"`
	TargetAudiences []string `json:"target_audiences" jsonschema:"description=Audiences searching for these keywords"`
}

// CollateralGenerator produces collateral for a freshly built cluster.
// Metrics and keyword tiers are already set when Generate is called.
type CollateralGenerator interface {
	Generate(ctx context.Context, cluster *Cluster) (Collateral, error)
}

// TemplateCollateral fills fixed templates with the primary keyword
type TemplateCollateral struct{}

func (TemplateCollateral) Generate(_ context.Context, cluster *Cluster) (Collateral, error) {
	kw := cluster.PrimaryKeyword
	return Collateral{
		ContentIdeas: []string{
			fmt.Sprintf("Complete Guide to %s", kw),
			fmt.Sprintf("Top 10 %s Tips for Beginners", kw),
			fmt.Sprintf("%s: Common Mistakes to Avoid", kw),
			fmt.Sprintf("How to Choose the Right %s", kw),
			fmt.Sprintf("%s Trends to Watch This Year", kw),
		},
		ContentAngles: []string{
			fmt.Sprintf("Beginner-friendly introduction to %s", kw),
			fmt.Sprintf("Expert deep dive into %s", kw),
			fmt.Sprintf("Cost and value comparison for %s", kw),
		},
		TargetAudiences: []string{
			fmt.Sprintf("Beginners interested in %s", kw),
			fmt.Sprintf("Professionals working with %s", kw),
			fmt.Sprintf("Buyers researching %s", kw),
		},
	}, nil
}
