package trendtap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const defaultCollateralModel = "gpt-4.1"

// OpenAICollateral asks a chat model for collateral using structured output.
// Any failure falls back to Fallback so cluster construction never depends on the model.
type OpenAICollateral struct {
	Client   openai.Client
	Model    string
	Fallback CollateralGenerator
	Logger   *zap.SugaredLogger
}

// NewOpenAICollateral builds a generator from an API key; extra options (such
// as option.WithBaseURL) are passed to the client
func NewOpenAICollateral(apiKey, model string, logger *zap.SugaredLogger, opts ...option.RequestOption) *OpenAICollateral {
	if model == "" {
		model = defaultCollateralModel
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAICollateral{
		Client:   openai.NewClient(opts...),
		Model:    model,
		Fallback: TemplateCollateral{},
		Logger:   logger,
	}
}

func (g *OpenAICollateral) Generate(ctx context.Context, cluster *Cluster) (Collateral, error) {
	c, err := g.generate(ctx, cluster)
	if err != nil {
		g.Logger.Warnw("collateral generation failed, using templates",
			"cluster", cluster.ClusterName, "error", err)
		return g.Fallback.Generate(ctx, cluster)
	}
	return c, nil
}

func (g *OpenAICollateral) generate(ctx context.Context, cluster *Cluster) (Collateral, error) {
	schema, err := collateralSchema()
	if err != nil {
		return Collateral{}, err
	}

	keywords := make([]string, 0, len(cluster.Keywords))
	for _, kw := range cluster.Keywords {
		keywords = append(keywords, kw.Keyword)
	}

	systemContent := `You are an SEO content strategist. Given a keyword cluster, propose:
1. Five concrete content ideas (titles)
2. Three editorial angles
3. Three target audiences
Keep every item short and specific to the keywords.`
	userContent := fmt.Sprintf("Primary keyword: %s\nCompetition: %s\nAverage monthly searches: %.0f\nKeywords:\n- %s",
		cluster.PrimaryKeyword, cluster.CompetitionLevel, cluster.AvgSearchVolume, strings.Join(keywords, "\n- "))

	chatCompletion, err := g.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemContent),
			openai.UserMessage(userContent),
		},
		Model:       openai.ChatModel(g.Model),
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.4),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "cluster_collateral",
					Description: openai.String("Content ideas, angles and audiences for a keyword cluster"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return Collateral{}, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(chatCompletion.Choices) == 0 || chatCompletion.Choices[0].Message.Content == "" {
		return Collateral{}, fmt.Errorf("no content in response")
	}

	var c Collateral
	if err := json.Unmarshal([]byte(chatCompletion.Choices[0].Message.Content), &c); err != nil {
		return Collateral{}, fmt.Errorf("failed to parse structured response: %w", err)
	}
	if len(c.ContentIdeas) == 0 {
		return Collateral{}, fmt.Errorf("response has no content ideas")
	}
	return c, nil
}

func collateralSchema() (any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(&Collateral{})
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}

	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return schema, nil
}
