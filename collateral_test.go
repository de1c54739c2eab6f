package trendtap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCollateral(t *testing.T) {
	c, err := TemplateCollateral{}.Generate(context.Background(), &Cluster{PrimaryKeyword: "coffee maker"})
	require.NoError(t, err)
	assert.Len(t, c.ContentIdeas, 5)
	assert.Len(t, c.ContentAngles, 3)
	assert.Len(t, c.TargetAudiences, 3)
	for _, item := range append(append(c.ContentIdeas, c.ContentAngles...), c.TargetAudiences...) {
		assert.Contains(t, item, "coffee maker")
	}
}

func TestCollateralSchema(t *testing.T) {
	schema, err := collateralSchema()
	require.NoError(t, err)

	obj, ok := schema.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", obj["type"])
	props, ok := obj["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "content_ideas")
	assert.Contains(t, props, "content_angles")
	assert.Contains(t, props, "target_audiences")
}

func chatCompletionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4.1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	require.NoError(t, err)
	return body
}

func TestOpenAICollateral_StructuredResponse(t *testing.T) {
	var requestBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &requestBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(t, `{"content_ideas":["Espresso at home"],"content_angles":["Budget"],"target_audiences":["Students"]}`))
	}))
	defer srv.Close()

	gen := NewOpenAICollateral("test-key", "", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	c, err := gen.Generate(context.Background(), &Cluster{
		ClusterName:    "Cluster 1: coffee maker",
		PrimaryKeyword: "coffee maker",
		Keywords:       []KeywordRecord{{Keyword: "coffee maker"}, {Keyword: "drip coffee maker"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Espresso at home"}, c.ContentIdeas)
	assert.Equal(t, []string{"Budget"}, c.ContentAngles)
	assert.Equal(t, []string{"Students"}, c.TargetAudiences)

	assert.Equal(t, defaultCollateralModel, requestBody["model"])
	format, ok := requestBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAICollateral_FallsBackOnError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
		}},
		{"malformed content", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(chatCompletionBody(t, "not json"))
		}},
		{"no ideas", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(chatCompletionBody(t, `{"content_ideas":[],"content_angles":[],"target_audiences":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			gen := NewOpenAICollateral("test-key", "gpt-4.1-mini", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
			c, err := gen.Generate(context.Background(), &Cluster{PrimaryKeyword: "coffee maker"})
			require.NoError(t, err)
			assert.Equal(t, "Complete Guide to coffee maker", c.ContentIdeas[0])
			assert.Len(t, c.ContentIdeas, 5)
		})
	}
}
