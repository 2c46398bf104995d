// Package sentiment scores headline titles against a set of sentiment models
// served over HTTP and folds the scores into per-ticker cumulative tables.
package sentiment

import (
	"context"
	"fmt"
	"time"

	"news-sentiment-pipeline/internal/api"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/types"
)

// ErrorLabel is the sentinel label recorded when a model fails on a text.
const ErrorLabel = "ERROR"

// ErrorScore pairs the sentinel label with a zero confidence so a model
// failure never reads as a real verdict.
var ErrorScore = types.ModelScore{Label: ErrorLabel, Score: 0.0}

// Model scores a single text and reports its verdict.
type Model interface {
	Name() string
	Score(ctx context.Context, text string) (types.ModelScore, error)
}

// HTTPModel calls a hosted inference endpoint for one model.
type HTTPModel struct {
	name     string
	endpoint string
	client   *api.Client
}

// NewHTTPModel creates a model client for a hosted inference endpoint.
func NewHTTPModel(mc store.ModelConfig, timeout time.Duration) *HTTPModel {
	return &HTTPModel{
		name:     mc.Name,
		endpoint: mc.Endpoint,
		client: api.NewClient(
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
	}
}

func (m *HTTPModel) Name() string { return m.name }

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// Score posts the text to the inference endpoint. Endpoints answer either a
// flat score list or one list per input; both shapes are accepted.
func (m *HTTPModel) Score(ctx context.Context, text string) (types.ModelScore, error) {
	req := api.NewRequest("POST", m.endpoint).
		WithContext(ctx).
		WithBody(inferenceRequest{Inputs: text})

	resp, err := m.client.DoWithRetry(req, api.DefaultRetryConfig())
	if err != nil {
		return types.ModelScore{}, fmt.Errorf("model %s inference: %w", m.name, err)
	}

	var nested [][]types.ModelScore
	if err := resp.ParseJSON(&nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return best(nested[0]), nil
	}

	var flat []types.ModelScore
	if err := resp.ParseJSON(&flat); err != nil {
		return types.ModelScore{}, fmt.Errorf("model %s response: %w", m.name, err)
	}
	if len(flat) == 0 {
		return types.ModelScore{}, fmt.Errorf("model %s returned no scores", m.name)
	}
	return best(flat), nil
}

// best picks the highest-confidence candidate from a score list.
func best(scores []types.ModelScore) types.ModelScore {
	top := scores[0]
	for _, s := range scores[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	return top
}

// Truncate bounds a text to maxLen runes before inference. Model APIs reject
// over-length inputs; the stored title is never modified.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
