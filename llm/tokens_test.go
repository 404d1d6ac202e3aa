package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateEmpty(t *testing.T) {
	estimator := NewEstimator(ModelConfig{})
	require.Equal(t, 0, estimator.Estimate(""))
}

func TestEstimateAlphabeticText(t *testing.T) {
	estimator := &HeuristicEstimator{CharsPerToken: 4, Uplift: 1}
	// 40 runes / 4 chars per token
	require.Equal(t, 10, estimator.Estimate(strings.Repeat("abcd", 10)))
}

func TestEstimateAppliesUplift(t *testing.T) {
	plain := &HeuristicEstimator{CharsPerToken: 4, Uplift: 1}
	uplifted := &HeuristicEstimator{CharsPerToken: 4, Uplift: 1.05}
	text := strings.Repeat("word ", 100)
	require.Greater(t, uplifted.Estimate(text), plain.Estimate(text))
}

func TestEstimateIdeographicTextCountsSegments(t *testing.T) {
	estimator := &HeuristicEstimator{CharsPerToken: 4, Uplift: 1}
	// 8 ideographic runes, one segment each; char heuristic would say 2
	require.Equal(t, 8, estimator.Estimate("退款政策相關規定"))
}

func TestEstimateDefaults(t *testing.T) {
	estimator := NewEstimator(ModelConfig{})
	heuristic, ok := estimator.(*HeuristicEstimator)
	require.True(t, ok)
	require.Equal(t, DEFAULT_CHARS_PER_TOKEN, heuristic.CharsPerToken)
	require.Equal(t, DEFAULT_TOKEN_UPLIFT, heuristic.Uplift)
}
