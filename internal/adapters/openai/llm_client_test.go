package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreResponsePlainJSON(t *testing.T) {
	resp, err := parseScoreResponse(`{"predicted": 1, "probabilities": [0.03, 0.97]}`)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Predicted)
	assert.Equal(t, []float64{0.03, 0.97}, resp.Probabilities)
}

func TestParseScoreResponseSurroundingProse(t *testing.T) {
	text := "Here is my assessment:\n{\"predicted\": 0, \"probabilities\": [0.88, 0.12]}\nLet me know if you need more."
	resp, err := parseScoreResponse(text)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Predicted)
	assert.Equal(t, []float64{0.88, 0.12}, resp.Probabilities)
}

func TestParseScoreResponseCodeFence(t *testing.T) {
	text := "```json\n{\"predicted\": 1, \"probabilities\": [0.2, 0.8]}\n```"
	resp, err := parseScoreResponse(text)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Predicted)
}

func TestParseScoreResponseNoJSON(t *testing.T) {
	_, err := parseScoreResponse("this message looks fine to me")
	assert.Error(t, err)
}

func TestParseScoreResponseUnexpectedClass(t *testing.T) {
	_, err := parseScoreResponse(`{"predicted": 2, "probabilities": [0.1, 0.2, 0.7]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected predicted class")
}
