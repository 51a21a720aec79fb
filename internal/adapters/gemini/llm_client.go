package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/inboxguard/inboxguard/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the ScoringOracle interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// ScoreResponse represents the structured response from the model
type ScoreResponse struct {
	Predicted     int       `json:"predicted"`
	Probabilities []float64 `json:"probabilities"`
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxTextSize:   maxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are a phishing detection system. Classify the following email text as phishing or legitimate.
Respond with a JSON object containing:
- predicted: integer, 1 if the text is phishing, 0 if it is legitimate
- probabilities: array of two numbers between 0 and 1, the probability of the legitimate class followed by the probability of the phishing class

Text:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Score classifies one email text and returns the predicted class and the
// class probability vector
func (c *GeminiClient) Score(ctx context.Context, text string) (int, []float64, error) {
	processedText := c.textProcessor.ProcessText(text, c.maxTextSize)

	prompt := fmt.Sprintf(c.promptFormat, processedText)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return 0, nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	scoreResponse, err := parseScoreResponse(responseText)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug("Scored text with Gemini",
		zap.String("model", c.modelName),
		zap.Int("predicted", scoreResponse.Predicted))

	return scoreResponse.Predicted, scoreResponse.Probabilities, nil
}

// parseScoreResponse parses the model output, tolerating prose around the
// JSON object
func parseScoreResponse(responseText string) (*ScoreResponse, error) {
	var scoreResponse ScoreResponse
	if err := json.Unmarshal([]byte(responseText), &scoreResponse); err != nil {
		// Try to extract JSON from the text response
		jsonStart := 0
		jsonEnd := len(responseText)

		// Find JSON start
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}

		// Find JSON end
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}

		if jsonStart < jsonEnd {
			jsonStr := responseText[jsonStart:jsonEnd]
			if err := json.Unmarshal([]byte(jsonStr), &scoreResponse); err != nil {
				return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
	}

	if scoreResponse.Predicted != 0 && scoreResponse.Predicted != 1 {
		return nil, fmt.Errorf("unexpected predicted class %d in model response", scoreResponse.Predicted)
	}

	return &scoreResponse, nil
}
