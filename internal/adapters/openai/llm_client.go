package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inboxguard/inboxguard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the ScoringOracle interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
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

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
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
	}
}

// Score classifies one email text and returns the predicted class and the
// class probability vector
func (c *OpenAIClient) Score(ctx context.Context, text string) (int, []float64, error) {
	processedText := c.textProcessor.ProcessText(text, c.maxTextSize)

	prompt := fmt.Sprintf(c.promptFormat, processedText)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return 0, nil, fmt.Errorf("empty response from OpenAI")
	}

	scoreResponse, err := parseScoreResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug("Scored text with OpenAI",
		zap.String("model", c.modelName),
		zap.Int("predicted", scoreResponse.Predicted),
		zap.String("processing_id", resp.ID))

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
