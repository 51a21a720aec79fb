package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/inboxguard/inboxguard/internal/utils"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the ScoringOracle interface using Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
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

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxTextSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
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
func (c *BedrockClient) Score(ctx context.Context, text string) (int, []float64, error) {
	processedText := c.textProcessor.ProcessText(text, c.maxTextSize)

	prompt := fmt.Sprintf(c.promptFormat, processedText)

	// Build the request payload for the model family
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	scoreResponse, err := parseScoreResponse(responseText)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug("Scored text with Bedrock",
		zap.String("model", c.modelID),
		zap.Int("predicted", scoreResponse.Predicted))

	return scoreResponse.Predicted, scoreResponse.Probabilities, nil
}

// extractResponseText pulls the generated text out of the model family
// specific response envelope
func (c *BedrockClient) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	// Try a generic envelope
	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}

	if genericResp.Output != "" {
		return genericResp.Output, nil
	}
	if genericResp.Text != "" {
		return genericResp.Text, nil
	}
	if genericResp.Response != "" {
		return genericResp.Response, nil
	}

	// Fall back to the raw response body
	return string(body), nil
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

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
