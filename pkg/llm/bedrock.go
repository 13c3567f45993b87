package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// anthropicVersion is the Bedrock API version for Anthropic model payloads.
const anthropicVersion = "bedrock-2023-05-31"

// BedrockClient invokes Anthropic models hosted on Amazon Bedrock. This is
// the default provider, matching the AI service the catalog lives next to.
type BedrockClient struct {
	client      *bedrockruntime.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewBedrockClient creates a Bedrock runtime client for the given region
// and static credential pair.
func NewBedrockClient(cfg *Config, logger *zap.Logger) (*BedrockClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	client := bedrockruntime.New(bedrockruntime.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		),
	})

	return &BedrockClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.maxTokensOrDefault(),
		temperature: cfg.Temperature,
		logger:      logger.Named("bedrock"),
	}, nil
}

// bedrockRequest is the Anthropic messages payload for InvokeModel.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Temperature      float64          `json:"temperature"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateMetadata implements Client.
func (c *BedrockClient) GenerateMetadata(ctx context.Context, prompt string, systemMessage string) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		System:           systemMessage,
		Temperature:      c.temperature,
		Messages: []bedrockMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("Bedrock request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		c.logger.Error("Bedrock request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classifyBedrockError(err, c.model)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", NewError(ErrorTypeUnknown, "no text content in response", false, nil)
	}

	c.logger.Info("Bedrock request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// Model implements Client.
func (c *BedrockClient) Model() string {
	return c.model
}

// classifyBedrockError maps typed Bedrock exceptions onto structured errors
// before falling back to string classification.
func classifyBedrockError(err error, model string) *Error {
	var (
		throttled   *brtypes.ThrottlingException
		quota       *brtypes.ServiceQuotaExceededException
		notReady    *brtypes.ModelNotReadyException
		modelTimout *brtypes.ModelTimeoutException
		denied      *brtypes.AccessDeniedException
		validation  *brtypes.ValidationException
		internal    *brtypes.InternalServerException
	)

	var e *Error
	switch {
	case errors.As(err, &throttled), errors.As(err, &quota):
		e = NewError(ErrorTypeThrottle, "throttled", true, err)
	case errors.As(err, &notReady), errors.As(err, &modelTimout):
		e = NewError(ErrorTypeEndpoint, "model not ready", true, err)
	case errors.As(err, &denied):
		e = NewError(ErrorTypeAuth, "access denied", false, err)
	case errors.As(err, &validation):
		e = NewError(ErrorTypeModel, "invalid model request", false, err)
	case errors.As(err, &internal):
		e = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		e = ClassifyError(err)
	}
	e.Model = model
	return e
}
