package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"pcap-analysis-api/report"
	"pcap-analysis-api/utils"
)

const maxTokens = 2048

// Generator produces structured reports from capture snippets. The concrete
// implementation talks to a hosted OpenAI-compatible endpoint; workers swap in
// a stub for tests.
type Generator interface {
	Analysis(ctx context.Context, modelKey, snippet string) (*report.AnalysisReport, error)
	Comparison(ctx context.Context, modelKey, snippetA, snippetB string) (*report.ComparisonReport, error)
}

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	api    *openai.Client
	logger *zap.Logger
}

// NewClient builds a client from OPENAI_API_KEY and the optional
// OPENAI_BASE_URL override for self-hosted gateways.
func NewClient(logger *zap.Logger) *Client {
	apiKey := utils.MustGetEnv("OPENAI_API_KEY")
	cfg := openai.DefaultConfig(apiKey)
	if base := utils.GetEnvOrDefault("OPENAI_BASE_URL", ""); base != "" {
		cfg.BaseURL = base
		logger.Sugar().Infow("Using custom LLM endpoint", "base_url", base)
	}
	return &Client{api: openai.NewClientWithConfig(cfg), logger: logger}
}

// requestShape is one candidate way of forming the upstream request. The
// accepted shape of the hosted endpoint is not statically known, so shapes are
// tried in ranked order with the first success short-circuiting.
type requestShape struct {
	name  string
	build func(model, system, user string) openai.ChatCompletionRequest
}

var requestShapes = []requestShape{
	{
		name: "json_object",
		build: func(model, system, user string) openai.ChatCompletionRequest {
			return openai.ChatCompletionRequest{
				Model: model,
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: user},
				},
			}
		},
	},
	{
		name: "plain_chat",
		build: func(model, system, user string) openai.ChatCompletionRequest {
			return openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: user},
				},
			}
		},
	},
	{
		name: "inline_user",
		build: func(model, system, user string) openai.ChatCompletionRequest {
			return openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: system + "\n\n" + user},
				},
			}
		},
	},
}

// complete runs the candidate request shapes in order and returns the first
// successful reply.
func (c *Client) complete(ctx context.Context, model, system, user string) (string, error) {
	sugar := c.logger.Sugar()
	var errs []error

	for i, shape := range requestShapes {
		req := shape.build(model, system, user)
		// Reasoning models reject MaxTokens in favor of MaxCompletionTokens
		if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
			req.MaxCompletionTokens = maxTokens
		} else {
			req.MaxTokens = maxTokens
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if i < len(requestShapes)-1 {
				utils.LLMShapeFallbacks.Add(1)
				sugar.Warnw("Request shape rejected, trying next",
					"shape", shape.name,
					"error", err)
			}
			errs = append(errs, fmt.Errorf("shape %s: %w", shape.name, err))
			continue
		}
		if len(resp.Choices) == 0 {
			errs = append(errs, fmt.Errorf("shape %s: empty choice list", shape.name))
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("all request shapes exhausted: %w", errors.Join(errs...))
}

// Analysis asks the model for a single-capture report.
func (c *Client) Analysis(ctx context.Context, modelKey, snippet string) (*report.AnalysisReport, error) {
	reply, err := c.complete(ctx, modelKey, analysisSystemPrompt(), analysisUserPrompt(snippet))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	return CoerceAnalysis(reply), nil
}

// Comparison asks the model for a two-capture report.
func (c *Client) Comparison(ctx context.Context, modelKey, snippetA, snippetB string) (*report.ComparisonReport, error) {
	reply, err := c.complete(ctx, modelKey, comparisonSystemPrompt(), comparisonUserPrompt(snippetA, snippetB))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	return CoerceComparison(reply), nil
}
