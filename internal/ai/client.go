// Package ai holds every component that talks to the language model:
// intent classification, context routing, answer synthesis, the
// multi-step agent and the iterative reasoning loop.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatCompleter is the slice of the OpenAI client we use. Tests plug in
// fakes; production passes *openai.Client.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// FunctionCall is the structured half of a model reply.
type FunctionCall struct {
	Name      string
	Arguments string
}

// Reply is the model response decoded once at the boundary: either a
// function call or free text, never both inspected downstream.
type Reply struct {
	Call *FunctionCall
	Text string
}

// Decode unmarshals the call arguments into out. Malformed JSON from
// the model is an error for the caller to absorb, not a crash.
func (f *FunctionCall) Decode(out any) error {
	if err := json.Unmarshal([]byte(f.Arguments), out); err != nil {
		return fmt.Errorf("malformed function arguments: %w", err)
	}
	return nil
}

type Client struct {
	api     ChatCompleter
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewClient(apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return newClient(openai.NewClient(apiKey), model, timeout, logger)
}

// NewClientWith injects a ChatCompleter directly. Used by tests.
func NewClientWith(api ChatCompleter, model string, timeout time.Duration, logger *zap.Logger) *Client {
	return newClient(api, model, timeout, logger)
}

func newClient(api ChatCompleter, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{api: api, model: model, timeout: timeout, logger: logger}
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// completeJSON requests a JSON object reply and decodes it into out.
func (c *Client) completeJSON(ctx context.Context, system, user string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("model returned no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		c.logger.Error("Failed to parse model JSON",
			zap.Error(err),
			zap.String("response", content))
		return fmt.Errorf("malformed model JSON: %w", err)
	}
	return nil
}

// completeTools offers the given tools. forcedTool pins the model to one
// function; empty means auto. The response comes back as a Reply union.
func (c *Client) completeTools(ctx context.Context, system, user string, tools []openai.Tool, forcedTool string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Tools: tools,
	}
	if forcedTool != "" {
		req.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: forcedTool},
		}
	} else {
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	message := resp.Choices[0].Message
	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0]
		return &Reply{Call: &FunctionCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}}, nil
	}
	return &Reply{Text: strings.TrimSpace(message.Content)}, nil
}
