// Package anthropic adapts the official Anthropic SDK to the llm.Provider
// interface. It is the default backend.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/user/doot/pkg/llm"
)

// Client implements llm.Provider on top of the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	config *llm.Config
}

// New creates an Anthropic-backed provider.
func New(config *llm.Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		config: config,
	}
}

// Complete sends a Messages API request and converts the response back to
// the provider-neutral format. System-role messages are hoisted into the
// request's system field since Anthropic does not accept them inline.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	system, converted := convertMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.config.Temperature))
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	return convertResponse(msg), nil
}

// convertMessages maps the neutral message list onto Anthropic params.
// Consecutive system messages are concatenated into one system string.
func convertMessages(messages []llm.Message) (string, []anthropic.MessageParam) {
	var system string
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case llm.RoleUser:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case llm.RoleAssistant:
			if len(msg.Tools) > 0 {
				blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Tools)+1)
				if msg.Content != "" {
					blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
				}
				for _, tc := range msg.Tools {
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    tc.ID,
							Name:  tc.Function.Name,
							Input: tc.Function.Arguments,
						},
					})
				}
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			} else {
				result = append(result, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}

		case llm.RoleTool:
			callID := ""
			if len(msg.Tools) > 0 {
				callID = msg.Tools[0].ID
			}
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(callID, msg.Content, false),
			))
		}
	}

	return system, result
}

func convertTools(tools []llm.Tool) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Function.Name,
				Description: anthropic.String(t.Function.Description),
				InputSchema: buildSchema(t.Function.Parameters),
			},
		}
	}
	return result
}

// buildSchema splits a JSON schema document into the fields the SDK expects.
func buildSchema(raw json.RawMessage) anthropic.ToolInputSchemaParam {
	var schema struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return anthropic.ToolInputSchemaParam{Type: "object"}
	}

	var props any
	if len(schema.Properties) > 0 {
		json.Unmarshal(schema.Properties, &props)
	}
	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: props,
		Required:   schema.Required,
	}
}

func convertResponse(msg *anthropic.Message) *llm.Response {
	var content string
	var toolCalls []llm.ToolCall

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			args, _ := b.Input.MarshalJSON()
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   b.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      b.Name,
					Arguments: args,
				},
			})
		}
	}

	return &llm.Response{
		Content:   content,
		ToolCalls: toolCalls,
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}
