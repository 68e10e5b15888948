package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/doot/internal/tools"
	"github.com/user/doot/pkg/llm"
)

const defaultMaxRounds = 12

// runToolLoop runs the completion loop: call the model, execute any tool
// calls it makes, feed results back, repeat until it answers in plain text.
// The system prompt is prepended for the calls but excluded from the
// returned messages. Unknown tool names become readable tool output so the
// model can recover; unexpected execution errors propagate to the caller.
func runToolLoop(ctx context.Context, provider llm.Provider, system string, conv []llm.Message, registry *tools.Registry, maxRounds int) ([]llm.Message, error) {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}

	working := make([]llm.Message, 0, len(conv)+1)
	if system != "" {
		working = append(working, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	working = append(working, conv...)

	var appended []llm.Message
	llmTools := registry.AsLLMTools()
	slog.Debug("running tool loop", "tools", registry.Names(), "max_rounds", maxRounds)

	for round := 0; round < maxRounds; round++ {
		resp, err := provider.Complete(ctx, working, llmTools)
		if err != nil {
			return nil, fmt.Errorf("LLM call: %w", err)
		}

		assistant := llm.Message{
			Role:    llm.RoleAssistant,
			Content: resp.Content,
			Tools:   resp.ToolCalls,
		}
		working = append(working, assistant)
		appended = append(appended, assistant)

		if len(resp.ToolCalls) == 0 {
			return appended, nil
		}

		for _, tc := range resp.ToolCalls {
			var result string
			tool, ok := registry.Get(tc.Function.Name)
			if !ok {
				result = fmt.Sprintf("error: unknown tool %q", tc.Function.Name)
			} else {
				result, err = tool.Execute(ctx, tc.Function.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
				}
			}

			toolMsg := llm.Message{
				Role:    llm.RoleTool,
				Content: result,
				Tools:   []llm.ToolCall{{ID: tc.ID, Type: tc.Type, Function: tc.Function}},
			}
			working = append(working, toolMsg)
			appended = append(appended, toolMsg)
		}
	}

	return nil, fmt.Errorf("tool loop did not settle after %d rounds", maxRounds)
}
