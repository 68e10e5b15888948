package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/user/doot/internal/agent"
	"github.com/user/doot/internal/calendar"
	"github.com/user/doot/internal/config"
	"github.com/user/doot/internal/gemini"
	"github.com/user/doot/internal/gmail"
	"github.com/user/doot/internal/memory"
	"github.com/user/doot/internal/orchestrator"
	"github.com/user/doot/internal/session"
	"github.com/user/doot/internal/telegram"
	"github.com/user/doot/internal/workspace"
	"github.com/user/doot/pkg/llm"
	"github.com/user/doot/pkg/llm/anthropic"
	"github.com/user/doot/pkg/llm/openai"
)

// taskID keys the working memory of the long-running assistant.
const taskID = "main"

// assistant bundles the dispatcher stack shared by serve and chat.
type assistant struct {
	dispatcher *orchestrator.Dispatcher
	sessions   *session.Store
	mailer     gmail.Client
	chats      *telegram.ChatStore
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	lc := &llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}
	switch cfg.LLM.Provider {
	case "anthropic":
		return anthropic.New(lc), nil
	case "openai":
		return openai.New(lc), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

// buildAssistant wires the dispatcher, its capability agents, and the
// stores they share. Capabilities whose credentials are missing still get
// an agent; their API calls fail into tool output the planner can read.
func buildAssistant(ctx context.Context, cfg *config.Config) (*assistant, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		slog.Error("no LLM API key configured; completions will fail",
			"provider", cfg.LLM.Provider,
			"hint", "set llm.api_key or the provider's env var")
	}

	mem := memory.NewService(filepath.Join(cfg.DataDir, "memory"))
	wstore := workspace.NewStore(cfg.WorkspaceDir)
	sessions := session.NewStore(filepath.Join(cfg.DataDir, "session.json"))
	builder := orchestrator.NewContextBuilder(wstore,
		filepath.Join(cfg.WorkspaceDir, "agent_context.md"),
		cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)

	tokens := gmail.StaticToken(cfg.Google.AccessToken)
	mailClient := gmail.NewRESTClient(tokens)
	calClient := calendar.NewRESTClient(tokens)

	emailAgent := agent.NewEmailAgent(provider, mailClient, mem, cfg.Google.UserEmail, taskID)
	calAgent := agent.NewCalendarAgent(provider, calClient, mem, taskID)
	directAgent := agent.NewDirectAgent(provider, wstore)
	if cfg.MaxToolRounds > 0 {
		emailAgent.SetMaxRounds(cfg.MaxToolRounds)
		calAgent.SetMaxRounds(cfg.MaxToolRounds)
		directAgent.SetMaxRounds(cfg.MaxToolRounds)
	}

	agents := map[string]agent.Agent{
		"gmail":    emailAgent,
		"calendar": calAgent,
		"direct":   directAgent,
	}
	if cfg.Gemini.APIKey != "" {
		searcher, err := gemini.NewClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		agents["websearch"] = agent.NewWebsearchAgent(searcher)
	}

	dispatcher := orchestrator.NewDispatcher(provider, agents, mem, builder, taskID)
	dispatcher.SetMaxRounds(cfg.MaxToolRounds)

	var mailer gmail.Client
	if cfg.Google.AccessToken != "" {
		mailer = mailClient
	}

	chats := telegram.NewChatStore(filepath.Join(cfg.DataDir, "telegram_chat_id"), cfg.Telegram.ChatID)

	return &assistant{
		dispatcher: dispatcher,
		sessions:   sessions,
		mailer:     mailer,
		chats:      chats,
	}, nil
}

// routed exposes the single-capability routing mode behind the same
// Dispatch method the trigger layer expects.
type routed struct {
	d *orchestrator.Dispatcher
}

func (r routed) Dispatch(ctx context.Context, conv []llm.Message) ([]llm.Message, error) {
	return r.d.DispatchRoute(ctx, conv)
}
