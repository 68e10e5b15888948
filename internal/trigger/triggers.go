package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/doot/internal/delivery"
	"github.com/user/doot/internal/gmail"
	"github.com/user/doot/internal/schedule"
	"github.com/user/doot/internal/session"
	"github.com/user/doot/pkg/llm"
)

// HeartbeatSentinel is the reply that means "nothing to report". A
// heartbeat answer equal to it, or starting with it, is suppressed.
const HeartbeatSentinel = "HEARTBEAT_OK"

const defaultChecklist = "Check email and calendar for anything needing attention. " +
	"If nothing requires the user's attention, reply with exactly HEARTBEAT_OK."

const heartbeatInstruction = "This is a scheduled heartbeat. Follow the checklist below. " +
	"Use your tools (email, calendar, memory) as needed. " +
	"If nothing requires the user's attention, reply with exactly HEARTBEAT_OK and nothing else. " +
	"Otherwise briefly summarize what needs attention.\n\n"

const pushPrompt = "A new email just arrived. Get the most recent email from my inbox, " +
	"summarize it clearly, and suggest specific actions I can take " +
	"(e.g. reply, archive, add to calendar, follow up later)."

const defaultReportPrompt = "Search the web for current weather in %[1]s and recent police or " +
	"public safety activity or incidents in %[1]s. Compile a brief daily report with dates " +
	"and sources. Use a neutral tone."

// Dispatcher is the slice of the orchestrator the trigger layer drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, conv []llm.Message) ([]llm.Message, error)
}

// ChatSource knows the remembered outbound chat, zero if none.
type ChatSource interface {
	ChatID() int64
}

// Config holds the file locations and report settings for trigger runs.
type Config struct {
	HeartbeatPath    string // HEARTBEAT.md checklist; default used when absent
	ReportPromptPath string // REPORT_PROMPT.md template; default used when absent
	ReportLocation   string // substituted for {location} / [location]
	ReportToEmail    string // report recipient; empty disables report email
	ReportsDir       string // where dated report files are written
}

// Handler runs the three trigger flows against one dispatcher and one
// shared session.
type Handler struct {
	dispatcher Dispatcher
	sessions   *session.Store
	deliver    *delivery.Registry
	chats      ChatSource
	retry      *RetryPolicy
	mailer     gmail.Client
	checker    *schedule.Checker
	config     Config
	now        func() time.Time
}

// NewHandler wires a trigger handler. mailer may be nil (disables report
// email); checker may be nil (disables scheduled tasks).
func NewHandler(dispatcher Dispatcher, sessions *session.Store, deliver *delivery.Registry, chats ChatSource, mailer gmail.Client, checker *schedule.Checker, config Config) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		sessions:   sessions,
		deliver:    deliver,
		chats:      chats,
		retry:      DefaultRetryPolicy(),
		mailer:     mailer,
		checker:    checker,
		config:     config,
		now:        time.Now,
	}
}

// Interactive runs one user turn: extend the session, dispatch, persist,
// and return the reply text for the caller to deliver.
func (h *Handler) Interactive(ctx context.Context, userText string) (string, error) {
	conv := append(h.sessions.Load(), llm.Message{Role: llm.RoleUser, Content: userText})

	appended, err := h.dispatcher.Dispatch(ctx, conv)
	if err != nil {
		return "", err
	}
	updated := append(conv, appended...)
	if err := h.sessions.Save(updated); err != nil {
		slog.Warn("could not persist session", "error", err)
	}
	return llm.LastAssistantText(appended), nil
}

// Push handles an inbound new-mail notification: a standalone turn (not
// merged into the session) summarizing the newest email, delivered to the
// remembered chat. The turn runs even with no known chat so agent memory
// still picks up what the mail triage learned; only delivery is skipped.
func (h *Handler) Push(ctx context.Context) error {
	if h.chats.ChatID() == 0 {
		slog.Info("push received with no delivery chat known, running without delivery")
	}

	appended, err := h.dispatcher.Dispatch(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: pushPrompt},
	})
	if err != nil {
		return fmt.Errorf("push turn: %w", err)
	}
	if reply := llm.LastAssistantText(appended); reply != "" {
		h.notify(reply)
	}
	return nil
}

// Heartbeat runs one proactive check-in: the session plus a synthesized
// checklist instruction, persisted back to the session. The reply is
// delivered unless it is the sentinel.
func (h *Handler) Heartbeat(ctx context.Context) error {
	conv := append(h.sessions.Load(), llm.Message{
		Role:    llm.RoleUser,
		Content: heartbeatInstruction + h.checklist(),
	})

	appended, err := h.dispatcher.Dispatch(ctx, conv)
	if err != nil {
		return fmt.Errorf("heartbeat turn: %w", err)
	}
	if err := h.sessions.Save(append(conv, appended...)); err != nil {
		slog.Warn("could not persist session", "error", err)
	}

	reply := strings.TrimSpace(llm.LastAssistantText(appended))
	if IsHeartbeatOK(reply) {
		slog.Info("heartbeat found nothing to report")
		return nil
	}
	h.notify(reply)
	return nil
}

// IsHeartbeatOK reports whether a heartbeat reply means "nothing to
// report": empty, exactly the sentinel, or starting with it.
func IsHeartbeatOK(reply string) bool {
	upper := strings.ToUpper(strings.TrimSpace(reply))
	return upper == "" || strings.HasPrefix(upper, HeartbeatSentinel)
}

func (h *Handler) checklist() string {
	if h.config.HeartbeatPath != "" {
		if data, err := os.ReadFile(h.config.HeartbeatPath); err == nil {
			if content := strings.TrimSpace(string(data)); content != "" {
				return content
			}
		} else if !os.IsNotExist(err) {
			slog.Warn("could not read heartbeat checklist", "path", h.config.HeartbeatPath, "error", err)
		}
	}
	return defaultChecklist
}

// RunScheduled runs one due schedule entry as a standalone turn, writes
// the dated report file, optionally emails it, and notifies the
// remembered chat. The last-run record is written only after everything
// needed for the report itself succeeded, so a failed run stays due.
func (h *Handler) RunScheduled(ctx context.Context, e schedule.Entry) error {
	today := h.now().Format("2006-01-02")

	appended, err := h.dispatcher.Dispatch(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: h.reportPrompt()},
	})
	if err != nil {
		return fmt.Errorf("scheduled task %s: %w", e.TaskID, err)
	}
	report := strings.TrimSpace(llm.LastAssistantText(appended))
	if report == "" {
		return fmt.Errorf("scheduled task %s: empty report", e.TaskID)
	}

	path := filepath.Join(h.config.ReportsDir, today+".md")
	if err := os.MkdirAll(h.config.ReportsDir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(report+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("report saved", "task_id", e.TaskID, "path", path)

	if e.Delivery == "email" && h.config.ReportToEmail != "" && h.mailer != nil {
		subject := "Daily report - " + today
		if err := h.mailer.Send(ctx, h.config.ReportToEmail, subject, report); err != nil {
			slog.Warn("could not email report", "task_id", e.TaskID, "error", err)
		} else {
			h.notify(fmt.Sprintf("Daily report sent to your email and saved to reports/%s.md.", today))
		}
	} else {
		h.notify(report)
	}

	if h.checker != nil {
		if err := h.checker.MarkRan(e, h.now()); err != nil {
			slog.Warn("could not record last run", "task_id", e.TaskID, "error", err)
		}
	}
	return nil
}

func (h *Handler) reportPrompt() string {
	location := h.config.ReportLocation
	if location == "" {
		location = "Providence, RI"
	}
	if h.config.ReportPromptPath != "" {
		if data, err := os.ReadFile(h.config.ReportPromptPath); err == nil {
			prompt := strings.TrimSpace(string(data))
			prompt = strings.ReplaceAll(prompt, "{location}", location)
			prompt = strings.ReplaceAll(prompt, "[location]", location)
			if prompt != "" {
				return prompt
			}
		} else if !os.IsNotExist(err) {
			slog.Warn("could not read report prompt", "path", h.config.ReportPromptPath, "error", err)
		}
	}
	return fmt.Sprintf(defaultReportPrompt, location)
}

// notify sends text to the remembered chat with delivery retries. No
// known chat, or exhausted retries, is logged and swallowed; proactive
// notifications must never fail their trigger.
func (h *Handler) notify(text string) {
	chatID := h.chats.ChatID()
	if chatID == 0 {
		return
	}
	destination := "telegram:" + strconv.FormatInt(chatID, 10)
	err := h.retry.Execute(func() error {
		return h.deliver.Deliver(destination, text)
	})
	if err != nil {
		slog.Warn("could not deliver notification", "destination", destination, "error", err)
	}
}

// RunLoop drives the heartbeat and schedule checks: every interval it
// enqueues one heartbeat job and one job per due schedule entry. It
// returns when ctx is cancelled.
func (h *Handler) RunLoop(ctx context.Context, queue *Queue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := queue.Enqueue(NewJob("heartbeat", h.Heartbeat)); err != nil {
				slog.Warn("could not enqueue heartbeat", "error", err)
			}
			if h.checker == nil {
				continue
			}
			for _, e := range h.checker.Due(h.now()) {
				entry := e
				job := NewJob("scheduled", func(ctx context.Context) error {
					return h.RunScheduled(ctx, entry)
				})
				if err := queue.Enqueue(job); err != nil {
					slog.Warn("could not enqueue scheduled task", "task_id", entry.TaskID, "error", err)
				}
			}
		}
	}
}
