package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/doot/internal/delivery"
	"github.com/user/doot/internal/schedule"
	"github.com/user/doot/internal/telegram"
	"github.com/user/doot/internal/trigger"
	"github.com/user/doot/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("route", false, "route each turn to a single capability instead of the delegating dispatcher")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the doot daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "doot.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)
	routeMode, _ := cmd.Flags().GetBool("route")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkspaceDir, 0755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	asst, err := buildAssistant(ctx, cfg)
	if err != nil {
		return err
	}
	var dispatcher trigger.Dispatcher = asst.dispatcher
	if routeMode {
		dispatcher = routed{d: asst.dispatcher}
	}

	// Delivery channels
	deliver := delivery.NewRegistry()
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.NewAdapter(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		deliver.Register("telegram", func(recipient, message string) error {
			chatID, err := strconv.ParseInt(recipient, 10, 64)
			if err != nil {
				return fmt.Errorf("bad telegram recipient %q: %w", recipient, err)
			}
			return adapter.Send(chatID, message)
		})
	} else {
		slog.Warn("telegram delivery disabled (no token)")
	}
	if asst.mailer != nil {
		mailer := asst.mailer
		deliver.Register("email", func(recipient, message string) error {
			return mailer.Send(ctx, recipient, "Message from doot", message)
		})
	}

	// Schedule
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("load schedule timezone: %w", err)
	}
	entries, err := schedule.LoadEntries(cfg.Schedule.Path)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	lastRuns := schedule.NewLastRuns(filepath.Join(cfg.DataDir, "schedule_last_runs.json"))
	checker := schedule.NewChecker(entries, lastRuns, loc)

	promptPath := cfg.Report.PromptPath
	if promptPath == "" {
		promptPath = filepath.Join(cfg.WorkspaceDir, "REPORT_PROMPT.md")
	}
	triggers := trigger.NewHandler(dispatcher, asst.sessions, deliver, asst.chats, asst.mailer, checker, trigger.Config{
		HeartbeatPath:    filepath.Join(cfg.WorkspaceDir, "HEARTBEAT.md"),
		ReportPromptPath: promptPath,
		ReportLocation:   cfg.Report.Location,
		ReportToEmail:    cfg.Report.ToEmail,
		ReportsDir:       filepath.Join(cfg.WorkspaceDir, "reports"),
	})

	queue := trigger.NewQueue(int64(cfg.MaxConcurrent))
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Heartbeat.IntervalSec > 0 {
		go triggers.RunLoop(ctx, queue, time.Duration(cfg.Heartbeat.IntervalSec)*time.Second)
	} else {
		slog.Warn("heartbeat disabled (interval_sec <= 0)")
	}

	// Cron-recurrence entries bypass the once-a-day checker.
	runner := schedule.NewCronRunner(loc)
	for _, e := range entries {
		if !e.IsCron() {
			continue
		}
		entry := e
		err := runner.Add(entry, func(e schedule.Entry) {
			job := trigger.NewJob("scheduled", func(ctx context.Context) error {
				return triggers.RunScheduled(ctx, e)
			})
			if err := queue.Enqueue(job); err != nil {
				slog.Warn("could not enqueue cron task", "task_id", e.TaskID, "error", err)
			}
		})
		if err != nil {
			slog.Warn("skipping bad cron entry", "task_id", entry.TaskID, "error", err)
		}
	}
	runner.Start()
	defer runner.Stop()

	// Webhook HTTP server
	srv := webhook.NewServer(queue, triggers, deliver, func(chatID int64) {
		asst.chats.Remember(chatID)
	})
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: srv,
	}
	go func() {
		slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	slog.Info("doot started",
		"data_dir", cfg.DataDir,
		"workspace_dir", cfg.WorkspaceDir,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"route_mode", routeMode,
		"heartbeat_interval_sec", cfg.Heartbeat.IntervalSec,
		"schedule_entries", len(entries),
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig.String())
		return nil
	}
}
