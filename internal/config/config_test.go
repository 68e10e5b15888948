package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written on first run: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("default provider = %q, want anthropic", cfg.LLM.Provider)
	}
	if cfg.Heartbeat.IntervalSec != 1800 {
		t.Errorf("default heartbeat interval = %d, want 1800", cfg.Heartbeat.IntervalSec)
	}
	if cfg.Schedule.Timezone != "America/New_York" {
		t.Errorf("default timezone = %q", cfg.Schedule.Timezone)
	}
	if cfg.Report.Location != "Providence, RI" {
		t.Errorf("default report location = %q", cfg.Report.Location)
	}
}

func TestLoad_DerivedPaths(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkspaceDir != filepath.Join(cfg.DataDir, "workspace") {
		t.Errorf("WorkspaceDir = %q, want under DataDir", cfg.WorkspaceDir)
	}
	if cfg.Schedule.Path != filepath.Join(cfg.WorkspaceDir, "SCHEDULE.md") {
		t.Errorf("Schedule.Path = %q, want under WorkspaceDir", cfg.Schedule.Path)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:       "/tmp/test-data",
		LogLevel:      "debug",
		MaxConcurrent: 4,
		MaxToolRounds: 20,
	}
	original.LLM.Provider = "anthropic"
	original.LLM.APIKey = "sk-test-round-trip"
	original.LLM.Model = "claude-sonnet-4-20250514"
	original.LLM.MaxTokens = 4000
	original.LLM.Temperature = 0.5
	original.Gemini.APIKey = "gemini-key-123"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.ChatID = 777
	original.Heartbeat.IntervalSec = 600
	original.Schedule.Timezone = "America/Chicago"
	original.Report.Location = "Chicago, IL"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LLM.APIKey != original.LLM.APIKey {
		t.Errorf("LLM.APIKey mismatch: %v != %v", loaded.LLM.APIKey, original.LLM.APIKey)
	}
	if loaded.Telegram.ChatID != original.Telegram.ChatID {
		t.Errorf("Telegram.ChatID mismatch: %v != %v", loaded.Telegram.ChatID, original.Telegram.ChatID)
	}
	if loaded.Heartbeat.IntervalSec != original.Heartbeat.IntervalSec {
		t.Errorf("Heartbeat.IntervalSec mismatch: %v != %v", loaded.Heartbeat.IntervalSec, original.Heartbeat.IntervalSec)
	}
	if loaded.Schedule.Timezone != original.Schedule.Timezone {
		t.Errorf("Schedule.Timezone mismatch: %v != %v", loaded.Schedule.Timezone, original.Schedule.Timezone)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after Save")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "424242")
	t.Setenv("DOOT_REPORT_LOCATION", "Boston, MA")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("LLM.APIKey = %q, want env value", cfg.LLM.APIKey)
	}
	if cfg.Telegram.Token != "env-bot-token" {
		t.Errorf("Telegram.Token = %q, want env value", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != 424242 {
		t.Errorf("Telegram.ChatID = %d, want 424242", cfg.Telegram.ChatID)
	}
	if cfg.Report.Location != "Boston, MA" {
		t.Errorf("Report.Location = %q, want env value", cfg.Report.Location)
	}
}

func TestLoad_BadChatIDEnv(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-numeric TELEGRAM_CHAT_ID")
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	v, err := GetValue(path, "llm.provider")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "anthropic" {
		t.Errorf("llm.provider = %v, want anthropic", v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := GetValue(path, "no.such.key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetValue_StringAndNumeric(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := SetValue(path, "report.location", "Austin, TX"); err != nil {
		t.Fatalf("SetValue string failed: %v", err)
	}
	if err := SetValue(path, "heartbeat.interval_sec", "900"); err != nil {
		t.Fatalf("SetValue numeric failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Report.Location != "Austin, TX" {
		t.Errorf("Report.Location = %q after SetValue", cfg.Report.Location)
	}
	if cfg.Heartbeat.IntervalSec != 900 {
		t.Errorf("Heartbeat.IntervalSec = %d after SetValue", cfg.Heartbeat.IntervalSec)
	}
}

func TestListValues_WithMask(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "secret-token-abcd")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	flat, err := ListValues(path, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	got, ok := flat["telegram.token"].(string)
	if !ok {
		t.Fatalf("telegram.token missing from flat config")
	}
	if !strings.HasPrefix(got, "***") || strings.Contains(got, "secret-token") {
		t.Errorf("telegram.token not masked: %q", got)
	}
}
