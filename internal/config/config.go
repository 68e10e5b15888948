package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	WorkspaceDir  string `json:"workspace_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	MaxToolRounds int    `json:"max_tool_rounds"`
	LLM           struct {
		Provider         string  `json:"provider"`
		BaseURL          string  `json:"base_url"`
		APIKey           string  `json:"api_key"`
		Model            string  `json:"model"`
		MaxTokens        int     `json:"max_tokens"`
		Temperature      float32 `json:"temperature"`
		MaxContextTokens int     `json:"max_context_tokens"`
		OutputReserve    int     `json:"output_reserve"`
	} `json:"llm"`
	Gemini struct {
		APIKey string `json:"api_key"`
	} `json:"gemini"`
	Google struct {
		AccessToken string `json:"access_token"`
		UserEmail   string `json:"user_email"`
	} `json:"google"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
	Heartbeat struct {
		IntervalSec int `json:"interval_sec"`
	} `json:"heartbeat"`
	Schedule struct {
		Path     string `json:"path"`
		Timezone string `json:"timezone"`
	} `json:"schedule"`
	Report struct {
		Location   string `json:"location"`
		ToEmail    string `json:"to_email"`
		PromptPath string `json:"prompt_path"`
	} `json:"report"`
	HTTP struct {
		Listen string `json:"listen"`
	} `json:"http"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".doot"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.MaxToolRounds = 12
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Model = "claude-sonnet-4-20250514"
	cfg.LLM.MaxTokens = 4096
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxContextTokens = 100000
	cfg.LLM.OutputReserve = 4096
	cfg.Heartbeat.IntervalSec = 1800
	cfg.Schedule.Timezone = "America/New_York"
	cfg.Report.Location = "Providence, RI"
	cfg.HTTP.Listen = ":8090"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.LLM.Provider == "anthropic" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if tok := os.Getenv("GOOGLE_ACCESS_TOKEN"); tok != "" {
		cfg.Google.AccessToken = tok
	}
	if email := os.Getenv("GOOGLE_USER_EMAIL"); email != "" {
		cfg.Google.UserEmail = email
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if dir := os.Getenv("DOOT_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if dir := os.Getenv("DOOT_WORKSPACE_DIR"); dir != "" {
		cfg.WorkspaceDir = dir
	}
	if tz := os.Getenv("DOOT_SCHEDULE_TZ"); tz != "" {
		cfg.Schedule.Timezone = tz
	}
	if p := os.Getenv("DOOT_SCHEDULE_PATH"); p != "" {
		cfg.Schedule.Path = p
	}
	if sec := os.Getenv("DOOT_HEARTBEAT_INTERVAL_SEC"); sec != "" {
		n, err := strconv.Atoi(sec)
		if err != nil {
			return nil, fmt.Errorf("parse DOOT_HEARTBEAT_INTERVAL_SEC: %w", err)
		}
		cfg.Heartbeat.IntervalSec = n
	}
	if p := os.Getenv("DOOT_REPORT_PROMPT_PATH"); p != "" {
		cfg.Report.PromptPath = p
	}
	if loc := os.Getenv("DOOT_REPORT_LOCATION"); loc != "" {
		cfg.Report.Location = loc
	}
	if email := os.Getenv("DOOT_REPORT_TO_EMAIL"); email != "" {
		cfg.Report.ToEmail = email
	}

	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = filepath.Join(cfg.DataDir, "workspace")
	}
	if cfg.Schedule.Path == "" {
		cfg.Schedule.Path = filepath.Join(cfg.WorkspaceDir, "SCHEDULE.md")
	}

	return cfg, nil
}

// Save writes the config to path atomically, creating the parent
// directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts the config into a generic nested map via JSON.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the config as a flat dot-keyed map. When mask is
// true, secret values are masked for display.
func ListValues(path string, mask bool) (map[string]any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue returns the value for a single dot-separated key.
func GetValue(path, key string) (any, error) {
	flat, err := ListValues(path, false)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue updates a single dot-separated key in the config file. The
// raw value is parsed as JSON when possible (numbers, booleans) and
// falls back to a plain string.
func SetValue(path, key, raw string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	m, err := ToMap(cfg)
	if err != nil {
		return err
	}
	flat := Flatten(m)

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	flat[key] = value

	nested := Unflatten(flat)
	data, err := json.Marshal(nested)
	if err != nil {
		return err
	}
	updated := &Config{}
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("apply config value: %w", err)
	}
	return Save(path, updated)
}
