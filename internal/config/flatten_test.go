package config

import (
	"reflect"
	"testing"
)

func TestFlatten_Nested(t *testing.T) {
	in := map[string]any{
		"log_level": "info",
		"llm": map[string]any{
			"provider": "anthropic",
			"model":    "claude-sonnet-4-20250514",
		},
		"telegram": map[string]any{
			"chat_id": int64(42),
		},
	}
	want := map[string]any{
		"log_level":        "info",
		"llm.provider":     "anthropic",
		"llm.model":        "claude-sonnet-4-20250514",
		"telegram.chat_id": int64(42),
	}
	got := Flatten(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten = %v, want %v", got, want)
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	in := map[string]any{
		"data_dir": "/tmp/doot",
		"schedule": map[string]any{
			"timezone": "America/New_York",
			"path":     "/tmp/doot/schedule.txt",
		},
		"report": map[string]any{
			"location": "Providence, RI",
		},
	}
	got := Unflatten(Flatten(in))
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestUnflatten_DeepKey(t *testing.T) {
	flat := map[string]any{"a.b.c": 1}
	want := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
		},
	}
	if got := Unflatten(flat); !reflect.DeepEqual(got, want) {
		t.Errorf("Unflatten = %v, want %v", got, want)
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"llm.api_key":         "sk-abcdef123456",
		"gemini.api_key":      "gk",
		"google.access_token": "",
		"telegram.token":      "bot-token-xyz9",
		"llm.provider":        "anthropic",
	}
	got := MaskSecrets(flat)
	if got["llm.api_key"] != "***3456" {
		t.Errorf("llm.api_key masked to %v", got["llm.api_key"])
	}
	if got["gemini.api_key"] != "***gk" {
		t.Errorf("short secret masked to %v", got["gemini.api_key"])
	}
	if got["google.access_token"] != "" {
		t.Errorf("empty secret changed to %v", got["google.access_token"])
	}
	if got["telegram.token"] != "***xyz9" {
		t.Errorf("telegram.token masked to %v", got["telegram.token"])
	}
	if got["llm.provider"] != "anthropic" {
		t.Errorf("non-secret value changed: %v", got["llm.provider"])
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("llm.api_key") {
		t.Error("llm.api_key should be secret")
	}
	if IsSecretKey("llm.model") {
		t.Error("llm.model should not be secret")
	}
}
