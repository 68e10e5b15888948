package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/doot/pkg/llm"
)

func newTestClient(url string) *Client {
	return New(&llm.Config{
		BaseURL:   url,
		APIKey:    "test-key",
		Model:     "test-model",
		MaxTokens: 100,
	})
}

func TestCompleteTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model: %s", req.Model)
		}

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: responseMessage{Role: "assistant", Content: "hello there"}}},
			Usage:   responseUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello there" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestCompleteToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: responseMessage{
				Role: "assistant",
				ToolCalls: []llm.ToolCall{{
					ID:   "call-1",
					Type: "function",
					Function: llm.FunctionCall{
						Name:      "gmail_list_inbox",
						Arguments: json.RawMessage(`{"max":5}`),
					},
				}},
			}}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "list my email"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Function.Name != "gmail_list_inbox" {
		t.Errorf("unexpected tool name: %s", resp.ToolCalls[0].Function.Name)
	}
}

func TestCompleteToolResultMessageCarriesCallID(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: responseMessage{Role: "assistant", Content: "done"}}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "go"},
		{Role: llm.RoleAssistant, Tools: []llm.ToolCall{{ID: "call-9", Type: "function"}}},
		{Role: llm.RoleTool, Content: "result text", Tools: []llm.ToolCall{{ID: "call-9"}}},
	}
	if _, err := client.Complete(context.Background(), messages, nil); err != nil {
		t.Fatal(err)
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[2].ToolCallID != "call-9" {
		t.Errorf("expected tool_call_id call-9, got %q", captured.Messages[2].ToolCallID)
	}
	if captured.Messages[1].ToolCalls[0].ID != "call-9" {
		t.Errorf("assistant tool calls not forwarded")
	}
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
