// Package webhook exposes the inbound HTTP surface: the mail provider's
// push notifications and the chat platform's updates. Both endpoints
// acknowledge with 200 immediately and hand the real work to the trigger
// queue, so upstream retry logic never sees a slow model call.
package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/doot/internal/delivery"
	"github.com/user/doot/internal/trigger"
)

// Server is the HTTP handler for the inbound endpoints.
type Server struct {
	mux      *http.ServeMux
	queue    *trigger.Queue
	triggers *trigger.Handler
	deliver  *delivery.Registry
	remember func(chatID int64)
}

// NewServer creates the webhook server. remember records a chat as the
// default proactive-delivery destination.
func NewServer(queue *trigger.Queue, triggers *trigger.Handler, deliver *delivery.Registry, remember func(chatID int64)) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		queue:    queue,
		triggers: triggers,
		deliver:  deliver,
		remember: remember,
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /webhook/gmail", s.handleGmailPush)
	s.mux.HandleFunc("POST /webhook/telegram", s.handleTelegramUpdate)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// gmailEnvelope is the provider's Pub/Sub push body.
type gmailEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// gmailNotification is the decoded message data.
type gmailNotification struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryID    json.Number `json:"historyId"`
}

// handleGmailPush acknowledges every notification with 200 so the
// provider does not retry, then processes any decodable payload in the
// background.
func (s *Server) handleGmailPush(w http.ResponseWriter, r *http.Request) {
	var envelope gmailEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		slog.Warn("gmail push with invalid JSON", "error", err)
		s.writeOK(w, nil)
		return
	}

	payload := decodeNotification(envelope.Message.Data)
	if payload == nil {
		slog.Info("gmail push with no decodable payload",
			"subscription", envelope.Subscription, "message_id", envelope.Message.MessageID)
		s.writeOK(w, nil)
		return
	}
	slog.Info("gmail push received",
		"email", payload.EmailAddress, "history_id", payload.HistoryID,
		"subscription", envelope.Subscription, "message_id", envelope.Message.MessageID)

	job := trigger.NewJob("push", func(ctx context.Context) error {
		return s.triggers.Push(ctx)
	})
	if err := s.queue.Enqueue(job); err != nil {
		slog.Warn("could not enqueue push job", "error", err)
	}
	s.writeOK(w, payload)
}

func (s *Server) writeOK(w http.ResponseWriter, payload *gmailNotification) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"ok": true}
	if payload != nil {
		body["emailAddress"] = payload.EmailAddress
		body["historyId"] = payload.HistoryID
	}
	json.NewEncoder(w).Encode(body)
}

// decodeNotification decodes the base64url message data, tolerating both
// padded and unpadded encodings.
func decodeNotification(data string) *gmailNotification {
	if data == "" {
		return nil
	}
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			slog.Warn("gmail push data is not base64url", "error", err)
			return nil
		}
	}
	var payload gmailNotification
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("gmail push data is not JSON", "error", err)
		return nil
	}
	return &payload
}

// telegramUpdate is the chat platform's update envelope.
type telegramUpdate struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// handleTelegramUpdate acknowledges with 200, remembers the chat as the
// proactive-delivery default, and runs the text as an interactive turn in
// the background with the reply sent back to the same chat.
func (s *Server) handleTelegramUpdate(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)

	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("telegram update with invalid JSON", "error", err)
		return
	}
	chatID := update.Message.Chat.ID
	text := update.Message.Text
	if chatID == 0 || text == "" {
		return
	}
	s.remember(chatID)

	destination := "telegram:" + strconv.FormatInt(chatID, 10)
	job := trigger.NewJob("interactive", func(ctx context.Context) error {
		reply, err := s.triggers.Interactive(ctx, text)
		if err != nil {
			return err
		}
		if reply == "" {
			return nil
		}
		return s.deliver.Deliver(destination, reply)
	})
	job.OnError = func(message string) {
		if err := s.deliver.Deliver(destination, message); err != nil {
			slog.Warn("could not deliver apology", "destination", destination, "error", err)
		}
	}
	if err := s.queue.Enqueue(job); err != nil {
		slog.Warn("could not enqueue interactive job", "error", err)
	}
}
