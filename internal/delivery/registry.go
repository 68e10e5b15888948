// Package delivery routes outbound reply text to its channel. Destinations
// are strings like "telegram:12345" or "email:user@example.com"; the prefix
// picks the handler, the remainder identifies the recipient.
package delivery

import (
	"fmt"
	"strings"
	"sync"
)

// Handler sends a message to one recipient on its channel.
type Handler func(recipient, message string) error

// Registry routes messages to the handler registered for the destination's
// channel prefix.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for a channel, e.g. "telegram".
func (r *Registry) Register(channel string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = handler
}

// Deliver splits "channel:recipient" and calls the channel's handler.
// A destination without a colon is treated as a bare channel name.
func (r *Registry) Deliver(destination, message string) error {
	channel, recipient := destination, ""
	if idx := strings.Index(destination, ":"); idx >= 0 {
		channel, recipient = destination[:idx], destination[idx+1:]
	}

	r.mu.RLock()
	handler, ok := r.handlers[channel]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no delivery handler for channel: %s", channel)
	}
	return handler(recipient, message)
}
