// Package textgen is the boundary to the external text-generation service.
// Callers only see a prompt going in and trimmed text coming out.
package textgen

import (
	"context"
	"errors"
)

// Roles accepted by Generate.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrNoChoices is returned when the service answers without any choice.
var ErrNoChoices = errors.New("textgen: response contained no choices")

// Message is one chat message of a request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator turns an ordered list of messages into a single text response.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, messages []Message) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// System returns a system-role message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user-role message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }
