// Package llm talks to hosted text-generation models. Every vendor is
// adapted to the same Request and Response shape, and decorators add
// retries, timeouts and request recording on top.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider generates text or JSON from a prompt.
type Provider interface {
	// Generate runs one request. With a Schema the provider asks the model
	// for conforming JSON and validates it; without one Content holds the
	// model's raw text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model the provider sends requests to.
	ModelID() string
}

// Named is implemented by providers that know which vendor serves them.
type Named interface {
	ProviderName() string
}

// providerName reports the vendor behind p, or its model id when p does
// not say.
func providerName(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.ProviderName()
	}
	return p.ModelID()
}

// Role tags who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Request describes a single generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, switches the provider to its native structured
	// output mode.
	Schema *Schema

	// MaxTokens caps the response. Zero means defaultMaxTokens.
	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the vendor default in place.
	Temperature float64
}

const defaultMaxTokens = 1024

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}

// Schema is a named JSON Schema. Name is kebab-case, e.g. "course-plan".
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Response is the output of one call.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

// Text returns Content as text. Content that arrived as a JSON string
// literal is unquoted.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	trimmed := strings.TrimSpace(string(r.Content))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return string(r.Content)
}

// Usage is token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func newUsage(in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
