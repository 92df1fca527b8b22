// Package llm is the opaque prompt → text boundary used by every resolution unit.
package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrTimeout       = errors.New("LLM_TIMEOUT")
	ErrRequestFailed = errors.New("LLM_REQUEST_FAILED")
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

// Request is a single completion call.
type Request struct {
	Prompt  string                 `json:"prompt"`
	Context map[string]interface{} `json:"context,omitempty"`
	// JSON asks the provider for a JSON object when it supports a response MIME type.
	JSON bool   `json:"-"`
	Unit string `json:"-"`
	// Accept reports whether a response is usable. Caches keep only accepted responses.
	Accept func(text string) bool `json:"-"`
	// Fresh skips cached responses. An accepted fresh response still refreshes the cache.
	Fresh bool `json:"-"`
}

// Accepted applies req.Accept, treating a nil check as accepting everything.
func (r Request) Accepted(text string) bool {
	return r.Accept == nil || r.Accept(text)
}

// Client turns a prompt into text.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the outermost {...} block of a model response, stripping markdown fences
// and surrounding prose. It returns "" when no object is present.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return jsonObject.FindString(text)
}
