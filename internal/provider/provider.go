// Package provider abstracts the upstream completion capability using the
// Eino framework. Production backends and test fakes both satisfy Client.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// Client is a swappable completion backend. StreamCompletion returns a lazy,
// finite sequence of text fragments for the given prompt window.
type Client interface {
	// ID returns the backend identifier (e.g. "openai", "anthropic").
	ID() string

	// StreamCompletion starts a streaming completion over the turns.
	StreamCompletion(ctx context.Context, turns []types.Turn) (Stream, error)
}

// Stream is an ordered, one-directional, finite sequence of text fragments.
// Recv returns the next non-empty fragment, io.EOF on exhaustion, or the
// upstream error. Close releases the stream; it is safe after Recv failed.
type Stream interface {
	Recv() (string, error)
	Close()
}

// Options selects and configures a backend.
type Options struct {
	// Model is "provider/model", e.g. "openai/gpt-4o-mini".
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	MaxTokens       int
}

// ErrNoCredentials is returned when the selected backend has no API key
// configured. The server treats this as "chat service disabled" rather than
// a startup failure.
var ErrNoCredentials = errors.New("provider: no API key configured")

// New builds the backend selected by opts.Model.
func New(ctx context.Context, opts Options) (Client, error) {
	providerID, modelID, ok := strings.Cut(opts.Model, "/")
	if !ok {
		return nil, fmt.Errorf("provider: model %q is not in provider/model form", opts.Model)
	}

	switch providerID {
	case "openai":
		return newOpenAIClient(ctx, modelID, opts)
	case "anthropic":
		return newAnthropicClient(ctx, modelID, opts)
	default:
		return nil, fmt.Errorf("provider: unknown provider %q", providerID)
	}
}

// einoStream adapts an Eino stream reader to Stream.
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if err != nil {
			return "", err
		}
		if msg.Content == "" {
			// Chunks carrying only metadata (finish reason, usage).
			continue
		}
		return msg.Content, nil
	}
}

func (s *einoStream) Close() {
	s.reader.Close()
}

// toEinoMessages converts prompt turns to the Eino schema.
func toEinoMessages(turns []types.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		role := schema.Assistant
		switch t.Role {
		case types.RoleUser:
			role = schema.User
		case types.RoleSystem:
			role = schema.System
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: t.Content})
	}
	return msgs
}

// IsEOF reports whether err marks normal stream exhaustion.
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
