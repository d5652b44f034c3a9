// Package chat implements the streaming session controller: connection
// admission, conversation resolution, history assembly, and the fragment
// accumulation protocol that turns an upstream token stream into ordered
// client-visible events.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatrelay/chatrelay/internal/provider"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// DefaultSystemPrompt seeds conversations that carry no system turn.
const DefaultSystemPrompt = "You are a helpful assistant."

// Service generates replies through a completion backend.
type Service struct {
	client       provider.Client
	systemPrompt string
}

// NewService creates a chat service. An empty systemPrompt falls back to
// DefaultSystemPrompt.
func NewService(client provider.Client, systemPrompt string) *Service {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Service{client: client, systemPrompt: systemPrompt}
}

// Prompt returns the prompt window for a completion, prepending the system
// turn when the history does not already begin with one.
func (s *Service) Prompt(history []types.Turn) []types.Turn {
	if len(history) > 0 && history[0].Role == types.RoleSystem {
		return history
	}
	prompt := make([]types.Turn, 0, len(history)+1)
	prompt = append(prompt, types.Turn{Role: types.RoleSystem, Content: s.systemPrompt})
	return append(prompt, history...)
}

// StreamReply starts a streaming completion over the history.
func (s *Service) StreamReply(ctx context.Context, history []types.Turn) (provider.Stream, error) {
	stream, err := s.client.StreamCompletion(ctx, s.Prompt(history))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	return stream, nil
}

// GenerateReply runs a completion to exhaustion and returns the whole reply.
func (s *Service) GenerateReply(ctx context.Context, history []types.Turn) (string, error) {
	stream, err := s.StreamReply(ctx, history)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		frag, err := stream.Recv()
		if provider.IsEOF(err) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
		}
		reply.WriteString(frag)
	}
	return reply.String(), nil
}
