package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// anthropicClient is the Claude-backed completion client.
type anthropicClient struct {
	chatModel model.ToolCallingChatModel
}

func newAnthropicClient(ctx context.Context, modelID string, opts Options) (*anthropicClient, error) {
	if opts.AnthropicAPIKey == "" {
		return nil, ErrNoCredentials
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	chatModel, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    opts.AnthropicAPIKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: create Claude model: %w", err)
	}

	return &anthropicClient{chatModel: chatModel}, nil
}

func (c *anthropicClient) ID() string { return "anthropic" }

func (c *anthropicClient) StreamCompletion(ctx context.Context, turns []types.Turn) (Stream, error) {
	reader, err := c.chatModel.Stream(ctx, toEinoMessages(turns))
	if err != nil {
		return nil, fmt.Errorf("provider: anthropic stream: %w", err)
	}
	return &einoStream{reader: reader}, nil
}
