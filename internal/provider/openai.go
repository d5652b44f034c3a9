package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// openAIClient is the OpenAI-backed completion client.
type openAIClient struct {
	chatModel model.ToolCallingChatModel
}

func newOpenAIClient(ctx context.Context, modelID string, opts Options) (*openAIClient, error) {
	if opts.OpenAIAPIKey == "" {
		return nil, ErrNoCredentials
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:              opts.OpenAIAPIKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: create OpenAI model: %w", err)
	}

	return &openAIClient{chatModel: chatModel}, nil
}

func (c *openAIClient) ID() string { return "openai" }

func (c *openAIClient) StreamCompletion(ctx context.Context, turns []types.Turn) (Stream, error) {
	reader, err := c.chatModel.Stream(ctx, toEinoMessages(turns))
	if err != nil {
		return nil, fmt.Errorf("provider: openai stream: %w", err)
	}
	return &einoStream{reader: reader}, nil
}
