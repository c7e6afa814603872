package aiclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// sdkResolver calls the Anthropic API directly, grounded in the
// teacher's internal/api.Client / internal/api.ClaudeAPI wrapper.
type sdkResolver struct {
	client anthropic.Client
	model  anthropic.Model
}

func newSDKResolver(token, baseURL string) *sdkResolver {
	client := anthropic.NewClient(
		option.WithAPIKey(token),
		option.WithBaseURL(baseURL),
	)
	return &sdkResolver{
		client: client,
		model:  anthropic.ModelClaudeSonnet4_20250514,
	}
}

func (r *sdkResolver) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("anthropic api call: %w", err)
	}

	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return Response{Text: out}, nil
}
