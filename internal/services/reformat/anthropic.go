package reformat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMaxTokens leaves room for a reformatted copy of the largest input.
const anthropicMaxTokens = 16000

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	apiKey string
	opts   []option.RequestOption
}

// NewAnthropic creates an Anthropic provider. Extra request options are
// mainly for pointing tests at a local server.
func NewAnthropic(apiKey string, opts ...option.RequestOption) *Anthropic {
	return &Anthropic{apiKey: apiKey, opts: opts}
}

func (a *Anthropic) Name() string { return ProviderAnthropic }

func (a *Anthropic) Configured() error {
	if a.apiKey == "" {
		return fmt.Errorf("%w; set ANTHROPIC_API_KEY", ErrMissingCredential)
	}
	return nil
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	opts := append([]option.RequestOption{option.WithAPIKey(a.apiKey)}, a.opts...)
	client := anthropic.NewClient(opts...)

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API (stop reason %q)", resp.StopReason)
	}
	return text.String(), nil
}
