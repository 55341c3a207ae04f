package reformat

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// Gemini calls the Google Gemini API through the genai SDK.
type Gemini struct {
	apiKey      string
	httpOptions genai.HTTPOptions

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini creates a Gemini provider. The client is built on first use.
func NewGemini(apiKey string) *Gemini {
	return &Gemini{apiKey: apiKey}
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Configured() error {
	if g.apiKey == "" {
		return fmt.Errorf("%w; set GEMINI_API_KEY", ErrMissingCredential)
	}
	return nil
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: g.httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini returned no text (finish reason %q)", resp.Candidates[0].FinishReason)
	}
	return text, nil
}
