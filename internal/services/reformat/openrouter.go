package reformat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter calls any model behind OpenRouter's OpenAI-compatible chat
// completions endpoint.
type OpenRouter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewOpenRouter creates an OpenRouter provider.
func NewOpenRouter(apiKey string, timeout time.Duration) *OpenRouter {
	if timeout <= 0 {
		timeout = 120 * time.Second // LLMs can be slow
	}
	return &OpenRouter{
		apiKey:   apiKey,
		endpoint: openRouterURL,
		// The default http.Client has no timeout at all.
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (o *OpenRouter) Name() string { return ProviderOpenRouter }

func (o *OpenRouter) Configured() error {
	if o.apiKey == "" {
		return fmt.Errorf("%w; set OPENROUTER_API_KEY", ErrMissingCredential)
	}
	return nil
}

// --- OpenAI chat completions wire types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (o *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	jsonBody, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "PDF Reformatter API")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("OpenRouter request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenRouter error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return chatResp.Choices[0].Message.Content, nil
}
