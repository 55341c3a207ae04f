package reformat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Ollama runs the prompt against a local Ollama server. It needs no key.
type Ollama struct {
	host string
}

// NewOllama creates an Ollama provider. An empty host defers to OLLAMA_HOST
// (or the library default of 127.0.0.1:11434).
func NewOllama(host string) *Ollama {
	return &Ollama{host: host}
}

func (o *Ollama) Name() string { return ProviderOllama }

func (o *Ollama) Configured() error { return nil }

func (o *Ollama) client() (*api.Client, error) {
	if o.host == "" {
		return api.ClientFromEnvironment()
	}
	base, err := url.Parse(o.host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", o.host, err)
	}
	return api.NewClient(base, http.DefaultClient), nil
}

func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	client, err := o.client()
	if err != nil {
		return "", err
	}

	stream := false
	var out strings.Builder
	err = client.Generate(ctx, &api.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama generate failed: %w", err)
	}

	return out.String(), nil
}
