// Package reformat sends extracted PDF text to a text-generation model and
// returns its Markdown reconstruction.
//
// One request per document: the text is capped at a fixed character budget,
// wrapped in a static instruction block and sent at a low temperature. There
// is no chunking, streaming or retry; any provider failure is final for the
// attempt and surfaces as a FormattingError.
package reformat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

const (
	// DefaultMaxInputChars is the largest slice of raw text sent to the model.
	DefaultMaxInputChars = 25000
	// DefaultTemperature keeps the output close to deterministic.
	DefaultTemperature float32 = 0.3
	// TruncationSuffix is appended when the raw text exceeds the budget.
	TruncationSuffix = "\n\n[...Truncated for Demo...]"
)

// ErrMissingCredential is wrapped by FormattingError when the provider has
// no API key configured.
var ErrMissingCredential = errors.New("API credential not configured")

// FormattingError reports a failed reformatting attempt.
type FormattingError struct {
	Provider string
	Err      error
}

func (e *FormattingError) Error() string {
	return fmt.Sprintf("reformat via %s: %v", e.Provider, e.Err)
}

func (e *FormattingError) Unwrap() error { return e.Err }

// MessageKey maps the error to its user-facing message.
func (e *FormattingError) MessageKey() i18n.Key { return i18n.MsgFormattingFailed }

// Request is a single-turn completion request.
type Request struct {
	Model       string
	Prompt      string
	Temperature float32
}

// Provider is a text-generation backend.
type Provider interface {
	// Name identifies the provider in logs and history records.
	Name() string
	// Configured returns ErrMissingCredential (or similar) when the provider
	// cannot be called. It must not touch the network.
	Configured() error
	// Complete sends the prompt and returns the response text.
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configures a Reformatter.
type Options struct {
	Model         string
	Temperature   float32
	MaxInputChars int
	Timeout       time.Duration
}

// Reformatter implements pipeline.TextReformatter on top of a Provider.
type Reformatter struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
}

var _ pipeline.TextReformatter = (*Reformatter)(nil)

// New creates a Reformatter. A zero MaxInputChars and a negative Temperature
// take the package defaults; a zero Temperature is a valid setting and is
// sent as is.
func New(provider Provider, opts Options, logger *zap.Logger) *Reformatter {
	if opts.Temperature < 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = DefaultMaxInputChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reformatter{provider: provider, opts: opts, logger: logger}
}

// ProviderName returns the configured provider's name.
func (r *Reformatter) ProviderName() string { return r.provider.Name() }

// Model returns the configured model.
func (r *Reformatter) Model() string { return r.opts.Model }

// Reformat returns the model's reconstruction of rawText verbatim.
func (r *Reformatter) Reformat(ctx context.Context, rawText string) (string, error) {
	name := r.provider.Name()

	if err := r.provider.Configured(); err != nil {
		return "", &FormattingError{Provider: name, Err: err}
	}

	body, truncated := Truncate(rawText, r.opts.MaxInputChars)
	if truncated {
		r.logger.Warn("✂️  Raw text truncated before reformatting",
			zap.Int("limit", r.opts.MaxInputChars), zap.Int("raw_chars", len([]rune(rawText))))
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	r.logger.Info("🤖 Sending text to model",
		zap.String("provider", name), zap.String("model", r.opts.Model), zap.Bool("truncated", truncated))

	start := time.Now()
	out, err := r.provider.Complete(ctx, Request{
		Model:       r.opts.Model,
		Prompt:      BuildPrompt(body),
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		return "", &FormattingError{Provider: name, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &FormattingError{Provider: name, Err: errors.New("empty response")}
	}

	r.logger.Info("✅ Model responded",
		zap.String("provider", name), zap.Duration("elapsed", time.Since(start)), zap.Int("chars", len([]rune(out))))
	return out, nil
}

// Truncate caps text at limit characters (runes, not bytes, so Arabic text
// is never cut mid-character). Longer input is cut to exactly limit runes
// and gets TruncationSuffix.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]) + TruncationSuffix, true
}

const promptTemplate = `You are a professional document formatter.
The text below was extracted from a PDF (often via OCR). Lines may be broken mid-sentence, paragraphs may be split, and headings may look like ordinary text.

Your task:
1. Rebuild the logical flow of the text and join broken lines.
2. Mark headings with Markdown: # for the document title, ## for main sections, ### for subsections.
3. Fix obvious OCR typos.
4. Keep the original language of the text (for example Arabic or English). Do not translate.
5. Return ONLY the cleaned Markdown content, with no introduction, explanation or closing remarks.

Raw text:
---------------------
%s`

// BuildPrompt embeds text into the fixed instruction block.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}
