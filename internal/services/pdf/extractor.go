// Package pdf extracts page-delimited plain text from uploaded PDFs.
//
// Two pure Go libraries split the work. pdfcpu reads the document structure
// first and rejects corrupt or password-protected files with a clear error;
// ledongthuc/pdf then walks each page's text-showing operators and hands us
// the text tokens, which we join with single spaces.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// ExtractionError reports an empty, unreadable or rejected PDF.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdf extraction: %s: %v", e.Reason, e.Err)
	}
	return "pdf extraction: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MessageKey maps the error to its user-facing message.
func (e *ExtractionError) MessageKey() i18n.Key { return i18n.MsgExtractionFailed }

// Extractor implements pipeline.TextExtractor.
type Extractor struct {
	logger *zap.Logger
	conf   *model.Configuration
}

var _ pipeline.TextExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor. pdfcpu's on-disk config directory is
// disabled; the service never needs it.
func NewExtractor(logger *zap.Logger) *Extractor {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &Extractor{logger: logger, conf: conf}
}

// Extract returns the document's text with a "--- Page N ---" marker before
// each page, plus the page count.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*pipeline.ExtractedContent, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Reason: "empty file"}
	}
	if !ValidatePDF(data) {
		return nil, &ExtractionError{Reason: "missing %PDF- header"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Reason: "cancelled", Err: err}
	}

	pageCount, err := e.preflight(data)
	if err != nil {
		return nil, err
	}

	pages, err := pageTokens(data)
	if err != nil {
		return nil, err
	}

	if len(pages) != pageCount {
		e.logger.Warn("⚠️  Page count mismatch between parsers",
			zap.Int("pdfcpu", pageCount), zap.Int("text_pages", len(pages)))
	}

	return &pipeline.ExtractedContent{
		RawText:   joinPages(pages),
		PageCount: len(pages),
	}, nil
}

// preflight reads the PDF structure with pdfcpu and returns its page count.
func (e *Extractor) preflight(data []byte) (int, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), e.conf)
	if err != nil {
		return 0, &ExtractionError{Reason: "corrupt or encrypted PDF", Err: err}
	}
	// ReadContext only parses; the page tree is counted on demand.
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return 0, &ExtractionError{Reason: "unreadable page tree", Err: err}
	}
	if pdfCtx.PageCount == 0 {
		return 0, &ExtractionError{Reason: "document has no pages"}
	}
	return pdfCtx.PageCount, nil
}

// pageTokens returns the text tokens of every page, in page order. Pages
// without content produce an empty token list so the page is still marked.
func pageTokens(data []byte) (pages [][]string, err error) {
	// ledongthuc/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ExtractionError{Reason: "parser rejected the document", Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Reason: "failed to open PDF", Err: err}
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, &ExtractionError{Reason: "document has no pages"}
	}

	pages = make([][]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// Image-only or undecodable pages keep their marker with no text.
			pages = append(pages, nil)
			continue
		}

		var tokens []string
		for _, row := range rows {
			for _, t := range row.Content {
				if t.S == "" {
					continue
				}
				tokens = append(tokens, t.S)
			}
		}
		pages = append(pages, tokens)
	}

	return pages, nil
}

// joinPages builds the raw text: page i's tokens joined by single spaces,
// preceded by a "--- Page i ---" marker line and followed by a blank line.
func joinPages(pages [][]string) string {
	var sb strings.Builder
	for i, tokens := range pages {
		fmt.Fprintf(&sb, "--- Page %d ---\n", i+1)
		sb.WriteString(strings.Join(tokens, " "))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// ValidatePDF checks if the data looks like a valid PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	// PDF files start with "%PDF-"
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
