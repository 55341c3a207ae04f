package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// Content types for the plain-text formats.
const (
	MarkdownContentType = "text/markdown; charset=utf-8"
	TextContentType     = "text/plain; charset=utf-8"
)

// defaultBaseName is used when the upload had no usable name.
const defaultBaseName = "document"

// RenderError wraps any failure to produce an output document.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// MessageKey maps the failure to its user-facing message.
func (e *RenderError) MessageKey() i18n.Key {
	if errors.Is(e.Err, pipeline.ErrUnsupportedContent) {
		return i18n.MsgUnsupportedText
	}
	return i18n.MsgRenderFailed
}

// ParseFormat validates a format name from a query string. Empty means DOCX.
func ParseFormat(s string) (pipeline.Format, error) {
	switch f := pipeline.Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return pipeline.FormatDOCX, nil
	case pipeline.FormatDOCX, pipeline.FormatPDF, pipeline.FormatMarkdown, pipeline.FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (must be docx, pdf, md, or txt)", s)
	}
}

// Renderer implements pipeline.DocumentRenderer for every supported format.
type Renderer struct {
	logger      *zap.Logger
	pdfFontPath string
}

// NewRenderer creates a Renderer. pdfFontPath optionally names a TrueType
// font used for PDF output.
func NewRenderer(logger *zap.Logger, pdfFontPath string) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{logger: logger, pdfFontPath: pdfFontPath}
}

// Render serializes formatted text. The output is named after the original
// upload with its extension replaced.
func (r *Renderer) Render(ctx context.Context, formatted, originalName string, format pipeline.Format) (*pipeline.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Format: string(format), Err: err}
	}

	blocks := ParseBlocks(formatted)
	name := OutputFilename(originalName, format)

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case pipeline.FormatDOCX:
		data, err = encodeDOCX(blocks)
		contentType = DOCXContentType
	case pipeline.FormatPDF:
		data, err = encodePDF(blocks, strings.TrimSuffix(name, filepath.Ext(name)), r.pdfFontPath)
		contentType = PDFContentType
	case pipeline.FormatMarkdown:
		data = []byte(formatted)
		contentType = MarkdownContentType
	case pipeline.FormatText:
		data = []byte(plainText(blocks))
		contentType = TextContentType
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &RenderError{Format: string(format), Err: err}
	}

	r.logger.Debug("Rendered document",
		zap.String("format", string(format)), zap.Int("blocks", len(blocks)), zap.Int("bytes", len(data)))

	return &pipeline.Document{Filename: name, ContentType: contentType, Data: data}, nil
}

// plainText drops the Markdown prefixes, keeping a bullet glyph for lists.
func plainText(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if b.Kind == BlockBullet {
			sb.WriteString("• ")
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

// OutputFilename replaces the extension of the uploaded file's name with the
// output format's, e.g. "report.pdf" → "report.docx".
func OutputFilename(original string, format pipeline.Format) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitizeFilename(base)
	if base == "" || base == "." {
		base = defaultBaseName
	}
	return base + "." + string(format)
}

// sanitizeFilename removes characters that aren't safe for filenames.
// We don't need a full filesystem-safe sanitizer since this is just for the
// Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	// Limit length, without splitting a multi-byte character.
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}

	return name
}
