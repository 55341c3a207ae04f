package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown is shared; goldmark converters are safe for concurrent use.
// Raw HTML in model output is escaped because html.WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Preview renders formatted text as an HTML fragment. dir="auto" lets the
// browser pick the direction from the first strong character.
func Preview(formatted string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<div dir="auto">`)
	if err := markdown.Convert([]byte(formatted), &buf); err != nil {
		return "", &RenderError{Format: "html", Err: fmt.Errorf("markdown conversion failed: %w", err)}
	}
	buf.WriteString(`</div>`)
	return buf.String(), nil
}
