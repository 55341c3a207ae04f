package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Block
	}{
		{
			name:  "heading and body",
			input: "# Title\n\nBody line.",
			want: []Block{
				{Kind: BlockHeading1, Text: "Title"},
				{Kind: BlockParagraph, Text: "Body line."},
			},
		},
		{
			name:  "heading levels",
			input: "# One\n## Two\n### Three",
			want: []Block{
				{Kind: BlockHeading1, Text: "One"},
				{Kind: BlockHeading2, Text: "Two"},
				{Kind: BlockHeading3, Text: "Three"},
			},
		},
		{
			name:  "both bullet markers",
			input: "- item one\n* item two",
			want: []Block{
				{Kind: BlockBullet, Text: "item one"},
				{Kind: BlockBullet, Text: "item two"},
			},
		},
		{
			name:  "lines are trimmed and blanks dropped",
			input: "   \n  first  \n\n\t\nsecond\n",
			want: []Block{
				{Kind: BlockParagraph, Text: "first"},
				{Kind: BlockParagraph, Text: "second"},
			},
		},
		{
			name:  "prefix without space is body text",
			input: "#hashtag\n-dash\n####deep",
			want: []Block{
				{Kind: BlockParagraph, Text: "#hashtag"},
				{Kind: BlockParagraph, Text: "-dash"},
				{Kind: BlockParagraph, Text: "####deep"},
			},
		},
		{
			name:  "right-to-left text",
			input: "# العنوان\nفقرة عربية.",
			want: []Block{
				{Kind: BlockHeading1, Text: "العنوان"},
				{Kind: BlockParagraph, Text: "فقرة عربية."},
			},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBlocks(tt.input))
		})
	}
}

// docxParagraph is what the tests read back out of word/document.xml.
type docxParagraph struct {
	style string
	bidi  bool
	jc    string
	list  bool
	font  string
	size  string
	text  string
}

func readDocx(t *testing.T, data []byte) (map[string]bool, []docxParagraph) {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make(map[string]bool)
	var document []byte
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			document, err = io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
		}
	}
	require.NotEmpty(t, document)

	var (
		paras   []docxParagraph
		current *docxParagraph
		inText  bool
	)
	dec := xml.NewDecoder(bytes.NewReader(document))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch el := tok.(type) {
		case xml.StartElement:
			val := attr(el, "val")
			switch el.Name.Local {
			case "p":
				current = &docxParagraph{}
			case "pStyle":
				current.style = val
			case "bidi":
				current.bidi = true
			case "jc":
				current.jc = val
			case "numPr":
				current.list = true
			case "rFonts":
				current.font = attr(el, "ascii")
			case "sz":
				current.size = val
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				paras = append(paras, *current)
				current = nil
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.text += string(el)
			}
		}
	}
	return names, paras
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func TestRenderDOCX(t *testing.T) {
	r := NewRenderer(nil, "")
	doc, err := r.Render(context.Background(), "# Title\n\nBody line.\n## Sub\n- point <a&b>", "report.pdf", pipeline.FormatDOCX)
	require.NoError(t, err)

	assert.Equal(t, "report.docx", doc.Filename)
	assert.Equal(t, DOCXContentType, doc.ContentType)

	names, paras := readDocx(t, doc.Data)
	for _, part := range []string{
		"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels",
		"word/document.xml", "word/styles.xml", "word/numbering.xml",
	} {
		assert.True(t, names[part], "missing part %s", part)
	}

	require.Len(t, paras, 4)

	assert.Equal(t, "Heading1", paras[0].style)
	assert.Equal(t, "Title", paras[0].text)
	assert.True(t, paras[0].bidi)

	assert.Equal(t, "Body line.", paras[1].text)
	assert.Equal(t, "both", paras[1].jc)
	assert.True(t, paras[1].bidi)
	assert.Equal(t, bodyFont, paras[1].font)
	assert.Equal(t, "24", paras[1].size)

	assert.Equal(t, "Heading2", paras[2].style)

	assert.True(t, paras[3].list)
	assert.Equal(t, "point <a&b>", paras[3].text)
}

func TestDOCXBulletUsesBodyFont(t *testing.T) {
	doc, err := NewRenderer(nil, "").Render(context.Background(), "- point", "a.pdf", pipeline.FormatDOCX)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	require.NoError(t, err)
	f, err := zr.Open("word/numbering.xml")
	require.NoError(t, err)
	defer f.Close()

	var lvlText string
	var lvlFonts []string
	inLvl := false
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "lvl":
				inLvl = true
			case "lvlText":
				lvlText = attr(el, "val")
			case "rFonts":
				if inLvl {
					lvlFonts = append(lvlFonts, attr(el, "ascii"))
				}
			}
		case xml.EndElement:
			if el.Name.Local == "lvl" {
				inLvl = false
			}
		}
	}

	// U+2022 only draws as a bullet in a Unicode font; Symbol maps it elsewhere.
	assert.Equal(t, "\u2022", lvlText)
	assert.Empty(t, lvlFonts)
}

func TestRenderPDF(t *testing.T) {
	doc, err := NewRenderer(nil, "").Render(context.Background(), "# Title\n\n- one\nBody text here.", "scan.pdf", pipeline.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "scan.pdf", doc.Filename)
	assert.Equal(t, PDFContentType, doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
}

func TestRenderPDFRefusesTextOutsideCoreFonts(t *testing.T) {
	r := NewRenderer(nil, "")

	_, err := r.Render(context.Background(), "# العنوان\nفقرة عربية.", "a.pdf", pipeline.FormatPDF)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedContent)
	assert.Equal(t, i18n.MsgUnsupportedText, renderErr.MessageKey())

	// cp1252 covers accented Latin and the bullet glyph.
	doc, err := r.Render(context.Background(), "# Café\n- naïve € item", "a.pdf", pipeline.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))

	// DOCX carries any script.
	_, err = r.Render(context.Background(), "# العنوان", "a.pdf", pipeline.FormatDOCX)
	assert.NoError(t, err)
}

func TestFirstUnencodable(t *testing.T) {
	tests := []struct {
		name   string
		blocks []Block
		want   rune
		wantOK bool
	}{
		{"latin", []Block{{Kind: BlockParagraph, Text: "plain text"}}, 0, false},
		{"western accents", []Block{{Kind: BlockParagraph, Text: "déjà vu – “quoted”"}}, 0, false},
		{"arabic", []Block{{Kind: BlockParagraph, Text: "ok"}, {Kind: BlockHeading1, Text: "سلام"}}, 'س', true},
		{"cjk", []Block{{Kind: BlockBullet, Text: "漢字"}}, '漢', true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstUnencodable(tt.blocks)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderPlainFormats(t *testing.T) {
	formatted := "# Title\n\n- item\nBody."

	md, err := NewRenderer(nil, "").Render(context.Background(), formatted, "a.pdf", pipeline.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "a.md", md.Filename)
	assert.Equal(t, formatted, string(md.Data))

	txt, err := NewRenderer(nil, "").Render(context.Background(), formatted, "a.pdf", pipeline.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", txt.Filename)
	assert.Equal(t, "Title\n\n• item\n\nBody.", string(txt.Data))
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(nil, "")

	_, err := r.Render(context.Background(), "text", "a.pdf", pipeline.Format("odt"))
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, i18n.MsgRenderFailed, renderErr.MessageKey())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, "text", "a.pdf", pipeline.FormatDOCX)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    pipeline.Format
		wantErr bool
	}{
		{"", pipeline.FormatDOCX, false},
		{"docx", pipeline.FormatDOCX, false},
		{"PDF", pipeline.FormatPDF, false},
		{" md ", pipeline.FormatMarkdown, false},
		{"txt", pipeline.FormatText, false},
		{"html", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		name     string
		original string
		format   pipeline.Format
		expected string
	}{
		{"simple", "report.pdf", pipeline.FormatDOCX, "report.docx"},
		{"upper-case extension", "REPORT.PDF", pipeline.FormatDOCX, "REPORT.docx"},
		{"dots in name", "q3.final.pdf", pipeline.FormatMarkdown, "q3.final.md"},
		{"arabic name", "تقرير.pdf", pipeline.FormatDOCX, "تقرير.docx"},
		{"no extension", "scan", pipeline.FormatText, "scan.txt"},
		{"path components stripped", `C:\Users\me\notes.pdf`, pipeline.FormatDOCX, "notes.docx"},
		{"unsafe characters", `a:b?"c".pdf`, pipeline.FormatDOCX, "a-b-c-.docx"},
		{"empty name", "", pipeline.FormatDOCX, "document.docx"},
		{"extension only", ".pdf", pipeline.FormatPDF, "document.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutputFilename(tt.original, tt.format))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean filename", "My Report", "My Report"},
		{"slashes and colons", "Part 1/2: The Beginning", "Part 1-2- The Beginning"},
		{"special characters", "What is Go? <A Guide>", "What is Go- -A Guide-"},
		{"empty string", "", ""},
		{"long name gets truncated", strings.Repeat("a", 200), strings.Repeat("a", 100)},
		{"long multi-byte name keeps whole runes", strings.Repeat("ع", 150), strings.Repeat("ع", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeFilename(tt.input))
		})
	}
}

func TestPreview(t *testing.T) {
	html, err := Preview("# Title\n\n- one\n\n<script>alert(1)</script>")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, `<div dir="auto">`))
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<li>one</li>")
	assert.NotContains(t, html, "<script>")
}
