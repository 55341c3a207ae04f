package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// PDFContentType is the MIME type of the PDF export.
const PDFContentType = "application/pdf"

// Heading sizes in points; body text matches the DOCX at 12pt.
var pdfFontSizes = map[BlockKind]float64{
	BlockHeading1:  18,
	BlockHeading2:  15,
	BlockHeading3:  13,
	BlockBullet:    12,
	BlockParagraph: 12,
}

const (
	pdfMargin     = 20.0 // mm
	pdfLineHeight = 6.0  // mm
	pdfBulletIndt = 6.0  // mm
	utf8Family    = "body"
)

// encodePDF lays the blocks out on A4 pages. Without a TrueType font the
// built-in Times face is used, which only covers cp1252; text outside it is
// refused instead of being drawn as dots. Configure fontPath for other
// scripts.
func encodePDF(blocks []Block, title, fontPath string) ([]byte, error) {
	if fontPath == "" {
		if r, ok := firstUnencodable(blocks); ok {
			return nil, fmt.Errorf("%w: %q (U+%04X) needs a TrueType font (PDF_FONT_PATH)",
				pipeline.ErrUnsupportedContent, r, r)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(title, true)

	family := "Times"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", fontPath)
		pdf.AddUTF8Font(utf8Family, "B", fontPath)
		family = utf8Family
		tr = func(s string) string { return s }
	}

	pdf.AddPage()

	for _, b := range blocks {
		size := pdfFontSizes[b.Kind]
		switch b.Kind {
		case BlockHeading1, BlockHeading2, BlockHeading3:
			pdf.SetFont(family, "B", size)
			pdf.Ln(2)
			pdf.MultiCell(0, size*0.5, tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case BlockBullet:
			pdf.SetFont(family, "", size)
			pdf.SetX(pdfMargin + pdfBulletIndt)
			pdf.MultiCell(0, pdfLineHeight, tr("• "+b.Text), "", "L", false)
		default:
			pdf.SetFont(family, "", size)
			pdf.MultiCell(0, pdfLineHeight, tr(b.Text), "", "J", false)
			pdf.Ln(2)
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to lay out pdf: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// firstUnencodable returns the first rune the core fonts cannot draw. Their
// encoding is cp1252, the same table fpdf's default translator uses.
func firstUnencodable(blocks []Block) (rune, bool) {
	for _, b := range blocks {
		for _, r := range b.Text {
			if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
				return r, true
			}
		}
	}
	return 0, false
}
