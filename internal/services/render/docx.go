package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
)

// DOCXContentType is the MIME type of a WordprocessingML package.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Body text is 12pt Times New Roman; OOXML sizes are in half-points.
const (
	bodyFont     = "Times New Roman"
	bodyHalfPts  = "24"
	bulletNumID  = "1"
	bulletLevel  = "0"
	justifyBoth  = "both"
	pageWidthA4  = "11906"
	pageHeightA4 = "16838"
	pageMargin   = "1440"
)

// Spacing in twentieths of a point, per block kind.
var spacing = map[BlockKind][2]string{
	BlockHeading1:  {"200", "200"},
	BlockHeading2:  {"150", "150"},
	BlockHeading3:  {"120", "120"},
	BlockParagraph: {"0", "120"},
}

var headingStyles = map[BlockKind]string{
	BlockHeading1: "Heading1",
	BlockHeading2: "Heading2",
	BlockHeading3: "Heading3",
}

// --- WordprocessingML element types ---
// Field order follows the schema sequence; Word rejects out-of-order children.

type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	NS      string   `xml:"xmlns:w,attr"`
	Body    wBody    `xml:"w:body"`
}

type wBody struct {
	Paragraphs []wParagraph `xml:"w:p"`
	SectPr     wSectPr      `xml:"w:sectPr"`
}

type wParagraph struct {
	PPr  *wPPr  `xml:"w:pPr,omitempty"`
	Runs []wRun `xml:"w:r"`
}

type wPPr struct {
	Style   *wVal     `xml:"w:pStyle,omitempty"`
	NumPr   *wNumPr   `xml:"w:numPr,omitempty"`
	Bidi    *wOnOff   `xml:"w:bidi,omitempty"`
	Spacing *wSpacing `xml:"w:spacing,omitempty"`
	Jc      *wVal     `xml:"w:jc,omitempty"`
}

type wNumPr struct {
	Ilvl  wVal `xml:"w:ilvl"`
	NumID wVal `xml:"w:numId"`
}

type wSpacing struct {
	Before string `xml:"w:before,attr"`
	After  string `xml:"w:after,attr"`
}

type wRun struct {
	RPr  *wRPr `xml:"w:rPr,omitempty"`
	Text wText `xml:"w:t"`
}

type wRPr struct {
	Fonts *wFonts `xml:"w:rFonts,omitempty"`
	Size  *wVal   `xml:"w:sz,omitempty"`
	SizeC *wVal   `xml:"w:szCs,omitempty"`
}

type wFonts struct {
	ASCII string `xml:"w:ascii,attr"`
	HAnsi string `xml:"w:hAnsi,attr"`
	CS    string `xml:"w:cs,attr"`
}

type wText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Value string `xml:",chardata"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wOnOff struct{}

type wSectPr struct {
	PgSz  wPgSz  `xml:"w:pgSz"`
	PgMar wPgMar `xml:"w:pgMar"`
}

type wPgSz struct {
	W string `xml:"w:w,attr"`
	H string `xml:"w:h,attr"`
}

type wPgMar struct {
	Top    string `xml:"w:top,attr"`
	Right  string `xml:"w:right,attr"`
	Bottom string `xml:"w:bottom,attr"`
	Left   string `xml:"w:left,attr"`
}

// paragraph maps a block onto a WordprocessingML paragraph. Every paragraph
// is bidirectional so right-to-left text lays out correctly.
func paragraph(b Block) wParagraph {
	ppr := &wPPr{Bidi: &wOnOff{}}
	if s, ok := spacing[b.Kind]; ok {
		ppr.Spacing = &wSpacing{Before: s[0], After: s[1]}
	}

	run := wRun{Text: wText{Space: "preserve", Value: b.Text}}

	switch b.Kind {
	case BlockHeading1, BlockHeading2, BlockHeading3:
		ppr.Style = &wVal{Val: headingStyles[b.Kind]}
	case BlockBullet:
		ppr.Style = &wVal{Val: "ListParagraph"}
		ppr.NumPr = &wNumPr{Ilvl: wVal{Val: bulletLevel}, NumID: wVal{Val: bulletNumID}}
	default:
		ppr.Jc = &wVal{Val: justifyBoth}
		run.RPr = &wRPr{
			Fonts: &wFonts{ASCII: bodyFont, HAnsi: bodyFont, CS: bodyFont},
			Size:  &wVal{Val: bodyHalfPts},
			SizeC: &wVal{Val: bodyHalfPts},
		}
	}

	return wParagraph{PPr: ppr, Runs: []wRun{run}}
}

// encodeDOCX writes the blocks as a single-section .docx package.
func encodeDOCX(blocks []Block) ([]byte, error) {
	doc := wDocument{
		NS: wordNamespace,
		Body: wBody{
			Paragraphs: make([]wParagraph, 0, len(blocks)),
			SectPr: wSectPr{
				PgSz:  wPgSz{W: pageWidthA4, H: pageHeightA4},
				PgMar: wPgMar{Top: pageMargin, Right: pageMargin, Bottom: pageMargin, Left: pageMargin},
			},
		},
	}
	for _, b := range blocks {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, paragraph(b))
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document.xml: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/document.xml", append([]byte(xml.Header), body...)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/numbering.xml", []byte(numberingXML)},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx: %w", err)
	}

	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults>
<w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Arial"/><w:sz w:val="22"/><w:szCs w:val="22"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="276" w:lineRule="auto"/></w:pPr></w:pPrDefault>
</w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:bCs/><w:color w:val="2E74B5"/><w:sz w:val="32"/><w:szCs w:val="32"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:bCs/><w:color w:val="2E74B5"/><w:sz w:val="26"/><w:szCs w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:bCs/><w:color w:val="1F4D78"/><w:sz w:val="24"/><w:szCs w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/><w:qFormat/><w:pPr><w:ind w:left="720"/><w:contextualSpacing/></w:pPr></w:style>
</w:styles>`

const numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:abstractNum w:abstractNumId="0">
<w:multiLevelType w:val="hybridMultilevel"/>
<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="•"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl>
</w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
</w:numbering>`
