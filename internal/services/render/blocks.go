// Package render turns the model's Markdown-ish output into downloadable
// documents.
//
// Only a handful of line prefixes are understood (#, ##, ###, - and *); every
// other line becomes a justified body paragraph. The same block list feeds
// every output format, so a DOCX and a PDF of one conversion always agree.
package render

import (
	"strings"
)

// BlockKind is the paragraph construct a line maps to.
type BlockKind string

const (
	BlockHeading1  BlockKind = "heading1"
	BlockHeading2  BlockKind = "heading2"
	BlockHeading3  BlockKind = "heading3"
	BlockBullet    BlockKind = "bullet"
	BlockParagraph BlockKind = "paragraph"
)

// Block is one rendered paragraph.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// prefixes is checked in order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   BlockKind
}{
	{"# ", BlockHeading1},
	{"## ", BlockHeading2},
	{"### ", BlockHeading3},
	{"- ", BlockBullet},
	{"* ", BlockBullet},
}

// ParseBlocks splits formatted text into blocks. Lines are trimmed and blank
// lines dropped; recognized prefixes are stripped from the block text.
func ParseBlocks(formatted string) []Block {
	var blocks []Block
	for _, line := range strings.Split(formatted, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, classify(line))
	}
	return blocks
}

func classify(line string) Block {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return Block{Kind: p.kind, Text: strings.TrimPrefix(line, p.prefix)}
		}
	}
	return Block{Kind: BlockParagraph, Text: line}
}
