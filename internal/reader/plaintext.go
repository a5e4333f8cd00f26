// Package reader provides DocumentReader implementations that turn raw
// payload bytes into page text for the parser.
package reader

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// formFeed separates pages in multi-page plain-text extractions.
const formFeed = "\f"

// PlainText reads UTF-8 text payloads. It is the reference reader: richer
// formats plug in behind the same port.DocumentReader contract.
type PlainText struct{}

var _ port.DocumentReader = (*PlainText)(nil)

// NewPlainText creates a plain-text document reader.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Read decodes raw as UTF-8 text, tolerating a BOM. Binary or non-UTF-8
// input fails with domain.ErrUnreadableDocument.
func (r *PlainText) Read(raw []byte) (*port.ReadResult, error) {
	if len(raw) == 0 {
		return nil, domain.ErrUnreadableDocument
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(raw) || bytes.ContainsRune(raw, 0) {
		return nil, domain.ErrUnreadableDocument
	}

	text := string(raw)
	pages := strings.Count(text, formFeed) + 1
	text = strings.ReplaceAll(text, formFeed, "\n")

	return &port.ReadResult{
		Text:  text,
		Hints: port.LayoutHints{PageCount: pages, Encoding: "utf-8"},
	}, nil
}
