package parser

import (
	"strings"

	"notaflow/internal/fiscal"
)

// Metadata keywords: an item-block line starting with one of these is a
// header, subtotal or label row, never an item. Matching is anchored to
// the row start so a description mentioning a value word still counts.
var itemNoiseTokens = []string{"TOTAL", "VALOR", "DATA", "COMPETÊNCIA", "COMPETENCIA", "DISCRIMINA"}

// maxLineItems bounds the row loop; fiscal documents with more rows than
// this are malformed extractions repeating the same table.
const maxLineItems = 500

// extractLineItems walks the ITEMS block line by line. A row is accepted
// when it has at least one plausible monetary token and a description-like
// remainder; long rows without values attach as description-only
// continuations. Malformed rows are dropped with a provenance record
// instead of aborting the parse.
func extractLineItems(doc *segmented) (items []fiscal.LineItem, dropped []fiscal.DroppedRow, span *fiscal.SourceSpan) {
	blocks := doc.blocksOf(blockItems)
	if len(blocks) == 0 {
		return nil, nil, nil
	}

	for _, b := range blocks {
		lineNo := 0
		for _, line := range strings.Split(b.text, "\n") {
			lineNo++
			if len(items) >= maxLineItems {
				return items, dropped, &fiscal.SourceSpan{Start: b.start, End: b.end}
			}

			row := strings.TrimSpace(line)
			if row == "" || len(row) < 10 {
				continue
			}
			if isItemNoise(row) {
				continue
			}

			values := monetaryTokens(row)
			if len(values) == 0 {
				// Description continuation rows carry no value but enough
				// text to be meaningful.
				if len(row) > 15 {
					items = append(items, fiscal.LineItem{Description: row, Raw: row})
				} else {
					dropped = append(dropped, fiscal.DroppedRow{Line: lineNo, Text: row, Reason: "no_monetary_token"})
				}
				continue
			}

			desc := row
			for _, v := range values {
				desc = strings.Replace(desc, v, "", 1)
			}
			desc = strings.TrimSpace(strings.ReplaceAll(desc, "R$", ""))
			if desc == "" {
				dropped = append(dropped, fiscal.DroppedRow{Line: lineNo, Text: row, Reason: "values_only"})
				continue
			}

			items = append(items, fiscal.LineItem{
				Description: desc,
				UnitValue:   values[len(values)-1],
				Raw:         row,
			})
		}
		if span == nil {
			span = &fiscal.SourceSpan{Start: b.start, End: b.end}
		} else {
			span.End = b.end
		}
	}
	return items, dropped, span
}

func isItemNoise(row string) bool {
	upper := strings.ToUpper(row)
	for _, tok := range itemNoiseTokens {
		if strings.HasPrefix(upper, tok) {
			return true
		}
	}
	return false
}

// monetaryTokens returns the plausible monetary literals in a row, in order.
func monetaryTokens(row string) []string {
	var out []string
	for _, m := range fiscal.MonetaryPattern.FindAllStringSubmatch(row, -1) {
		if fiscal.PlausibleMonetary(m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}
