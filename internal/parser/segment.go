package parser

import (
	"regexp"
	"sort"
)

// Block names produced by segmentation.
const (
	blockHeader     = "HEADER"
	blockIssuer     = "ISSUER"
	blockRecipient  = "RECIPIENT"
	blockItems      = "ITEMS"
	blockFinancials = "FINANCIALS"
)

// Section start markers, by block. Layouts vary wildly across issuers, so
// each block accepts several label synonyms.
var blockMarkers = map[string][]*regexp.Regexp{
	blockIssuer: {
		regexp.MustCompile(`(?i)PRESTADOR\s+(?:DO|DE)?\s*SERVI[CÇ]O`),
		regexp.MustCompile(`(?i)DADOS\s+DO\s+PRESTADOR`),
		regexp.MustCompile(`(?i)EMITENTE`),
	},
	blockRecipient: {
		regexp.MustCompile(`(?i)TOMADOR\s+(?:DO|DE)?\s*SERVI[CÇ]O`),
		regexp.MustCompile(`(?i)DADOS\s+DO\s+TOMADOR`),
		regexp.MustCompile(`(?i)DESTINAT[AÁ]RIO`),
	},
	blockItems: {
		regexp.MustCompile(`(?i)DISCRIMINA[CÇ][AÃ]O\s+(?:DOS|DE)?\s*(?:SERVI[CÇ]OS|PRODUTOS)`),
		regexp.MustCompile(`(?i)DESCRI[CÇ][AÃ]O\s+DOS\s+SERVI[CÇ]OS`),
	},
	blockFinancials: {
		regexp.MustCompile(`(?i)VALOR\s+TOTAL`),
		regexp.MustCompile(`(?i)TOTAL\s+GERAL`),
		regexp.MustCompile(`(?i)TRIBUTA[CÇ][AÃ]O`),
		regexp.MustCompile(`(?i)TOTAL\s+DO\s+SERVI[CÇ]O`),
	},
}

// block is one semantic slice of the normalized text. Start/End are absolute
// offsets into the full text so that extraction spans stay addressable.
type block struct {
	name  string
	start int
	end   int
	text  string
}

// segmented is the parser's working view of a document: the full normalized
// text plus its semantic blocks. Blocks of the same type are concatenated in
// order of appearance (some layouts repeat a section).
type segmented struct {
	text   string
	blocks map[string][]block
}

// blocksOf returns the blocks of the given name in order of appearance, or
// nil when segmentation found none.
func (s *segmented) blocksOf(name string) []block {
	if bs := s.blocks[name]; len(bs) > 0 {
		return bs
	}
	return nil
}

type markerHit struct {
	pos  int
	name string
}

// segment slices the text into semantic blocks: find every known section
// marker, sort by position, slice between consecutive markers. Text before
// the first marker is the HEADER block; with no markers at all the whole
// text is HEADER.
func segment(text string) *segmented {
	var hits []markerHit
	for name, patterns := range blockMarkers {
		for _, re := range patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				hits = append(hits, markerHit{pos: loc[0], name: name})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].name < hits[j].name
	})

	s := &segmented{text: text, blocks: make(map[string][]block)}
	if len(hits) == 0 {
		s.blocks[blockHeader] = []block{{name: blockHeader, start: 0, end: len(text), text: text}}
		return s
	}

	if hits[0].pos > 0 {
		s.blocks[blockHeader] = []block{{name: blockHeader, start: 0, end: hits[0].pos, text: text[:hits[0].pos]}}
	}
	for i, h := range hits {
		end := len(text)
		if i+1 < len(hits) {
			end = hits[i+1].pos
		}
		if end <= h.pos {
			continue
		}
		s.blocks[h.name] = append(s.blocks[h.name], block{
			name:  h.name,
			start: h.pos,
			end:   end,
			text:  text[h.pos:end],
		})
	}
	return s
}
