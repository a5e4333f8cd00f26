package parser

import (
	"regexp"
	"strings"

	"notaflow/internal/fiscal"
)

// Label-anchored patterns. Each captures the raw value literal; the label
// itself is never part of the extracted value.
var (
	emissionLabeledRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)EMISS[AÃ]O.*?(\d{2}/\d{2}/\d{4}(?:\s*\d{2}:\d{2}:\d{2})?)`),
		regexp.MustCompile(`(?i)DATA\s+DE\s+EMISS[AÃ]O.*?(\d{2}/\d{2}/\d{4})`),
	}
	competenceLabeledRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)COMPET[EÊ]NCIA.*?(\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)COMPET[EÊ]NCIA.*?(\d{2}/\d{2}/\d{4})`),
		regexp.MustCompile(`(?i)COMPET[EÊ]NCIA.*?(\d{2}-\d{4})`),
	}
	grossTotalLabeledRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL\s+GERAL\s*:?\s*R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)VALOR\s+L[IÍ]QUIDO\s*:?\s*R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)VALOR\s+TOTAL\s*:?\s*R?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)TOTAL\s*:?\s*R?\$?\s*([\d.,]+)`),
	}
	grossTotalTailRe = regexp.MustCompile(`(?i)R\$\s*([\d.,]+)`)
)

// findLabeled runs the label patterns in order against text and returns the
// first captured value, with span offsets shifted by base.
func findLabeled(res []*regexp.Regexp, text string, base int, accept func(string) bool) *Match {
	for _, re := range res {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			value := text[idx[2]:idx[3]]
			if accept != nil && !accept(value) {
				continue
			}
			return &Match{Value: value, Span: fiscal.SourceSpan{Start: base + idx[2], End: base + idx[3]}}
		}
	}
	return nil
}

// findInBlocks tries each block of name in order, then gives up. Extractors
// needing a global fallback register a separate global extractor at a lower
// priority instead of silently widening their scope.
func findInBlocks(doc *segmented, name string, fn func(b block) *Match) *Match {
	for _, b := range doc.blocksOf(name) {
		if m := fn(b); m != nil {
			return m
		}
	}
	return nil
}

func emissionDateLabeled() Extractor {
	return Extractor{
		ID: "emission_date.labeled", Field: fiscal.FieldEmissionDate, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findLabeled(emissionLabeledRes, doc.text, 0, nil)
		},
	}
}

func emissionDateGlobal() Extractor {
	return Extractor{
		ID: "emission_date.first_date", Field: fiscal.FieldEmissionDate, Kind: KindPattern,
		Extract: func(doc *segmented) *Match {
			for _, idx := range fiscal.DatePattern.FindAllStringSubmatchIndex(doc.text, -1) {
				value := doc.text[idx[2]:idx[3]]
				if fiscal.ValidDateLiteral(value) {
					return &Match{Value: value, Span: fiscal.SourceSpan{Start: idx[2], End: idx[3]}}
				}
			}
			return nil
		},
	}
}

func competenceDateLabeled() Extractor {
	return Extractor{
		ID: "competence_date.labeled", Field: fiscal.FieldCompetenceDate, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findLabeled(competenceLabeledRes, doc.text, 0, nil)
		},
	}
}

func accessKeyGlobal() Extractor {
	return Extractor{
		ID: "access_key.44_digits", Field: fiscal.FieldAccessKey, Kind: KindPattern,
		Extract: func(doc *segmented) *Match {
			for _, loc := range fiscal.AccessKeyPattern.FindAllStringIndex(doc.text, -1) {
				value := doc.text[loc[0]:loc[1]]
				if fiscal.ValidAccessKey(value) {
					return &Match{Value: value, Span: fiscal.SourceSpan{Start: loc[0], End: loc[1]}}
				}
			}
			return nil
		},
	}
}

func issuerTaxIDBlock() Extractor {
	return Extractor{
		ID: "issuer_tax_id.block_cnpj", Field: fiscal.FieldIssuerTaxID, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findInBlocks(doc, blockIssuer, firstValidCNPJ)
		},
	}
}

func issuerTaxIDGlobal() Extractor {
	return Extractor{
		ID: "issuer_tax_id.first_cnpj", Field: fiscal.FieldIssuerTaxID, Kind: KindPattern,
		Extract: func(doc *segmented) *Match {
			return firstValidCNPJ(block{start: 0, end: len(doc.text), text: doc.text})
		},
	}
}

func recipientTaxIDBlock() Extractor {
	return Extractor{
		ID: "recipient_tax_id.block_cnpj", Field: fiscal.FieldRecipientTaxID, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findInBlocks(doc, blockRecipient, firstValidCNPJ)
		},
	}
}

func issuerNameBlock() Extractor {
	return Extractor{
		ID: "issuer_name.block_scan", Field: fiscal.FieldIssuerName, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findInBlocks(doc, blockIssuer, partyNameFromBlock)
		},
	}
}

func recipientNameBlock() Extractor {
	return Extractor{
		ID: "recipient_name.block_scan", Field: fiscal.FieldRecipientName, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			return findInBlocks(doc, blockRecipient, partyNameFromBlock)
		},
	}
}

func grossTotalLabeled() Extractor {
	return Extractor{
		ID: "gross_total.labeled", Field: fiscal.FieldGrossTotal, Kind: KindHeuristic,
		Extract: func(doc *segmented) *Match {
			if m := findInBlocks(doc, blockFinancials, func(b block) *Match {
				return findLabeled(grossTotalLabeledRes, b.text, b.start, fiscal.PlausibleMonetary)
			}); m != nil {
				return m
			}
			return findLabeled(grossTotalLabeledRes, doc.text, 0, fiscal.PlausibleMonetary)
		},
	}
}

func grossTotalFinancialsTail() Extractor {
	return Extractor{
		ID: "gross_total.financials_tail", Field: fiscal.FieldGrossTotal, Kind: KindPattern,
		Extract: func(doc *segmented) *Match {
			return findInBlocks(doc, blockFinancials, func(b block) *Match {
				return findLabeled([]*regexp.Regexp{grossTotalTailRe}, b.text, b.start, fiscal.PlausibleMonetary)
			})
		},
	}
}

// firstValidCNPJ scans a block for the first checksum-valid CNPJ literal.
func firstValidCNPJ(b block) *Match {
	for _, loc := range fiscal.CNPJPattern.FindAllStringIndex(b.text, -1) {
		value := b.text[loc[0]:loc[1]]
		if fiscal.ValidCNPJ(value) {
			return &Match{Value: value, Span: fiscal.SourceSpan{Start: b.start + loc[0], End: b.start + loc[1]}}
		}
	}
	return nil
}

// Tokens that can never make up a party name on their own: section labels,
// fiscal vocabulary and address labels. A candidate line whose meaningful
// tokens are all in this set is a label line, not a name.
var invalidNameTokens = map[string]bool{
	"DO": true, "DE": true, "DA": true, "DOS": true, "DAS": true,
	"SERVICO": true, "SERVICOS": true, "PRODUTO": true, "PRODUTOS": true,
	"PRESTADOR": true, "TOMADOR": true, "EMITENTE": true, "DESTINATARIO": true,
	"CNPJ": true, "CPF": true, "DADOS": true, "MUNICIPAL": true,
	"SECRETARIA": true, "FAZENDA": true, "PREFEITURA": true,
	"NOTA": true, "FISCAL": true, "ELETRONICA": true, "NFSE": true,
	"NFE": true, "NFS-E": true,
	"NOME": true, "RAZAO": true, "SOCIAL": true, "ENDERECO": true,
	"MUNICIPIO": true, "UF": true,
	"EMPRESARIAL": true, "NIF": true, "INSCRICAO": true, "ESTADUAL": true,
}

var trailingPunctRe = regexp.MustCompile(`[.\-,]+$`)

// partyNameFromBlock applies the positional heuristic: the first line of an
// already-isolated party block that is neither a bare CNPJ nor a label line
// is the party name. The raw literal is kept as-is apart from whitespace
// trimming and trailing OCR punctuation.
func partyNameFromBlock(b block) *Match {
	offset := 0
	for _, line := range strings.Split(b.text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || fiscal.ValidCNPJ(trimmed) {
			continue
		}
		cleaned := trailingPunctRe.ReplaceAllString(trimmed, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" || isLabelLine(cleaned) {
			continue
		}
		start := lineStart + strings.Index(line, trimmed)
		return &Match{
			Value: cleaned,
			Span:  fiscal.SourceSpan{Start: b.start + start, End: b.start + start + len(cleaned)},
		}
	}
	return nil
}

// isLabelLine reports whether every meaningful token (longer than two runes,
// accents stripped, uppercased) belongs to the invalid-name set.
func isLabelLine(s string) bool {
	normalized := stripAccents(strings.ToUpper(s))
	meaningful := 0
	for _, tok := range strings.Fields(normalized) {
		if len(tok) <= 2 {
			continue
		}
		meaningful++
		if !invalidNameTokens[tok] {
			return false
		}
	}
	return meaningful > 0
}

var accentReplacer = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A", "Ä", "A",
	"É", "E", "Ê", "E", "Ë", "E", "È", "E",
	"Í", "I", "Î", "I", "Ï", "I", "Ì", "I",
	"Ó", "O", "Ô", "O", "Õ", "O", "Ö", "O", "Ò", "O",
	"Ú", "U", "Û", "U", "Ü", "U", "Ù", "U",
	"Ç", "C", "Ñ", "N",
)

func stripAccents(s string) string {
	return accentReplacer.Replace(s)
}
