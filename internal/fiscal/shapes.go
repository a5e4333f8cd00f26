package fiscal

import (
	"regexp"
	"strconv"
	"strings"
)

// Shape checks for Brazilian fiscal literals. These operate on raw strings
// and never reformat their input; the parser uses them to accept candidate
// matches and the validators use them to score confidence.

var (
	// CNPJPattern matches a CNPJ with or without punctuation.
	CNPJPattern = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\.?\d{4}-?\d{2}\b`)
	// AccessKeyPattern matches a 44-digit NF-e access key.
	AccessKeyPattern = regexp.MustCompile(`\b\d{44}\b`)
	// MonetaryPattern matches a monetary literal with optional R$ prefix.
	MonetaryPattern = regexp.MustCompile(`R?\$?\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2}))`)
	// DatePattern matches DD/MM/YYYY with an optional HH:MM:SS suffix.
	DatePattern = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4}(?:\s+\d{2}:\d{2}:\d{2})?)\b`)
	// CompetencePattern matches MM/YYYY or MM-YYYY competence literals.
	CompetencePattern = regexp.MustCompile(`\b(\d{2}[/-]\d{4})\b`)

	digitsOnly = regexp.MustCompile(`\D`)
)

// IBGE state codes embedded in NF-e access keys.
var validUFCodes = map[string]bool{
	"11": true, "12": true, "13": true, "14": true, "15": true, "16": true, "17": true,
	"21": true, "22": true, "23": true, "24": true, "25": true, "26": true, "27": true, "28": true, "29": true,
	"31": true, "32": true, "33": true, "35": true,
	"41": true, "42": true, "43": true,
	"50": true, "51": true, "52": true, "53": true,
}

// ValidCNPJ reports whether s is a checksum-valid CNPJ. Punctuation is
// ignored for the check; the caller keeps its own raw literal.
func ValidCNPJ(s string) bool {
	digits := digitsOnly.ReplaceAllString(s, "")
	if len(digits) != 14 {
		return false
	}
	if strings.Count(digits, digits[:1]) == 14 {
		return false
	}
	if int(digits[12]-'0') != cnpjCheckDigit(digits[:12], cnpjWeights1) {
		return false
	}
	return int(digits[13]-'0') == cnpjCheckDigit(digits[:13], cnpjWeights2)
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func cnpjCheckDigit(base string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(base[i]-'0') * w
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// ValidAccessKey reports whether s is a structurally valid NF-e access key:
// 44 digits, valid UF code, plausible year/month, model 55 or 65, embedded
// checksum-valid CNPJ, and a correct mod-11 check digit.
func ValidAccessKey(s string) bool {
	digits := digitsOnly.ReplaceAllString(s, "")
	if len(digits) != 44 {
		return false
	}
	if !validUFCodes[digits[:2]] {
		return false
	}
	year, err := strconv.Atoi(digits[2:4])
	if err != nil {
		return false
	}
	fullYear := 2000 + year
	if year < 8 {
		fullYear = 2100 + year
	}
	if fullYear < 2008 || fullYear > 2030 {
		return false
	}
	month, err := strconv.Atoi(digits[4:6])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	model := digits[20:22]
	if model != "55" && model != "65" {
		return false
	}
	if !ValidCNPJ(digits[6:20]) {
		return false
	}
	return int(digits[43]-'0') == accessKeyCheckDigit(digits[:43])
}

func accessKeyCheckDigit(key43 string) int {
	// Weights cycle 2..9 from the rightmost digit.
	sum := 0
	weight := 2
	for i := len(key43) - 1; i >= 0; i-- {
		sum += int(key43[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	rest := sum % 11
	if rest == 0 || rest == 1 {
		return 0
	}
	return 11 - rest
}

// PlausibleMonetary reports whether s looks like a plausible fiscal monetary
// literal: parseable as a decimal with at most two fraction digits, not
// negative, below an absurdity ceiling. The literal itself is not rewritten.
func PlausibleMonetary(s string) bool {
	v := strings.TrimSpace(s)
	v = strings.ReplaceAll(v, "R$", "")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return false
	}
	// Brazilian convention: dots group thousands, comma separates decimals.
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	if f < 0 || f > 1e9 {
		return false
	}
	if i := strings.IndexByte(v, '.'); i >= 0 && len(v)-i-1 > 2 {
		return false
	}
	return true
}

// ValidDateLiteral reports whether s matches the DD/MM/YYYY grammar with
// calendar-plausible day and month, optionally followed by HH:MM:SS.
func ValidDateLiteral(s string) bool {
	v := strings.TrimSpace(s)
	m := DatePattern.FindStringSubmatch(v)
	if m == nil || m[1] != v {
		return false
	}
	day, _ := strconv.Atoi(v[:2])
	month, _ := strconv.Atoi(v[3:5])
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

// ValidCompetenceLiteral reports whether s matches the MM/YYYY competence
// grammar with a plausible month.
func ValidCompetenceLiteral(s string) bool {
	v := strings.TrimSpace(s)
	if !CompetencePattern.MatchString(v) || len(v) != 7 {
		return false
	}
	month, err := strconv.Atoi(v[:2])
	return err == nil && month >= 1 && month <= 12
}
