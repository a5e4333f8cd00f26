// Package normalizer converts raw page text into the canonical line stream
// consumed by the universal parser. It carries no business logic: every
// transformation is a reversible-in-spirit whitespace or encoding repair.
package normalizer

import (
	"regexp"
	"strings"
)

// Options selects the normalization pass. The strict pass is the default;
// the relaxed pass keeps duplicate lines and split digit runs so that
// label-adjacent values lost to aggressive cleanup get a second chance on
// retry.
type Options struct {
	JoinSplitDigits bool
	DedupeLines     bool
}

// Strict returns the default normalization options.
func Strict() Options {
	return Options{JoinSplitDigits: true, DedupeLines: true}
}

// Relaxed returns the retry-pass options.
func Relaxed() Options {
	return Options{JoinSplitDigits: false, DedupeLines: false}
}

var cleanReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\r\n", "\n",
)

// The digit and separator repairs stay within a single line: a newline
// between digits is a row boundary, never an extraction artifact, and
// joining across it would merge adjacent item rows.
var (
	inlineSpaceRe   = regexp.MustCompile(`[ \t\f\v]+`)
	blankRunRe      = regexp.MustCompile(`\n{2,}`)
	splitDigitsRe   = regexp.MustCompile(`(\d)[ \t]+(\d)`)
	decimalCommaRe  = regexp.MustCompile(`(\d)[ \t]*,[ \t]*(\d{2})`)
	thousandsDotRe  = regexp.MustCompile(`(\d)[ \t]*\.[ \t]*(\d{3})\b`)
	dateTimeGluedRe = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})(\d{2}:\d{2}:\d{2})`)
	hasDigitRe      = regexp.MustCompile(`\d`)
)

// Short lines kept verbatim: state and fiscal siglas that would otherwise
// be dropped as noise.
var keepSiglas = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
	"NF": true, "RG": true, "IE": true, "IM": true, "CPF": true,
}

// Normalize canonicalizes raw extracted text: unicode cleanup, whitespace
// collapse preserving line breaks, digit-run joining, date/time spacing
// repair, decimal separator repair, noise-line stripping and line dedupe.
// It is pure and deterministic for a fixed (text, opts) input.
func Normalize(text string, opts Options) string {
	text = cleanReplacer.Replace(text)

	text = inlineSpaceRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if opts.JoinSplitDigits {
		text = joinAll(splitDigitsRe, text)
	}
	text = dateTimeGluedRe.ReplaceAllString(text, "$1 $2")
	text = decimalCommaRe.ReplaceAllString(text, "$1,$2")
	text = thousandsDotRe.ReplaceAllString(text, "$1.$2")

	lines := stripNoiseLines(strings.Split(text, "\n"))
	if opts.DedupeLines {
		lines = dedupe(lines)
	}
	return strings.Join(lines, "\n")
}

// joinAll repeatedly collapses whitespace between adjacent digits. A single
// ReplaceAll pass misses overlapping runs ("1 2 3"), so iterate to a fixed
// point; runs are short in practice.
func joinAll(re *regexp.Regexp, text string) string {
	for {
		next := re.ReplaceAllString(text, "$1$2")
		if next == text {
			return next
		}
		text = next
	}
}

func stripNoiseLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if keepSiglas[strings.ToUpper(ln)] {
			out = append(out, ln)
			continue
		}
		if len(ln) < 3 && !hasDigitRe.MatchString(ln) {
			continue
		}
		out = append(out, ln)
	}
	return out
}

func dedupe(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if seen[ln] {
			continue
		}
		seen[ln] = true
		out = append(out, ln)
	}
	return out
}
