// Package export renders document projections as CSV and Excel downloads.
// Values are the raw extracted literals; export never converts or
// reformats them.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"notaflow/internal/domain"
	"notaflow/internal/fiscal"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Document ID",
	"Source Name",
	"Status",
	"Emission Date",
	"Competence",
	"Access Key",
	"Issuer Name",
	"Issuer Tax ID",
	"Recipient Name",
	"Recipient Tax ID",
	"Gross Total",
	"Line Item Count",
	"Extraction Attempts",
	"Last Pass",
	"Reject Reason",
	"Min Confidence",
	"Received At",
	"Updated At",
}

// Writer wraps csv.Writer for exporting document projections as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteProjections converts a batch of projections to CSV rows and writes
// them.
func (w *Writer) WriteProjections(projs []domain.DocumentProjection) error {
	for i := range projs {
		if err := w.csv.Write(projectionToRow(&projs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// projectionToRow converts a single projection to a row. Metadata columns
// are always filled; field columns stay empty until an extraction exists.
func projectionToRow(p *domain.DocumentProjection) []string {
	row := make([]string, len(columns))

	row[0] = p.DocumentID.String()
	row[1] = p.SourceName
	row[2] = string(p.Status)
	row[12] = strconv.Itoa(p.ExtractionAttempts)
	row[13] = p.LastPass
	row[14] = string(p.RejectReason)
	row[15] = formatMinConfidence(p)
	row[16] = p.ReceivedAt.Format(time.RFC3339)
	row[17] = p.UpdatedAt.Format(time.RFC3339)

	if p.Document == nil {
		return row
	}
	row[3] = p.Document.EmissionDate
	row[4] = p.Document.CompetenceDate
	row[5] = p.Document.AccessKey
	row[6] = p.Document.IssuerName
	row[7] = p.Document.IssuerTaxID
	row[8] = p.Document.RecipientName
	row[9] = p.Document.RecipientTaxID
	row[10] = p.Document.GrossTotal
	row[11] = strconv.Itoa(len(p.Document.LineItems))
	return row
}

// formatMinConfidence reports the lowest annotated confidence across known
// fields, the weakest link a reviewer should look at first.
func formatMinConfidence(p *domain.DocumentProjection) string {
	if len(p.Annotations) == 0 {
		return ""
	}
	min := 1.0
	found := false
	for _, field := range fiscal.KnownFields {
		ann, ok := p.Annotations[field]
		if !ok {
			continue
		}
		found = true
		if ann.Confidence < min {
			min = ann.Confidence
		}
	}
	if !found {
		return ""
	}
	return strconv.FormatFloat(min, 'f', 2, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or
// underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a tenant slug for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header, as {sanitized_slug}_{YYYY-MM-DD}.{ext}.
func BuildFilename(slug, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(slug), time.Now().Format("2006-01-02"), ext)
}
