package fiscal

// Canonical field names of a parsed fiscal document. Annotations and
// provenance entries reference fields by these names.
const (
	FieldEmissionDate   = "emission_date"
	FieldCompetenceDate = "competence_date"
	FieldAccessKey      = "access_key"
	FieldIssuerName     = "issuer_name"
	FieldIssuerTaxID    = "issuer_tax_id"
	FieldRecipientName  = "recipient_name"
	FieldRecipientTaxID = "recipient_tax_id"
	FieldGrossTotal     = "gross_total"
	FieldLineItems      = "line_items"
)

// KnownFields lists every field the parser may extract, in canonical order.
// Validators emit exactly one annotation per entry.
var KnownFields = []string{
	FieldEmissionDate,
	FieldCompetenceDate,
	FieldAccessKey,
	FieldIssuerName,
	FieldIssuerTaxID,
	FieldRecipientName,
	FieldRecipientTaxID,
	FieldGrossTotal,
	FieldLineItems,
}

// SourceSpan locates a raw value inside the normalized text.
type SourceSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Provenance records which extractor produced a field value and where the
// value came from. Priority is the extractor's index in its field's ordered
// list; 0 is the highest-priority extractor.
type Provenance struct {
	ExtractorID string     `json:"extractor_id"`
	Kind        string     `json:"kind"`
	Priority    int        `json:"priority"`
	Span        SourceSpan `json:"span"`
}

// LineItem is a single raw item row. All values are raw string literals;
// conversion is a downstream concern.
type LineItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity,omitempty"`
	Unit        string `json:"unit,omitempty"`
	UnitValue   string `json:"unit_value,omitempty"`
	Raw         string `json:"raw"`
}

// DroppedRow records an item-block row that failed the minimum shape check.
// Kept for audit; dropping a row never aborts the parse.
type DroppedRow struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ParsedFiscalDocument is the extraction-layer output. Every field holds the
// raw literal as it appeared in the normalized text (whitespace cleanup
// only); an absent field is an empty string with no provenance entry.
// The parser never performs numeric coercion or semantic normalization.
type ParsedFiscalDocument struct {
	EmissionDate   string `json:"emission_date"`
	CompetenceDate string `json:"competence_date"`
	AccessKey      string `json:"access_key"`
	IssuerName     string `json:"issuer_name"`
	IssuerTaxID    string `json:"issuer_tax_id"`
	RecipientName  string `json:"recipient_name"`
	RecipientTaxID string `json:"recipient_tax_id"`
	GrossTotal     string `json:"gross_total"`

	LineItems   []LineItem   `json:"line_items"`
	DroppedRows []DroppedRow `json:"dropped_rows,omitempty"`

	Provenance map[string]Provenance `json:"_provenance"`
}

// FieldValue returns the raw value of a scalar field by canonical name.
// line_items is not a scalar field and returns "".
func (d *ParsedFiscalDocument) FieldValue(field string) string {
	switch field {
	case FieldEmissionDate:
		return d.EmissionDate
	case FieldCompetenceDate:
		return d.CompetenceDate
	case FieldAccessKey:
		return d.AccessKey
	case FieldIssuerName:
		return d.IssuerName
	case FieldIssuerTaxID:
		return d.IssuerTaxID
	case FieldRecipientName:
		return d.RecipientName
	case FieldRecipientTaxID:
		return d.RecipientTaxID
	case FieldGrossTotal:
		return d.GrossTotal
	}
	return ""
}

// Found reports whether the parser extracted the given field.
func (d *ParsedFiscalDocument) Found(field string) bool {
	if field == FieldLineItems {
		return len(d.LineItems) > 0
	}
	_, ok := d.Provenance[field]
	return ok && d.FieldValue(field) != ""
}

// Annotation is one confidence record for one field. It references the field
// by name and never carries a replacement value.
type Annotation struct {
	Field      string   `json:"field"`
	Confidence float64  `json:"confidence"`
	Flags      []string `json:"flags,omitempty"`
}

// Annotation flags.
const (
	FlagMissing              = "missing"
	FlagAmbiguousFormat      = "ambiguous_format"
	FlagLowConfidencePattern = "low_confidence_pattern"
	FlagChecksumFailed       = "checksum_failed"
	FlagNoLineItems          = "no_line_items"
	FlagFallbackExtractor    = "fallback_extractor"
	FlagDroppedRows          = "dropped_rows"
)
