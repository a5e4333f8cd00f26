package fiscal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a stable sha256 over the document's canonical JSON
// encoding. The validation engine compares fingerprints before and after
// rule evaluation to detect mutation of the parsed document.
func (d *ParsedFiscalDocument) Fingerprint() string {
	// Marshal cannot fail for a struct of strings, slices and string-keyed
	// maps; map keys are emitted in sorted order, so the encoding is stable.
	data, _ := json.Marshal(d)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
