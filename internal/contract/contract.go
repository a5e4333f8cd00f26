// Package contract checks event payloads against their JSON Schemas before
// they enter the log. The log is append-only, so a malformed payload that
// slips in can never be repaired; rejecting it at the door is the only
// correction point.
package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"notaflow/internal/domain"
)

//go:embed schema/*.json
var schemaFS embed.FS

var schemas = map[domain.EventKind]*jsonschema.Schema{
	domain.EventFieldsExtracted: mustCompile("schema/extracted_payload.json"),
	domain.EventFieldsValidated: mustCompile("schema/validated_payload.json"),
}

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("contract: reading %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("contract: adding %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// CheckPayload validates an event payload against the schema for its kind.
// Kinds without a registered schema pass; a schema violation fails with
// domain.ErrPayloadContract wrapping the validator detail.
func CheckPayload(kind domain.EventKind, payload json.RawMessage) error {
	schema, ok := schemas[kind]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("%w: %s payload is not valid JSON: %v", domain.ErrPayloadContract, kind, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPayloadContract, kind, err)
	}
	return nil
}
