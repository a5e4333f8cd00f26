// Package orchestrator drives one fiscal document through its lifecycle
// state machine by reading the event log, projecting the current state and
// appending the next event. The orchestrator holds no state of its own; all
// progress lives in the log, so a crashed run resumes by replaying it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"notaflow/internal/domain"
	"notaflow/internal/fiscal"
	"notaflow/internal/normalizer"
	"notaflow/internal/parser"
	"notaflow/internal/port"
	"notaflow/internal/validator"
)

// Config carries the finalization policy for one run. Tenant overrides are
// resolved by the caller before the run starts.
type Config struct {
	MinConfidence         float64
	RequiredFields        []string
	MaxExtractionAttempts int
}

// DefaultConfig returns the global pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.75,
		RequiredFields: []string{
			fiscal.FieldEmissionDate,
			fiscal.FieldIssuerTaxID,
			fiscal.FieldGrossTotal,
		},
		MaxExtractionAttempts: 2,
	}
}

// ForTenant overlays a tenant's overrides on the base config.
func (c Config) ForTenant(t *domain.Tenant) Config {
	out := c
	if t == nil {
		return out
	}
	if t.MinConfidence != nil {
		out.MinConfidence = *t.MinConfidence
	}
	if fields := t.RequiredFields(); fields != nil {
		out.RequiredFields = fields
	}
	if t.MaxExtractionAttempts != nil && *t.MaxExtractionAttempts > 0 {
		out.MaxExtractionAttempts = *t.MaxExtractionAttempts
	}
	return out
}

// maxSteps bounds one Run; the state machine reaches a terminal state in
// far fewer transitions, so hitting the bound means a logic error.
const maxSteps = 64

// Orchestrator advances documents through
// received -> extracted -> validated -> finalized | rejected. It is safe
// for concurrent use across documents; concurrent runs on the same document
// are serialized by the store's optimistic concurrency check.
type Orchestrator struct {
	store  port.EventStore
	engine *validator.Engine
	cfg    Config
}

// New creates an Orchestrator over the given event store.
func New(store port.EventStore, engine *validator.Engine, cfg Config) *Orchestrator {
	return &Orchestrator{store: store, engine: engine, cfg: cfg}
}

// Run drives the document at (tenantID, documentID) until it reaches a
// terminal state, re-extracting from text on retry passes. The log must
// already hold the document.received event. On a sequence conflict the run
// re-reads and continues from whatever state the competing writer left.
func (o *Orchestrator) Run(ctx context.Context, tenantID, documentID uuid.UUID, text string) (*domain.DocumentProjection, error) {
	for step := 0; step < maxSteps; step++ {
		events, err := o.store.Read(ctx, tenantID, documentID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator.Run: reading log: %w", err)
		}
		proj, err := domain.Project(events)
		if err != nil {
			return nil, fmt.Errorf("orchestrator.Run: %w", err)
		}
		if proj.Status.Terminal() {
			return proj, nil
		}

		event, err := o.next(proj, text)
		if err != nil {
			return nil, err
		}

		if _, err := o.store.Append(ctx, tenantID, documentID, proj.LastSequence, event); err != nil {
			if errors.Is(err, domain.ErrSequenceConflict) {
				log.Printf("orchestrator.Orchestrator: sequence conflict on document %s, re-reading", documentID)
				continue
			}
			if errors.Is(err, domain.ErrTerminalState) {
				continue
			}
			return nil, fmt.Errorf("orchestrator.Run: appending %s: %w", event.Kind, err)
		}
	}
	return nil, fmt.Errorf("orchestrator.Run: document %s did not terminate in %d steps", documentID, maxSteps)
}

// next decides the single event that advances the projection one state.
func (o *Orchestrator) next(proj *domain.DocumentProjection, text string) (*domain.Event, error) {
	switch proj.Status {
	case domain.StatusReceived:
		return o.extract(proj, text, 1)

	case domain.StatusExtracted:
		return o.validate(proj)

	case domain.StatusValidated:
		return o.decide(proj, text)

	default:
		return nil, fmt.Errorf("orchestrator.next: unexpected status %q", proj.Status)
	}
}

// extract runs the extraction pass for the given attempt. Attempt 1 uses
// strict normalization and the label-first registry; later attempts relax
// normalization and promote global pattern scans.
func (o *Orchestrator) extract(proj *domain.DocumentProjection, text string, attempt int) (*domain.Event, error) {
	opts := normalizer.Strict()
	registry := parser.DefaultRegistry()
	if attempt > 1 {
		opts = normalizer.Relaxed()
		registry = parser.RelaxedRegistry()
	}

	p := parser.New(registry)
	doc, err := p.Parse(normalizer.Normalize(text, opts), port.LayoutHints{})
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			return domain.NewEvent(proj.TenantID, proj.DocumentID, domain.EventDocumentRejected, domain.RejectedPayload{
				Reason: domain.RejectUnparseable,
				Detail: perr.Reason,
			})
		}
		return nil, fmt.Errorf("orchestrator.extract: attempt %d: %w", attempt, err)
	}

	return domain.NewEvent(proj.TenantID, proj.DocumentID, domain.EventFieldsExtracted, domain.ExtractedPayload{
		Attempt:  attempt,
		Pass:     p.Pass(),
		Document: *doc,
	})
}

// validate annotates the merged document view from the log.
func (o *Orchestrator) validate(proj *domain.DocumentProjection) (*domain.Event, error) {
	if proj.Document == nil {
		return nil, fmt.Errorf("orchestrator.validate: no extracted document on %s", proj.DocumentID)
	}
	anns, err := o.engine.Annotate(proj.Document)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.validate: %w", err)
	}
	byField := make(map[string]fiscal.Annotation, len(anns))
	for _, a := range anns {
		byField[a.Field] = a
	}
	return domain.NewEvent(proj.TenantID, proj.DocumentID, domain.EventFieldsValidated, domain.ValidatedPayload{
		Attempt:     proj.ExtractionAttempts,
		Annotations: byField,
	})
}

// decide finalizes, retries or rejects a validated document. Every required
// field must meet the confidence threshold to finalize; below-threshold
// fields trigger another extraction pass until the attempt budget runs out,
// then a low_confidence rejection naming the failing fields.
func (o *Orchestrator) decide(proj *domain.DocumentProjection, text string) (*domain.Event, error) {
	failing := o.failingFields(proj)
	if len(failing) == 0 {
		return domain.NewEvent(proj.TenantID, proj.DocumentID, domain.EventDocumentFinalized, domain.FinalizedPayload{
			Attempts: proj.ExtractionAttempts,
		})
	}

	if proj.ExtractionAttempts < o.cfg.MaxExtractionAttempts {
		return o.extract(proj, text, proj.ExtractionAttempts+1)
	}

	return domain.NewEvent(proj.TenantID, proj.DocumentID, domain.EventDocumentRejected, domain.RejectedPayload{
		Reason: domain.RejectLowConfidence,
		Fields: failing,
	})
}

// failingFields returns the required fields whose confidence is below the
// threshold, in required-field order.
func (o *Orchestrator) failingFields(proj *domain.DocumentProjection) []string {
	var failing []string
	for _, field := range o.cfg.RequiredFields {
		ann, ok := proj.Annotations[field]
		if !ok || ann.Confidence < o.cfg.MinConfidence {
			failing = append(failing, field)
		}
	}
	return failing
}
