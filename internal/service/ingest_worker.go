package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"notaflow/internal/domain"
	"notaflow/internal/orchestrator"
	"notaflow/internal/port"
	"notaflow/internal/validator"
)

// IngestWorkerConfig holds settings for the ingest worker.
type IngestWorkerConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
	BatchSize    int
	Pipeline     orchestrator.Config
	NotifyTo     string
}

// IngestWorker polls for queued raw documents and drives each through the
// document state machine until it is finalized or rejected.
type IngestWorker struct {
	docRepo    port.RawDocumentRepository
	tenantRepo port.TenantRepository
	store      port.EventStore
	storage    port.ObjectStorage
	reader     port.DocumentReader
	emailer    port.EmailSender
	engine     *validator.Engine
	cfg        IngestWorkerConfig
	wg         sync.WaitGroup
}

// NewIngestWorker creates a new IngestWorker.
func NewIngestWorker(
	docRepo port.RawDocumentRepository,
	tenantRepo port.TenantRepository,
	store port.EventStore,
	storage port.ObjectStorage,
	docReader port.DocumentReader,
	emailer port.EmailSender,
	engine *validator.Engine,
	cfg IngestWorkerConfig,
) *IngestWorker {
	return &IngestWorker{
		docRepo:    docRepo,
		tenantRepo: tenantRepo,
		store:      store,
		storage:    storage,
		reader:     docReader,
		emailer:    emailer,
		engine:     engine,
		cfg:        cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight pipeline runs have finished.
func (w *IngestWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("ingestWorker: started (poll=%s, concurrency=%d, maxRetries=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			log.Printf("ingestWorker: shutting down, waiting for in-flight documents...")
			w.wg.Wait()
			log.Printf("ingestWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}
			if available > w.cfg.BatchSize {
				available = w.cfg.BatchSize
			}

			docs, err := w.docRepo.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("ingestWorker: ClaimQueued error: %v", err)
				continue
			}

			for i := range docs {
				doc := docs[i] // copy for goroutine

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight documents complete even during shutdown.
					runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
					defer cancel()

					log.Printf("ingestWorker: processing document %s (attempt %d)", doc.ID, doc.Attempts)
					w.process(runCtx, &doc)
				}()
			}
		}
	}
}

// process runs one claimed document to a terminal state and records the
// queue outcome. Infrastructure failures requeue the row until the retry
// budget runs out; pipeline outcomes, including rejection, count as done.
func (w *IngestWorker) process(ctx context.Context, doc *domain.RawDocument) {
	proj, err := w.run(ctx, doc)
	if err != nil {
		log.Printf("ingestWorker: document %s failed: %v", doc.ID, err)
		w.fail(ctx, doc)
		return
	}

	if err := w.docRepo.UpdateStatus(ctx, doc.TenantID, doc.ID, domain.IngestDone); err != nil {
		log.Printf("ingestWorker: marking document %s done: %v", doc.ID, err)
	}
	w.notify(ctx, proj)
}

func (w *IngestWorker) run(ctx context.Context, doc *domain.RawDocument) (*domain.DocumentProjection, error) {
	raw, err := w.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		return nil, err
	}

	cfg := w.cfg.Pipeline
	tenant, err := w.tenantRepo.GetByID(ctx, doc.TenantID)
	if err == nil {
		cfg = cfg.ForTenant(tenant)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	orch := orchestrator.New(w.store, w.engine, cfg)

	result, err := w.reader.Read(raw)
	if errors.Is(err, domain.ErrUnreadableDocument) {
		// Unreadable bytes are a terminal pipeline outcome, recorded on the
		// log the same way a structural parse failure is.
		return w.rejectUnreadable(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	return orch.Run(ctx, doc.TenantID, doc.ID, result.Text)
}

func (w *IngestWorker) rejectUnreadable(ctx context.Context, doc *domain.RawDocument) (*domain.DocumentProjection, error) {
	events, err := w.store.Read(ctx, doc.TenantID, doc.ID)
	if err != nil {
		return nil, err
	}
	proj, err := domain.Project(events)
	if err != nil {
		return nil, err
	}
	if proj.Status.Terminal() {
		return proj, nil
	}

	event, err := domain.NewEvent(doc.TenantID, doc.ID, domain.EventDocumentRejected, domain.RejectedPayload{
		Reason: domain.RejectUnparseable,
		Detail: "unreadable payload",
	})
	if err != nil {
		return nil, err
	}
	if _, err := w.store.Append(ctx, doc.TenantID, doc.ID, proj.LastSequence, event); err != nil &&
		!errors.Is(err, domain.ErrSequenceConflict) && !errors.Is(err, domain.ErrTerminalState) {
		return nil, err
	}

	events, err = w.store.Read(ctx, doc.TenantID, doc.ID)
	if err != nil {
		return nil, err
	}
	return domain.Project(events)
}

func (w *IngestWorker) fail(ctx context.Context, doc *domain.RawDocument) {
	if doc.Attempts >= w.cfg.MaxRetries {
		log.Printf("ingestWorker: document %s exhausted %d attempts, marking failed", doc.ID, doc.Attempts)
		if err := w.docRepo.UpdateStatus(ctx, doc.TenantID, doc.ID, domain.IngestFailed); err != nil {
			log.Printf("ingestWorker: marking document %s failed: %v", doc.ID, err)
		}
		return
	}
	if err := w.docRepo.Requeue(ctx, doc.TenantID, doc.ID); err != nil {
		log.Printf("ingestWorker: requeueing document %s: %v", doc.ID, err)
	}
}

func (w *IngestWorker) notify(ctx context.Context, proj *domain.DocumentProjection) {
	if w.emailer == nil || w.cfg.NotifyTo == "" || proj == nil {
		return
	}
	var err error
	switch proj.Status {
	case domain.StatusFinalized:
		err = w.emailer.SendDocumentFinalized(ctx, w.cfg.NotifyTo, proj)
	case domain.StatusRejected:
		err = w.emailer.SendDocumentRejected(ctx, w.cfg.NotifyTo, proj)
	}
	if err != nil {
		log.Printf("ingestWorker: notification for document %s: %v", proj.DocumentID, err)
	}
}
