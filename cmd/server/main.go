package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"notaflow/internal/config"
	"notaflow/internal/email/noop"
	"notaflow/internal/email/ses"
	"notaflow/internal/eventstore"
	"notaflow/internal/handler"
	"notaflow/internal/orchestrator"
	"notaflow/internal/port"
	"notaflow/internal/reader"
	"notaflow/internal/repository/postgres"
	"notaflow/internal/router"
	"notaflow/internal/service"
	s3storage "notaflow/internal/storage/s3"
	"notaflow/internal/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories and the event store. Every append goes
	// through the payload contract check.
	tenantRepo := postgres.NewTenantRepo(db)
	docRepo := postgres.NewRawDocumentRepo(db)
	store := eventstore.NewChecked(postgres.NewEventStoreRepo(db))

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize email sender
	var emailer port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		emailer, err = ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		emailer = noop.NewNoopSender()
	}

	// Initialize services
	authSvc := service.NewAuthService(tenantRepo, cfg.JWT)
	tenantSvc := service.NewTenantService(tenantRepo)
	ingestSvc := service.NewIngestService(docRepo, store, s3Client, cfg.S3)
	docSvc := service.NewDocumentService(store, docRepo)
	exportSvc := service.NewExportService(docSvc)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	documentH := handler.NewDocumentHandler(ingestSvc, docSvc)
	exportH := handler.NewExportHandler(exportSvc)
	tenantH := handler.NewTenantHandler(tenantSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(authSvc, cfg.Server.AdminAPIKey, cfg.CORS.AllowedOrigins,
		authH, documentH, exportH, tenantH, healthH)

	// Start the ingest worker alongside the HTTP server.
	pipeline := orchestrator.Config{
		MinConfidence:         cfg.Pipeline.MinConfidence,
		RequiredFields:        cfg.Pipeline.RequiredFieldsList(),
		MaxExtractionAttempts: cfg.Pipeline.MaxExtractionAttempts,
	}
	worker := service.NewIngestWorker(
		docRepo, tenantRepo, store, s3Client, reader.NewPlainText(), emailer,
		validator.NewEngine(),
		service.IngestWorkerConfig{
			PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			MaxRetries:   cfg.Queue.MaxRetries,
			Concurrency:  cfg.Queue.Concurrency,
			BatchSize:    cfg.Queue.BatchSize,
			Pipeline:     pipeline,
			NotifyTo:     cfg.Email.NotifyTo,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone
	return nil
}
