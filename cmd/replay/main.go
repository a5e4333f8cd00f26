// Command replay reads a document's event log and prints the events and
// the projection folded from them. It is an operator tool for auditing
// what the pipeline did to a document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"notaflow/internal/config"
	"notaflow/internal/domain"
	"notaflow/internal/repository/postgres"
)

func main() {
	tenantFlag := flag.String("tenant", "", "tenant id")
	documentFlag := flag.String("document", "", "document id")
	eventsOnly := flag.Bool("events", false, "print the raw event log instead of the projection")
	flag.Parse()

	if *tenantFlag == "" || *documentFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: replay -tenant <uuid> -document <uuid> [-events]")
		os.Exit(1)
	}

	tenantID, err := uuid.Parse(*tenantFlag)
	if err != nil {
		log.Fatalf("invalid tenant id: %v", err)
	}
	documentID, err := uuid.Parse(*documentFlag)
	if err != nil {
		log.Fatalf("invalid document id: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgres.NewEventStoreRepo(db)
	events, err := store.Read(context.Background(), tenantID, documentID)
	if err != nil {
		log.Fatalf("reading event log: %v", err)
	}
	if len(events) == 0 {
		log.Fatalf("no events for document %s", documentID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *eventsOnly {
		if err := enc.Encode(events); err != nil {
			log.Fatalf("encoding events: %v", err)
		}
		return
	}

	proj, err := domain.Project(events)
	if err != nil {
		log.Fatalf("projecting: %v", err)
	}
	if err := enc.Encode(proj); err != nil {
		log.Fatalf("encoding projection: %v", err)
	}
}
