package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"notaflow/internal/domain"
	"notaflow/internal/export"
)

// exportPageSize bounds one projection page while streaming an export.
const exportPageSize = 200

// ExportService streams a tenant's document projections as CSV or Excel.
type ExportService interface {
	WriteCSV(ctx context.Context, tenantID uuid.UUID, w io.Writer) error
	WriteExcel(ctx context.Context, tenantID uuid.UUID, w io.Writer) error
}

type exportService struct {
	docs DocumentService
}

// NewExportService creates a new ExportService implementation.
func NewExportService(docs DocumentService) ExportService {
	return &exportService{docs: docs}
}

func (s *exportService) WriteCSV(ctx context.Context, tenantID uuid.UUID, w io.Writer) error {
	if _, err := w.Write(export.BOM); err != nil {
		return fmt.Errorf("exportService.WriteCSV: %w", err)
	}

	cw := export.NewWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("exportService.WriteCSV: %w", err)
	}

	for offset := 0; ; offset += exportPageSize {
		projs, total, err := s.docs.ListProjections(ctx, tenantID, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("exportService.WriteCSV: %w", err)
		}
		if err := cw.WriteProjections(projs); err != nil {
			return fmt.Errorf("exportService.WriteCSV: %w", err)
		}
		if offset+len(projs) >= total || len(projs) == 0 {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("exportService.WriteCSV: %w", err)
	}
	return nil
}

func (s *exportService) WriteExcel(ctx context.Context, tenantID uuid.UUID, w io.Writer) error {
	// The workbook format needs the full set in memory before writing.
	var all []domain.DocumentProjection
	for offset := 0; ; offset += exportPageSize {
		projs, total, err := s.docs.ListProjections(ctx, tenantID, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("exportService.WriteExcel: %w", err)
		}
		all = append(all, projs...)
		if offset+len(projs) >= total || len(projs) == 0 {
			break
		}
	}
	if err := export.WriteExcel(w, all); err != nil {
		return fmt.Errorf("exportService.WriteExcel: %w", err)
	}
	return nil
}
