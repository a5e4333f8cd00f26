package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"notaflow/internal/domain"
)

const (
	sheetDocuments = "Documents"
	sheetLineItems = "Line Items"
)

var lineItemColumns = []string{"Document ID", "Row", "Description", "Quantity", "Unit", "Unit Value"}

// WriteExcel renders projections as a two-sheet workbook: one summary row
// per document plus a flat line-item sheet keyed by document id.
func WriteExcel(w io.Writer, projs []domain.DocumentProjection) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetDocuments); err != nil {
		return fmt.Errorf("export.WriteExcel: renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetLineItems); err != nil {
		return fmt.Errorf("export.WriteExcel: adding sheet: %w", err)
	}

	if err := writeRow(f, sheetDocuments, 1, columns); err != nil {
		return err
	}
	for i := range projs {
		if err := writeRow(f, sheetDocuments, i+2, projectionToRow(&projs[i])); err != nil {
			return err
		}
	}

	if err := writeRow(f, sheetLineItems, 1, lineItemColumns); err != nil {
		return err
	}
	itemRow := 2
	for i := range projs {
		p := &projs[i]
		if p.Document == nil {
			continue
		}
		for n, item := range p.Document.LineItems {
			cells := []string{
				p.DocumentID.String(),
				strconv.Itoa(n + 1),
				item.Description,
				item.Quantity,
				item.Unit,
				item.UnitValue,
			}
			if err := writeRow(f, sheetLineItems, itemRow, cells); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteExcel: writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export.writeRow: %w", err)
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export.writeRow: sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}
