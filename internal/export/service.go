package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/clearstone/finportal/internal/address"
)

const sheetName = "Mismatches"

var headers = []string{
	"Client ID",
	"Document ID",
	"Mismatch Type",
	"Mismatched Components",
	"Extracted Address",
	"Address of Record",
	"Last Seen",
}

// Service renders mismatch ledger contents into spreadsheets for review.
type Service struct {
	ledger address.MismatchLedger
	logger *slog.Logger
}

// NewService creates an export service.
func NewService(ledger address.MismatchLedger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, logger: logger}
}

// MismatchWorkbook builds a workbook of the client's unresolved address
// mismatches. The caller owns the returned file and must close it.
func (s *Service) MismatchWorkbook(ctx context.Context, clientID string) (*excelize.File, error) {
	records, err := s.ledger.ListUnresolved(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list mismatches for %s: %w", clientID, err)
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("remove default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, rec := range records {
		values := []any{
			rec.ClientID,
			rec.DocumentID,
			string(rec.Type),
			strings.Join(rec.Components, ", "),
			displayAddress(rec.Extracted),
			displayAddress(rec.Stored),
			rec.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	s.logger.Info("export.mismatches.built",
		"client_id", clientID,
		"rows", len(records))
	return f, nil
}

// WriteFile builds the workbook and saves it to path.
func (s *Service) WriteFile(ctx context.Context, clientID, path string) error {
	f, err := s.MismatchWorkbook(ctx, clientID)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.logger.Info("export.mismatches.saved",
		"client_id", clientID,
		"path", path)
	return nil
}

func displayAddress(a address.Address) string {
	if a.FullAddress != "" {
		return a.FullAddress
	}
	return address.BuildFullAddress(a)
}
