package service

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/minhtran/claimflow/internal/application/port"
	"github.com/minhtran/claimflow/internal/domain/claim"
)

const exportSheet = "Claims"

// exportPageSize bounds one repository round-trip while paging through the
// visible set.
const exportPageSize = 500

// ExportService renders the claims visible to an actor as an xlsx workbook
type ExportService interface {
	Export(ctx context.Context, view claim.ViewMode, actorID string) ([]byte, error)
}

type exportServiceImpl struct {
	claims port.ClaimRepository
	logger Logger
}

// NewExportService creates a new ExportService
func NewExportService(claims port.ClaimRepository, logger Logger) ExportService {
	return &exportServiceImpl{claims: claims, logger: logger}
}

// Export writes one row per visible claim, newest first.
func (s *exportServiceImpl) Export(ctx context.Context, view claim.ViewMode, actorID string) ([]byte, error) {
	if !view.IsValid() {
		return nil, fmt.Errorf("%w: unknown view mode %q", claim.ErrValidation, view)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headers := []string{"ID", "Code", "Name", "Type", "Status", "Claimant", "Project", "Amount", "Total Hours", "Start Date", "End Date", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for offset := 0; ; offset += exportPageSize {
		page, err := s.claims.List(ctx, port.Scope{View: view, ViewerID: actorID}, exportPageSize, offset)
		if err != nil {
			s.logger.Error("Failed to list claims for export", "error", err, "view", view)
			return nil, err
		}
		for _, c := range page {
			values := []interface{}{
				c.ID, c.Code, c.Name, string(c.Type), string(c.Status), c.ClaimantID, c.ProjectID,
				c.Amount.StringFixed(2), c.TotalHours.String(),
				c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"),
				c.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if err := f.SetCellValue(exportSheet, cell, v); err != nil {
					return nil, fmt.Errorf("write row: %w", err)
				}
			}
			row++
		}
		if len(page) < exportPageSize {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	s.logger.Info("Claims exported", "view", view, "actor_id", actorID, "rows", row-2)
	return buf.Bytes(), nil
}
