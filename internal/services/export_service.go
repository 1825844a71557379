package services

import (
	"context"
	"fmt"

	"pcbuilder/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Build"

// ExportService renders saved builds as spreadsheets.
type ExportService struct {
	sessions *SessionBuildService
}

// NewExportService creates an export service
func NewExportService(sessions *SessionBuildService) *ExportService {
	return &ExportService{sessions: sessions}
}

// ExportBuild returns an XLSX workbook for one build of a session.
func (s *ExportService) ExportBuild(ctx context.Context, sessionID, buildID string) ([]byte, error) {
	build, err := s.sessions.GetBuild(ctx, sessionID, buildID)
	if err != nil {
		return nil, err
	}
	return BuildWorkbook(build)
}

// BuildWorkbook lays out a build as a part table followed by its total and
// validity window. Prices are the snapshot stored with the build.
func BuildWorkbook(build *models.Build) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	set := func(cell string, value interface{}) error {
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
		return nil
	}

	if err := f.SetSheetRow(exportSheet, "A1", &[]interface{}{"Type", "Model", "Price"}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, c := range build.Components {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &[]interface{}{c.Type, c.ModelName, c.Price}); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	footer := len(build.Components) + 3
	rows := []struct {
		label string
		value interface{}
	}{
		{"Total", build.TotalPrice},
		{"Build ID", build.BuildID},
		{"Created", build.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Expires", build.ExpiresAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"AI generated", build.AIGenerated},
	}
	for i, r := range rows {
		if err := set(fmt.Sprintf("A%d", footer+i), r.label); err != nil {
			return nil, err
		}
		if err := set(fmt.Sprintf("C%d", footer+i), r.value); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "B", 40); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
