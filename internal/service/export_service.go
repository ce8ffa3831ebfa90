package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/pkg/config"
	appErrors "github.com/attendly/fieldforce-api/pkg/errors"
	"github.com/attendly/fieldforce-api/pkg/export"
)

type summaryReader interface {
	Summary(ctx context.Context, employeeID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type rosterReader interface {
	GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error)
	ActiveRoster(ctx context.Context) ([]string, error)
}

// ExportService renders a payroll cycle summary PDF covering every active
// employee.
type ExportService struct {
	summaries summaryReader
	directory rosterReader
	renderer  *export.PDFExporter
	dir       string
	enabled   bool
	logger    *zap.Logger
}

// NewExportService constructs the exporter.
func NewExportService(cfg config.PayrollConfig, summaries summaryReader, directory rosterReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		summaries: summaries,
		directory: directory,
		renderer:  export.NewPDFExporter(),
		dir:       cfg.ExportDir,
		enabled:   cfg.ExportEnabled,
		logger:    logger,
	}
}

// ExportCycle writes the cycle summary PDF and returns its path. Returns an
// empty path without error when export is disabled.
func (s *ExportService) ExportCycle(ctx context.Context, from, to time.Time) (string, error) {
	if !s.enabled {
		return "", nil
	}
	roster, err := s.directory.ActiveRoster(ctx)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Employee", "Name", "Present", "Half Day", "Absent", "Unmarked", "Attendance %"},
	}
	for _, employeeID := range roster {
		summary, err := s.summaries.Summary(ctx, employeeID, from, to)
		if err != nil {
			s.logger.Warn("skipping employee in cycle export",
				zap.String("employee_id", employeeID), zap.Error(err))
			continue
		}
		name := employeeID
		if emp, err := s.directory.GetEmployee(ctx, employeeID); err == nil {
			name = emp.FullName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Employee":     employeeID,
			"Name":         name,
			"Present":      fmt.Sprintf("%d", summary.Present),
			"Half Day":     fmt.Sprintf("%d", summary.HalfDay),
			"Absent":       fmt.Sprintf("%d", summary.Absent),
			"Unmarked":     fmt.Sprintf("%d", summary.Unmarked),
			"Attendance %": fmt.Sprintf("%.1f", summary.Percent),
		})
	}

	title := fmt.Sprintf("Payroll Cycle %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	pdfBytes, err := s.renderer.Render(dataset, title)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render cycle export")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export dir unavailable")
	}
	path := filepath.Join(s.dir, fmt.Sprintf("cycle_%s_%s.pdf", from.Format("20060102"), to.Format("20060102")))
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write cycle export")
	}
	s.logger.Info("payroll cycle exported", zap.String("path", path), zap.Int("employees", len(dataset.Rows)))
	return path, nil
}
