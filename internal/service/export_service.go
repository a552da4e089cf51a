package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/pkg/export"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

// Export formats accepted by the leave history export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered file ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders leave history into downloadable files.
type ExportService struct {
	leaves    LeaveRepository
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(leaves LeaveRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		leaves: leaves,
		renderers: map[string]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// LeaveHistory renders the history of employeeID in the requested format.
func (s *ExportService) LeaveHistory(ctx context.Context, employeeID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", format))
	}

	account, err := s.leaves.Find(ctx, employeeID)
	if err != nil {
		if isLeaveNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Employee ID %s not found.", employeeID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave store unavailable")
	}

	body, err := r.Render(leaveDataset(account, s.now()))
	if err != nil {
		s.logger.Error("render leave export", zap.String("employee_id", employeeID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("leave-history-%s.%s", sanitizeFilename(employeeID), r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

func leaveDataset(account *models.LeaveAccount, generatedAt time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(account.History))
	for i, date := range account.History {
		rows = append(rows, map[string]string{"#": strconv.Itoa(i + 1), "Leave Date": date})
	}
	return export.Dataset{
		Title:    fmt.Sprintf("Leave history for %s", account.EmployeeID),
		Subtitle: fmt.Sprintf("Remaining balance: %d day(s). Generated %s", account.Balance, generatedAt.UTC().Format(time.RFC3339)),
		Headers:  []string{"#", "Leave Date"},
		Rows:     rows,
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeFilename(raw string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(raw, "_")
	if cleaned == "" {
		return "employee"
	}
	return cleaned
}
