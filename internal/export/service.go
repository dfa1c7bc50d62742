package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ioezgamer/studio/internal/store"
	"go.uber.org/zap"
)

type Service struct {
	renderer Renderer
	archive  Archiver
	logger   *zap.Logger
	now      func() time.Time
}

// NewService accepts a nil archive; reports are then only streamed back.
func NewService(renderer Renderer, archive Archiver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{renderer: renderer, archive: archive, logger: logger, now: time.Now}
}

func (s *Service) Records(records []store.MaintenanceRecord, format Format) (*Result, error) {
	switch format {
	case FormatXLSX:
		return Spreadsheet(records)
	case FormatCSV:
		return CSV(records)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Report renders a single record. An archive failure is logged and does not
// fail the download.
func (s *Service) Report(ctx context.Context, record store.MaintenanceRecord, format Format) (*Result, error) {
	if format != FormatPDF && format != FormatPNG {
		return nil, ErrUnsupportedFormat
	}
	if s.renderer == nil {
		return nil, ErrRendererMissing
	}

	generatedAt := s.now()
	html, err := RenderReportHTML(record, generatedAt)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(ctx, html, format)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:     data,
		Filename: fmt.Sprintf("reporte-%s-%s.%s", sanitizeFilename(record.Equipment), record.Date.Format("2006-01-02"), format),
		MimeType: format.MimeType(),
	}
	if s.archive != nil {
		link, err := s.archive.Put(ctx, archiveKey(record.ID, generatedAt, format), data, result.MimeType)
		if err != nil {
			s.logger.Warn("archive report", zap.String("record_id", record.ID), zap.Error(err))
		} else {
			result.ArchiveURL = link
		}
	}
	return result, nil
}
