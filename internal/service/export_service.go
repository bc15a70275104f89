package service

import (
	"context"
	"fmt"
	"time"

	"textile-erp/internal/apperror"
	"textile-erp/internal/export"
	"textile-erp/internal/logger"

	"github.com/sirupsen/logrus"
)

// ExportFile is a rendered export ready to be streamed
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders tables and keeps a copy in the archive when one is configured
type ExportService interface {
	Render(ctx context.Context, table export.Table, format string) (ExportFile, error)
}

type exportService struct {
	archiver export.Archiver
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewExportService accepts a nil archiver when exports are not archived
func NewExportService(archiver export.Archiver, log logrus.FieldLogger) ExportService {
	return &exportService{archiver: archiver, log: log, now: time.Now}
}

func (s *exportService) Render(ctx context.Context, table export.Table, format string) (ExportFile, error) {
	format, err := export.ParseFormat(format)
	if err != nil {
		return ExportFile{}, apperror.Validation("format must be one of: csv, xlsx")
	}
	data, err := export.RenderBytes(table, format)
	if err != nil {
		return ExportFile{}, fmt.Errorf("failed to render %s export: %w", table.Name, err)
	}
	file := ExportFile{
		Name:        export.FileName(table, format, s.now()),
		ContentType: export.ContentType(format),
		Data:        data,
	}

	// a failed archive never fails the download
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, file.Name, file.ContentType, file.Data); err != nil {
			logger.LogError(s.log, "service", "ExportService.Render", "archive export", file.Name, err)
		}
	}
	return file, nil
}
