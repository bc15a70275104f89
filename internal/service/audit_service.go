package service

import (
	"context"
	"fmt"

	"textile-erp/internal/model"
	"textile-erp/internal/repository"
)

type AuditService interface {
	GetAuditLogs(ctx context.Context, q ListQuery) ([]model.AuditLog, int64, error)
	GetConversionLogs(ctx context.Context, q ListQuery) ([]model.ConversionLog, int64, error)
}

type auditService struct {
	auditRepo      repository.AuditRepository
	conversionRepo repository.ConversionLogRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository, conversionRepo repository.ConversionLogRepository) AuditService {
	return &auditService{auditRepo: auditRepo, conversionRepo: conversionRepo}
}

// GetAuditLogs filters by action (type), date range and free text, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, q ListQuery) ([]model.AuditLog, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	logs, total, err := s.auditRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}

func (s *auditService) GetConversionLogs(ctx context.Context, q ListQuery) ([]model.ConversionLog, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	logs, total, err := s.conversionRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch conversion logs: %w", err)
	}
	return logs, total, nil
}
