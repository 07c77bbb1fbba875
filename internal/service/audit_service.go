package service

import (
	"context"

	"github.com/noah-isme/bloodbank-api/internal/models"
)

const maxAuditLimit = 200

type auditReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

// AuditService reads the inventory audit log.
type AuditService struct {
	repo         auditReader
	defaultLimit int
}

// NewAuditService constructs the service. defaultLimit applies when callers pass no limit.
func NewAuditService(repo auditReader, defaultLimit int) *AuditService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if defaultLimit > maxAuditLimit {
		defaultLimit = maxAuditLimit
	}
	return &AuditService{repo: repo, defaultLimit: defaultLimit}
}

// Recent returns the newest entries first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, storeError(err, "failed to load audit log")
	}
	return entries, nil
}
