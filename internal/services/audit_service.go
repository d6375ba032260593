package services

import (
	"context"
	"fmt"

	"github.com/acadarchive/archive-api/internal/models"
	"gorm.io/gorm"
)

// AuditService appends immutable audit-trail entries. Record always runs on
// the caller's transaction so a logging failure aborts the whole operation;
// there is no code path where a mutation commits unlogged.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record inserts the base log entry plus the one detail row selected by
// category, and returns the generated log id. Deletions call Record before
// removing their target so an audit failure aborts ahead of any destructive
// step. Any failure comes back as a LoggingError.
func (s *AuditService) Record(ctx context.Context, tx *gorm.DB, actorID uint, actionType, category string, targetID uint) (uint, error) {
	entry := &models.LogEntry{
		ActorAccountID: actorID,
		ActionType:     actionType,
		Category:       category,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, &LoggingError{Err: err}
	}

	var detail any
	switch category {
	case models.CategoryAbstract:
		detail = &models.LogAbstract{LogID: entry.ID, AbstractID: targetID, AccountID: actorID}
	case models.CategoryProgram:
		detail = &models.LogProgram{LogID: entry.ID, ProgramID: targetID, AdminAccountID: actorID}
	case models.CategoryDepartment:
		detail = &models.LogDepartment{LogID: entry.ID, DepartmentID: targetID, AdminAccountID: actorID}
	case models.CategoryAccount:
		detail = &models.LogAccount{LogID: entry.ID, TargetAccountID: targetID, AdminAccountID: actorID}
	default:
		return 0, &LoggingError{Err: fmt.Errorf("unknown audit category %q", category)}
	}

	if err := tx.WithContext(ctx).Create(detail).Error; err != nil {
		return 0, &LoggingError{Err: err}
	}
	return entry.ID, nil
}

// List retrieves audit log entries, newest first
func (s *AuditService) List(ctx context.Context, limit, offset int) ([]models.LogEntry, int64, error) {
	var logs []models.LogEntry
	var total int64

	if err := s.db.WithContext(ctx).Model(&models.LogEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := s.db.WithContext(ctx).
		Preload("Actor").
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&logs)
	return logs, total, result.Error
}
