package services

import (
	"context"
	"errors"

	"github.com/acadarchive/archive-api/internal/models"
	"github.com/acadarchive/archive-api/internal/repository"
	"gorm.io/gorm"
)

// ReferenceService manages the program and department reference data that
// subtype extensions point at. Every mutation and its audit entry share one
// transaction.
type ReferenceService struct {
	db       *gorm.DB
	repo     repository.ReferenceRepository
	auditSvc *AuditService
}

// NewReferenceService creates a new reference data service
func NewReferenceService(db *gorm.DB, repo repository.ReferenceRepository, auditSvc *AuditService) *ReferenceService {
	return &ReferenceService{db: db, repo: repo, auditSvc: auditSvc}
}

// ReferenceInput carries the fields shared by programs and departments
type ReferenceInput struct {
	Name     string
	Initials string
}

// Validate checks required fields
func (in *ReferenceInput) Validate() error {
	if in.Name == "" || in.Initials == "" {
		return NewValidationError("name and initials are required")
	}
	return nil
}

// ListPrograms returns all programs ordered by name
func (s *ReferenceService) ListPrograms(ctx context.Context) ([]models.Program, error) {
	programs, err := s.repo.ListPrograms(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return programs, nil
}

// ListDepartments returns all departments ordered by name
func (s *ReferenceService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return departments, nil
}

// GetProgram returns one program by id
func (s *ReferenceService) GetProgram(ctx context.Context, id uint) (*models.Program, error) {
	program, err := s.repo.FindProgram(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return program, nil
}

// GetDepartment returns one department by id
func (s *ReferenceService) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	department, err := s.repo.FindDepartment(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return department, nil
}

// CreateProgram inserts a program and its audit entry
func (s *ReferenceService) CreateProgram(ctx context.Context, actorID uint, input *ReferenceInput) (*models.Program, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	program := &models.Program{Name: input.Name, Initials: input.Initials}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateProgram(ctx, tx, program); err != nil {
			return err
		}
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionCreateProgram, models.CategoryProgram, program.ID)
		return err
	})
	if err != nil {
		return nil, mapReferenceWriteError(err)
	}
	return program, nil
}

// UpdateProgram updates a program and records the change
func (s *ReferenceService) UpdateProgram(ctx context.Context, actorID uint, id uint, input *ReferenceInput) (*models.Program, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	program := &models.Program{ID: id, Name: input.Name, Initials: input.Initials}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateProgram(ctx, tx, program); err != nil {
			return err
		}
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionUpdateProgram, models.CategoryProgram, id)
		return err
	})
	if err != nil {
		return nil, mapReferenceWriteError(err)
	}
	return program, nil
}

// DeleteProgram removes a program. Programs still referenced by thesis rows
// cannot be deleted; the audit entry goes in before the row is removed,
// the same log-before-delete ordering abstracts follow.
func (s *ReferenceService) DeleteProgram(ctx context.Context, actorID uint, id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionDeleteProgram, models.CategoryProgram, id); err != nil {
			return err
		}
		return s.repo.DeleteProgram(ctx, tx, id)
	})
	return mapReferenceWriteError(err)
}

// CreateDepartment inserts a department and its audit entry
func (s *ReferenceService) CreateDepartment(ctx context.Context, actorID uint, input *ReferenceInput) (*models.Department, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	department := &models.Department{Name: input.Name, Initials: input.Initials}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateDepartment(ctx, tx, department); err != nil {
			return err
		}
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionCreateDepartment, models.CategoryDepartment, department.ID)
		return err
	})
	if err != nil {
		return nil, mapReferenceWriteError(err)
	}
	return department, nil
}

// UpdateDepartment updates a department and records the change
func (s *ReferenceService) UpdateDepartment(ctx context.Context, actorID uint, id uint, input *ReferenceInput) (*models.Department, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	department := &models.Department{ID: id, Name: input.Name, Initials: input.Initials}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateDepartment(ctx, tx, department); err != nil {
			return err
		}
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionUpdateDepartment, models.CategoryDepartment, id)
		return err
	})
	if err != nil {
		return nil, mapReferenceWriteError(err)
	}
	return department, nil
}

// DeleteDepartment removes a department unless dissertation rows still point at it
func (s *ReferenceService) DeleteDepartment(ctx context.Context, actorID uint, id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionDeleteDepartment, models.CategoryDepartment, id); err != nil {
			return err
		}
		return s.repo.DeleteDepartment(ctx, tx, id)
	})
	return mapReferenceWriteError(err)
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Err: err}
}

func mapReferenceWriteError(err error) error {
	var le *LoggingError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &le):
		return err
	case errors.Is(err, repository.ErrRowMissing):
		return ErrNotFound
	case errors.Is(err, repository.ErrReferenceMissing):
		return ErrConflict
	default:
		return &PersistenceError{Err: err}
	}
}
