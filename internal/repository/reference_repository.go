package repository

import (
	"context"
	"errors"

	"github.com/acadarchive/archive-api/internal/models"
	"gorm.io/gorm"
)

// ReferenceRepository serves the program/department reference data that
// subtype extensions point at. Reads run on the repository's own handle;
// writes take the caller's transaction so they share it with audit inserts.
type ReferenceRepository interface {
	ProgramExists(ctx context.Context, id uint) (bool, error)
	DepartmentExists(ctx context.Context, id uint) (bool, error)
	FindProgram(ctx context.Context, id uint) (*models.Program, error)
	FindDepartment(ctx context.Context, id uint) (*models.Department, error)
	ListPrograms(ctx context.Context) ([]models.Program, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateProgram(ctx context.Context, tx *gorm.DB, program *models.Program) error
	UpdateProgram(ctx context.Context, tx *gorm.DB, program *models.Program) error
	DeleteProgram(ctx context.Context, tx *gorm.DB, id uint) error
	CreateDepartment(ctx context.Context, tx *gorm.DB, department *models.Department) error
	UpdateDepartment(ctx context.Context, tx *gorm.DB, department *models.Department) error
	DeleteDepartment(ctx context.Context, tx *gorm.DB, id uint) error
}

type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ProgramExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Program{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *referenceRepository) DepartmentExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Department{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *referenceRepository) FindProgram(ctx context.Context, id uint) (*models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).First(&program, id).Error; err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *referenceRepository) FindDepartment(ctx context.Context, id uint) (*models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).First(&department, id).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *referenceRepository) ListPrograms(ctx context.Context) ([]models.Program, error) {
	var programs []models.Program
	err := r.db.WithContext(ctx).Order("name ASC").Find(&programs).Error
	return programs, err
}

func (r *referenceRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error
	return departments, err
}

func (r *referenceRepository) CreateProgram(ctx context.Context, tx *gorm.DB, program *models.Program) error {
	return tx.WithContext(ctx).Create(program).Error
}

func (r *referenceRepository) UpdateProgram(ctx context.Context, tx *gorm.DB, program *models.Program) error {
	res := tx.WithContext(ctx).Model(&models.Program{}).
		Where("id = ?", program.ID).
		Select("Name", "Initials").
		Updates(program)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}

func (r *referenceRepository) DeleteProgram(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Delete(&models.Program{}, id)
	if res.Error != nil {
		// thesis rows still pointing here block the delete
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return ErrReferenceMissing
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}

func (r *referenceRepository) CreateDepartment(ctx context.Context, tx *gorm.DB, department *models.Department) error {
	return tx.WithContext(ctx).Create(department).Error
}

func (r *referenceRepository) UpdateDepartment(ctx context.Context, tx *gorm.DB, department *models.Department) error {
	res := tx.WithContext(ctx).Model(&models.Department{}).
		Where("id = ?", department.ID).
		Select("Name", "Initials").
		Updates(department)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}

func (r *referenceRepository) DeleteDepartment(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Delete(&models.Department{}, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return ErrReferenceMissing
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}
