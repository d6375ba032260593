package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/acadarchive/archive-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository-level errors. The service layer maps these onto its taxonomy.
var (
	// ErrRowMissing means a row that was observed earlier vanished before a
	// destructive statement ran. Callers must abort, never report success.
	ErrRowMissing = errors.New("row no longer exists")

	// ErrReferenceMissing means a subtype FK target (program/department) was
	// rejected by the store's referential constraint.
	ErrReferenceMissing = errors.New("referenced entity does not exist")
)

// AbstractRepository owns the relational schema operations for the abstract
// base row and its two mutually exclusive subtype extensions. Every mutating
// method executes on the caller-supplied transaction handle; the repository
// never opens its own transaction.
type AbstractRepository interface {
	Insert(ctx context.Context, tx *gorm.DB, abstract *models.Abstract) error
	InsertThesisDetail(ctx context.Context, tx *gorm.DB, abstractID, programID uint) error
	InsertDissertationDetail(ctx context.Context, tx *gorm.DB, abstractID, departmentID uint) error
	SwapSubtype(ctx context.Context, tx *gorm.DB, abstractID uint, oldKind, newKind string, refID uint) error
	UpdateBase(ctx context.Context, tx *gorm.DB, abstract *models.Abstract) error
	ReplaceFileDetail(ctx context.Context, tx *gorm.DB, abstractID uint, location string, size int64) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	FetchForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Abstract, error)
	Fetch(ctx context.Context, id uint) (*models.Abstract, error)
	List(ctx context.Context, query *AbstractQuery) ([]models.Abstract, int64, error)
	ReferencedLocations(ctx context.Context) (map[string]bool, error)
}

// AbstractQuery extends ListQuery with abstract-specific filters
type AbstractQuery struct {
	*ListQuery
	Kind         string
	ProgramID    uint
	DepartmentID uint
}

// sortColumns whitelists caller-facing sort keys. Unrecognized keys fall back
// to the title; raw column names from callers never reach the query.
var sortColumns = map[string]string{
	"title":      "abstracts.title",
	"kind":       "abstracts.kind",
	"citation":   "abstracts.citation",
	"created_at": "abstracts.created_at",
}

type abstractRepository struct {
	db *gorm.DB
}

// NewAbstractRepository creates a new abstract repository
func NewAbstractRepository(db *gorm.DB) AbstractRepository {
	return &abstractRepository{db: db}
}

func (r *abstractRepository) Insert(ctx context.Context, tx *gorm.DB, abstract *models.Abstract) error {
	return tx.WithContext(ctx).Create(abstract).Error
}

func (r *abstractRepository) InsertThesisDetail(ctx context.Context, tx *gorm.DB, abstractID, programID uint) error {
	detail := &models.ThesisDetail{AbstractID: abstractID, ProgramID: programID}
	if err := tx.WithContext(ctx).Create(detail).Error; err != nil {
		return translateFK(err)
	}
	return nil
}

func (r *abstractRepository) InsertDissertationDetail(ctx context.Context, tx *gorm.DB, abstractID, departmentID uint) error {
	detail := &models.DissertationDetail{AbstractID: abstractID, DepartmentID: departmentID}
	if err := tx.WithContext(ctx).Create(detail).Error; err != nil {
		return translateFK(err)
	}
	return nil
}

// SwapSubtype moves an abstract between subtype tables. When the kind is
// unchanged only the reference id is updated in place; otherwise the old
// extension row is dropped and the new one inserted, keeping the
// exactly-one-extension invariant inside the caller's transaction.
func (r *abstractRepository) SwapSubtype(ctx context.Context, tx *gorm.DB, abstractID uint, oldKind, newKind string, refID uint) error {
	if oldKind == newKind {
		var res *gorm.DB
		switch newKind {
		case models.KindThesis:
			res = tx.WithContext(ctx).Model(&models.ThesisDetail{}).
				Where("abstract_id = ?", abstractID).
				Update("program_id", refID)
		case models.KindDissertation:
			res = tx.WithContext(ctx).Model(&models.DissertationDetail{}).
				Where("abstract_id = ?", abstractID).
				Update("department_id", refID)
		default:
			return fmt.Errorf("unknown kind %q", newKind)
		}
		if res.Error != nil {
			return translateFK(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRowMissing
		}
		return nil
	}

	switch oldKind {
	case models.KindThesis:
		if err := tx.WithContext(ctx).Where("abstract_id = ?", abstractID).Delete(&models.ThesisDetail{}).Error; err != nil {
			return err
		}
	case models.KindDissertation:
		if err := tx.WithContext(ctx).Where("abstract_id = ?", abstractID).Delete(&models.DissertationDetail{}).Error; err != nil {
			return err
		}
	}

	switch newKind {
	case models.KindThesis:
		return r.InsertThesisDetail(ctx, tx, abstractID, refID)
	case models.KindDissertation:
		return r.InsertDissertationDetail(ctx, tx, abstractID, refID)
	}
	return fmt.Errorf("unknown kind %q", newKind)
}

func (r *abstractRepository) UpdateBase(ctx context.Context, tx *gorm.DB, abstract *models.Abstract) error {
	res := tx.WithContext(ctx).Model(&models.Abstract{}).
		Where("id = ?", abstract.ID).
		Select("Title", "Description", "Researchers", "Citation", "Kind").
		Updates(abstract)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}

// ReplaceFileDetail swaps the attachment row: a new attachment always fully
// replaces any prior one, never accumulates.
func (r *abstractRepository) ReplaceFileDetail(ctx context.Context, tx *gorm.DB, abstractID uint, location string, size int64) error {
	if err := tx.WithContext(ctx).Where("abstract_id = ?", abstractID).Delete(&models.FileDetail{}).Error; err != nil {
		return err
	}
	detail := &models.FileDetail{AbstractID: abstractID, Location: location, Size: size}
	return tx.WithContext(ctx).Create(detail).Error
}

// Delete removes the base row; extension and file rows go with it via the
// store-level cascade. Zero affected rows means the abstract vanished since
// the caller's existence check, which is an abort signal.
func (r *abstractRepository) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).Delete(&models.Abstract{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRowMissing
	}
	return nil
}

// FetchForUpdate loads the abstract with its associations, taking a row lock
// on the base row so no other actor can mutate or delete it between this read
// and the destructive statements that follow in the same transaction.
func (r *abstractRepository) FetchForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Abstract, error) {
	db := tx.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; its single-writer model covers us there
	if tx.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "abstracts"}})
	}
	var abstract models.Abstract
	err := db.
		Preload("ThesisDetail").
		Preload("DissertationDetail").
		Preload("FileDetail").
		First(&abstract, id).Error
	if err != nil {
		return nil, err
	}
	return &abstract, nil
}

func (r *abstractRepository) Fetch(ctx context.Context, id uint) (*models.Abstract, error) {
	var abstract models.Abstract
	err := r.db.WithContext(ctx).
		Preload("ThesisDetail.Program").
		Preload("ThesisDetail").
		Preload("DissertationDetail.Department").
		Preload("DissertationDetail").
		Preload("FileDetail").
		First(&abstract, id).Error
	if err != nil {
		return nil, err
	}
	return &abstract, nil
}

func (r *abstractRepository) List(ctx context.Context, query *AbstractQuery) ([]models.Abstract, int64, error) {
	var abstracts []models.Abstract
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Abstract{})

	// Every predicate appends its placeholder and bound value in lock-step;
	// nothing from the caller is interpolated into the query text.
	if query.Search != "" {
		search := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where(
			"LOWER(abstracts.title) LIKE ? OR LOWER(abstracts.researchers) LIKE ? OR LOWER(abstracts.citation) LIKE ? OR LOWER(abstracts.description) LIKE ?",
			search, search, search, search)
	}

	if query.Kind != "" {
		db = db.Where("abstracts.kind = ?", query.Kind)
	}

	if query.ProgramID > 0 {
		db = db.Joins("JOIN thesis_details td ON td.abstract_id = abstracts.id").
			Where("td.program_id = ?", query.ProgramID)
	}

	if query.DepartmentID > 0 {
		db = db.Joins("JOIN dissertation_details dd ON dd.abstract_id = abstracts.id").
			Where("dd.department_id = ?", query.DepartmentID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sort keys go through the whitelist; anything else gets the default
	column, ok := sortColumns[query.SortBy]
	if !ok {
		column = sortColumns["title"]
	}
	order := column
	if query.SortDir == "desc" {
		order += " DESC"
	}
	db = db.Order(order)

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("ThesisDetail.Program").
		Preload("ThesisDetail").
		Preload("DissertationDetail.Department").
		Preload("DissertationDetail").
		Preload("FileDetail").
		Find(&abstracts).Error
	return abstracts, total, err
}

// ReferencedLocations returns every stored file location currently referenced
// by a file_details row. Used by the orphan sweep.
func (r *abstractRepository) ReferencedLocations(ctx context.Context) (map[string]bool, error) {
	var locations []string
	if err := r.db.WithContext(ctx).Model(&models.FileDetail{}).Pluck("location", &locations).Error; err != nil {
		return nil, err
	}
	referenced := make(map[string]bool, len(locations))
	for _, loc := range locations {
		referenced[loc] = true
	}
	return referenced, nil
}

// translateFK maps the driver's foreign-key violation onto ErrReferenceMissing.
// Requires gorm's TranslateError so postgres and sqlite report it uniformly.
func translateFK(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrReferenceMissing
	}
	return err
}

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}
