package repository

import (
	"context"
	"testing"

	"github.com/acadarchive/archive-api/internal/database"
	"github.com/acadarchive/archive-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedAbstract(t *testing.T, db *gorm.DB, kind string, refID uint) *models.Abstract {
	t.Helper()
	repo := NewAbstractRepository(db)

	abstract := &models.Abstract{
		Title: "Sample Title", Description: "Sample description",
		Researchers: "R. One", Citation: "One, R. (2024)", Kind: kind,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Insert(context.Background(), tx, abstract); err != nil {
			return err
		}
		if kind == models.KindThesis {
			return repo.InsertThesisDetail(context.Background(), tx, abstract.ID, refID)
		}
		return repo.InsertDissertationDetail(context.Background(), tx, abstract.ID, refID)
	})
	require.NoError(t, err)
	return abstract
}

func seedRefs(t *testing.T, db *gorm.DB) (models.Program, models.Department) {
	t.Helper()
	program := models.Program{Name: "Information Technology", Initials: "IT"}
	require.NoError(t, db.Create(&program).Error)
	department := models.Department{Name: "Graduate School", Initials: "GS"}
	require.NoError(t, db.Create(&department).Error)
	return program, department
}

func TestAbstractRepository_InsertDetail_UnknownReference(t *testing.T) {
	db := newTestDB(t)
	repo := NewAbstractRepository(db)

	abstract := &models.Abstract{
		Title: "t", Description: "d", Researchers: "r", Citation: "c",
		Kind: models.KindThesis,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Insert(context.Background(), tx, abstract); err != nil {
			return err
		}
		return repo.InsertThesisDetail(context.Background(), tx, abstract.ID, 9999)
	})
	assert.ErrorIs(t, err, ErrReferenceMissing)
}

func TestAbstractRepository_SwapSubtype_SameKind(t *testing.T) {
	db := newTestDB(t)
	program, _ := seedRefs(t, db)
	other := models.Program{Name: "Data Science", Initials: "DS"}
	require.NoError(t, db.Create(&other).Error)

	abstract := seedAbstract(t, db, models.KindThesis, program.ID)
	repo := NewAbstractRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.SwapSubtype(context.Background(), tx, abstract.ID, models.KindThesis, models.KindThesis, other.ID)
	})
	require.NoError(t, err)

	var detail models.ThesisDetail
	require.NoError(t, db.First(&detail, "abstract_id = ?", abstract.ID).Error)
	assert.Equal(t, other.ID, detail.ProgramID)
}

func TestAbstractRepository_SwapSubtype_KindChange(t *testing.T) {
	db := newTestDB(t)
	program, department := seedRefs(t, db)

	abstract := seedAbstract(t, db, models.KindThesis, program.ID)
	repo := NewAbstractRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.SwapSubtype(context.Background(), tx, abstract.ID, models.KindThesis, models.KindDissertation, department.ID)
	})
	require.NoError(t, err)

	var thesisCount int64
	require.NoError(t, db.Model(&models.ThesisDetail{}).Where("abstract_id = ?", abstract.ID).Count(&thesisCount).Error)
	assert.Zero(t, thesisCount)

	var detail models.DissertationDetail
	require.NoError(t, db.First(&detail, "abstract_id = ?", abstract.ID).Error)
	assert.Equal(t, department.ID, detail.DepartmentID)
}

func TestAbstractRepository_Delete_VanishedRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewAbstractRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Delete(context.Background(), tx, 1234)
	})
	assert.ErrorIs(t, err, ErrRowMissing)
}

func TestAbstractRepository_UpdateBase_VanishedRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewAbstractRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.UpdateBase(context.Background(), tx, &models.Abstract{
			ID: 1234, Title: "t", Description: "d", Researchers: "r", Citation: "c",
			Kind: models.KindThesis,
		})
	})
	assert.ErrorIs(t, err, ErrRowMissing)
}

func TestAbstractRepository_ReplaceFileDetail(t *testing.T) {
	db := newTestDB(t)
	program, _ := seedRefs(t, db)
	abstract := seedAbstract(t, db, models.KindThesis, program.ID)
	repo := NewAbstractRepository(db)

	for _, location := range []string{"first.pdf", "second.pdf"} {
		err := db.Transaction(func(tx *gorm.DB) error {
			return repo.ReplaceFileDetail(context.Background(), tx, abstract.ID, location, 10)
		})
		require.NoError(t, err)
	}

	// Replacement never accumulates rows
	var details []models.FileDetail
	require.NoError(t, db.Where("abstract_id = ?", abstract.ID).Find(&details).Error)
	require.Len(t, details, 1)
	assert.Equal(t, "second.pdf", details[0].Location)
}

func TestAbstractRepository_List_SortWhitelist(t *testing.T) {
	db := newTestDB(t)
	program, _ := seedRefs(t, db)
	seedAbstract(t, db, models.KindThesis, program.ID)
	repo := NewAbstractRepository(db)

	// A hostile sort key falls back to the default instead of reaching SQL
	query := &AbstractQuery{ListQuery: NewListQuery()}
	query.SortBy = "title; DROP TABLE abstracts"

	abstracts, total, err := repo.List(context.Background(), query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, abstracts, 1)
}

func TestAbstractRepository_List_ProgramFilter(t *testing.T) {
	db := newTestDB(t)
	program, department := seedRefs(t, db)
	seedAbstract(t, db, models.KindThesis, program.ID)
	seedAbstract(t, db, models.KindDissertation, department.ID)
	repo := NewAbstractRepository(db)

	query := &AbstractQuery{ListQuery: NewListQuery(), ProgramID: program.ID}
	abstracts, total, err := repo.List(context.Background(), query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, abstracts, 1)
	assert.Equal(t, models.KindThesis, abstracts[0].Kind)
}

func TestAbstractRepository_ReferencedLocations(t *testing.T) {
	db := newTestDB(t)
	program, _ := seedRefs(t, db)
	abstract := seedAbstract(t, db, models.KindThesis, program.ID)
	repo := NewAbstractRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceFileDetail(context.Background(), tx, abstract.ID, "stored.pdf", 42)
	})
	require.NoError(t, err)

	referenced, err := repo.ReferencedLocations(context.Background())
	require.NoError(t, err)
	assert.True(t, referenced["stored.pdf"])
	assert.False(t, referenced["unknown.pdf"])
}
