package services

import (
	"testing"

	"github.com/acadarchive/archive-api/internal/database"
	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/models"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with foreign keys enforced.
// One connection keeps the in-memory database alive for the whole test.
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

// seedReferenceData inserts the account, program and department most tests need
func seedReferenceData(t *testing.T, db *gorm.DB) (models.Account, models.Program, models.Department) {
	t.Helper()

	account := models.Account{Email: "librarian@example.edu", FullName: "Test Librarian", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&account).Error)

	program := models.Program{Name: "Computer Science", Initials: "CS"}
	require.NoError(t, db.Create(&program).Error)

	department := models.Department{Name: "College of Engineering", Initials: "COE"}
	require.NoError(t, db.Create(&department).Error)

	return account, program, department
}

// newAbstractFixture wires an AbstractService over a fresh database, a
// temporary storage directory and a live background worker.
func newAbstractFixture(t *testing.T) (*AbstractService, *gorm.DB, *storage.LocalStorage) {
	t.Helper()

	db := newTestDB(t)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	worker := jobs.NewWorker(2)
	t.Cleanup(worker.Shutdown)

	repos := repository.NewRepositories(db)
	audit := NewAuditService(db)
	svc := NewAbstractService(db, repos.Abstract, repos.Reference, audit, store, worker)
	return svc, db, store
}
