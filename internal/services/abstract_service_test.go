package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/models"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func thesisInput(programID uint) *AbstractInput {
	return &AbstractInput{
		Title:       "Efficient Query Planning for Columnar Stores",
		Description: "A study of query planning strategies over columnar storage engines.",
		Researchers: "A. Reyes; B. Santos",
		Citation:    "Reyes, A. & Santos, B. (2024)",
		Kind:        models.KindThesis,
		ProgramID:   programID,
	}
}

func pdfUpload() *FileUpload {
	return &FileUpload{Reader: strings.NewReader("%PDF-1.4 test content"), Name: "manuscript.pdf"}
}

func storedFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestAbstractService_CreateAndGet(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, svc.db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)
	require.NotZero(t, id)

	view, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Efficient Query Planning for Columnar Stores", view.Title)
	assert.Equal(t, models.KindThesis, view.Kind)
	require.NotNil(t, view.ProgramID)
	assert.Equal(t, program.ID, *view.ProgramID)
	assert.Equal(t, "Computer Science", view.RelatedName)
	require.NotNil(t, view.FileLocation)
	assert.True(t, store.Exists(*view.FileLocation))
}

func TestAbstractService_Create_InvalidInput(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, svc.db)

	input := thesisInput(program.ID)
	input.Kind = "Monograph"

	_, err := svc.Create(context.Background(), account.ID, input, pdfUpload())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	// Validation failed before staging: nothing reached the store
	assert.Equal(t, 0, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Create_UnknownProgram(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	account, _, _ := seedReferenceData(t, svc.db)

	_, err := svc.Create(context.Background(), account.ID, thesisInput(9999), pdfUpload())

	var re *ReferentialError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "program", re.Entity)
	assert.Equal(t, 0, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Create_AuditFailureRemovesStagedFile(t *testing.T) {
	svc, db, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, db)

	// Break the audit detail table so the in-transaction log insert fails
	require.NoError(t, db.Migrator().DropTable(&models.LogAbstract{}))

	_, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())

	var le *LoggingError
	require.ErrorAs(t, err, &le)

	// The transaction rolled back and the staged file was cleaned up
	var count int64
	require.NoError(t, db.Model(&models.Abstract{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 0, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Update_ReplacesAttachment(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, svc.db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)

	before, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	oldLocation := *before.FileLocation

	input := thesisInput(program.ID)
	input.Title = "Efficient Query Planning, Revised"
	require.NoError(t, svc.Update(context.Background(), account.ID, id, input, pdfUpload()))

	after, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Efficient Query Planning, Revised", after.Title)
	require.NotNil(t, after.FileLocation)
	assert.NotEqual(t, oldLocation, *after.FileLocation)

	// Old file deleted after commit (on the worker), new one present
	require.Eventually(t, func() bool {
		return !store.Exists(oldLocation)
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, store.Exists(*after.FileLocation))
	assert.Equal(t, 1, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Update_KindChangeKeepsAttachment(t *testing.T) {
	svc, db, store := newAbstractFixture(t)
	account, program, department := seedReferenceData(t, db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)

	input := thesisInput(program.ID)
	input.Kind = models.KindDissertation
	input.ProgramID = 0
	input.DepartmentID = department.ID
	require.NoError(t, svc.Update(context.Background(), account.ID, id, input, nil))

	view, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.KindDissertation, view.Kind)
	assert.Nil(t, view.ProgramID)
	require.NotNil(t, view.DepartmentID)
	assert.Equal(t, department.ID, *view.DepartmentID)

	// Exactly one extension row remains
	var thesisCount, dissertationCount int64
	require.NoError(t, db.Model(&models.ThesisDetail{}).Where("abstract_id = ?", id).Count(&thesisCount).Error)
	require.NoError(t, db.Model(&models.DissertationDetail{}).Where("abstract_id = ?", id).Count(&dissertationCount).Error)
	assert.Zero(t, thesisCount)
	assert.EqualValues(t, 1, dissertationCount)

	// The attachment was untouched
	require.NotNil(t, view.FileLocation)
	assert.True(t, store.Exists(*view.FileLocation))
}

func TestAbstractService_Update_RollbackKeepsOldAttachment(t *testing.T) {
	svc, db, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)
	before, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	// Break audit logging so the update transaction fails after staging
	require.NoError(t, db.Migrator().DropTable(&models.LogAbstract{}))

	err = svc.Update(context.Background(), account.ID, id, thesisInput(program.ID), pdfUpload())
	var le *LoggingError
	require.ErrorAs(t, err, &le)

	// Old file still there, staged replacement cleaned up
	assert.True(t, store.Exists(*before.FileLocation))
	assert.Equal(t, 1, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Delete(t *testing.T) {
	svc, db, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)

	title, err := svc.Delete(context.Background(), account.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Efficient Query Planning for Columnar Stores", title)

	_, err = svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Extension and file rows went with the base row
	var thesisCount, fileCount int64
	require.NoError(t, db.Model(&models.ThesisDetail{}).Where("abstract_id = ?", id).Count(&thesisCount).Error)
	require.NoError(t, db.Model(&models.FileDetail{}).Where("abstract_id = ?", id).Count(&fileCount).Error)
	assert.Zero(t, thesisCount)
	assert.Zero(t, fileCount)

	// Audit trail recorded the deletion before the row went away
	var logCount int64
	require.NoError(t, db.Model(&models.LogEntry{}).Where("action_type = ?", models.ActionDeleteAbstract).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)

	// Physical file removed after commit, on the worker
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(store.BasePath())
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// vanishingDeleteRepo makes the base row disappear between the locked read
// and the delete statement, the way a concurrent delete that won the race
// would. Everything else delegates to the real repository.
type vanishingDeleteRepo struct {
	repository.AbstractRepository
}

func (r *vanishingDeleteRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if err := tx.Exec("DELETE FROM abstracts WHERE id = ?", id).Error; err != nil {
		return err
	}
	return r.AbstractRepository.Delete(ctx, tx, id)
}

func TestAbstractService_Delete_ConcurrentRemovalConflicts(t *testing.T) {
	db := newTestDB(t)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	worker := jobs.NewWorker(2)
	t.Cleanup(worker.Shutdown)

	repos := repository.NewRepositories(db)
	audit := NewAuditService(db)
	svc := NewAbstractService(db, &vanishingDeleteRepo{repos.Abstract}, repos.Reference, audit, store, worker)

	account, program, _ := seedReferenceData(t, db)
	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)

	// The locked read succeeds, then the delete hits zero affected rows:
	// exactly one of two racing deletes may report success.
	_, err = svc.Delete(context.Background(), account.ID, id)
	assert.ErrorIs(t, err, ErrConflict)

	// The whole transaction rolled back: the abstract is still there and
	// the delete audit entry went with the rollback.
	_, err = svc.Get(context.Background(), id)
	require.NoError(t, err)

	var logCount int64
	require.NoError(t, db.Model(&models.LogEntry{}).Where("action_type = ?", models.ActionDeleteAbstract).Count(&logCount).Error)
	assert.Zero(t, logCount)

	// No file deletion was scheduled for a delete that did not happen
	assert.Equal(t, 1, storedFileCount(t, store.BasePath()))
}

func TestAbstractService_Delete_Missing(t *testing.T) {
	svc, _, _ := newAbstractFixture(t)
	account, _, _ := seedReferenceData(t, svc.db)

	_, err := svc.Delete(context.Background(), account.ID, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAbstractService_OpenFileRecordsDownload(t *testing.T) {
	svc, db, _ := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)

	f, view, err := svc.OpenFile(context.Background(), account.ID, id)
	require.NoError(t, err)
	defer f.Close()
	require.NotNil(t, view.FileName)

	var logCount int64
	require.NoError(t, db.Model(&models.LogEntry{}).Where("action_type = ?", models.ActionDownloadAbstract).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestAbstractService_RecordView(t *testing.T) {
	svc, db, _ := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, db)

	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), nil)
	require.NoError(t, err)

	require.NoError(t, svc.RecordView(context.Background(), account.ID, id))
	assert.ErrorIs(t, svc.RecordView(context.Background(), account.ID, 4242), ErrNotFound)

	var detail models.LogAbstract
	require.NoError(t, db.Where("abstract_id = ?", id).First(&detail).Error)
	assert.Equal(t, account.ID, detail.AccountID)
}

func TestAbstractService_List(t *testing.T) {
	svc, _, _ := newAbstractFixture(t)
	account, program, department := seedReferenceData(t, svc.db)

	_, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), nil)
	require.NoError(t, err)

	dissertation := &AbstractInput{
		Title:        "Seismic Response of Reinforced Structures",
		Description:  "Analysis of structural behavior under seismic load.",
		Researchers:  "C. Dizon",
		Citation:     "Dizon, C. (2023)",
		Kind:         models.KindDissertation,
		DepartmentID: department.ID,
	}
	_, err = svc.Create(context.Background(), account.ID, dissertation, nil)
	require.NoError(t, err)

	query := &repository.AbstractQuery{ListQuery: repository.NewListQuery()}
	views, total, err := svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, views, 2)

	// Kind filter
	query = &repository.AbstractQuery{ListQuery: repository.NewListQuery(), Kind: models.KindDissertation}
	views, total, err = svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, views, 1)
	assert.Equal(t, "Seismic Response of Reinforced Structures", views[0].Title)

	// Case-insensitive search
	query = &repository.AbstractQuery{ListQuery: repository.NewListQuery()}
	query.Search = "SEISMIC"
	_, total, err = svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestAbstractService_SweepOrphanFiles(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	account, program, _ := seedReferenceData(t, svc.db)

	// A referenced file via a normal create
	id, err := svc.Create(context.Background(), account.ID, thesisInput(program.ID), pdfUpload())
	require.NoError(t, err)
	view, err := svc.Get(context.Background(), id)
	require.NoError(t, err)

	// An orphan nothing references, aged past the grace period
	orphan, _, err := store.Save(strings.NewReader("orphaned"), "stray.pdf")
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.BasePath()+string(os.PathSeparator)+orphan, old, old))

	require.NoError(t, svc.SweepOrphanFiles(context.Background(), time.Hour))

	assert.False(t, store.Exists(orphan))
	assert.True(t, store.Exists(*view.FileLocation))
}

func TestAbstractService_SweepRespectsGracePeriod(t *testing.T) {
	svc, _, store := newAbstractFixture(t)
	seedReferenceData(t, svc.db)

	// Fresh unreferenced file, as if an operation is mid-flight
	orphan, _, err := store.Save(strings.NewReader("in flight"), "fresh.pdf")
	require.NoError(t, err)

	require.NoError(t, svc.SweepOrphanFiles(context.Background(), time.Hour))
	assert.True(t, store.Exists(orphan))
}

func TestAbstractService_ErrorMapping(t *testing.T) {
	svc, _, _ := newAbstractFixture(t)

	assert.ErrorIs(t, svc.mapTxError(repository.ErrRowMissing, nil), ErrConflict)

	err := svc.mapTxError(repository.ErrReferenceMissing, thesisInput(7))
	var re *ReferentialError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "program", re.Entity)
	assert.EqualValues(t, 7, re.ID)

	var pe *PersistenceError
	assert.ErrorAs(t, svc.mapTxError(errors.New("disk on fire"), nil), &pe)
}
