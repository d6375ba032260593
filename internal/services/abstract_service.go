package services

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/models"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/statemachine"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/acadarchive/archive-api/pkg/logger"
	"gorm.io/gorm"
)

// AbstractInput carries the caller-supplied fields for create and update
type AbstractInput struct {
	Title        string
	Description  string
	Researchers  string
	Citation     string
	Kind         string
	ProgramID    uint
	DepartmentID uint
}

// Validate checks required fields and the subtype selector. Runs before any
// side effect: no file write and no transaction happen on invalid input.
func (in *AbstractInput) Validate() error {
	if in.Title == "" || in.Description == "" || in.Researchers == "" || in.Citation == "" {
		return NewValidationError("title, description, researchers and citation are required")
	}
	if !models.ValidKind(in.Kind) {
		return NewValidationError("kind must be %q or %q", models.KindThesis, models.KindDissertation)
	}
	if in.Kind == models.KindThesis && in.ProgramID == 0 {
		return NewValidationError("a program is required for thesis abstracts")
	}
	if in.Kind == models.KindDissertation && in.DepartmentID == 0 {
		return NewValidationError("a department is required for dissertation abstracts")
	}
	return nil
}

// RefID returns the subtype reference id selected by Kind
func (in *AbstractInput) RefID() uint {
	if in.Kind == models.KindThesis {
		return in.ProgramID
	}
	return in.DepartmentID
}

// FileUpload is an incoming attachment stream. Name is only consulted for
// its extension; stored filenames are generated.
type FileUpload struct {
	Reader io.Reader
	Name   string

	savedSize int64
}

// AbstractService is the lifecycle coordinator. It orchestrates the file
// store, the abstract repository and the audit writer across one relational
// transaction per operation, with file operations ordered around the
// transaction boundary so neither the file nor the record is orphaned:
// new files are saved before they are referenced, old files are deleted only
// after the row pointing at them is durably gone.
type AbstractService struct {
	db       *gorm.DB
	repo     repository.AbstractRepository
	refRepo  repository.ReferenceRepository
	auditSvc *AuditService
	store    *storage.LocalStorage
	worker   *jobs.Worker
}

// NewAbstractService creates a new abstract lifecycle service
func NewAbstractService(
	db *gorm.DB,
	repo repository.AbstractRepository,
	refRepo repository.ReferenceRepository,
	auditSvc *AuditService,
	store *storage.LocalStorage,
	worker *jobs.Worker,
) *AbstractService {
	return &AbstractService{
		db:       db,
		repo:     repo,
		refRepo:  refRepo,
		auditSvc: auditSvc,
		store:    store,
		worker:   worker,
	}
}

// compensations is the explicit undo list for the abort path. Actions
// accumulate as side effects happen and run deterministically, in order,
// when the operation aborts.
type compensations []func()

func (c *compensations) add(fn func()) {
	*c = append(*c, fn)
}

func (c compensations) run() {
	for _, fn := range c {
		fn()
	}
}

// Create validates, stages the optional file, then inserts the base row, the
// chosen subtype extension, the attachment row and the audit entry in one
// transaction. A file saved for a transaction that fails is removed again;
// the file must never outlive a failed transaction.
func (s *AbstractService) Create(ctx context.Context, actorID uint, input *AbstractInput, file *FileUpload) (uint, error) {
	op := statemachine.NewOperationFSM()

	if err := input.Validate(); err != nil {
		return 0, err
	}
	if err := s.checkReference(ctx, input); err != nil {
		return 0, err
	}

	var undo compensations
	var savedPath string

	if file != nil {
		if err := op.Stage(ctx); err != nil {
			return 0, err
		}
		// Upload happens before the transaction opens: a failed upload must
		// never touch the relational store.
		location, size, err := s.store.Save(file.Reader, file.Name)
		if err != nil {
			return 0, &StorageIOError{Op: "save", Path: file.Name, Err: err}
		}
		savedPath = location
		file.savedSize = size
		undo.add(func() { s.removeOrphan(savedPath) })
	}

	if err := op.Begin(ctx); err != nil {
		undo.run()
		return 0, err
	}

	abstract := &models.Abstract{
		Title:       input.Title,
		Description: input.Description,
		Researchers: input.Researchers,
		Citation:    input.Citation,
		Kind:        input.Kind,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, abstract); err != nil {
			return err
		}
		if err := s.insertSubtype(ctx, tx, abstract.ID, input); err != nil {
			return err
		}
		if savedPath != "" {
			if err := s.repo.ReplaceFileDetail(ctx, tx, abstract.ID, savedPath, file.savedSize); err != nil {
				return err
			}
		}
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionCreateAbstract, models.CategoryAbstract, abstract.ID)
		return err
	})
	if err != nil {
		_ = op.Abort(ctx)
		undo.run()
		return 0, s.mapTxError(err, input)
	}

	if err := op.Commit(ctx); err != nil {
		return abstract.ID, err
	}
	_ = op.Finish(ctx)
	return abstract.ID, nil
}

// Update modifies base fields, swaps the subtype extension when the kind
// changed, and optionally replaces the attachment. The current state is read
// under a row lock inside the same transaction that writes, so a concurrent
// mutation cannot slip between read and write. The old physical file is
// deleted only after a successful commit; on abort the newly staged file is
// removed and the old one stays valid.
func (s *AbstractService) Update(ctx context.Context, actorID uint, id uint, input *AbstractInput, file *FileUpload) error {
	op := statemachine.NewOperationFSM()

	if err := input.Validate(); err != nil {
		return err
	}
	if err := s.checkReference(ctx, input); err != nil {
		return err
	}

	var undo compensations
	var savedPath string

	if file != nil {
		if err := op.Stage(ctx); err != nil {
			return err
		}
		location, size, err := s.store.Save(file.Reader, file.Name)
		if err != nil {
			return &StorageIOError{Op: "save", Path: file.Name, Err: err}
		}
		savedPath = location
		file.savedSize = size
		undo.add(func() { s.removeOrphan(savedPath) })
	}

	if err := op.Begin(ctx); err != nil {
		undo.run()
		return err
	}

	// Path of the file being replaced; deleted only after commit.
	var oldPath string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FetchForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if savedPath != "" && current.FileDetail != nil {
			oldPath = current.FileDetail.Location
		}

		abstract := &models.Abstract{
			ID:          id,
			Title:       input.Title,
			Description: input.Description,
			Researchers: input.Researchers,
			Citation:    input.Citation,
			Kind:        input.Kind,
		}
		if err := s.repo.UpdateBase(ctx, tx, abstract); err != nil {
			return err
		}
		if err := s.repo.SwapSubtype(ctx, tx, id, current.Kind, input.Kind, input.RefID()); err != nil {
			return err
		}
		if savedPath != "" {
			if err := s.repo.ReplaceFileDetail(ctx, tx, id, savedPath, file.savedSize); err != nil {
				return err
			}
		}
		_, err = s.auditSvc.Record(ctx, tx, actorID, models.ActionUpdateAbstract, models.CategoryAbstract, id)
		return err
	})
	if err != nil {
		_ = op.Abort(ctx)
		undo.run()
		return s.mapTxError(err, input)
	}

	if err := op.Commit(ctx); err != nil {
		return err
	}

	if oldPath != "" {
		_ = op.Reconcile(ctx)
		s.deferStoredFileDelete(oldPath, "replaced attachment")
	}
	_ = op.Finish(ctx)
	return nil
}

// Delete removes an abstract. The audit detail row is inserted while the row
// still exists, then the base-row delete follows inside the same transaction,
// so an audit failure aborts before anything is destroyed. Zero affected rows means a
// concurrent delete won the race: the transaction (audit entry included)
// rolls back and the caller gets a conflict, never a false success. The
// physical file is removed only after commit; the database is authoritative,
// so a missing file at that point is a notice, not an error.
func (s *AbstractService) Delete(ctx context.Context, actorID uint, id uint) (string, error) {
	op := statemachine.NewOperationFSM()

	var title string
	var filePath string

	if err := op.Begin(ctx); err != nil {
		return "", err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FetchForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		title = current.Title

		if current.FileDetail != nil {
			// Stored paths are not trusted blindly: validate against the
			// storage root before any filesystem action is driven by one.
			if _, err := s.store.Resolve(current.FileDetail.Location); err != nil {
				return &StorageIOError{Op: "resolve", Path: current.FileDetail.Location, Err: err}
			}
			filePath = current.FileDetail.Location
		}

		// Audit first: an audit failure must abort before the delete runs.
		if _, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionDeleteAbstract, models.CategoryAbstract, id); err != nil {
			return err
		}

		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		_ = op.Abort(ctx)
		return "", s.mapTxError(err, nil)
	}

	if err := op.Commit(ctx); err != nil {
		return title, err
	}

	if filePath != "" {
		_ = op.Reconcile(ctx)
		s.deferStoredFileDelete(filePath, "attachment of removed abstract")
	}
	_ = op.Finish(ctx)
	return title, nil
}

// Get returns the denormalized view of one abstract
func (s *AbstractService) Get(ctx context.Context, id uint) (*models.AbstractView, error) {
	abstract, err := s.repo.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Err: err}
	}
	view := abstract.ToView()
	return &view, nil
}

// List returns a one-shot page of views matching the query
func (s *AbstractService) List(ctx context.Context, query *repository.AbstractQuery) ([]models.AbstractView, int64, error) {
	abstracts, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, &PersistenceError{Err: err}
	}
	views := make([]models.AbstractView, 0, len(abstracts))
	for i := range abstracts {
		views = append(views, abstracts[i].ToView())
	}
	return views, total, nil
}

// OpenFile validates the stored path and opens the attachment for reading,
// recording a download audit entry first.
func (s *AbstractService) OpenFile(ctx context.Context, actorID uint, id uint) (*os.File, *models.AbstractView, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if view.FileLocation == nil {
		return nil, nil, ErrNotFound
	}

	f, err := s.store.Open(*view.FileLocation)
	if err != nil {
		if errors.Is(err, storage.ErrOutsideRoot) {
			return nil, nil, &StorageIOError{Op: "resolve", Path: *view.FileLocation, Err: err}
		}
		return nil, nil, &StorageIOError{Op: "open", Path: *view.FileLocation, Err: err}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionDownloadAbstract, models.CategoryAbstract, id)
		return err
	})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, view, nil
}

// RecordView writes a view audit entry for an existing abstract
func (s *AbstractService) RecordView(ctx context.Context, actorID uint, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.auditSvc.Record(ctx, tx, actorID, models.ActionViewAbstract, models.CategoryAbstract, id)
		return err
	})
}

// SweepOrphanFiles removes stored files no file_details row references.
// The grace period keeps the sweep from racing an in-flight create whose
// file is staged but whose transaction has not committed yet.
func (s *AbstractService) SweepOrphanFiles(ctx context.Context, grace time.Duration) error {
	referenced, err := s.repo.ReferencedLocations(ctx)
	if err != nil {
		return &PersistenceError{Err: err}
	}
	names, err := s.store.ListOlderThan(time.Now().Add(-grace))
	if err != nil {
		return &StorageIOError{Op: "list", Path: s.store.BasePath(), Err: err}
	}
	for _, name := range names {
		if referenced[name] {
			continue
		}
		removed, err := s.store.Delete(name)
		if err != nil {
			logger.Warn("Orphan sweep failed to delete file", "path", name, "error", err)
			continue
		}
		if removed {
			logger.Info("Orphan sweep removed unreferenced file", "path", name)
		}
	}
	return nil
}

// checkReference verifies the subtype target exists before the transaction
// opens. Defense in depth: the store re-checks via its FK constraint.
func (s *AbstractService) checkReference(ctx context.Context, input *AbstractInput) error {
	switch input.Kind {
	case models.KindThesis:
		ok, err := s.refRepo.ProgramExists(ctx, input.ProgramID)
		if err != nil {
			return &PersistenceError{Err: err}
		}
		if !ok {
			return &ReferentialError{Entity: "program", ID: input.ProgramID}
		}
	case models.KindDissertation:
		ok, err := s.refRepo.DepartmentExists(ctx, input.DepartmentID)
		if err != nil {
			return &PersistenceError{Err: err}
		}
		if !ok {
			return &ReferentialError{Entity: "department", ID: input.DepartmentID}
		}
	}
	return nil
}

func (s *AbstractService) insertSubtype(ctx context.Context, tx *gorm.DB, abstractID uint, input *AbstractInput) error {
	if input.Kind == models.KindThesis {
		return s.repo.InsertThesisDetail(ctx, tx, abstractID, input.ProgramID)
	}
	return s.repo.InsertDissertationDetail(ctx, tx, abstractID, input.DepartmentID)
}

// deferStoredFileDelete removes a file whose referencing row is already
// committed away. Runs on the background worker: the committed state no
// longer points at the file, so losing the delete leaves a harmless orphan
// for the sweep, never a dangling reference. Failures are warnings, a file
// already gone is a notice.
func (s *AbstractService) deferStoredFileDelete(path, what string) {
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		removed, err := s.store.Delete(path)
		if err != nil {
			logger.Warn("Failed to delete "+what, "path", path, "error", err)
			return nil
		}
		if !removed {
			logger.Info("File already gone: "+what, "path", path)
		}
		return nil
	})
}

// removeOrphan deletes a file that was saved for a transaction that never
// committed. Best effort: a failure here is logged, not propagated, because
// the operation already failed for its real reason.
func (s *AbstractService) removeOrphan(path string) {
	if _, err := s.store.Delete(path); err != nil {
		logger.Error("Failed to remove orphaned upload", "path", path, "error", err)
	} else {
		logger.Info("Removed orphaned upload after aborted operation", "path", path)
	}
}

// mapTxError translates repository/transaction errors into the service
// taxonomy. Typed service errors pass through untouched.
func (s *AbstractService) mapTxError(err error, input *AbstractInput) error {
	var le *LoggingError
	var se *StorageIOError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &le), errors.As(err, &se):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrRowMissing):
		return ErrConflict
	case errors.Is(err, repository.ErrReferenceMissing):
		if input != nil && input.Kind == models.KindThesis {
			return &ReferentialError{Entity: "program", ID: input.ProgramID}
		}
		if input != nil {
			return &ReferentialError{Entity: "department", ID: input.DepartmentID}
		}
		return &PersistenceError{Err: err}
	default:
		return &PersistenceError{Err: err}
	}
}
