package services

import (
	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/storage"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Abstract  *AbstractService
	Reference *ReferenceService
	Audit     *AuditService
	Report    *ReportService
}

// NewServices wires all services over the shared repositories, storage and worker
func NewServices(db *gorm.DB, repos *repository.Repositories, store *storage.LocalStorage, worker *jobs.Worker) *Services {
	audit := NewAuditService(db)
	return &Services{
		Abstract:  NewAbstractService(db, repos.Abstract, repos.Reference, audit, store, worker),
		Reference: NewReferenceService(db, repos.Reference, audit),
		Audit:     audit,
		Report:    NewReportService(repos.Abstract),
	}
}
