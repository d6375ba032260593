package handlers

import (
	"github.com/acadarchive/archive-api/internal/config"
	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Abstract  *AbstractHandler
	Reference *ReferenceHandler
	Audit     *AuditHandler
	Report    *ReportHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, cfg *config.Config, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(worker),
		Abstract:  NewAbstractHandler(svcs.Abstract, cfg.MaxUploadBytes()),
		Reference: NewReferenceHandler(svcs.Reference),
		Audit:     NewAuditHandler(svcs.Audit),
		Report:    NewReportHandler(svcs.Report, svcs.Abstract),
	}
}
