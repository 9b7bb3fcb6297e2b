package handler

import (
	"github.com/focuscycle/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	cycles   *service.CycleService
	subjects *service.SubjectService
	sessions *service.SessionService
	stats    *service.StatsService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB) *API {
	return &API{
		db:       db,
		cycles:   service.NewCycleService(db),
		subjects: service.NewSubjectService(db),
		sessions: service.NewSessionService(db),
		stats:    service.NewStatsService(db),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
