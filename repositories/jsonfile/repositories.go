package jsonfile

import (
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// Collection names
const (
	UsersCollection   = "users"
	AuditsCollection  = "audits"
	ReportsCollection = "reports"
)

// NewRepositories creates all file-backed repositories over one store
func NewRepositories(store *Store, logger *zap.Logger) *repositories.Repositories {
	return &repositories.Repositories{
		Users:   NewUserRepository(store, logger),
		Audits:  NewAuditRepository(store, logger),
		Reports: NewReportRepository(store, logger),
	}
}
