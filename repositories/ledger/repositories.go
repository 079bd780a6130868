package ledger

import (
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// NewRepositories binds users and audits to the chaincode. The chaincode has
// no report functions, so reports are kept by the given repository.
func NewRepositories(contract Contract, reports repositories.ReportRepository, logger *zap.Logger) *repositories.Repositories {
	return &repositories.Repositories{
		Users:   NewUserRepository(contract, logger),
		Audits:  NewAuditRepository(contract, logger),
		Reports: reports,
	}
}
