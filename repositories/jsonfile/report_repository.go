package jsonfile

import (
	"context"
	"fmt"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// ReportRepository implements repositories.ReportRepository on the reports collection
type ReportRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(store *Store, logger *zap.Logger) repositories.ReportRepository {
	return &ReportRepository{
		store:  store,
		logger: logger,
	}
}

// Create appends a new report
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	err := Mutate(ctx, r.store, ReportsCollection, func(reports []models.Report) ([]models.Report, error) {
		for i := range reports {
			if reports[i].ID == report.ID {
				return nil, fmt.Errorf("report %s: %w", report.ID, repositories.ErrAlreadyExists)
			}
		}
		return append(reports, *report), nil
	})
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	r.logger.Debug("report created", zap.String("id", report.ID), zap.String("type", string(report.ReportType)))
	return nil
}

// GetByID retrieves the first report with the given ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	reports, err := Load[models.Report](ctx, r.store, ReportsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	for i := range reports {
		if reports[i].ID == id {
			return &reports[i], nil
		}
	}
	return nil, fmt.Errorf("report %s: %w", id, repositories.ErrNotFound)
}

// List returns all reports in insertion order
func (r *ReportRepository) List(ctx context.Context) ([]*models.Report, error) {
	reports, err := Load[models.Report](ctx, r.store, ReportsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	result := make([]*models.Report, len(reports))
	for i := range reports {
		result[i] = &reports[i]
	}
	return result, nil
}
