package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

const reportColumns = `id, report_type, start_date, end_date, generated_by, generated_at,
		total_entries, anomalies_found, status, summary`

// ReportRepository implements the repositories.ReportRepository interface
type ReportRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB, logger *zap.Logger) repositories.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	var summary interface{}
	if report.Summary != nil {
		data, err := json.Marshal(report.Summary)
		if err != nil {
			return fmt.Errorf("failed to encode report summary: %w", err)
		}
		summary = string(data)
	}

	query := `INSERT INTO reports (` + reportColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		report.ID,
		report.ReportType,
		report.StartDate,
		report.EndDate,
		nullString(report.GeneratedBy),
		report.GeneratedAt,
		report.TotalEntries,
		report.AnomaliesFound,
		report.Status,
		summary,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report %s: %w", report.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	r.logger.Debug("report created", zap.String("id", report.ID), zap.String("type", string(report.ReportType)))
	return nil
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	reports, err := r.query(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("report %s: %w", id, repositories.ErrNotFound)
	}
	return reports[0], nil
}

// List returns all reports in insertion order
func (r *ReportRepository) List(ctx context.Context) ([]*models.Report, error) {
	return r.query(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY seq`)
}

func (r *ReportRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Report, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		var (
			report      models.Report
			generatedBy sql.NullString
			summary     []byte
		)
		err := rows.Scan(
			&report.ID,
			&report.ReportType,
			&report.StartDate,
			&report.EndDate,
			&generatedBy,
			&report.GeneratedAt,
			&report.TotalEntries,
			&report.AnomaliesFound,
			&report.Status,
			&summary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report.GeneratedBy = generatedBy.String
		if len(summary) > 0 {
			report.Summary = &models.AuditStats{}
			if err := json.Unmarshal(summary, report.Summary); err != nil {
				return nil, fmt.Errorf("failed to decode report summary: %w", err)
			}
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}
