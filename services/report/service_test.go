package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/audit-trail/internal/observability"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"github.com/upb/audit-trail/services"
	"go.uber.org/zap"
)

// MockReportRepository is a mock implementation of ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context) ([]*models.Report, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.([]*models.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditRepository only answers date range queries
type MockAuditRepository struct {
	mock.Mock
	repositories.AuditRepository
}

func (m *MockAuditRepository) ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, start, end)
	if e := args.Get(0); e != nil {
		return e.([]*models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestService(reports *MockReportRepository, audits *MockAuditRepository, aggregate bool, metrics *observability.Metrics) *ReportService {
	s := NewReportService(reports, audits, aggregate, metrics, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestReportService_GenerateZeroFill(t *testing.T) {
	reports := new(MockReportRepository)
	audits := new(MockAuditRepository)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := newTestService(reports, audits, false, metrics)
	ctx := context.Background()

	reports.On("Create", ctx, mock.AnythingOfType("*models.Report")).Return(nil)

	report, err := s.Generate(ctx, GenerateRequest{ReportType: models.ReportTypeSOC2, StartDate: 0, EndDate: 9_999_999_999_999})
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.ReportStatusCompleted, report.Status)
	assert.Zero(t, report.TotalEntries)
	assert.Zero(t, report.AnomaliesFound)
	assert.Nil(t, report.Summary)
	assert.Equal(t, fixedNow.UnixMilli(), report.GeneratedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReportsGenerated.WithLabelValues("SOC2")))
	audits.AssertNotCalled(t, "ListByDateRange", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_GenerateAggregate(t *testing.T) {
	reports := new(MockReportRepository)
	audits := new(MockAuditRepository)
	s := newTestService(reports, audits, true, nil)
	ctx := context.Background()

	entries := []*models.AuditEntry{
		{ID: "a1", UserID: "u1", Action: models.ActionCreate, Status: models.StatusSuccess, Timestamp: 100},
		{ID: "a2", UserID: "u2", Action: models.ActionQuery, Status: models.StatusFailure, Timestamp: 150},
		{ID: "a3", UserID: "u2", Action: models.ActionQuery, Status: models.StatusFailure, Timestamp: 200},
	}
	audits.On("ListByDateRange", ctx, int64(100), int64(200)).Return(entries, nil)
	reports.On("Create", ctx, mock.AnythingOfType("*models.Report")).Return(nil)

	report, err := s.Generate(ctx, GenerateRequest{ReportType: models.ReportTypeGDPR, StartDate: 100, EndDate: 200, GeneratedBy: "auditor-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalEntries)
	assert.Equal(t, 2, report.AnomaliesFound)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 3, report.Summary.TotalEntries)
	assert.Equal(t, "auditor-1", report.GeneratedBy)
}

func TestReportService_GenerateAggregateInvertedWindow(t *testing.T) {
	reports := new(MockReportRepository)
	audits := new(MockAuditRepository)
	s := newTestService(reports, audits, true, nil)
	ctx := context.Background()

	reports.On("Create", ctx, mock.Anything).Return(nil)

	report, err := s.Generate(ctx, GenerateRequest{ReportType: models.ReportTypeHIPAA, StartDate: 200, EndDate: 100})
	require.NoError(t, err)
	assert.Zero(t, report.TotalEntries)
	audits.AssertNotCalled(t, "ListByDateRange", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_GenerateValidation(t *testing.T) {
	tests := []struct {
		name       string
		reportType models.ReportType
		start, end int64
	}{
		{"missing type", "", 0, 1},
		{"unknown type", "PCI", 0, 1},
		{"negative start", models.ReportTypeSOC2, -1, 1},
		{"negative end", models.ReportTypeGDPR, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := new(MockReportRepository)
			s := newTestService(reports, new(MockAuditRepository), false, nil)

			_, err := s.Generate(context.Background(), GenerateRequest{
				ReportType: tt.reportType,
				StartDate:  tt.start,
				EndDate:    tt.end,
			})
			assert.True(t, services.IsValidationError(err))
			reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestReportService_GetAndList(t *testing.T) {
	reports := new(MockReportRepository)
	s := newTestService(reports, new(MockAuditRepository), false, nil)
	ctx := context.Background()

	r1 := &models.Report{ID: "r1", ReportType: models.ReportTypeSOC2}
	reports.On("GetByID", ctx, "r1").Return(r1, nil)
	reports.On("GetByID", ctx, "missing").Return(nil, fmt.Errorf("report missing: %w", repositories.ErrNotFound))
	reports.On("List", ctx).Return(nil, nil)

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r1, got)

	_, err = s.Get(ctx, "missing")
	assert.True(t, services.IsNotFoundError(err))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
