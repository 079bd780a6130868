package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportType represents the compliance framework a report is generated for
type ReportType string

const (
	ReportTypeSOC2  ReportType = "SOC2"
	ReportTypeHIPAA ReportType = "HIPAA"
	ReportTypeGDPR  ReportType = "GDPR"
)

// Valid reports whether the report type is known
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeSOC2, ReportTypeHIPAA, ReportTypeGDPR:
		return true
	}
	return false
}

// ReportStatusCompleted is the only status a generated report carries
const ReportStatusCompleted = "COMPLETED"

// Report is an immutable compliance report over a time window
type Report struct {
	ID             string      `json:"id" db:"id"`
	ReportType     ReportType  `json:"reportType" db:"report_type"`
	StartDate      int64       `json:"startDate" db:"start_date"` // ms since epoch
	EndDate        int64       `json:"endDate" db:"end_date"`     // ms since epoch
	GeneratedBy    string      `json:"generatedBy,omitempty" db:"generated_by"`
	GeneratedAt    int64       `json:"generatedAt" db:"generated_at"`
	TotalEntries   int         `json:"totalEntries" db:"total_entries"`
	AnomaliesFound int         `json:"anomaliesFound" db:"anomalies_found"`
	Status         string      `json:"status" db:"status"`
	Summary        *AuditStats `json:"summary,omitempty" db:"summary"`
}

// TableName returns the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

// NewReport creates a completed report with zero counts
func NewReport(reportType ReportType, startDate, endDate int64, generatedBy string, now time.Time) *Report {
	return &Report{
		ID:          uuid.NewString(),
		ReportType:  reportType,
		StartDate:   startDate,
		EndDate:     endDate,
		GeneratedBy: generatedBy,
		GeneratedAt: now.UnixMilli(),
		Status:      ReportStatusCompleted,
	}
}

// AuditStats summarises the audit entries of a window
type AuditStats struct {
	TotalEntries      int            `json:"totalEntries"`
	EntriesByAction   map[string]int `json:"entriesByAction"`
	EntriesByUser     map[string]int `json:"entriesByUser"`
	EntriesByResource map[string]int `json:"entriesByResource"`
	SuccessRate       float64        `json:"successRate"`
	StartDate         int64          `json:"startDate"`
	EndDate           int64          `json:"endDate"`
}

// ComputeStats aggregates the given entries. The window bounds are copied
// onto the result as-is; callers are expected to have filtered already.
func ComputeStats(entries []*AuditEntry, start, end int64) *AuditStats {
	stats := &AuditStats{
		EntriesByAction:   make(map[string]int),
		EntriesByUser:     make(map[string]int),
		EntriesByResource: make(map[string]int),
		StartDate:         start,
		EndDate:           end,
	}
	succeeded := 0
	for _, e := range entries {
		stats.TotalEntries++
		stats.EntriesByAction[string(e.Action)]++
		stats.EntriesByUser[e.UserID]++
		if e.ResourceType != "" {
			stats.EntriesByResource[e.ResourceType]++
		}
		if e.Succeeded() {
			succeeded++
		}
	}
	if stats.TotalEntries > 0 {
		stats.SuccessRate = float64(succeeded) / float64(stats.TotalEntries)
	}
	return stats
}

// CountFailures counts entries with FAILURE status
func CountFailures(entries []*AuditEntry) int {
	n := 0
	for _, e := range entries {
		if !e.Succeeded() {
			n++
		}
	}
	return n
}
