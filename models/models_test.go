package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

// User tests
func TestNewUser(t *testing.T) {
	user := NewUser("alice", "a@x.io", RoleUser, "Org1", nil, testNow)

	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NotNil(t, user.Permissions)
	assert.Empty(t, user.Permissions)
	assert.Equal(t, testNow.UnixMilli(), user.CreatedAt)
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
}

func TestNewUser_KeepsPermissions(t *testing.T) {
	user := NewUser("bob", "b@x.io", RoleAuditor, "Org2", []string{"audit:read"}, testNow)
	assert.Equal(t, []string{"audit:read"}, user.Permissions)
}

func TestNewUser_PermissionsMarshalAsArray(t *testing.T) {
	data, err := json.Marshal(NewUser("alice", "a@x.io", RoleUser, "Org1", nil, testNow))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"permissions":[]`)
}

func TestUserRole_Valid(t *testing.T) {
	tests := []struct {
		role UserRole
		want bool
	}{
		{RoleUser, true},
		{RoleAuditor, true},
		{RoleAdmin, true},
		{"admin", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Valid())
		})
	}
}

func TestUser_Apply(t *testing.T) {
	user := NewUser("alice", "a@x.io", RoleUser, "Org1", nil, testNow)

	admin := RoleAdmin
	user.Apply(UserPatch{Role: &admin}, 2000)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, int64(2000), user.UpdatedAt)

	inactive := false
	user.Apply(UserPatch{Active: &inactive}, 3000)
	assert.False(t, user.Active)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.Equal(t, int64(3000), user.UpdatedAt)
}

func TestUserPatch_IsEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.IsEmpty())
	active := true
	assert.False(t, UserPatch{Active: &active}.IsEmpty())
}

// Audit entry tests
func TestNewAuditEntry(t *testing.T) {
	entry := NewAuditEntry("u1", ActionCreate, testNow).
		WithResource("CREDENTIAL", "cred-001").
		WithRequest("10.0.0.1", "sess-1")

	_, err := uuid.Parse(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), entry.Timestamp)
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "CREDENTIAL", entry.ResourceType)
	assert.Equal(t, "cred-001", entry.ResourceID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "sess-1", entry.SessionID)
}

func TestAuditEntry_WithValues(t *testing.T) {
	entry := NewAuditEntry("u1", ActionUpdate, testNow).
		WithValues(nil, map[string]string{"role": "ADMIN"})

	assert.Nil(t, entry.OldValue)
	assert.JSONEq(t, `{"role":"ADMIN"}`, string(entry.NewValue))

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "oldValue")
	assert.NotContains(t, string(data), "txId")
}

func TestAuditAction_Valid(t *testing.T) {
	for _, a := range []AuditAction{ActionCreate, ActionQuery, ActionUpdate, ActionDelete, ActionVerify, ActionRevoke, ActionIssue} {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, AuditAction("create").Valid())
	assert.False(t, AuditAction("PATCH").Valid())
}

func TestAuditEntry_InRange(t *testing.T) {
	entry := &AuditEntry{Timestamp: 100}

	assert.True(t, entry.InRange(100, 100))
	assert.True(t, entry.InRange(50, 150))
	assert.False(t, entry.InRange(101, 200))
	assert.False(t, entry.InRange(0, 99))
}

func TestAuditEntry_Succeeded(t *testing.T) {
	assert.True(t, (&AuditEntry{Status: StatusSuccess}).Succeeded())
	assert.True(t, (&AuditEntry{}).Succeeded())
	assert.False(t, (&AuditEntry{Status: StatusFailure}).Succeeded())
}

// Report tests
func TestNewReport(t *testing.T) {
	report := NewReport(ReportTypeSOC2, 0, 1, "auditor-1", testNow)

	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, ReportStatusCompleted, report.Status)
	assert.Zero(t, report.TotalEntries)
	assert.Zero(t, report.AnomaliesFound)
	assert.Nil(t, report.Summary)
	assert.Equal(t, testNow.UnixMilli(), report.GeneratedAt)
	assert.Equal(t, "reports", report.TableName())
}

func TestReportType_Valid(t *testing.T) {
	assert.True(t, ReportTypeSOC2.Valid())
	assert.True(t, ReportTypeHIPAA.Valid())
	assert.True(t, ReportTypeGDPR.Valid())
	assert.False(t, ReportType("PCI").Valid())
}

func TestComputeStats(t *testing.T) {
	entries := []*AuditEntry{
		{UserID: "u1", Action: ActionCreate, ResourceType: "CREDENTIAL", Status: StatusSuccess},
		{UserID: "u1", Action: ActionQuery, ResourceType: "CREDENTIAL", Status: StatusFailure},
		{UserID: "u2", Action: ActionCreate, Status: StatusSuccess},
		{UserID: "u2", Action: ActionCreate, ResourceType: "USER", Status: StatusSuccess},
	}

	stats := ComputeStats(entries, 10, 20)

	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, map[string]int{"CREATE": 3, "QUERY": 1}, stats.EntriesByAction)
	assert.Equal(t, map[string]int{"u1": 2, "u2": 2}, stats.EntriesByUser)
	assert.Equal(t, map[string]int{"CREDENTIAL": 2, "USER": 1}, stats.EntriesByResource)
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)
	assert.Equal(t, int64(10), stats.StartDate)
	assert.Equal(t, int64(20), stats.EndDate)
	assert.Equal(t, 1, CountFailures(entries))
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, 0, 0)

	assert.Zero(t, stats.TotalEntries)
	assert.Zero(t, stats.SuccessRate)
	assert.NotNil(t, stats.EntriesByAction)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entriesByUser":{}`)
}
