package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
)

var auditCols = []string{
	"id", "user_id", "action", "resource", "details", "ip_address", "user_agent", "created_at",
}

func sampleAuditRow() *sqlmock.Rows {
	uid := "user-1"
	ip := "10.0.0.1"
	return sqlmock.NewRows(auditCols).
		AddRow("log-1", &uid, "login", "auth", []byte(`{"unidade":"coop"}`), &ip, nil, time.Now())
}

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), mock
}

// ---------------------------------------------------------------------------
// CreateAuditLog
// ---------------------------------------------------------------------------

func TestCreateAuditLog_Success(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	uid := "user-1"
	log := &models.AuditLog{
		UserID:   &uid,
		Action:   models.AuditActionLogin,
		Resource: "auth",
		Details:  map[string]interface{}{"unidade": "coop"},
	}
	if err := repo.CreateAuditLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.ID == "" {
		t.Error("expected ID to be set")
	}
	if log.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestCreateAuditLog_NilUserAndDetails(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{Action: models.AuditActionLoginFailed, Resource: "auth"}
	if err := repo.CreateAuditLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAuditLog_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errDB)

	log := &models.AuditLog{Action: "login", Resource: "auth"}
	if err := repo.CreateAuditLog(context.Background(), log); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// ListAuditLogs
// ---------------------------------------------------------------------------

func TestListAuditLogs_NoFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT.*FROM audit_logs.*ORDER BY created_at DESC").
		WillReturnRows(sampleAuditRow())

	logs, err := repo.ListAuditLogs(context.Background(), AuditFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if logs[0].Action != "login" {
		t.Errorf("Action = %q, want login", logs[0].Action)
	}
	if logs[0].Details["unidade"] != "coop" {
		t.Errorf("Details[unidade] = %v, want coop", logs[0].Details["unidade"])
	}
}

func TestListAuditLogs_AllFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT.*FROM audit_logs.*AND user_id.*AND action.*AND resource.*AND ip_address.*AND created_at >=.*AND created_at <=").
		WillReturnRows(sampleAuditRow())

	uid := "user-1"
	action := "login"
	resource := "auth"
	ip := "10.0.0.1"
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()
	logs, err := repo.ListAuditLogs(context.Background(), AuditFilters{
		UserID:    &uid,
		Action:    &action,
		Resource:  &resource,
		IPAddress: &ip,
		DateFrom:  &from,
		DateTo:    &to,
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("len(logs) = %d, want 1", len(logs))
	}
}

func TestListAuditLogs_Empty(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows(auditCols))

	logs, err := repo.ListAuditLogs(context.Background(), AuditFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("len(logs) = %d, want 0", len(logs))
	}
}

func TestListAuditLogs_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT.*FROM audit_logs").
		WillReturnError(errDB)

	if _, err := repo.ListAuditLogs(context.Background(), AuditFilters{}); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// DeleteOlderThan
// ---------------------------------------------------------------------------

func TestDeleteOlderThan_Success(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("DELETE FROM audit_logs WHERE created_at <").
		WillReturnResult(sqlmock.NewResult(0, 17))

	removed, err := repo.DeleteOlderThan(context.Background(), time.Now().AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 17 {
		t.Errorf("removed = %d, want 17", removed)
	}
}

func TestDeleteOlderThan_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("DELETE FROM audit_logs").
		WillReturnError(errDB)

	if _, err := repo.DeleteOlderThan(context.Background(), time.Now()); err == nil {
		t.Error("expected error, got nil")
	}
}
