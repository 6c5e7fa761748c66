// Package audit records security-relevant events.
//
// Writes are fire-and-forget: Record spawns a goroutine with its own timeout
// so a slow or unavailable database never delays or fails the request that
// triggered the event. Failures are logged and dropped.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/db/models"
	"github.com/autoescola-ideal/sistema-interno/internal/db/repositories"
	"github.com/autoescola-ideal/sistema-interno/internal/safego"
)

// writeTimeout bounds each async audit insert
const writeTimeout = 5 * time.Second

// Store is the subset of the audit repository the recorder needs
type Store interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder writes audit entries asynchronously and answers audit queries
type Recorder struct {
	store   Store
	enabled bool
}

// NewRecorder creates a Recorder. When enabled is false, Record is a no-op
// but queries still work.
func NewRecorder(store Store, enabled bool) *Recorder {
	return &Recorder{store: store, enabled: enabled}
}

// Record writes an audit entry in the background. userID may be empty for
// events with no authenticated actor (failed logins). The request, when
// given, contributes client IP and user agent. Never blocks, never fails.
func (r *Recorder) Record(userID, action, resource string, details map[string]interface{}, c *gin.Context) {
	if r == nil || !r.enabled || r.store == nil {
		return
	}

	entry := &models.AuditLog{
		Action:   action,
		Resource: resource,
		Details:  details,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if c != nil {
		ip := c.ClientIP()
		entry.IPAddress = &ip
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.store.CreateAuditLog(ctx, entry); err != nil {
			slog.Warn("audit write failed", "action", action, "resource", resource, "error", err)
		}
	})
}

// Query returns audit entries matching the filters, newest first
func (r *Recorder) Query(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditLog, error) {
	return r.store.ListAuditLogs(ctx, filters)
}

// PurgeOlderThan removes entries older than the given number of days.
// Returns the number of entries removed.
func (r *Recorder) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	return r.store.DeleteOlderThan(ctx, cutoff)
}
