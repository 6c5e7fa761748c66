// Package jobs contains background workers that run on a schedule.
// The audit retention job periodically deletes audit log entries older than the
// configured retention window so the audit table does not grow without bound.
// Jobs are designed to be idempotent — re-running after a crash produces the
// same result as a clean run.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/autoescola-ideal/sistema-interno/internal/audit"
	"github.com/autoescola-ideal/sistema-interno/internal/config"
)

// AuditRetentionJob periodically purges audit log entries past the retention window.
type AuditRetentionJob struct {
	recorder      *audit.Recorder
	retentionDays int
	interval      time.Duration
	stopChan      chan struct{}
}

// NewAuditRetentionJob creates the retention job from the audit configuration.
func NewAuditRetentionJob(recorder *audit.Recorder, cfg config.AuditConfig) *AuditRetentionJob {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &AuditRetentionJob{
		recorder:      recorder,
		retentionDays: cfg.RetentionDays,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the retention sweep loop. It blocks until Stop is called or the
// context is cancelled, so callers run it in a goroutine.
func (j *AuditRetentionJob) Start(ctx context.Context) {
	if j.recorder == nil || j.retentionDays <= 0 {
		log.Println("Audit retention: disabled, not starting")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Printf("Audit retention started: keeping %d days, sweeping every %v", j.retentionDays, j.interval)

	// Run immediately on start
	j.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopChan:
			log.Println("Audit retention stopped")
			return
		case <-ctx.Done():
			log.Println("Audit retention context cancelled")
			return
		}
	}
}

// Stop stops the retention job.
func (j *AuditRetentionJob) Stop() {
	close(j.stopChan)
}

func (j *AuditRetentionJob) runSweep(ctx context.Context) {
	purged, err := j.recorder.PurgeOlderThan(ctx, j.retentionDays)
	if err != nil {
		log.Printf("Audit retention sweep failed: %v", err)
		return
	}

	if purged > 0 {
		log.Printf("Audit retention sweep completed: purged %d entries", purged)
	}
}
