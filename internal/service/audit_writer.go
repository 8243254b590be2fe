package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/jobs"
)

// AuditWriter moves enrollment audit inserts off the request path. Entries
// are written by a small worker pool and dropped, with a warning, when the
// buffer is full.
type AuditWriter struct {
	queue  *jobs.Queue[*models.EnrollmentAudit]
	logger *zap.Logger
}

// NewAuditWriter builds a writer in front of repo and starts its workers.
func NewAuditWriter(repo enrollmentAuditRepository, cfg jobs.Config) *AuditWriter {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	w := &AuditWriter{logger: cfg.Logger}
	w.queue = jobs.NewQueue[*models.EnrollmentAudit]("enrollment-audit", func(ctx context.Context, entry *models.EnrollmentAudit) error {
		return repo.Create(ctx, entry)
	}, cfg)
	w.queue.Start()
	return w
}

// Create queues entry. It only fails when the writer is closed or saturated.
func (w *AuditWriter) Create(_ context.Context, entry *models.EnrollmentAudit) error {
	if entry == nil {
		return nil
	}
	if err := w.queue.Enqueue(entry); err != nil {
		w.logger.Warn("enrollment audit dropped", zap.Int64("course_id", entry.CourseID), zap.Error(err))
		return err
	}
	return nil
}

// Close flushes buffered entries.
func (w *AuditWriter) Close(ctx context.Context) error {
	return w.queue.Stop(ctx)
}
