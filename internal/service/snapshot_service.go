package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attendly/fieldforce-api/internal/models"
	"github.com/attendly/fieldforce-api/pkg/config"
	"github.com/attendly/fieldforce-api/pkg/jobs"
)

// SnapshotService writes a JSON snapshot of every attendance record change to
// disk. Snapshots are best effort; a failed write is logged and dropped so
// the state transition that triggered it is never affected.
type SnapshotService struct {
	queue   *jobs.Queue
	dir     string
	enabled bool
	logger  *zap.Logger
}

// NewSnapshotService constructs the snapshot subscriber.
func NewSnapshotService(cfg config.SnapshotConfig, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SnapshotService{dir: cfg.Dir, enabled: cfg.Enabled, logger: logger}
	s.queue = jobs.NewQueue("snapshot", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the snapshot workers.
func (s *SnapshotService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("snapshot dir unavailable, disabling snapshots", zap.Error(err))
		s.enabled = false
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue and stops the workers.
func (s *SnapshotService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// RecordChanged enqueues a snapshot of the record without blocking.
func (s *SnapshotService) RecordChanged(rec *models.AttendanceRecord) {
	if !s.enabled || rec == nil {
		return
	}
	copied := *rec
	if !s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: "record_snapshot", Payload: &copied}) {
		s.logger.Warn("snapshot queue full, dropping snapshot",
			zap.String("employee_id", rec.EmployeeID))
	}
}

func (s *SnapshotService) handle(_ context.Context, job jobs.Job) error {
	rec, ok := job.Payload.(*models.AttendanceRecord)
	if !ok {
		s.logger.Warn("snapshot job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode snapshot", zap.Error(err))
		return nil
	}
	name := fmt.Sprintf("%s_%s_%s.json",
		rec.EmployeeID, rec.Date.Format("2006-01-02"), rec.UpdatedAt.UTC().Format("150405"))
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		s.logger.Error("failed to write snapshot", zap.String("file", name), zap.Error(err))
	}
	return nil
}
