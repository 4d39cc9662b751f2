// Package syncer is the run orchestrator: it resolves the sync window,
// pages through the source, transforms and upserts each instance, advances
// the checkpoint and emits a summary notification. One bad instance never
// loses the rest of the batch; containment happens per instance, not per
// page or per run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syncline-io/approvalsync/internal/domain"
	"github.com/syncline-io/approvalsync/internal/logger"
	"github.com/syncline-io/approvalsync/internal/metrics"
	"github.com/syncline-io/approvalsync/internal/repository"
	"github.com/syncline-io/approvalsync/internal/transform"
)

// Notifier delivers a plain-text run summary. Delivery failures are logged
// and swallowed here.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Config carries the table identifiers and tuning for the engine.
type Config struct {
	MainTable    string
	ActionTable  string // optional; empty disables action history rows
	BatchSize    int
	DefaultHours int
	ProcessCode  string
	Statuses     []string
}

// Options selects the window for one run. Explicit Start and End take
// precedence over Mode.
type Options struct {
	Mode  domain.RunMode
	Start time.Time
	End   time.Time
}

// Service runs sync passes.
type Service interface {
	Run(ctx context.Context, opts Options) (*domain.RunStats, error)
}

type service struct {
	source   repository.Source
	dest     repository.Destination
	ckpt     repository.Checkpoint
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// NewService creates the sync engine.
func NewService(source repository.Source, dest repository.Destination, ckpt repository.Checkpoint, notifier Notifier, cfg Config) Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DefaultHours <= 0 {
		cfg.DefaultHours = DefaultHours
	}
	return &service{
		source:   source,
		dest:     dest,
		ckpt:     ckpt,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one sync pass. The checkpoint advances to the window end
// only when the page loop completed; an aborted loop leaves it untouched so
// the next run re-covers the same window.
func (s *service) Run(ctx context.Context, opts Options) (*domain.RunStats, error) {
	log := logger.FromContext(ctx)
	started := s.now()

	window := s.resolveWindow(ctx, opts)
	log.Info("starting sync run",
		"start", window.Start.Format(domain.TimeLayout),
		"end", window.End.Format(domain.TimeLayout))

	stats, aborted := s.syncWindow(ctx, window)

	if aborted {
		log.Warn("page loop aborted, checkpoint left untouched")
	} else if err := s.ckpt.Save(window.End); err != nil {
		err = fmt.Errorf("failed to save checkpoint: %w", err)
		log.Error("run failed", "error", err)
		s.notify(ctx, fmt.Sprintf("同步任务失败: %v", err))
		return stats, err
	}

	elapsed := s.now().Sub(started)
	metrics.RunDuration.Observe(elapsed.Seconds())
	log.Info("sync run finished",
		"total", stats.Total, "success", stats.Success, "failed", stats.Failed,
		"main_upserted", stats.MainUpserted, "action_inserted", stats.ActionInserted,
		"elapsed", elapsed.Round(time.Millisecond))

	s.notify(ctx, summaryMessage(window, stats, elapsed))
	return stats, nil
}

// resolveWindow picks the run window. Precedence: explicit bounds, then
// init mode, then full-check mode, then checkpoint-derived incremental.
func (s *service) resolveWindow(ctx context.Context, opts Options) domain.Window {
	now := s.now()
	if !opts.Start.IsZero() && !opts.End.IsZero() {
		return domain.Window{Start: opts.Start, End: opts.End}
	}
	switch opts.Mode {
	case domain.ModeInit:
		return domain.Window{Start: now.Add(-initWindow), End: now}
	case domain.ModeFullCheck:
		return domain.Window{Start: now.Add(-fullCheckWindow), End: now}
	}

	start, err := s.ckpt.Load()
	if err != nil {
		if !errors.Is(err, domain.ErrCheckpointUnavailable) {
			logger.FromContext(ctx).Error("failed to load checkpoint", "error", err)
		}
		fallback := time.Duration(s.cfg.DefaultHours) * time.Hour
		logger.FromContext(ctx).Warn("checkpoint unavailable, falling back to default window",
			"hours", s.cfg.DefaultHours, "error", err)
		start = now.Add(-fallback)
	}
	return domain.Window{Start: start, End: now}
}

// syncWindow pages through the source and processes every listed instance.
// It reports whether the page loop aborted on a listing failure.
func (s *service) syncWindow(ctx context.Context, window domain.Window) (*domain.RunStats, bool) {
	log := logger.FromContext(ctx)
	stats := &domain.RunStats{}
	cursor := int64(0)

	for {
		page, err := s.source.ListInstances(ctx, domain.ListQuery{
			Start:       window.Start,
			End:         window.End,
			ProcessCode: s.cfg.ProcessCode,
			Statuses:    s.cfg.Statuses,
			Cursor:      cursor,
			Size:        s.cfg.BatchSize,
		})
		if err != nil {
			log.Error("failed to list instances", "cursor", cursor, "error", err)
			return stats, true
		}
		if len(page.Items) == 0 {
			return stats, false
		}

		stats.Total += len(page.Items)
		for _, item := range page.Items {
			s.processInstance(ctx, item, stats)
		}

		if !page.HasMore || page.NextCursor == 0 {
			return stats, false
		}
		if page.NextCursor == cursor {
			log.Warn("source repeated page cursor, stopping loop", "cursor", cursor)
			return stats, false
		}
		cursor = page.NextCursor
	}
}

// processInstance is the partial-failure containment boundary: any error
// below it is logged with the instance id, counted, and never propagated.
func (s *service) processInstance(ctx context.Context, item domain.InstanceSummary, stats *domain.RunStats) {
	if item.InstanceID == "" {
		return
	}
	if err := s.syncInstance(ctx, item.InstanceID, stats); err != nil {
		stats.Failed++
		metrics.InstancesProcessed.WithLabelValues(metrics.ResultFailed).Inc()
		logger.FromContext(ctx).Error("failed to sync instance", "instance_id", item.InstanceID, "error", err)
		return
	}
	stats.Success++
	metrics.InstancesProcessed.WithLabelValues(metrics.ResultSuccess).Inc()
	logger.FromContext(ctx).Debug("synced instance", "instance_id", item.InstanceID)
}

func (s *service) syncInstance(ctx context.Context, instanceID string, stats *domain.RunStats) error {
	detail, err := s.source.GetInstanceDetail(ctx, instanceID)
	if err != nil {
		return err
	}
	s.enrichApplicant(ctx, detail)

	record := transform.BuildMainRecord(detail)

	existing, err := s.dest.FindByKey(ctx, s.cfg.MainTable, mainKeyField, instanceID)
	if err != nil {
		return err
	}
	recordID := ""
	op := metrics.OpCreate
	if existing != nil {
		recordID = existing.RecordID
		op = metrics.OpUpdate
	}
	if _, err := s.dest.Upsert(ctx, s.cfg.MainTable, recordID, record.Fields()); err != nil {
		return err
	}
	stats.MainUpserted++
	metrics.RecordsWritten.WithLabelValues(metrics.TableMain, op).Inc()

	if s.cfg.ActionTable != "" {
		stats.ActionInserted += s.insertActions(ctx, detail)
	}
	return nil
}

// enrichApplicant fills in the originator's display name when the detail
// carries only a user id. The lookup is best-effort; the record falls back
// to the raw id when it yields nothing.
func (s *service) enrichApplicant(ctx context.Context, detail *domain.InstanceDetail) {
	if detail.OriginatorUserName != "" || detail.OriginatorUserID == "" {
		return
	}
	user, err := s.source.GetUserInfo(ctx, detail.OriginatorUserID)
	if err != nil || user == nil {
		return
	}
	detail.OriginatorUserName = user.Name
}

// insertActions appends one row per historical action. Rows are always
// inserted, never deduplicated, so a rerun after a partial failure can
// duplicate them; the destination enforces no composite key that would
// allow an upsert here.
func (s *service) insertActions(ctx context.Context, detail *domain.InstanceDetail) int {
	inserted := 0
	for _, rec := range transform.BuildActionRecords(detail) {
		if _, err := s.dest.Upsert(ctx, s.cfg.ActionTable, "", rec.Fields()); err != nil {
			logger.FromContext(ctx).Warn("failed to insert action record",
				"instance_id", rec.InstanceID, "node", rec.NodeName, "error", err)
			continue
		}
		inserted++
		metrics.RecordsWritten.WithLabelValues(metrics.TableAction, metrics.OpCreate).Inc()
	}
	return inserted
}

// notify delivers text best-effort. A run never fails because its summary
// did not arrive.
func (s *service) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, text); err != nil {
		logger.FromContext(ctx).Warn("failed to send notification", "error", err)
	}
}

func summaryMessage(window domain.Window, stats *domain.RunStats, elapsed time.Duration) string {
	return fmt.Sprintf(`钉钉审批同步完成

时间范围: %s ~ %s
总计: %d 条
成功: %d 条
失败: %d 条
主表更新: %d 条
明细表新增: %d 条
耗时: %.2f 秒
`,
		window.Start.Format(domain.TimeLayout), window.End.Format(domain.TimeLayout),
		stats.Total, stats.Success, stats.Failed,
		stats.MainUpserted, stats.ActionInserted,
		elapsed.Seconds())
}
