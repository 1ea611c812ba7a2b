package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ridedesk/internal/queue"
	"ridedesk/internal/storage"
)

// ObjectRemover is the slice of the object store the worker needs.
type ObjectRemover interface {
	RemovePrefix(ctx context.Context, prefix string) (int, error)
	RemoveOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

type DraftCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type Processor struct {
	objects  ObjectRemover
	drafts   DraftCounter
	draftTTL time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func NewProcessor(objects ObjectRemover, drafts DraftCounter, draftTTL time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		objects:  objects,
		drafts:   drafts,
		draftTTL: draftTTL,
		now:      time.Now,
		logger:   logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeTask(msg.Values)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch task.Type {
	case queue.TaskCaptureCleanup:
		return p.handleCaptureCleanup(ctx)
	case queue.TaskMediaPurge:
		return p.handleMediaPurge(ctx, task)
	case queue.TaskDraftSweep:
		return p.handleDraftSweep(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		return nil
	}
}

// Staging captures outlive their draft only when a driver abandons the wizard.
func (p *Processor) handleCaptureCleanup(ctx context.Context) error {
	cutoff := p.now().Add(-p.draftTTL)
	removed, err := p.objects.RemoveOlderThan(ctx, "users/", cutoff)
	if err != nil {
		return fmt.Errorf("capture cleanup: %w", err)
	}
	p.logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("capture cleanup done")
	return nil
}

func (p *Processor) handleMediaPurge(ctx context.Context, task queue.Task) error {
	if task.UserID == "" {
		p.logger.Warn().Msg("media purge without user id")
		return nil
	}
	removed, err := p.objects.RemovePrefix(ctx, storage.UserPrefix(task.UserID))
	if err != nil {
		return fmt.Errorf("media purge %s: %w", task.UserID, err)
	}
	p.logger.Info().Str("user_id", task.UserID).Int("removed", removed).Str("reason", task.Reason).Msg("media purged")
	return nil
}

func (p *Processor) handleDraftSweep(ctx context.Context) error {
	active, err := p.drafts.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("draft sweep: %w", err)
	}
	p.logger.Info().Int("active_drafts", active).Msg("draft sweep done")
	return nil
}
