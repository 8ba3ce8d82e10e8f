package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skinfolio/skinsync/internal/domain"
)

// syncLockTTL bounds how long a crashed process can hold the cross-process
// sync lock for an account.
const syncLockTTL = 30 * time.Minute

// ViewLoader reloads the cached portfolio views after a sync.
type ViewLoader interface {
	Reload(ctx context.Context, steamID string) error
}

// InventoryArchiver stores a copy of the raw aggregated inventory payload.
type InventoryArchiver interface {
	ArchiveInventory(ctx context.Context, inv *domain.Inventory) error
}

// Notifier delivers out-of-band notifications about finished runs.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Orchestrator runs one full refresh as a three-step job: sync the
// inventory with Steam and the backend, refresh per-item price history, and
// reload locally cached views. Steps execute strictly in order; a step
// failure aborts the job and leaves later steps pending.
type Orchestrator struct {
	aggregator *InventoryAggregator
	ingestor   domain.InventoryIngestor
	items      domain.ItemLister
	batcher    *HistoryBatcher
	loader     ViewLoader

	reporter Reporter
	locks    domain.LockManager // optional
	lockTTL  time.Duration
	runs     domain.SyncRunStore // optional
	archiver InventoryArchiver   // optional
	notifier Notifier            // optional
	logger   *slog.Logger
}

// OrchestratorOption customises optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithLockManager adds a cross-process lock around each run. A non-positive
// ttl falls back to the default.
func WithLockManager(lm domain.LockManager, ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.locks = lm
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithRunStore journals every finished run.
func WithRunStore(s domain.SyncRunStore) OrchestratorOption {
	return func(o *Orchestrator) { o.runs = s }
}

// WithArchiver archives the raw inventory payload before upload.
func WithArchiver(a InventoryArchiver) OrchestratorOption {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithNotifier sends run-finished notifications.
func WithNotifier(n Notifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// NewOrchestrator creates an orchestrator from its required collaborators.
func NewOrchestrator(
	aggregator *InventoryAggregator,
	ingestor domain.InventoryIngestor,
	items domain.ItemLister,
	batcher *HistoryBatcher,
	loader ViewLoader,
	reporter Reporter,
	logger *slog.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	if reporter == nil {
		reporter = NopReporter{}
	}
	o := &Orchestrator{
		aggregator: aggregator,
		ingestor:   ingestor,
		items:      items,
		batcher:    batcher,
		loader:     loader,
		reporter:   reporter,
		lockTTL:    syncLockTTL,
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one full refresh for the given account. It returns the final
// job state, the price-batch stats, and the first fatal error. On failure
// the failed step stays in processing and later steps remain pending.
func (o *Orchestrator) Run(ctx context.Context, steamID string) (*domain.SyncJob, domain.SyncStats, error) {
	job := domain.NewSyncJob(uuid.New().String(), steamID)
	var stats domain.SyncStats

	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, "sync:"+steamID, o.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return job, stats, fmt.Errorf("sync for %s: %w", steamID, domain.ErrSyncBusy)
			}
			return job, stats, fmt.Errorf("sync for %s: acquire lock: %w", steamID, err)
		}
		defer unlock()
	}

	o.logger.Info("sync job starting",
		slog.String("job_id", job.ID),
		slog.String("steam_id", steamID),
	)

	// Step 1: fetch the full inventory and upload it to the backend.
	o.setStep(job, domain.StepSync, domain.StepProcessing)
	inv, err := o.aggregator.FetchAll(ctx, steamID)
	if err != nil {
		return o.fail(ctx, job, stats, fmt.Errorf("sync step: %w", err))
	}
	if inv.Partial {
		o.logger.Warn("inventory fetch was partial, uploading what we have",
			slog.String("job_id", job.ID),
			slog.Int("assets", inv.TotalCount),
		)
	}
	if o.archiver != nil {
		// Archival failures never block the sync.
		if err := o.archiver.ArchiveInventory(ctx, inv); err != nil {
			o.logger.Warn("inventory archive failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	upload, err := o.ingestor.UploadInventory(ctx, inv)
	if err != nil {
		return o.fail(ctx, job, stats, fmt.Errorf("sync step: %w", err))
	}
	o.logger.Info("inventory uploaded",
		slog.String("job_id", job.ID),
		slog.Int("items_synced", upload.ItemsSynced),
		slog.String("status", upload.Status),
	)
	o.setStep(job, domain.StepSync, domain.StepCompleted)

	// Step 2: refresh price history for every unique item. Per-item
	// failures are absorbed into the stats; only an error from the batch
	// call itself aborts the job.
	o.setStep(job, domain.StepPrices, domain.StepProcessing)
	names, err := o.uniqueItemNames(ctx)
	if err != nil {
		// The listing is a convenience for this step; a failure here means
		// we skip the refresh, not that the sync is broken.
		o.logger.Warn("item listing failed, skipping price history refresh",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		names = nil
	}
	if len(names) > 0 {
		stats, err = o.batcher.SyncAll(ctx, names, func(current, total int) {
			o.reporter.BatchProgress(ProgressEvent{JobID: job.ID, Current: current, Total: total})
		})
		if err != nil {
			return o.fail(ctx, job, stats, fmt.Errorf("prices step: %w", err))
		}
	}
	o.setStep(job, domain.StepPrices, domain.StepCompleted)

	// Step 3: invalidate and reload the cached portfolio views.
	o.setStep(job, domain.StepLoad, domain.StepProcessing)
	if err := o.loader.Reload(ctx, steamID); err != nil {
		return o.fail(ctx, job, stats, fmt.Errorf("load step: %w", err))
	}
	o.setStep(job, domain.StepLoad, domain.StepCompleted)

	o.finish(ctx, job, domain.SyncRun{
		ID:         job.ID,
		SteamID:    steamID,
		ItemCount:  inv.TotalCount,
		Partial:    inv.Partial,
		Stats:      stats,
		StartedAt:  job.StartedAt,
		FinishedAt: time.Now().UTC(),
	})

	o.logger.Info("sync job complete",
		slog.String("job_id", job.ID),
		slog.Int("items", inv.TotalCount),
		slog.Int("prices_success", stats.Success),
		slog.Int("prices_failed", stats.Failed),
	)

	return job, stats, nil
}

// Classify buckets a sync error for user-facing reporting. Session and
// empty-inventory errors both demand re-authentication; rate limits demand
// a backoff; everything else is retryable as-is.
func Classify(err error) domain.ErrorClass {
	switch {
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrEmptyInventory):
		return domain.ErrClassSession
	case errors.Is(err, domain.ErrRateLimited):
		return domain.ErrClassRateLimit
	default:
		return domain.ErrClassRetryable
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (o *Orchestrator) setStep(job *domain.SyncJob, id domain.StepID, status domain.StepStatus) {
	job.SetStatus(id, status)
	o.reporter.StepChanged(StepEvent{
		JobID:   job.ID,
		SteamID: job.SteamID,
		Step:    id,
		Status:  status,
	})
}

// uniqueItemNames collects the distinct market hash names of the account's
// items, preserving listing order.
func (o *Orchestrator) uniqueItemNames(ctx context.Context) ([]string, error) {
	items, err := o.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	names := make([]string, 0, len(items))
	for i := range items {
		name := items[i].MarketHashName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// fail records and reports a fatal job error.
func (o *Orchestrator) fail(ctx context.Context, job *domain.SyncJob, stats domain.SyncStats, err error) (*domain.SyncJob, domain.SyncStats, error) {
	class := Classify(err)
	o.logger.Error("sync job failed",
		slog.String("job_id", job.ID),
		slog.String("class", string(class)),
		slog.String("error", err.Error()),
	)

	o.finish(ctx, job, domain.SyncRun{
		ID:         job.ID,
		SteamID:    job.SteamID,
		Stats:      stats,
		ErrorClass: class,
		Error:      err.Error(),
		StartedAt:  job.StartedAt,
		FinishedAt: time.Now().UTC(),
	})

	return job, stats, err
}

// finish journals the run and dispatches a notification. Both are best
// effort.
func (o *Orchestrator) finish(ctx context.Context, job *domain.SyncJob, run domain.SyncRun) {
	if o.runs != nil {
		if err := o.runs.Record(ctx, run); err != nil {
			o.logger.Warn("sync run journal failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if o.notifier == nil {
		return
	}
	if run.ErrorClass == "" {
		msg := fmt.Sprintf("%d items synced, price history %d/%d ok", run.ItemCount, run.Stats.Success, run.Stats.Total)
		if run.Partial {
			msg += " (partial inventory fetch)"
		}
		_ = o.notifier.Notify(ctx, "sync_completed", "Sync completed", msg)
		return
	}
	_ = o.notifier.Notify(ctx, "sync_failed", "Sync failed",
		fmt.Sprintf("%s: %s", run.ErrorClass, run.Error))
}
