// Package sync implements the inventory refresh pipeline: full-inventory
// aggregation from Steam, upload to the backend of record, sequential
// price-history refresh, and cached-view reload, coordinated by the
// Orchestrator over a three-step job state machine.
package sync

import (
	"log/slog"

	"github.com/skinfolio/skinsync/internal/domain"
)

// StepEvent reports a step status change of a running sync job.
type StepEvent struct {
	JobID   string            `json:"job_id"`
	SteamID string            `json:"steam_id"`
	Step    domain.StepID     `json:"step"`
	Status  domain.StepStatus `json:"status"`
}

// ProgressEvent reports per-item progress of the price-history batch.
type ProgressEvent struct {
	JobID   string `json:"job_id"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// Reporter receives progress notifications from the orchestrator. The UI
// layer (websocket hub, log sink) subscribes through this interface instead
// of passing callbacks into the pipeline.
type Reporter interface {
	StepChanged(ev StepEvent)
	BatchProgress(ev ProgressEvent)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) StepChanged(StepEvent)       {}
func (NopReporter) BatchProgress(ProgressEvent) {}

// LogReporter writes events to a structured logger. Batch progress is
// sampled to one entry per five items to keep the log readable.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) StepChanged(ev StepEvent) {
	r.Logger.Info("sync step changed",
		slog.String("job_id", ev.JobID),
		slog.String("step", string(ev.Step)),
		slog.String("status", string(ev.Status)),
	)
}

func (r LogReporter) BatchProgress(ev ProgressEvent) {
	if ev.Current%5 != 0 && ev.Current != ev.Total {
		return
	}
	r.Logger.Info("price history progress",
		slog.String("job_id", ev.JobID),
		slog.Int("current", ev.Current),
		slog.Int("total", ev.Total),
	)
}

// MultiReporter fans events out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) StepChanged(ev StepEvent) {
	for _, r := range m {
		r.StepChanged(ev)
	}
}

func (m MultiReporter) BatchProgress(ev ProgressEvent) {
	for _, r := range m {
		r.BatchProgress(ev)
	}
}
