package domain

import "time"

// StepStatus is the lifecycle state of one sync job step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
)

// StepID identifies one of the three fixed sync job steps.
type StepID string

const (
	StepSync   StepID = "sync"   // fetch full inventory from Steam, upload to backend
	StepPrices StepID = "prices" // refresh per-item price history
	StepLoad   StepID = "load"   // invalidate and reload cached portfolio views
)

// Step is one named step of a sync job.
type Step struct {
	ID     StepID     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

// SyncJob tracks one full refresh run. Steps complete strictly in declared
// order; at most one step is processing at any time.
type SyncJob struct {
	ID        string    `json:"id"`
	SteamID   string    `json:"steam_id"`
	Steps     []Step    `json:"steps"`
	StartedAt time.Time `json:"started_at"`
}

// NewSyncJob builds a job with the three fixed steps pending.
func NewSyncJob(id, steamID string) *SyncJob {
	return &SyncJob{
		ID:      id,
		SteamID: steamID,
		Steps: []Step{
			{ID: StepSync, Label: "Syncing inventory with Steam", Status: StepPending},
			{ID: StepPrices, Label: "Updating price history", Status: StepPending},
			{ID: StepLoad, Label: "Loading updated data", Status: StepPending},
		},
		StartedAt: time.Now().UTC(),
	}
}

// SetStatus updates the status of the named step.
func (j *SyncJob) SetStatus(id StepID, status StepStatus) {
	for i := range j.Steps {
		if j.Steps[i].ID == id {
			j.Steps[i].Status = status
			return
		}
	}
}

// Done reports whether every step has completed.
func (j *SyncJob) Done() bool {
	for i := range j.Steps {
		if j.Steps[i].Status != StepCompleted {
			return false
		}
	}
	return true
}

// ErrorClass buckets a failed sync run for user-facing reporting.
type ErrorClass string

const (
	// ErrClassSession means the Steam session is invalid or expired and the
	// user must re-authenticate; retrying will not help.
	ErrClassSession ErrorClass = "session_expired"

	// ErrClassRateLimit means Steam throttled us; the caller should back off
	// before retrying.
	ErrClassRateLimit ErrorClass = "rate_limited"

	// ErrClassRetryable covers every other failure.
	ErrClassRetryable ErrorClass = "failed"
)

// SyncRun is the journal record of one completed or failed sync job.
type SyncRun struct {
	ID         string     `json:"id"`
	SteamID    string     `json:"steam_id"`
	ItemCount  int        `json:"item_count"`
	Partial    bool       `json:"partial"`
	Stats      SyncStats  `json:"stats"`
	ErrorClass ErrorClass `json:"error_class,omitempty"` // empty on success
	Error      string     `json:"error,omitempty"`       // empty on success
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
