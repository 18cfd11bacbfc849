// Package tasks is a generic async-task registry: callers submit
// long-running operations, immediately get an id back, and poll status.
// Jobs are transient and in-memory; terminal jobs are garbage-collected
// after a retention window.
package tasks

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type labels the operation a job runs.
type Type string

const (
	TypeSearch     Type = "search"
	TypeImport     Type = "import"
	TypeSync       Type = "sync"
	TypeEnrichment Type = "enrichment"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// LogEntry is one timestamped progress message.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Job is a snapshot of one background operation.
type Job struct {
	ID        string     `json:"id"`
	Type      Type       `json:"type"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"` // 0–100
	Message   string     `json:"message,omitempty"`
	Log       []LogEntry `json:"log,omitempty"`
	Result    any        `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Update carries partial fields for UpdateJob. Nil pointers leave the
// corresponding field untouched.
type Update struct {
	Status   *Status
	Progress *int
	Message  *string
	Result   any
	Error    *string
}

// Tracker is an injected registry instance; no package-level state.
type Tracker struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

// NewTracker builds a tracker. Terminal jobs older than retention are
// removed by Cleanup.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Tracker{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

// Create registers a new queued job and returns its id.
func (t *Tracker) Create(typ Type, message string) string {
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      typ,
		Status:    StatusQueued,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if message != "" {
		job.Log = append(job.Log, LogEntry{Time: now, Message: message})
	}

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return job.ID
}

// Update merges partial fields into a job. UpdatedAt always refreshes;
// a supplied message also appends to the job's log.
func (t *Tracker) Update(id string, u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}
	now := time.Now()
	job.UpdatedAt = now

	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		p := *u.Progress
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		job.Progress = p
	}
	if u.Message != nil {
		job.Message = *u.Message
		job.Log = append(job.Log, LogEntry{Time: now, Message: *u.Message})
	}
	if u.Result != nil {
		job.Result = u.Result
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
}

// Get returns a snapshot of a job, or nil when unknown or cleaned up.
func (t *Tracker) Get(id string) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	snapshot.Log = append([]LogEntry(nil), job.Log...)
	return &snapshot
}

// ListActive returns snapshots of queued and running jobs.
func (t *Tracker) ListActive() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var active []Job
	for _, job := range t.jobs {
		if job.Status == StatusQueued || job.Status == StatusRunning {
			snapshot := *job
			snapshot.Log = append([]LogEntry(nil), job.Log...)
			active = append(active, snapshot)
		}
	}
	return active
}

// Cleanup removes terminal jobs older than the retention window and
// returns how many were removed.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.retention)
	removed := 0
	for id, job := range t.jobs {
		terminal := job.Status == StatusCompleted || job.Status == StatusFailed
		if terminal && job.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// StartCleanupLoop runs Cleanup periodically until the process exits.
func (t *Tracker) StartCleanupLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if n := t.Cleanup(); n > 0 {
				slog.Debug("tasks: cleaned up", slog.Int("removed", n))
			}
		}
	}()
}

// Helpers for building Update values without temporaries at call sites.

func StatusOf(s Status) *Status  { return &s }
func ProgressOf(p int) *int      { return &p }
func MessageOf(m string) *string { return &m }
func ErrorOf(e string) *string   { return &e }
