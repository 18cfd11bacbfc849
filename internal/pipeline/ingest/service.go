// Package ingest orchestrates mailbox searches, imports, and
// re-enrichment. Long operations are submitted to the task tracker and
// run in the background so callers get a job id immediately instead of
// holding a request open.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
	"github.com/anatolykoptev/go_apply/internal/pipeline/enrich"
	"github.com/anatolykoptev/go_apply/internal/pipeline/mailbox"
	"github.com/anatolykoptev/go_apply/internal/pipeline/match"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
	"github.com/anatolykoptev/go_apply/internal/pipeline/tasks"
	"github.com/anatolykoptev/go_apply/internal/toolutil"
)

// RecordStore is everything the ingest service needs from persistence.
type RecordStore interface {
	match.Lookup
	ByID(ctx context.Context, id int64) (*store.JobRecord, error)
	Save(ctx context.Context, r *store.JobRecord) error
	LastImport(ctx context.Context, account string) (time.Time, error)
	SetLastImport(ctx context.Context, account string, t time.Time) error
}

// Service wires the mailbox driver, matcher, record store, enrichment
// queue, and task tracker together.
type Service struct {
	records  RecordStore
	driver   *mailbox.Driver
	enricher *enrich.Service
	tracker  *tasks.Tracker
	creds    mailbox.Credentials
}

// NewService builds the orchestrator.
func NewService(records RecordStore, driver *mailbox.Driver, enricher *enrich.Service, tracker *tasks.Tracker, creds mailbox.Credentials) *Service {
	return &Service{
		records:  records,
		driver:   driver,
		enricher: enricher,
		tracker:  tracker,
		creds:    creds,
	}
}

// SearchOptions control a mailbox search.
type SearchOptions struct {
	IgnorePrevious bool `json:"ignore_previous,omitempty"` // ignore the last-import cutoff
}

// TaggedItem is a classified item annotated with its match against the
// stored records.
type TaggedItem struct {
	email.Item
	Existing bool  `json:"existing"`
	RecordID int64 `json:"record_id,omitempty"`
}

// SearchResult groups a search's classified items by kind.
type SearchResult struct {
	Applications  []TaggedItem `json:"applications"`
	StatusUpdates []TaggedItem `json:"status_updates"`
	Responses     []TaggedItem `json:"responses"`
}

// ImportStats summarize an import operation.
type ImportStats struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Duplicates  int `json:"duplicates"`
	Unprocessed int `json:"unprocessed"`
	Enqueued    int `json:"enqueued"`
}

// StartSearch submits a mailbox search and returns its job id.
func (s *Service) StartSearch(opts SearchOptions) string {
	id := s.tracker.Create(tasks.TypeSearch, "mailbox search queued")
	go s.runSearch(id, opts)
	return id
}

// StartSync submits search + import + enrichment enqueue as one job.
func (s *Service) StartSync(opts SearchOptions) string {
	id := s.tracker.Create(tasks.TypeSync, "mailbox sync queued")
	go s.runSync(id, opts)
	return id
}

func (s *Service) runSearch(jobID string, opts SearchOptions) {
	ctx := context.Background()
	s.tracker.Update(jobID, tasks.Update{
		Status:   tasks.StatusOf(tasks.StatusRunning),
		Message:  tasks.MessageOf("searching mailbox"),
		Progress: tasks.ProgressOf(10),
	})

	result, err := s.search(ctx, opts)
	if err != nil {
		s.fail(jobID, err, result)
		return
	}

	s.tracker.Update(jobID, tasks.Update{
		Status:   tasks.StatusOf(tasks.StatusCompleted),
		Progress: tasks.ProgressOf(100),
		Message: tasks.MessageOf(fmt.Sprintf("found %d applications, %d status updates, %d responses",
			len(result.Applications), len(result.StatusUpdates), len(result.Responses))),
		Result: result,
	})
}

func (s *Service) runSync(jobID string, opts SearchOptions) {
	ctx := context.Background()
	s.tracker.Update(jobID, tasks.Update{
		Status:   tasks.StatusOf(tasks.StatusRunning),
		Message:  tasks.MessageOf("searching mailbox"),
		Progress: tasks.ProgressOf(10),
	})

	result, err := s.search(ctx, opts)
	if err != nil {
		s.fail(jobID, err, result)
		return
	}

	s.tracker.Update(jobID, tasks.Update{
		Message:  tasks.MessageOf("importing items"),
		Progress: tasks.ProgressOf(60),
	})

	stats := s.Import(ctx,
		untag(result.Applications),
		untag(result.StatusUpdates),
		untag(result.Responses))

	if err := s.records.SetLastImport(ctx, s.creds.Username, time.Now()); err != nil {
		slog.Warn("ingest: last-import timestamp not saved", slog.Any("error", err))
	}

	s.tracker.Update(jobID, tasks.Update{
		Status:   tasks.StatusOf(tasks.StatusCompleted),
		Progress: tasks.ProgressOf(100),
		Message: tasks.MessageOf(fmt.Sprintf("sync done: %d created, %d updated, %d duplicates, %d unprocessed",
			stats.Created, stats.Updated, stats.Duplicates, stats.Unprocessed)),
		Result: stats,
	})
}

// search runs the driver and tags every item against the stored records.
func (s *Service) search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	lastImport, err := s.records.LastImport(ctx, s.creds.Username)
	if err != nil {
		return nil, err
	}
	since := mailbox.Cutoff(lastImport, opts.IgnorePrevious, pipeline.Cfg.LookbackWindow)

	// A search repeated against the same cutoff (review, then import)
	// reuses the classified items instead of re-scanning the mailbox.
	// Record tags are recomputed below so they never go stale.
	cacheKey := pipeline.CacheKey("mailsearch", s.creds.Username, since.Truncate(time.Minute).Format(time.RFC3339))
	items, ok := toolutil.CacheLoadJSON[[]email.Item](ctx, cacheKey)
	if !ok {
		items, err = s.driver.Search(ctx, s.creds, since)
		if err != nil {
			return nil, err
		}
		toolutil.CacheStoreJSON(ctx, cacheKey, items)
	}

	result := &SearchResult{}
	for _, item := range items {
		tagged := TaggedItem{Item: item}
		if rec, err := match.Find(ctx, s.records, item); err == nil && rec != nil {
			tagged.Existing = true
			tagged.RecordID = rec.ID
		}
		switch item.Kind {
		case email.KindApplication:
			result.Applications = append(result.Applications, tagged)
		case email.KindStatusUpdate:
			result.StatusUpdates = append(result.StatusUpdates, tagged)
		case email.KindResponse:
			result.Responses = append(result.Responses, tagged)
		}
	}
	return result, nil
}

// Import persists application items and applies status and response
// items to their matched records. Items that match nothing are dropped
// and counted as unprocessed; applications matching an existing record
// count as duplicates and are not re-inserted.
func (s *Service) Import(ctx context.Context, applications, statusUpdates, responses []email.Item) ImportStats {
	var stats ImportStats

	for _, item := range applications {
		rec, err := match.Find(ctx, s.records, item)
		if err != nil {
			slog.Warn("ingest: match failed", slog.String("subject", item.Subject), slog.Any("error", err))
			stats.Unprocessed++
			continue
		}
		if rec != nil {
			pipeline.IncrDuplicatesSkipped()
			stats.Duplicates++
			continue
		}

		newRec := match.NewRecord(item)
		if err := s.records.Save(ctx, newRec); err != nil {
			slog.Warn("ingest: record not saved",
				slog.String("company", item.Company), slog.Any("error", err))
			stats.Unprocessed++
			continue
		}
		pipeline.IncrRecordsCreated()
		stats.Created++

		if newRec.Website != "" && s.enricher != nil {
			if s.enricher.Enqueue(enrich.Item{
				URL:           newRec.Website,
				RecordID:      newRec.ID,
				ExternalJobID: newRec.ExternalJobID,
			}) {
				stats.Enqueued++
			}
		}
	}

	for _, item := range statusUpdates {
		rec, err := match.Find(ctx, s.records, item)
		if err != nil || rec == nil {
			slog.Info("ingest: status update unresolved",
				slog.String("company", item.Company), slog.String("subject", item.Subject))
			stats.Unprocessed++
			continue
		}
		match.ApplyStatusUpdate(rec, item)
		if err := s.records.Save(ctx, rec); err != nil {
			stats.Unprocessed++
			continue
		}
		pipeline.IncrRecordsUpdated()
		stats.Updated++
	}

	for _, item := range responses {
		rec, err := match.Find(ctx, s.records, item)
		if err != nil || rec == nil {
			slog.Info("ingest: response unresolved",
				slog.String("company", item.Company), slog.String("subject", item.Subject))
			stats.Unprocessed++
			continue
		}
		match.ApplyResponse(rec, item)
		if err := s.records.Save(ctx, rec); err != nil {
			stats.Unprocessed++
			continue
		}
		pipeline.IncrRecordsUpdated()
		stats.Updated++
	}

	return stats
}

// StartImport submits an import of already-classified items.
func (s *Service) StartImport(applications, statusUpdates, responses []email.Item) string {
	id := s.tracker.Create(tasks.TypeImport, "import queued")
	go func() {
		ctx := context.Background()
		s.tracker.Update(id, tasks.Update{
			Status:   tasks.StatusOf(tasks.StatusRunning),
			Progress: tasks.ProgressOf(20),
		})
		stats := s.Import(ctx, applications, statusUpdates, responses)
		s.tracker.Update(id, tasks.Update{
			Status:   tasks.StatusOf(tasks.StatusCompleted),
			Progress: tasks.ProgressOf(100),
			Message: tasks.MessageOf(fmt.Sprintf("import done: %d created, %d updated, %d duplicates, %d unprocessed",
				stats.Created, stats.Updated, stats.Duplicates, stats.Unprocessed)),
			Result: stats,
		})
	}()
	return id
}

// ReEnrich queues existing records for another enrichment pass and
// returns how many were accepted.
func (s *Service) ReEnrich(ctx context.Context, recordIDs []int64) int {
	queued := 0
	for _, id := range recordIDs {
		rec, err := s.records.ByID(ctx, id)
		if err != nil || rec == nil || rec.Website == "" {
			continue
		}
		if s.enricher.Enqueue(enrich.Item{
			URL:           rec.Website,
			RecordID:      rec.ID,
			ExternalJobID: rec.ExternalJobID,
		}) {
			queued++
		}
	}
	return queued
}

// EnrichmentStatus reports the queue's state.
func (s *Service) EnrichmentStatus() (processing bool, queueSize int) {
	return s.enricher.Status()
}

// JobStatus returns a background job snapshot, or nil.
func (s *Service) JobStatus(id string) *tasks.Job {
	return s.tracker.Get(id)
}

// fail marks a job failed, keeping any partial result.
func (s *Service) fail(jobID string, err error, partial any) {
	slog.Error("ingest: job failed", slog.String("job", jobID), slog.Any("error", err))
	u := tasks.Update{
		Status:  tasks.StatusOf(tasks.StatusFailed),
		Error:   tasks.ErrorOf(err.Error()),
		Message: tasks.MessageOf(err.Error()),
	}
	if partial != nil {
		u.Result = partial
	}
	s.tracker.Update(jobID, u)
}

func untag(items []TaggedItem) []email.Item {
	out := make([]email.Item, len(items))
	for i, t := range items {
		out[i] = t.Item
	}
	return out
}
