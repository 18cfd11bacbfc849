// Package enrich maintains the transient, in-memory queue of posting
// URLs awaiting enrichment, and the single background worker that
// drains it. The queue does not survive a restart; records left
// unenriched are picked up again on the next sync.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/extract"
	"github.com/anatolykoptev/go_apply/internal/pipeline/match"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

// Item is one queued enrichment request.
type Item struct {
	URL           string
	RecordID      int64
	ExternalJobID string
	EnqueuedAt    time.Time
}

// dedupKey identifies an item in the queue: external id when known,
// else the URL.
func (it Item) dedupKey() string {
	if it.ExternalJobID != "" {
		return it.ExternalJobID
	}
	return it.URL
}

// RecordStore is the slice of the record store the worker needs.
type RecordStore interface {
	ByID(ctx context.Context, id int64) (*store.JobRecord, error)
	Save(ctx context.Context, r *store.JobRecord) error
}

// Fetcher retrieves a posting page body. The default implementation
// consults the page cache before going to the network.
type Fetcher func(ctx context.Context, pageURL string) ([]byte, error)

// Service owns the queue, the dedup set, and the single-worker guard.
// All state is instance-scoped so tests construct isolated services.
type Service struct {
	records RecordStore
	fetch   Fetcher

	delay       time.Duration
	hostDelays  map[string]time.Duration
	backoffBase time.Duration
	maxFailures int

	mu       sync.Mutex
	queue    []Item
	queued   map[string]bool // dedup keys currently in the queue
	running  bool
	failures int // consecutive rate-limit failures
	limiters map[string]*rate.Limiter
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher replaces the page fetcher (used by tests).
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetch = f }
}

// WithDelays overrides the standard delay, per-host overrides, and the
// rate-limit backoff base.
func WithDelays(standard, backoffBase time.Duration, hostDelays map[string]time.Duration) Option {
	return func(s *Service) {
		s.delay = standard
		s.backoffBase = backoffBase
		s.hostDelays = hostDelays
	}
}

// WithMaxFailures bounds consecutive rate-limit failures per pass.
func WithMaxFailures(n int) Option {
	return func(s *Service) { s.maxFailures = n }
}

// NewService builds an enrichment service around a record store.
func NewService(records RecordStore, opts ...Option) *Service {
	s := &Service{
		records:     records,
		fetch:       cachedFetch,
		delay:       pipeline.Cfg.EnrichDelay,
		hostDelays:  pipeline.Cfg.EnrichHostDelays,
		backoffBase: pipeline.Cfg.EnrichBackoffBase,
		maxFailures: pipeline.Cfg.EnrichMaxFailures,
		queued:      make(map[string]bool),
		limiters:    make(map[string]*rate.Limiter),
	}
	if s.delay <= 0 {
		s.delay = 700 * time.Millisecond
	}
	if s.backoffBase <= 0 {
		s.backoffBase = 2 * time.Second
	}
	if s.maxFailures <= 0 {
		s.maxFailures = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hostDelays = normalizeHostDelays(s.hostDelays)
	return s
}

// cachedFetch is the production fetcher: page cache first, then HTTP.
func cachedFetch(ctx context.Context, pageURL string) ([]byte, error) {
	if body, ok := pipeline.CacheGetPage(ctx, pageURL); ok {
		return body, nil
	}
	body, err := pipeline.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	pipeline.CacheSetPage(ctx, pageURL, body)
	return body, nil
}

// Enqueue adds an item to the back of the queue unless an item with the
// same dedup key is already queued, and starts the worker if it is not
// running. Returns true when the item was accepted.
func (s *Service) Enqueue(item Item) bool {
	if item.URL == "" || item.RecordID == 0 {
		return false
	}
	item.EnqueuedAt = time.Now()

	s.mu.Lock()
	key := item.dedupKey()
	if s.queued[key] {
		s.mu.Unlock()
		return false
	}
	s.queued[key] = true
	s.queue = append(s.queue, item)
	start := !s.running
	if start {
		s.running = true
		s.failures = 0
	}
	s.mu.Unlock()

	if start {
		go s.drain(context.Background())
	}
	return true
}

// Status reports whether the worker is draining and how many items wait.
func (s *Service) Status() (processing bool, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, len(s.queue)
}

// pop removes the front item. requeueFront pushes it back for the next
// pass after a rate-limit failure, preserving queue order.
func (s *Service) pop() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Item{}, false
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, item.dedupKey())
	return item, true
}

func (s *Service) requeueFront(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]Item{item}, s.queue...)
	s.queued[item.dedupKey()] = true
}

// drain is the worker loop. At most one drain runs at a time; the
// running flag is the reentrancy guard. The loop exits when the queue
// empties or the consecutive rate-limit bound is hit; either way a
// later Enqueue restarts it.
func (s *Service) drain(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		item, ok := s.pop()
		if !ok {
			return
		}

		s.waitBeforeFetch(ctx, item.URL)

		err := s.processItem(ctx, item)
		switch {
		case err == nil:
			s.mu.Lock()
			s.failures = 0
			s.mu.Unlock()

		case isRateLimit(err):
			s.mu.Lock()
			s.failures++
			failures := s.failures
			s.mu.Unlock()

			s.requeueFront(item)
			slog.Warn("enrich: rate limited",
				slog.String("url", item.URL),
				slog.Int("consecutive_failures", failures))
			if failures >= s.maxFailures {
				// Give the target a rest; remaining items stay queued.
				slog.Warn("enrich: pass stopped after repeated rate limits",
					slog.Int("remaining", s.queueLen()))
				return
			}

		default:
			pipeline.IncrItemsDropped()
			slog.Warn("enrich: item dropped",
				slog.String("url", item.URL), slog.Any("error", err))
		}
	}
}

func (s *Service) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// waitBeforeFetch applies the inter-request delay: exponential backoff
// after rate-limit failures, otherwise the per-host standard delay.
func (s *Service) waitBeforeFetch(ctx context.Context, pageURL string) {
	s.mu.Lock()
	failures := s.failures
	s.mu.Unlock()

	if failures > 0 {
		wait := s.backoffBase * time.Duration(1<<failures)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
		return
	}

	s.limiterFor(pageURL).Wait(ctx) //nolint:errcheck
}

// limiterFor returns the per-host rate limiter, creating it on first use.
func (s *Service) limiterFor(pageURL string) *rate.Limiter {
	host := hostOf(pageURL)
	delay := s.delay
	if d, ok := s.hostDelays[host]; ok {
		delay = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(delay), 1)
	s.limiters[host] = l
	return l
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// normalizeHostDelays rekeys the overrides the way hostOf reports
// hosts, so configured "www.linkedin.com" or ".indeed.com" still match.
func normalizeHostDelays(in map[string]time.Duration) map[string]time.Duration {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]time.Duration, len(in))
	for host, d := range in {
		host = strings.ToLower(strings.TrimSpace(host))
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimPrefix(host, "www.")
		out[host] = d
	}
	return out
}

// processItem fetches the posting, runs the extractors, and merges the
// result into the target record.
func (s *Service) processItem(ctx context.Context, item Item) error {
	body, err := s.fetch(ctx, item.URL)
	if err != nil {
		return err
	}

	page, err := extract.Page(item.URL, body)
	if err != nil {
		return err
	}

	rec, err := s.records.ByID(ctx, item.RecordID)
	if err != nil {
		return err
	}
	if rec == nil {
		return pipeline.ErrNotFound
	}

	match.MergeEnrichment(rec, page)
	if err := s.records.Save(ctx, rec); err != nil {
		return err
	}

	pipeline.IncrPagesEnriched()
	pipeline.IncrRecordsUpdated()
	slog.Debug("enrich: merged",
		slog.Int64("record", rec.ID), slog.String("url", item.URL))
	return nil
}

func isRateLimit(err error) bool {
	return errors.Is(err, pipeline.ErrRateLimited)
}
