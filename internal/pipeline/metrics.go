package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the pipeline.
var metrics struct {
	MailSearches      atomic.Int64
	EmailsFetched     atomic.Int64
	EmailsClassified  atomic.Int64
	EmailsIgnored     atomic.Int64
	FolderErrors      atomic.Int64
	FetchRequests     atomic.Int64
	FetchErrors       atomic.Int64
	RateLimitHits     atomic.Int64
	PagesEnriched     atomic.Int64
	ItemsDropped      atomic.Int64
	RecordsCreated    atomic.Int64
	RecordsUpdated    atomic.Int64
	DuplicatesSkipped atomic.Int64
}

// IncrMailSearches bumps the mailbox search counter.
func IncrMailSearches() { metrics.MailSearches.Add(1) }

// IncrEmailsFetched counts messages fetched from the mail server.
func IncrEmailsFetched(n int) { metrics.EmailsFetched.Add(int64(n)) }

// IncrEmailsClassified counts messages that produced an item.
func IncrEmailsClassified() { metrics.EmailsClassified.Add(1) }

// IncrEmailsIgnored counts messages classified as ignored.
func IncrEmailsIgnored() { metrics.EmailsIgnored.Add(1) }

// IncrFolderErrors counts folders skipped due to open/search/fetch errors.
func IncrFolderErrors() { metrics.FolderErrors.Add(1) }

// IncrPagesEnriched counts postings successfully merged by the worker.
func IncrPagesEnriched() { metrics.PagesEnriched.Add(1) }

// IncrItemsDropped counts enrichment items dropped on non-retryable errors.
func IncrItemsDropped() { metrics.ItemsDropped.Add(1) }

// IncrRecordsCreated counts new records persisted by import.
func IncrRecordsCreated() { metrics.RecordsCreated.Add(1) }

// IncrRecordsUpdated counts existing records mutated by import or enrichment.
func IncrRecordsUpdated() { metrics.RecordsUpdated.Add(1) }

// IncrDuplicatesSkipped counts items dropped by the dedup rule.
func IncrDuplicatesSkipped() { metrics.DuplicatesSkipped.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"mail_searches":      metrics.MailSearches.Load(),
		"emails_fetched":     metrics.EmailsFetched.Load(),
		"emails_classified":  metrics.EmailsClassified.Load(),
		"emails_ignored":     metrics.EmailsIgnored.Load(),
		"folder_errors":      metrics.FolderErrors.Load(),
		"fetch_requests":     metrics.FetchRequests.Load(),
		"fetch_errors":       metrics.FetchErrors.Load(),
		"rate_limit_hits":    metrics.RateLimitHits.Load(),
		"pages_enriched":     metrics.PagesEnriched.Load(),
		"items_dropped":      metrics.ItemsDropped.Load(),
		"records_created":    metrics.RecordsCreated.Load(),
		"records_updated":    metrics.RecordsUpdated.Load(),
		"duplicates_skipped": metrics.DuplicatesSkipped.Load(),
		"cache_hits":         hits,
		"cache_misses":       misses,
	}
}

// FormatMetrics returns metrics as a simple text format for the metrics endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
