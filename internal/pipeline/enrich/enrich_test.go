package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/match"
	"github.com/anatolykoptev/go_apply/internal/pipeline/store"
)

const postingHTML = `<html>
<head><title>Senior Go Developer at Acme Corp | LinkedIn</title></head>
<body><h1 class="top-card-layout__title">Senior Go Developer</h1></body>
</html>`

// memRecords is an in-memory RecordStore for worker tests.
type memRecords struct {
	mu      sync.Mutex
	records map[int64]*store.JobRecord
	saves   int
}

func newMemRecords(recs ...*store.JobRecord) *memRecords {
	m := &memRecords{records: make(map[int64]*store.JobRecord)}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

func (m *memRecords) ByID(_ context.Context, id int64) (*store.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRecords) Save(_ context.Context, r *store.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.ID] = &cp
	m.saves++
	return nil
}

func (m *memRecords) get(id int64) *store.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// waitIdle polls until the worker stops or the deadline passes.
func waitIdle(t *testing.T, s *Service) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if processing, _ := s.Status(); !processing {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("worker did not go idle")
}

func testService(records RecordStore, fetch Fetcher, maxFailures int) *Service {
	pipeline.Init(pipeline.Config{MaxContentChars: 6000})
	return NewService(records,
		WithFetcher(fetch),
		WithDelays(time.Millisecond, time.Millisecond, nil),
		WithMaxFailures(maxFailures),
	)
}

func TestEnqueue_DrainsAndMerges(t *testing.T) {
	records := newMemRecords(
		&store.JobRecord{ID: 1, Company: "Acme Corp", JobTitle: "Dev"},
		&store.JobRecord{ID: 2, Company: "Acme Corp", JobTitle: "Dev II"},
	)
	var fetches int32
	s := testService(records, func(_ context.Context, _ string) ([]byte, error) {
		atomic.AddInt32(&fetches, 1)
		return []byte(postingHTML), nil
	}, 5)

	if !s.Enqueue(Item{URL: "https://example.com/jobs/view/1111111", RecordID: 1}) {
		t.Fatal("first enqueue rejected")
	}
	if !s.Enqueue(Item{URL: "https://example.com/jobs/view/2222222", RecordID: 2}) {
		t.Fatal("second enqueue rejected")
	}
	waitIdle(t, s)

	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("fetches = %d, want 2 (each item processed exactly once)", got)
	}
	for _, id := range []int64{1, 2} {
		rec := records.get(id)
		if rec == nil || !strings.Contains(rec.Notes, match.EnrichmentMarker) {
			t.Errorf("record %d not enriched: %+v", id, rec)
		}
	}
	if _, size := s.Status(); size != 0 {
		t.Errorf("queue size = %d, want 0", size)
	}
}

func TestEnqueue_DedupWhileQueued(t *testing.T) {
	records := newMemRecords(
		&store.JobRecord{ID: 1, Company: "Acme", JobTitle: "Dev"},
		&store.JobRecord{ID: 2, Company: "Acme", JobTitle: "Dev II"},
	)
	release := make(chan struct{})
	s := testService(records, func(_ context.Context, _ string) ([]byte, error) {
		<-release
		return []byte(postingHTML), nil
	}, 5)

	// Occupy the worker so the next item stays in the queue.
	s.Enqueue(Item{URL: "https://example.com/jobs/view/1111111", RecordID: 1})
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, size := s.Status(); size == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first item")
		}
		time.Sleep(time.Millisecond)
	}

	first := s.Enqueue(Item{URL: "https://example.com/jobs/view/2222222", RecordID: 2, ExternalJobID: "2222222"})
	dup := s.Enqueue(Item{URL: "https://example.com/jobs/view/2222222?src=x", RecordID: 2, ExternalJobID: "2222222"})
	close(release)
	waitIdle(t, s)

	if !first {
		t.Error("first enqueue rejected")
	}
	if dup {
		t.Error("duplicate external id accepted while queued")
	}
}

func TestEnqueue_RejectsInvalid(t *testing.T) {
	s := testService(newMemRecords(), nil, 5)
	if s.Enqueue(Item{RecordID: 1}) {
		t.Error("item without URL accepted")
	}
	if s.Enqueue(Item{URL: "https://example.com/x"}) {
		t.Error("item without record id accepted")
	}
}

func TestDrain_StopsAfterRepeatedRateLimits(t *testing.T) {
	records := newMemRecords(&store.JobRecord{ID: 1, Company: "Acme", JobTitle: "Dev"})
	var attempts int32
	s := testService(records, func(_ context.Context, _ string) ([]byte, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, &pipeline.RateLimitError{StatusCode: 429}
	}, 3)

	s.Enqueue(Item{URL: "https://example.com/jobs/view/1111111", RecordID: 1})
	waitIdle(t, s)

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want exactly maxFailures (3)", got)
	}
	// The item stays queued for the next pass.
	if _, size := s.Status(); size != 1 {
		t.Errorf("queue size = %d, want 1 (item requeued at front)", size)
	}
	if rec := records.get(1); strings.Contains(rec.Notes, match.EnrichmentMarker) {
		t.Error("record must not be marked enriched after rate-limit failures")
	}
}

func TestDrain_RateLimitRequeuesFront(t *testing.T) {
	records := newMemRecords(
		&store.JobRecord{ID: 1, Company: "Acme", JobTitle: "Dev"},
		&store.JobRecord{ID: 2, Company: "Acme", JobTitle: "Dev II"},
	)
	var mu sync.Mutex
	var order []string
	fail := true
	s := testService(records, func(_ context.Context, u string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, u)
		if fail {
			fail = false
			return nil, &pipeline.RateLimitError{StatusCode: 403}
		}
		return []byte(postingHTML), nil
	}, 5)

	s.Enqueue(Item{URL: "https://example.com/jobs/view/1111111", RecordID: 1})
	s.Enqueue(Item{URL: "https://example.com/jobs/view/2222222", RecordID: 2})
	waitIdle(t, s)

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"https://example.com/jobs/view/1111111",
		"https://example.com/jobs/view/1111111", // retried before item 2
		"https://example.com/jobs/view/2222222",
	}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("fetch order = %v, want %v", order, want)
	}
}

func TestDrain_OtherErrorsDropItem(t *testing.T) {
	records := newMemRecords(
		&store.JobRecord{ID: 1, Company: "Acme", JobTitle: "Dev"},
		&store.JobRecord{ID: 2, Company: "Acme", JobTitle: "Dev II"},
	)
	s := testService(records, func(_ context.Context, u string) ([]byte, error) {
		if strings.Contains(u, "1111111") {
			return nil, errors.New("page gone")
		}
		return []byte(postingHTML), nil
	}, 5)

	s.Enqueue(Item{URL: "https://example.com/jobs/view/1111111", RecordID: 1})
	s.Enqueue(Item{URL: "https://example.com/jobs/view/2222222", RecordID: 2})
	waitIdle(t, s)

	if rec := records.get(1); strings.Contains(rec.Notes, match.EnrichmentMarker) {
		t.Error("failed item must not be enriched")
	}
	if rec := records.get(2); !strings.Contains(rec.Notes, match.EnrichmentMarker) {
		t.Error("second item should still be processed after a drop")
	}
	if _, size := s.Status(); size != 0 {
		t.Errorf("queue size = %d, want 0 (dropped items are not requeued)", size)
	}
}

func TestProcessItem_MissingRecord(t *testing.T) {
	s := testService(newMemRecords(), func(_ context.Context, _ string) ([]byte, error) {
		return []byte(postingHTML), nil
	}, 5)

	err := s.processItem(context.Background(), Item{URL: "https://example.com/jobs/view/1", RecordID: 99})
	if !errors.Is(err, pipeline.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHostDelayOverridesMatchHostOf(t *testing.T) {
	pipeline.Init(pipeline.Config{})
	s := NewService(newMemRecords(), WithDelays(time.Millisecond, time.Millisecond, map[string]time.Duration{
		"www.linkedin.com": 2 * time.Second,
		".indeed.com":      1500 * time.Millisecond,
	}))

	for _, tc := range []struct {
		url  string
		want time.Duration
	}{
		{"https://www.linkedin.com/jobs/view/1", 2 * time.Second},
		{"https://indeed.com/viewjob?jk=1", 1500 * time.Millisecond},
	} {
		host := hostOf(tc.url)
		if got := s.hostDelays[host]; got != tc.want {
			t.Errorf("delay for %q = %v, want %v", host, got, tc.want)
		}
	}
}

func TestHostOf(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://www.linkedin.com/jobs/view/1", "linkedin.com"},
		{"https://boards.greenhouse.io/acme", "boards.greenhouse.io"},
		{"not a url", ""},
	}
	for _, tc := range cases {
		if got := hostOf(tc.in); got != tc.want {
			t.Errorf("hostOf(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
