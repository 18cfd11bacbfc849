package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
)

// fakeSession scripts per-folder behavior for driver tests.
type fakeSession struct {
	selected   string
	selectErr  map[string]error
	searchErr  map[string]error
	ids        map[string][]uint32
	msgs       map[uint32]email.Message
	fetchCalls [][]uint32
	loggedOut  bool
	folders    []string
}

func (f *fakeSession) ListFolders() ([]string, error) {
	return f.folders, nil
}

func (f *fakeSession) SelectReadOnly(folder string) error {
	if err := f.selectErr[folder]; err != nil {
		return err
	}
	f.selected = folder
	return nil
}

func (f *fakeSession) SearchSince(_ time.Time, _, _ []string) ([]uint32, error) {
	if err := f.searchErr[f.selected]; err != nil {
		return nil, err
	}
	return f.ids[f.selected], nil
}

func (f *fakeSession) Fetch(ids []uint32) ([]email.Message, error) {
	f.fetchCalls = append(f.fetchCalls, ids)
	out := make([]email.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.msgs[id])
	}
	return out, nil
}

func (f *fakeSession) Logout() error {
	f.loggedOut = true
	return nil
}

func fakeDialer(s Session, err error) Dialer {
	return func(context.Context, Credentials) (Session, error) {
		return s, err
	}
}

func applicationMsg(company string) email.Message {
	return email.Message{
		From:    "jobs-noreply@linkedin.com",
		Subject: "Your application was sent to " + company,
		Date:    time.Now(),
	}
}

func TestSearch_ConnectionErrorAborts(t *testing.T) {
	d := NewDriver(fakeDialer(nil, errors.New("dial tcp: refused")), nil, 0)

	_, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err == nil {
		t.Fatal("expected connection error to propagate")
	}
}

func TestSearch_FolderErrorIsSkipped(t *testing.T) {
	s := &fakeSession{
		selectErr: map[string]error{"Archive": errors.New("no such mailbox")},
		ids:       map[string][]uint32{"INBOX": {1}},
		msgs:      map[uint32]email.Message{1: applicationMsg("Acme Corp")},
	}
	d := NewDriver(fakeDialer(s, nil), []string{"Archive", "INBOX"}, 10)

	items, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (bad folder skipped, good folder searched)", len(items))
	}
	if items[0].Company != "Acme Corp" {
		t.Errorf("company = %q, want 'Acme Corp'", items[0].Company)
	}
	if !s.loggedOut {
		t.Error("session not logged out")
	}
}

func TestSearch_DiscoversFoldersWhenNoneConfigured(t *testing.T) {
	s := &fakeSession{
		folders: []string{"INBOX", "Jobs"},
		ids: map[string][]uint32{
			"INBOX": {1},
			"Jobs":  {2},
		},
		msgs: map[uint32]email.Message{
			1: applicationMsg("Acme Corp"),
			2: applicationMsg("Globex"),
		},
	}
	d := NewDriver(fakeDialer(s, nil), nil, 10)

	items, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (both discovered folders searched)", len(items))
	}
}

func TestSearch_EmptyListingFallsBackToInbox(t *testing.T) {
	s := &fakeSession{
		ids:  map[string][]uint32{"INBOX": {1}},
		msgs: map[uint32]email.Message{1: applicationMsg("Acme Corp")},
	}
	d := NewDriver(fakeDialer(s, nil), nil, 10)

	items, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
}

func TestSearch_BatchesFetches(t *testing.T) {
	ids := make([]uint32, 7)
	msgs := make(map[uint32]email.Message, 7)
	for i := range ids {
		id := uint32(i + 1)
		ids[i] = id
		msgs[id] = applicationMsg("Acme Corp")
	}
	s := &fakeSession{
		ids:  map[string][]uint32{"INBOX": ids},
		msgs: msgs,
	}
	d := NewDriver(fakeDialer(s, nil), []string{"INBOX"}, 3)

	items, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 7 {
		t.Errorf("items = %d, want 7", len(items))
	}
	if len(s.fetchCalls) != 3 {
		t.Fatalf("fetch calls = %d, want 3 (batches of 3,3,1)", len(s.fetchCalls))
	}
	if got := len(s.fetchCalls[2]); got != 1 {
		t.Errorf("last batch size = %d, want 1", got)
	}
}

func TestSearch_IgnoredMessagesDropped(t *testing.T) {
	s := &fakeSession{
		ids: map[string][]uint32{"INBOX": {1, 2}},
		msgs: map[uint32]email.Message{
			1: applicationMsg("Acme Corp"),
			2: {From: "news@example.com", Subject: "Weekly digest"},
		},
	}
	d := NewDriver(fakeDialer(s, nil), []string{"INBOX"}, 10)

	items, err := d.Search(context.Background(), Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want 1 (digest ignored)", len(items))
	}
}

func TestCutoff(t *testing.T) {
	lastImport := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if got := Cutoff(lastImport, false, 90*24*time.Hour); !got.Equal(lastImport) {
		t.Errorf("cutoff = %v, want last import", got)
	}

	got := Cutoff(lastImport, true, 90*24*time.Hour)
	wantAround := time.Now().Add(-90 * 24 * time.Hour)
	if got.Sub(wantAround) > time.Minute || wantAround.Sub(got) > time.Minute {
		t.Errorf("ignorePrevious cutoff = %v, want ~%v", got, wantAround)
	}

	got = Cutoff(time.Time{}, false, 0)
	wantAround = time.Now().Add(-90 * 24 * time.Hour)
	if got.Sub(wantAround) > time.Minute || wantAround.Sub(got) > time.Minute {
		t.Errorf("zero-state cutoff = %v, want ~%v", got, wantAround)
	}
}
