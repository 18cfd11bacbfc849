// Package mailbox connects to a mail server and streams matching
// messages through the email classifier. Folder-level failures are
// contained: a folder that cannot be opened or searched is skipped, and
// the overall search continues.
package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
)

// Credentials identifies one mail account. Password arrives already
// decrypted from the vault.
type Credentials struct {
	Host       string
	Port       int
	TLS        bool
	SkipVerify bool
	Username   string
	Password   string
}

// Session is an open connection to a mail server. The production
// implementation lives in session.go; tests inject fakes.
type Session interface {
	// SelectReadOnly opens a folder without marking messages seen.
	SelectReadOnly(folder string) error
	// SearchSince returns ids of messages received since the cutoff
	// whose sender matches any sender term or whose subject matches
	// any subject term.
	SearchSince(since time.Time, senderTerms, subjectTerms []string) ([]uint32, error)
	// Fetch retrieves and decodes the given messages.
	Fetch(ids []uint32) ([]email.Message, error)
	// ListFolders returns the folder names available on the server.
	ListFolders() ([]string, error)
	// Logout closes the session.
	Logout() error
}

// Dialer opens a Session for the given account.
type Dialer func(ctx context.Context, creds Credentials) (Session, error)

// Sender and subject terms for the server-side search expression. The
// coarse server filter only bounds the candidate set; precise
// classification happens client-side in the email package.
var (
	senderTerms = []string{
		"jobs-noreply@linkedin.com",
		"jobs-listings@linkedin.com",
		"indeed.com",
		"glassdoor.com",
		"greenhouse.io",
		"lever.co",
	}
	subjectTerms = []string{
		"application",
		"applied",
		"thank you for applying",
		"interview",
	}
)

// Driver iterates configured folders and collects classified items.
type Driver struct {
	dial      Dialer
	folders   []string
	batchSize int
}

// NewDriver builds a driver. A nil dialer defaults to the IMAP
// implementation; an empty folder list means folders are discovered
// from the server at search time.
func NewDriver(dial Dialer, folders []string, batchSize int) *Driver {
	if dial == nil {
		dial = DialIMAP
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Driver{dial: dial, folders: folders, batchSize: batchSize}
}

// Search connects, walks every configured folder in order, and returns
// the accumulated non-ignored items. A connection failure aborts the
// whole search; a folder failure only skips that folder.
func (d *Driver) Search(ctx context.Context, creds Credentials, since time.Time) ([]email.Item, error) {
	pipeline.IncrMailSearches()

	session, err := d.dial(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Logout(); err != nil {
			slog.Debug("mailbox: logout failed", slog.Any("error", err))
		}
	}()

	folders := d.folders
	if len(folders) == 0 {
		names, err := session.ListFolders()
		if err != nil || len(names) == 0 {
			slog.Warn("mailbox: folder listing failed, defaulting to INBOX", slog.Any("error", err))
			names = []string{"INBOX"}
		}
		folders = names
	}

	var items []email.Item
	for _, folder := range folders {
		folderItems, err := d.searchFolder(session, folder, since)
		if err != nil {
			pipeline.IncrFolderErrors()
			slog.Warn("mailbox: folder skipped",
				slog.String("folder", folder), slog.Any("error", err))
			continue
		}
		items = append(items, folderItems...)
	}

	slog.Info("mailbox: search complete",
		slog.Int("folders", len(folders)),
		slog.Int("items", len(items)),
		slog.Time("since", since))
	return items, nil
}

// searchFolder opens one folder read-only and drains its matches in
// bounded batches.
func (d *Driver) searchFolder(session Session, folder string, since time.Time) ([]email.Item, error) {
	if err := session.SelectReadOnly(folder); err != nil {
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	ids, err := session.SearchSince(since, senderTerms, subjectTerms)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", folder, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var items []email.Item
	for start := 0; start < len(ids); start += d.batchSize {
		end := min(start+d.batchSize, len(ids))

		msgs, err := session.Fetch(ids[start:end])
		if err != nil {
			return items, fmt.Errorf("fetch %s: %w", folder, err)
		}
		pipeline.IncrEmailsFetched(len(msgs))

		for _, msg := range msgs {
			item := email.Classify(msg)
			if item.Kind == email.KindIgnored {
				pipeline.IncrEmailsIgnored()
				continue
			}
			pipeline.IncrEmailsClassified()
			items = append(items, item)
		}
	}
	return items, nil
}

// Cutoff computes the search cutoff date: the account's last-import
// timestamp when one exists and the caller has not asked to ignore it,
// otherwise now minus the configured lookback window.
func Cutoff(lastImport time.Time, ignorePrevious bool, lookback time.Duration) time.Time {
	if !ignorePrevious && !lastImport.IsZero() {
		return lastImport
	}
	if lookback <= 0 {
		lookback = 90 * 24 * time.Hour
	}
	return time.Now().Add(-lookback)
}
