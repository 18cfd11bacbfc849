package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/anatolykoptev/go_apply/internal/pipeline"
	"github.com/anatolykoptev/go_apply/internal/pipeline/email"
)

// imapSession is the production Session over go-imap.
type imapSession struct {
	c *client.Client
}

// DialIMAP connects and authenticates against an IMAP server.
// Dial failures wrap ErrConnection; login failures wrap ErrAuth.
func DialIMAP(ctx context.Context, creds Credentials) (Session, error) {
	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)

	// Transient dial failures are retried; auth failures below are not.
	c, err := pipeline.RetryDo(ctx, pipeline.DefaultRetryConfig, func() (*client.Client, error) {
		if creds.TLS {
			tlsConfig := &tls.Config{InsecureSkipVerify: creds.SkipVerify}
			return client.DialTLS(addr, tlsConfig)
		}
		return client.Dial(addr)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", pipeline.ErrConnection, addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login %s: %v", pipeline.ErrAuth, creds.Username, err)
	}

	slog.Debug("mailbox: connected", slog.String("host", creds.Host), slog.String("user", creds.Username))
	return &imapSession{c: c}, nil
}

func (s *imapSession) SelectReadOnly(folder string) error {
	_, err := s.c.Select(folder, true)
	return err
}

// SearchSince issues (OR sender-terms OR subject-terms) AND SINCE cutoff.
func (s *imapSession) SearchSince(since time.Time, senderTerms, subjectTerms []string) ([]uint32, error) {
	var alternatives []*imap.SearchCriteria
	for _, term := range senderTerms {
		c := imap.NewSearchCriteria()
		c.Header.Add("From", term)
		alternatives = append(alternatives, c)
	}
	for _, term := range subjectTerms {
		c := imap.NewSearchCriteria()
		c.Header.Add("Subject", term)
		alternatives = append(alternatives, c)
	}

	criteria := orCriteria(alternatives)
	if criteria == nil {
		criteria = imap.NewSearchCriteria()
	}
	criteria.Since = since

	return s.c.Search(criteria)
}

// orCriteria folds a list of alternatives into IMAP's binary OR tree.
func orCriteria(alts []*imap.SearchCriteria) *imap.SearchCriteria {
	if len(alts) == 0 {
		return nil
	}
	acc := alts[0]
	for _, next := range alts[1:] {
		or := imap.NewSearchCriteria()
		or.Or = [][2]*imap.SearchCriteria{{acc, next}}
		acc = or
	}
	return acc
}

// Fetch retrieves full messages for the given sequence numbers and
// decodes their text and HTML parts. A message that fails to parse is
// logged and dropped; the batch continues.
func (s *imapSession) Fetch(ids []uint32) ([]email.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- s.c.Fetch(seqset, items, ch)
	}()

	var msgs []email.Message
	for raw := range ch {
		msg, err := decodeMessage(raw, section)
		if err != nil {
			slog.Debug("mailbox: message dropped", slog.Any("error", err))
			continue
		}
		msgs = append(msgs, msg)
	}

	if err := <-done; err != nil {
		return msgs, err
	}
	return msgs, nil
}

// ListFolders enumerates the folder names available on the server.
func (s *imapSession) ListFolders() ([]string, error) {
	ch := make(chan *imap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", "*", ch)
	}()

	var names []string
	for info := range ch {
		names = append(names, info.Name)
	}
	if err := <-done; err != nil {
		return names, err
	}
	return names, nil
}

func (s *imapSession) Logout() error {
	return s.c.Logout()
}

// decodeMessage converts a fetched IMAP message into the classifier's
// input form.
func decodeMessage(raw *imap.Message, section *imap.BodySectionName) (email.Message, error) {
	var msg email.Message

	if env := raw.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.Date = env.Date
		if len(env.From) > 0 {
			msg.From = env.From[0].Address()
			msg.FromName = env.From[0].PersonalName
		}
	}

	body := raw.GetBody(section)
	if body == nil {
		return msg, fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return msg, fmt.Errorf("parse message: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, _ := header.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(ctype, "text/html") && msg.HTML == "":
			msg.HTML = string(data)
		case strings.HasPrefix(ctype, "text/plain") && msg.Text == "":
			msg.Text = string(data)
		}
	}

	if msg.Text == "" && msg.HTML != "" {
		msg.Text = pipeline.CleanHTML(msg.HTML)
	}
	return msg, nil
}
