package mailboxsvc

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/payment"
)

var amountRegex = regexp.MustCompile(`\$?\s*(\d+(?:\.\d{2})?)`)

// Watcher polls an IMAP inbox for unseen payment notification emails and
// records a payment event for each one. Messages are marked \Seen once
// processed so a restart never double-ingests.
type Watcher struct {
	conf     *core.Config
	payments *payment.Service
	logger   core.Logger

	keywords []string

	isChecking int32 // atomic; skips a poll still running from the previous interval
}

func NewWatcher(conf *core.Config, payments *payment.Service, logger core.Logger) *Watcher {
	return &Watcher{
		conf:     conf,
		payments: payments,
		logger:   logger,
		keywords: conf.Mailbox.Keywords,
	}
}

// Run connects and polls until ctx is cancelled. Connection errors are logged
// and retried after the configured reconnect wait, forever.
func (w *Watcher) Run(ctx context.Context) {
	for {
		if err := w.watch(ctx); err != nil {
			w.logger.Error("mailbox: connection lost", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.conf.Mailbox.ReconnectWait):
		}
	}
}

func (w *Watcher) watch(ctx context.Context) error {
	c, err := client.DialTLS(w.conf.Mailbox.Address(), nil)
	if err != nil {
		return errors.Wrap(err, "dialing IMAP server")
	}
	defer func() { _ = c.Logout() }()

	if err = c.Login(w.conf.Mailbox.User, w.conf.Mailbox.Password); err != nil {
		return errors.Wrap(err, "logging in")
	}
	if _, err = c.Select("INBOX", false); err != nil {
		return errors.Wrap(err, "selecting INBOX")
	}
	w.logger.Info("mailbox: watching " + w.conf.Mailbox.User)

	ticker := time.NewTicker(w.conf.Mailbox.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err = w.checkOnce(c); err != nil {
				return err
			}
		}
	}
}

// checkOnce fetches and ingests all unseen messages. A no-op if the previous
// check is still in flight.
func (w *Watcher) checkOnce(c *client.Client) error {
	if !atomic.CompareAndSwapInt32(&w.isChecking, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&w.isChecking, 0)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return errors.Wrap(err, "searching for unseen messages")
	}
	if len(ids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(ids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	for msg := range messages {
		if err := w.ingest(msg.GetBody(section)); err != nil {
			w.logger.Error("mailbox: ingesting message", err)
		}
	}
	if err = <-done; err != nil {
		return errors.Wrap(err, "fetching messages")
	}

	// mark everything we saw as read
	flags := []interface{}{imap.SeenFlag}
	if err = c.Store(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		return errors.Wrap(err, "marking messages as read")
	}
	return nil
}

func (w *Watcher) ingest(body io.Reader) error {
	if body == nil {
		return errors.New("message has no body")
	}
	mr, err := mail.CreateReader(body)
	if err != nil {
		return errors.Wrap(err, "reading message")
	}

	subject, _ := mr.Header.Subject()
	var payer string
	if froms, err := mr.Header.AddressList("From"); err == nil && len(froms) > 0 {
		payer = payerFromAddress(froms[0])
	}

	var text string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "reading message part")
		}
		if _, ok := p.Header.(*mail.InlineHeader); ok {
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return errors.Wrap(err, "reading message body")
			}
			text += string(b) + "\n"
		}
	}

	if !w.matchesKeywords(subject, text) {
		return nil
	}

	amount, ok := extractAmount(subject + "\n" + text)
	if !ok {
		w.logger.Warn("mailbox: payment email without an amount: " + subject)
		return nil
	}

	ne := payment.NewEvent{
		Amount:       amount,
		PayerNameRaw: payer,
		Timestamp:    time.Now().UTC(),
	}
	if err := ne.Validate(); err != nil {
		return errors.Wrap(err, "validating payment event")
	}
	evt, err := w.payments.Create(ne)
	if err != nil {
		return errors.Wrap(err, "recording payment event")
	}
	w.logger.Info("mailbox: recorded payment", map[string]interface{}{
		"id": evt.ID, "payer": evt.PayerName, "amount": evt.Amount,
	})
	return nil
}

// matchesKeywords reports whether the subject or body mentions any of the
// configured payment keywords.
func (w *Watcher) matchesKeywords(subject, body string) bool {
	haystack := strings.ToLower(subject + "\n" + body)
	for _, kw := range w.keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// extractAmount pulls the first dollar amount out of the text.
func extractAmount(text string) (float64, bool) {
	m := amountRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// payerFromAddress prefers the display name; falls back to the mailbox part
// of the address.
func payerFromAddress(addr *mail.Address) string {
	if name := strings.TrimSpace(addr.Name); name != "" {
		return name
	}
	if at := strings.Index(addr.Address, "@"); at > 0 {
		return addr.Address[:at]
	}
	return addr.Address
}
