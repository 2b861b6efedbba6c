package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/richyfesta/arnoma/core"
)

// Send results
const (
	ResultSent        = "sent"
	ResultAlreadySent = "alreadySent"
	ResultFailed      = "failed"
)

var (
	// ErrDispatchTimeout is returned when the email module does not answer
	// within the configured timeout. No sent record is written, so the
	// candidate stays eligible on the next tick.
	ErrDispatchTimeout = errors.New("dispatch timed out")

	// ErrTokenExpired mirrors an emailError with code token_expired.
	ErrTokenExpired = errors.New("email relay token expired")

	nowFunc = time.Now // mockable
)

// Dispatcher is the idempotent send path. Every send is resolved against the
// Sent Record Log first; only successful sends append to it.
type Dispatcher struct {
	log     Log
	bridge  *Bridge
	logger  core.Logger
	timeout time.Duration
}

func NewDispatcher(log Log, bridge *Bridge, logger core.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		log:     log,
		bridge:  bridge,
		logger:  logger,
		timeout: timeout,
	}
}

// Send dispatches one notification. It returns ResultAlreadySent without any
// network call when the log already holds a record for (template, recipient)
// at or after the notification's window start; ResultSent after the email
// module confirms and the sent record is appended; ResultFailed on transport
// error or timeout, in which case nothing is recorded and the next tick will
// re-attempt.
func (d *Dispatcher) Send(n Notification) (string, error) {
	if _, err := d.log.LastSentRecord(n.TemplateName, n.Recipient, n.Since); err == nil {
		return ResultAlreadySent, nil
	} else if !errors.Is(err, ErrNoRecord) {
		return ResultFailed, err
	}

	data := make(map[string]interface{}, len(n.Data)+3)
	for k, v := range n.Data {
		data[k] = v
	}
	data["templateName"] = n.TemplateName
	data["recipient"] = n.Recipient
	data["recipientName"] = n.RecipientName

	req := Request{
		ID:     uuid.New().String(),
		Action: n.Action,
		Data:   data,
	}
	respCh := d.bridge.Post(req)

	select {
	case resp := <-respCh:
		if resp.Action != ActionEmailSent {
			if resp.Code == CodeTokenExpired {
				return ResultFailed, ErrTokenExpired
			}
			return ResultFailed, errors.New(resp.Error)
		}
	case <-time.After(d.timeout):
		d.bridge.Cancel(req.ID)
		return ResultFailed, ErrDispatchTimeout
	}

	rec := SentRecord{
		TemplateName: n.TemplateName,
		Recipient:    n.Recipient,
		SentAt:       nowFunc().UTC(),
	}
	if _, err := d.log.AppendSentRecord(rec); err != nil {
		// the email went out; surface the bookkeeping failure but do not
		// pretend the send failed
		d.logger.Error("dispatcher: appending sent record", err)
		return ResultSent, err
	}
	return ResultSent, nil
}
