package emailsvc

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/notification"
)

// Responder is the email module's side of the dispatch boundary. It consumes
// requests off the bridge, turns them into rendered emails and resolves each
// request with an emailSent or emailError response.
type Responder struct {
	bridge *notification.Bridge
	mail   core.EmailService
	logger core.Logger
}

func NewResponder(bridge *notification.Bridge, mail core.EmailService, logger core.Logger) *Responder {
	return &Responder{
		bridge: bridge,
		mail:   mail,
		logger: logger,
	}
}

// Run consumes requests until ctx is cancelled. Call in its own goroutine.
func (r *Responder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.bridge.Requests():
			r.bridge.Resolve(r.handle(req))
		}
	}
}

func (r *Responder) handle(req notification.Request) notification.Response {
	msg, err := r.buildMessage(req)
	if err == nil {
		err = r.mail.SendMessage(msg)
	}
	if err != nil {
		r.logger.Error("email responder: "+req.Action, err)
		resp := notification.Response{
			ID:     req.ID,
			Action: notification.ActionEmailError,
			Error:  err.Error(),
		}
		if errors.Is(err, core.ErrMailTokenExpired) {
			resp.Code = notification.CodeTokenExpired
		}
		return resp
	}
	return notification.Response{ID: req.ID, Action: notification.ActionEmailSent}
}

func (r *Responder) buildMessage(req notification.Request) (*core.EmailMessage, error) {
	recipient, _ := req.Data["recipient"].(string)
	if recipient == "" {
		return nil, errors.New("request has no recipient")
	}
	recipientName, _ := req.Data["recipientName"].(string)
	templateName, _ := req.Data["templateName"].(string)
	if templateName == "" {
		return nil, errors.New("request has no template")
	}

	return &core.EmailMessage{
		To:           []mail.Address{{Name: recipientName, Address: recipient}},
		Subject:      r.subject(req),
		TemplateName: templateName,
		TemplateData: req.Data,
	}, nil
}

func (r *Responder) subject(req notification.Request) string {
	switch req.Action {
	case "sendClassReminderEmail":
		if group, ok := req.Data["groupName"].(string); ok && group != "" {
			return fmt.Sprintf("Class Reminder - %s", group)
		}
		return "Class Reminder"
	case "sendPaymentReminderEmail":
		return "Payment Reminder"
	}
	return req.Action
}
