package crmactions

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/payload"
)

type SendEmail struct {
	mailer crm.Mailer
	now    func() time.Time
}

func NewSendEmail(mailer crm.Mailer) *SendEmail {
	return &SendEmail{mailer: mailer, now: time.Now}
}

func (*SendEmail) Type() models.ActionType { return models.ActionSendEmail }

func (*SendEmail) Description() string {
	return "Queues an email. The recipient defaults to the payload email."
}

func (*SendEmail) Schema() map[string]any {
	return objectSchema(map[string]any{
		"to":      map[string]any{"type": "string", "format": "email"},
		"subject": map[string]any{"type": "string", "minLength": 1},
		"body":    map[string]any{"type": "string"},
	}, "subject", "body")
}

func (a *SendEmail) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	to := configString(req.Config, "to")
	if to == "" {
		if email, ok := payload.Resolve(req.Payload, "email"); ok {
			to = stringify(email)
		}
	}

	if to == "" {
		return nil, ErrRecipientMissing
	}

	email := crm.Email{
		To:       to,
		Subject:  configString(req.Config, "subject"),
		Body:     configString(req.Config, "body"),
		QueuedAt: a.now().UTC(),
	}

	if target, err := resolveTarget(req.Config, req.Payload, req.Trigger); err == nil {
		email.EntityKind = target.kind
		email.EntityID = target.id
	}

	err := a.mailer.Send(ctx, email)
	if err != nil {
		return nil, err
	}

	return map[string]any{"emailQueued": true, "to": to}, nil
}
