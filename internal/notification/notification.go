// Package notification turns domain events into outbound email. It owns no
// routes; it subscribes to the event bus and delegates delivery to the email
// sender.
package notification

import (
	"context"
	"fmt"

	"forwarding_portal_backend/internal/email"
	"forwarding_portal_backend/internal/events"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/logger"
)

// Notifier bridges domain events to email delivery.
type Notifier struct {
	sender   email.Sender
	renderer *email.Renderer
	cfg      config.NotificationConfig
	opsEmail string
	log      *logger.Logger
}

// New creates the notifier and subscribes it to the bus. Operator alerts go
// to opsEmail; when empty, sync failures are only logged.
func New(bus events.Bus, sender email.Sender, renderer *email.Renderer, cfg config.NotificationConfig, opsEmail string, log *logger.Logger) *Notifier {
	n := &Notifier{
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		opsEmail: opsEmail,
		log:      log,
	}

	bus.Subscribe("quotes.sent", events.HandlerFunc(n.onQuoteSent))
	bus.Subscribe("drafts.sync.failed", events.HandlerFunc(n.onDraftSyncFailed))
	return n
}

func (n *Notifier) onQuoteSent(ctx context.Context, event events.Event) error {
	sent, ok := event.(events.QuoteSent)
	if !ok {
		return nil
	}

	err := n.sender.Send(ctx, email.Message{
		ToName:    sent.RecipientName,
		ToAddress: sent.RecipientEmail,
		Subject:   sent.Subject,
		HTMLBody:  sent.HTMLBody,
	})
	if err != nil {
		n.log.Error("quote_email_failed",
			"quote_id", sent.QuoteID.String(),
			"quote_number", sent.QuoteNumber,
			"error", err.Error(),
		)
		return err
	}

	n.log.Info("quote_email_sent",
		"quote_id", sent.QuoteID.String(),
		"quote_number", sent.QuoteNumber,
	)
	return nil
}

func (n *Notifier) onDraftSyncFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(events.DraftSyncFailed)
	if !ok {
		return nil
	}

	if n.opsEmail == "" {
		n.log.Warn("sync_failure_unreported",
			"draft_id", failed.DraftID.String(),
			"reason", failed.Reason,
		)
		return nil
	}

	body, err := n.renderer.RenderSyncFailure(email.SyncFailureData{
		DraftID:    failed.DraftID.String(),
		RemoteID:   failed.RemoteID,
		Direction:  failed.Direction,
		Reason:     failed.Reason,
		OccurredAt: failed.OccurredAt().UTC().Format("2006-01-02 15:04 MST"),
		DraftURL:   fmt.Sprintf("%s/drafts/%s", n.cfg.GetAppBaseURL(), failed.DraftID),
	})
	if err != nil {
		return fmt.Errorf("render sync failure alert: %w", err)
	}

	return n.sender.Send(ctx, email.Message{
		ToAddress: n.opsEmail,
		Subject:   email.SyncFailureSubject(failed.DraftID.String()),
		HTMLBody:  body,
	})
}
