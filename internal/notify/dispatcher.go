package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// ErrNotificationsDisabled is returned when the global switch is off.
var ErrNotificationsDisabled = errors.New("notifications are disabled")

// SettingsProvider returns the current WhatsApp settings.
type SettingsProvider interface {
	Get() domain.WhatsAppSettings
}

// Recorder flags the most recent history entry for status as notified and
// persists the change.
type Recorder interface {
	MarkNotified(ctx context.Context, clientID, orderID string, status domain.ShippingStatus) error
}

// LogStore persists dispatch outcomes.
type LogStore interface {
	InsertNotificationLog(ctx context.Context, l *domain.NotificationLog) error
}

// Outcome is the result of one Notify call.
type Outcome struct {
	Success bool                  `json:"success"`
	Status  domain.ShippingStatus `json:"status"`
	Message string                `json:"message"`
	Handoff Handoff               `json:"handoff"`
	Error   string                `json:"error,omitempty"`
}

// Dispatcher renders and hands off notifications. Recorder and Log are
// optional.
type Dispatcher struct {
	Settings  SettingsProvider
	Templater *Templater
	Channel   Channel
	Recorder  Recorder
	Log       LogStore
	Now       func() time.Time
}

// Notify sends the message for o's current status to c's phone.
//
// With notifications disabled it returns ErrNotificationsDisabled and has no
// side effects. A hand-off failure (including an unusable phone) returns the
// channel error and leaves the order untouched. On success the matching
// history entry is flagged through Recorder. Every attempt past the
// disabled check is written to Log.
func (d *Dispatcher) Notify(ctx context.Context, c domain.Client, o domain.Order) (Outcome, error) {
	tr := otel.Tracer("notify/Dispatcher")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(
			attribute.String("client.id", c.ID),
			attribute.String("order.id", o.ID),
			attribute.String("order.status", string(o.Status)),
			attribute.String("channel", d.Channel.Name()),
		),
	)
	defer span.End()

	lg := log.With().
		Str("component", "notify").
		Str("client_id", c.ID).
		Str("order_id", o.ID).
		Str("status", string(o.Status)).
		Logger()

	settings := d.Settings.Get()
	if !settings.NotificationsEnabled {
		notificationsTotal.WithLabelValues(d.Channel.Name(), resultDisabled).Inc()
		return Outcome{Status: o.Status}, ErrNotificationsDisabled
	}

	msg := d.Templater.Message(settings, c, o)
	out := Outcome{Status: o.Status, Message: msg}

	start := time.Now()
	h, err := d.Channel.Send(ctx, c.Phone, msg)
	notifyLatency.WithLabelValues(d.Channel.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		notificationsTotal.WithLabelValues(d.Channel.Name(), resultFailed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "handoff failed")
		lg.Warn().Err(err).Msg("notification hand-off failed")

		out.Error = err.Error()
		d.record(ctx, c, o, out)
		return out, err
	}

	out.Success = true
	out.Handoff = h
	notificationsTotal.WithLabelValues(d.Channel.Name(), resultSent).Inc()
	lg.Info().Str("channel", h.Channel).Msg("notification handed off")

	if d.Recorder != nil {
		if rerr := d.Recorder.MarkNotified(ctx, c.ID, o.ID, o.Status); rerr != nil {
			// the hand-off happened; the entry stays unflagged and is retried
			lg.Warn().Err(rerr).Msg("mark notified failed")
		}
	}
	d.record(ctx, c, o, out)
	return out, nil
}

func (d *Dispatcher) record(ctx context.Context, c domain.Client, o domain.Order, out Outcome) {
	if d.Log == nil {
		return
	}
	entry := &domain.NotificationLog{
		ID:        uuid.NewString(),
		ClientID:  c.ID,
		OrderID:   o.ID,
		Status:    o.Status,
		Channel:   d.Channel.Name(),
		Phone:     out.Handoff.Phone,
		Link:      out.Handoff.Link,
		Message:   out.Message,
		Success:   out.Success,
		Error:     out.Error,
		CreatedAt: nowOr(d.Now),
	}
	if err := d.Log.InsertNotificationLog(ctx, entry); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("notification log insert failed")
	}
}
