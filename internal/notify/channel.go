package notify

import (
	"context"
	"errors"
	"time"
)

// Channel names, as stored in notification logs and metrics.
const (
	ChannelLink = "link"
	ChannelAMQP = "amqp"
)

// ErrHandoff wraps failures of the outbound channel itself.
var ErrHandoff = errors.New("notification hand-off failed")

// Handoff describes an accepted outbound message.
type Handoff struct {
	Channel string    `json:"channel"`
	Phone   string    `json:"phone"`
	Link    string    `json:"link"`
	At      time.Time `json:"at"`
}

// Channel hands a message for phone to an outbound medium. A nil error means
// the medium accepted it; delivery is not observed.
type Channel interface {
	Name() string
	Send(ctx context.Context, phone, message string) (Handoff, error)
}

// LinkChannel produces the WhatsApp deep link for the caller to open. The
// hand-off succeeds whenever a link can be built.
type LinkChannel struct {
	Now func() time.Time
}

// Name implements Channel.
func (LinkChannel) Name() string { return ChannelLink }

// Send implements Channel.
func (l LinkChannel) Send(ctx context.Context, phone, message string) (Handoff, error) {
	if err := ctx.Err(); err != nil {
		return Handoff{}, err
	}
	link, err := WhatsAppLink(phone, message)
	if err != nil {
		return Handoff{}, err
	}
	digits, _ := NormalizePhone(phone)
	return Handoff{Channel: ChannelLink, Phone: digits, Link: link, At: nowOr(l.Now)}, nil
}

func nowOr(f func() time.Time) time.Time {
	if f != nil {
		return f().UTC()
	}
	return time.Now().UTC()
}
