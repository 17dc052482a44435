// Package notify turns order status changes into client messages and hands
// them off to an outbound channel.
//
// The pipeline is: Templater renders the message for the order's current
// status, a Channel accepts it (the WhatsApp deep link, or a RabbitMQ
// publish), and Dispatcher records the outcome and flags the order's history
// entry as notified. A hand-off only means the channel accepted the message;
// delivery is never observed.
package notify

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/sysutil"
)

// DefaultEtaDays is the fixed delivery estimate used for [fecha].
const DefaultEtaDays = 14

// Placeholder fallbacks used when the order or client field is empty.
const (
	fallbackClient   = "Cliente"
	fallbackStore    = "Tienda"
	fallbackProduct  = "Producto"
	fallbackTracking = "Sin número de tracking"

	statusLinePrefix = "Estado actual: "
)

// Templater fills message templates with client and order values.
type Templater struct {
	// Locale selects the [fecha] layout.
	Locale language.Tag
	// EtaDays is added to Now() to produce [fecha].
	EtaDays int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewTemplater returns a Templater for locale with the default estimate.
func NewTemplater(locale language.Tag) *Templater {
	return &Templater{Locale: locale, EtaDays: DefaultEtaDays}
}

func (t *Templater) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// EstimatedDate returns the formatted delivery estimate.
func (t *Templater) EstimatedDate() string {
	return t.now().AddDate(0, 0, t.EtaDays).Format(dateLayout(t.Locale))
}

// Render substitutes every token occurrence in tpl. Tokens are
// case-sensitive and replaced in a single pass, so values containing token
// text are not expanded again. When the result does not mention the order's
// status label, a trailing "Estado actual: <label>" line is appended.
func (t *Templater) Render(tpl string, c domain.Client, o domain.Order) string {
	r := strings.NewReplacer(
		"[cliente]", sysutil.FirstNonEmpty(c.Name, fallbackClient),
		"[comercio]", sysutil.FirstNonEmpty(o.Store, fallbackStore),
		"[pedido]", sysutil.FirstNonEmpty(o.ProductDescription, fallbackProduct),
		"[fecha]", t.EstimatedDate(),
		"[tracking]", sysutil.FirstNonEmpty(o.TrackingNumber, fallbackTracking),
	)
	msg := r.Replace(tpl)

	label := o.Status.Label()
	if !strings.Contains(msg, label) {
		msg += "\n" + statusLinePrefix + label
	}
	return msg
}

// Message renders the first enabled template for the order's status, or the
// generic message when none is configured.
func (t *Templater) Message(s domain.WhatsAppSettings, c domain.Client, o domain.Order) string {
	if tpl, ok := s.ActiveTemplate(o.Status); ok {
		return t.Render(tpl.Template, c, o)
	}
	return Fallback(c, o)
}

// Fallback is the generic message used when no template matches.
func Fallback(c domain.Client, o domain.Order) string {
	return fmt.Sprintf(
		"Hola %s, te escribimos por tu pedido de %s en %s.\n%s%s",
		sysutil.FirstNonEmpty(c.Name, fallbackClient),
		sysutil.FirstNonEmpty(o.ProductDescription, fallbackProduct),
		sysutil.FirstNonEmpty(o.Store, fallbackStore),
		statusLinePrefix,
		o.Status.Label(),
	)
}

// dateLayout picks day-first for Spanish and Portuguese, US month-first for
// English, and ISO dates otherwise.
func dateLayout(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "es", "pt":
		return "02/01/2006"
	case "en":
		return "01/02/2006"
	default:
		return "2006-01-02"
	}
}
