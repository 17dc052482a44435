// Package domain defines the shipment tracker's core model: clients, their
// orders, the shipping status lifecycle, and the pure rules that derive
// client status and dashboard counters from them. Persistence tags (GORM) and
// wire tags (JSON) live on the same types so the repo and HTTP layers share
// one representation.
package domain

import "fmt"

// ShippingStatus is the stage an order has reached. The zero value is not a
// valid status.
//
// The stages are totally ordered:
//
//	purchased → shipped_to_warehouse → received_at_warehouse →
//	in_transit_to_argentina → arrived_in_argentina
type ShippingStatus string

const (
	StatusPurchased            ShippingStatus = "purchased"
	StatusShippedToWarehouse   ShippingStatus = "shipped_to_warehouse"
	StatusReceivedAtWarehouse  ShippingStatus = "received_at_warehouse"
	StatusInTransitToArgentina ShippingStatus = "in_transit_to_argentina"
	StatusArrivedInArgentina   ShippingStatus = "arrived_in_argentina"
)

// shippingOrder is the canonical lifecycle sequence.
var shippingOrder = [...]ShippingStatus{
	StatusPurchased,
	StatusShippedToWarehouse,
	StatusReceivedAtWarehouse,
	StatusInTransitToArgentina,
	StatusArrivedInArgentina,
}

// statusLabels maps every ShippingStatus to its Spanish display label.
var statusLabels = map[ShippingStatus]string{
	StatusPurchased:            "Comprado",
	StatusShippedToWarehouse:   "Enviado al depósito",
	StatusReceivedAtWarehouse:  "Recibido en el depósito",
	StatusInTransitToArgentina: "En tránsito a Argentina",
	StatusArrivedInArgentina:   "Llegó a Argentina",
}

// UnknownStatusLabel prefixes the label rendered for values outside the enum.
const UnknownStatusLabel = "Estado desconocido"

// ShippingStatuses returns the lifecycle in order. The slice is a copy.
func ShippingStatuses() []ShippingStatus {
	out := make([]ShippingStatus, len(shippingOrder))
	copy(out, shippingOrder[:])
	return out
}

// Valid reports whether s is one of the five lifecycle stages.
func (s ShippingStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Index returns the position of s in the lifecycle, or -1 when s is unknown.
func (s ShippingStatus) Index() int {
	for i, v := range shippingOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// Label returns the display label. Unknown values render a visible marker
// that includes the raw value, e.g. "Estado desconocido (lost)".
func (s ShippingStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("%s (%s)", UnknownStatusLabel, string(s))
}

// String implements fmt.Stringer.
func (s ShippingStatus) String() string { return string(s) }

// Terminal reports whether s is the last lifecycle stage.
func (s ShippingStatus) Terminal() bool { return s == StatusArrivedInArgentina }

// NextStatus returns the successor of current in the lifecycle. ok is false
// when current is terminal or unknown. The result is advisory only.
func NextStatus(current ShippingStatus) (next ShippingStatus, ok bool) {
	i := current.Index()
	if i < 0 || i+1 >= len(shippingOrder) {
		return "", false
	}
	return shippingOrder[i+1], true
}

// ParseShippingStatus validates a raw value coming from a request or a cache.
func ParseShippingStatus(raw string) (ShippingStatus, error) {
	s := ShippingStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// ClientStatus is the aggregate derived from a client's orders.
type ClientStatus string

const (
	ClientPending  ClientStatus = "pending"
	ClientActive   ClientStatus = "active"
	ClientFinished ClientStatus = "finished"
)

var clientStatusLabels = map[ClientStatus]string{
	ClientPending:  "Pendiente",
	ClientActive:   "Activo",
	ClientFinished: "Finalizado",
}

// Valid reports whether c is a known client status.
func (c ClientStatus) Valid() bool {
	_, ok := clientStatusLabels[c]
	return ok
}

// Label returns the Spanish display label for c.
func (c ClientStatus) Label() string {
	if l, ok := clientStatusLabels[c]; ok {
		return l
	}
	return fmt.Sprintf("%s (%s)", UnknownStatusLabel, string(c))
}
