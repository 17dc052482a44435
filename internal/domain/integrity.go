package domain

// SanitizeClients repairs a collection loaded from a cache or backend so
// downstream code can rely on the model invariants. It never fails:
//
//   - nil Orders and StatusHistory become empty slices
//   - an order with an unknown or empty status is reset to purchased
//   - an order whose current status is missing from its history gets an
//     entry for it, stamped with the order's UpdatedAt
//   - ClientID is set to the owning client's ID
//   - a client status outside the known values is recomputed from the
//     orders
//
// A valid client status is kept as stored: the order-creation promotion
// can legitimately differ from RecomputeClientStatus.
//
// The input is not modified.
func SanitizeClients(in []Client) []Client {
	out := make([]Client, 0, len(in))
	for _, c := range in {
		out = append(out, SanitizeClient(c))
	}
	return out
}

// SanitizeClient applies the repairs of SanitizeClients to one client.
func SanitizeClient(c Client) Client {
	out := c.Clone()
	if out.Orders == nil {
		out.Orders = []Order{}
	}
	for i := range out.Orders {
		out.Orders[i] = sanitizeOrder(out.Orders[i], out.ID)
	}
	if !out.Status.Valid() {
		out.Status = RecomputeClientStatus(out.Orders)
	}
	return out
}

func sanitizeOrder(o Order, clientID string) Order {
	if o.StatusHistory == nil {
		o.StatusHistory = []StatusChange{}
	}
	if !o.Status.Valid() {
		o.Status = StatusPurchased
	}
	if clientID != "" {
		o.ClientID = clientID
	}
	if !o.HasStatus(o.Status) {
		ts := o.UpdatedAt
		if ts.IsZero() {
			ts = o.CreatedAt
		}
		o.StatusHistory = append(o.StatusHistory, StatusChange{Status: o.Status, Timestamp: ts})
	}
	return o
}
