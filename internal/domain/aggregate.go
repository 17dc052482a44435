package domain

// RecomputeClientStatus derives a client's status from its orders:
//
//  1. no orders → pending
//  2. every order arrived_in_argentina → finished
//  3. any order in an intermediate stage (neither purchased nor
//     arrived_in_argentina) → active
//  4. otherwise → pending
//
// Rule 4 covers all-purchased collections and mixes of purchased and
// arrived with nothing in between.
func RecomputeClientStatus(orders []Order) ClientStatus {
	if len(orders) == 0 {
		return ClientPending
	}

	allArrived := true
	anyInFlight := false
	for _, o := range orders {
		if o.Status != StatusArrivedInArgentina {
			allArrived = false
		}
		if o.Status != StatusArrivedInArgentina && o.Status != StatusPurchased {
			anyInFlight = true
		}
	}

	switch {
	case allArrived:
		return ClientFinished
	case anyInFlight:
		return ClientActive
	default:
		return ClientPending
	}
}

// PromoteOnOrderCreated is the narrower rule applied when an order is added:
// a pending client becomes active regardless of the new order's status. Any
// other status is left unchanged.
func PromoteOnOrderCreated(current ClientStatus) ClientStatus {
	if current == ClientPending {
		return ClientActive
	}
	return current
}
