package domain

// Stats are the dashboard counters.
type Stats struct {
	TotalClients    int `json:"totalClients"`
	PendingClients  int `json:"pendingClients"`
	ActiveClients   int `json:"activeClients"`
	FinishedClients int `json:"finishedClients"`
	TotalOrders     int `json:"totalOrders"`
	CompletedOrders int `json:"completedOrders"`
	PendingOrders   int `json:"pendingOrders"`
}

// ComputeStats folds the client collection into Stats. A nil collection
// yields zero counters. Clients with an unrecognized status count towards
// TotalClients only.
func ComputeStats(clients []Client) Stats {
	var st Stats
	for _, c := range clients {
		st.TotalClients++
		switch c.Status {
		case ClientPending:
			st.PendingClients++
		case ClientActive:
			st.ActiveClients++
		case ClientFinished:
			st.FinishedClients++
		}
		for _, o := range c.Orders {
			st.TotalOrders++
			if o.Status == StatusArrivedInArgentina {
				st.CompletedOrders++
			} else {
				st.PendingOrders++
			}
		}
	}
	return st
}
