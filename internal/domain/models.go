package domain

import "time"

// Client is a customer of the shipping service. A client owns its orders:
// deleting the client cascades to them.
//
// Status is derived from Orders (see RecomputeClientStatus) and is only set
// directly at creation time, when it is ClientPending.
//
// JSON field names follow the dashboard's wire format (camelCase), which is
// also the format of the local client cache.
type Client struct {
	ID        string       `json:"id"        gorm:"type:char(36);primaryKey"`
	Name      string       `json:"name"      gorm:"type:varchar(120);not null"`
	Email     string       `json:"email"     gorm:"type:varchar(255);not null;default:''"`
	Phone     string       `json:"phone"     gorm:"type:varchar(32);not null"`
	Status    ClientStatus `json:"status"    gorm:"type:varchar(16);not null;default:'pending';index"`
	Orders    []Order      `json:"orders"    gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// Order is a single purchase being shipped for a client. ClientID is a
// lookup key, not ownership.
//
// StatusHistory is append-only and chronological. It holds at most one
// entry per status value (see AdvanceStatus).
type Order struct {
	ID                 string         `json:"id"                       gorm:"type:char(36);primaryKey"`
	ClientID           string         `json:"clientId"                 gorm:"type:char(36);not null;index"`
	ProductDescription string         `json:"productDescription"       gorm:"type:varchar(255);not null"`
	Store              string         `json:"store"                    gorm:"type:varchar(120);not null"`
	TrackingNumber     string         `json:"trackingNumber,omitempty" gorm:"type:varchar(64);not null;default:''"`
	Status             ShippingStatus `json:"status"                   gorm:"type:varchar(32);not null;index"`
	StatusHistory      []StatusChange `json:"statusHistory"            gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// StatusChange records that an order reached Status at Timestamp, and
// whether a notification was handed off for that entry.
//
// Seq orders entries within an order; it is assigned on persistence and is
// not part of the wire format.
type StatusChange struct {
	ID               uint           `json:"-"                gorm:"primaryKey;autoIncrement"`
	OrderID          string         `json:"-"                gorm:"type:char(36);not null;index:idx_order_history,priority:1"`
	Seq              int            `json:"-"                gorm:"not null;index:idx_order_history,priority:2"`
	Status           ShippingStatus `json:"status"           gorm:"type:varchar(32);not null"`
	Timestamp        time.Time      `json:"timestamp"        gorm:"not null"`
	NotificationSent bool           `json:"notificationSent" gorm:"not null;default:false"`
}

// TableName returns the database table name for StatusChange.
func (StatusChange) TableName() string { return "status_changes" }

// NotificationLog is one dispatch outcome. Failures are logged too so the
// dashboard can show why an order was not notified.
type NotificationLog struct {
	ID        string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ClientID  string         `json:"clientId"        gorm:"type:char(36);not null;index"`
	OrderID   string         `json:"orderId"         gorm:"type:char(36);not null;index"`
	Status    ShippingStatus `json:"status"          gorm:"type:varchar(32);not null"`
	Channel   string         `json:"channel"         gorm:"type:varchar(16);not null"`
	Phone     string         `json:"phone"           gorm:"type:varchar(32);not null;default:''"`
	Link      string         `json:"link,omitempty"  gorm:"type:text"`
	Message   string         `json:"message"         gorm:"type:text;not null"`
	Success   bool           `json:"success"         gorm:"not null"`
	Error     string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"createdAt"       gorm:"index"`
}

// TableName returns the database table name for NotificationLog.
func (NotificationLog) TableName() string { return "notification_logs" }

// KVEntry is a named JSON blob. The local cache DB stores the client
// snapshot ("demo_clients") and the WhatsApp settings ("whatsappSettings")
// this way.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(64);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_store" }

// CurrentEntry returns the most recent history entry whose status equals the
// order's current status.
func (o Order) CurrentEntry() (StatusChange, bool) {
	for i := len(o.StatusHistory) - 1; i >= 0; i-- {
		if o.StatusHistory[i].Status == o.Status {
			return o.StatusHistory[i], true
		}
	}
	return StatusChange{}, false
}

// HasStatus reports whether the history already contains an entry for s.
func (o Order) HasStatus(s ShippingStatus) bool {
	for _, h := range o.StatusHistory {
		if h.Status == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	out := o
	if o.StatusHistory != nil {
		out.StatusHistory = make([]StatusChange, len(o.StatusHistory))
		copy(out.StatusHistory, o.StatusHistory)
	}
	return out
}

// Clone returns a deep copy of c, including its orders and their history.
func (c Client) Clone() Client {
	out := c
	if c.Orders != nil {
		out.Orders = make([]Order, len(c.Orders))
		for i, o := range c.Orders {
			out.Orders[i] = o.Clone()
		}
	}
	return out
}

// OrderIndex returns the position of orderID in c.Orders, or -1.
func (c Client) OrderIndex(orderID string) int {
	for i, o := range c.Orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

// CloneClients deep-copies a client collection.
func CloneClients(in []Client) []Client {
	if in == nil {
		return nil
	}
	out := make([]Client, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
