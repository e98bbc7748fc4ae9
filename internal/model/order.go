package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants — the schema does not enforce a transition graph,
// staff move orders freely between these states
const (
	OrderStatusReceived   = "received"
	OrderStatusInProgress = "in_progress"
	OrderStatusReady      = "ready"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderType constants
const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

// ValidOrderStatus reports whether the status is one of the known states
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusReceived, OrderStatusInProgress, OrderStatusReady,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidOrderType reports whether the order type is known
func ValidOrderType(orderType string) bool {
	switch orderType {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// Order is the customer order aggregate
type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerName  string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string          `gorm:"type:varchar(50)" json:"customer_phone"`
	OrderType     string          `gorm:"type:varchar(20);not null;default:'dine_in'" json:"order_type"`
	Status        string          `gorm:"type:varchar(20);not null;default:'received';index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is a line item within an Order. UnitPrice is a snapshot of the
// menu price at order time and never changes afterwards.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order        Order           `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MenuItemID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"menu_item_id"`
	MenuItem     MenuItem        `gorm:"foreignKey:MenuItemID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Quantity     int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Instructions string          `gorm:"type:text" json:"instructions"`
}
