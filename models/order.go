package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusNotConfirmed OrderStatus = "not_confirmed"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusReturned     OrderStatus = "returned"
)

type OrderType string

const (
	OrderTypeDelivery      OrderType = "delivery"
	OrderTypeTakeFromStore OrderType = "take_from_store"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypeTakeFromStore
}

func (t OrderType) Label() string {
	switch t {
	case OrderTypeTakeFromStore:
		return "Take From Store"
	default:
		return "Delivery"
	}
}

// Order is immutable after checkout except for Status. Customer fields are a
// snapshot taken at checkout, independent of any profile.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderNumber     string          `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User            *User           `gorm:"foreignKey:UserID" json:"-"`
	CustomerName    string          `gorm:"size:120;not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"not null" json:"customer_email"`
	CustomerPhone   string          `gorm:"size:30;not null" json:"customer_phone"`
	District        string          `gorm:"size:50" json:"district"`
	CustomerAddress string          `gorm:"type:text" json:"customer_address"`
	BuildingName    string          `json:"building_name"`
	Status          OrderStatus     `gorm:"size:20;default:not_confirmed;index" json:"status"`
	OrderType       OrderType       `gorm:"size:20;default:delivery" json:"order_type"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem copies the unit price at purchase time so later price changes
// never touch historical orders.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ProductName string          `json:"product_name"` // Snapshot of product name at time of order
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = "ORD" + time.Now().Format("20060102150405") + o.ID.String()[:8]
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal recomputes the order total from its price snapshots.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].LineTotal())
	}
	return total
}

// AllowedTransitions defines the valid order status state machine.
// Returned is terminal.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNotConfirmed: {OrderStatusConfirmed},
	OrderStatusConfirmed:    {OrderStatusReturned},
	OrderStatusReturned:     {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsValidOrderStatus(s OrderStatus) bool {
	_, exists := AllowedTransitions[s]
	return exists
}
