package notify

import (
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderConfirmed EventType = "order.confirmed"
	EventOrderReturned  EventType = "order.returned"
)

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	District string `json:"district"`
	Address  string `json:"address"`
	Building string `json:"building"`
}

type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderEvent is the payload handed to delivery channels once an order
// transaction has committed.
type OrderEvent struct {
	Type        EventType        `json:"type"`
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	OrderType   models.OrderType `json:"order_type"`
	Customer    Customer         `json:"customer"`
	Items       []Line           `json:"items"`
	Total       decimal.Decimal  `json:"total"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewOrderEvent snapshots an order with its items loaded.
func NewOrderEvent(t EventType, order *models.Order) OrderEvent {
	lines := make([]Line, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		lines = append(lines, Line{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: item.LineTotal(),
		})
	}

	return OrderEvent{
		Type:        t,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderType:   order.OrderType,
		Customer: Customer{
			Name:     order.CustomerName,
			Email:    order.CustomerEmail,
			Phone:    order.CustomerPhone,
			District: order.District,
			Address:  order.CustomerAddress,
			Building: order.BuildingName,
		},
		Items:     lines,
		Total:     order.ItemsTotal(),
		CreatedAt: order.CreatedAt,
	}
}
