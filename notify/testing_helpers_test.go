package notify

import (
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleOrder() *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:              orderID,
		OrderNumber:     "ORD20260101120000abcd1234",
		CustomerName:    "Rima Khoury",
		CustomerEmail:   "rima@example.com",
		CustomerPhone:   "+961 70 000 000",
		District:        "beirut",
		CustomerAddress: "Hamra Street",
		BuildingName:    "Cedar Tower",
		Status:          models.OrderStatusConfirmed,
		OrderType:       models.OrderTypeDelivery,
		CreatedAt:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), ProductName: "Olive Oil", Quantity: 3, Price: decimal.RequireFromString("4.50")},
			{ID: uuid.New(), OrderID: orderID, ProductID: uuid.New(), ProductName: "Zaatar", Quantity: 5, Price: decimal.RequireFromString("2.00")},
		},
	}
}
