package services

import (
	"context"
	"fmt"
	"sort"

	"amhaz-backend/models"
	"amhaz-backend/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReturnService struct {
	db       *gorm.DB
	stock    *StockService
	notifier notify.Notifier
	log      *zap.Logger
}

func NewReturnService(db *gorm.DB, stock *StockService, notifier notify.Notifier, log *zap.Logger) *ReturnService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReturnService{db: db, stock: stock, notifier: notifier, log: log}
}

// ReturnOrder puts every item of a confirmed order back on the shelf and
// marks the order returned. Only confirmed orders qualify; a returned order
// cannot be returned again.
func (s *ReturnService) ReturnOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := inTx(s.db.WithContext(ctx), "return order", func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&order).Error
		if err != nil {
			return notFoundOr("load order", fmt.Sprintf("order %s", orderID), err)
		}
		if !models.IsValidTransition(order.Status, models.OrderStatusReturned) {
			return fmt.Errorf("order %s is %s: %w", order.OrderNumber, order.Status, ErrInvalidState)
		}

		if err := tx.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&order.Items).Error; err != nil {
			return storageErr("load order items", err)
		}

		restock := make([]models.OrderItem, len(order.Items))
		copy(restock, order.Items)
		sort.Slice(restock, func(i, j int) bool {
			return restock[i].ProductID.String() < restock[j].ProductID.String()
		})

		reason := fmt.Sprintf("Order #%s returned", order.OrderNumber)
		for _, item := range restock {
			if _, err := s.stock.Adjust(tx, item.ProductID, item.Quantity, reason); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusConfirmed).
			Update("status", models.OrderStatusReturned)
		if res.Error != nil {
			return storageErr("mark order returned", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s changed concurrently: %w", order.OrderNumber, ErrInvalidState)
		}
		order.Status = models.OrderStatusReturned
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order returned",
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Items)))

	if err := s.notifier.Notify(ctx, notify.NewOrderEvent(notify.EventOrderReturned, &order)); err != nil {
		s.log.Warn("return notification not queued",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
	return &order, nil
}
