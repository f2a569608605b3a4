package services

import (
	"context"
	"fmt"
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderFilter struct {
	// Status defaults to confirmed.
	Status      models.OrderStatus
	From        *time.Time
	To          *time.Time // exclusive
	OrderNumber string
	Page        int
	Limit       int
}

type OrderQueryService struct {
	db *gorm.DB
}

func NewOrderQueryService(db *gorm.DB) *OrderQueryService {
	return &OrderQueryService{db: db}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

// List returns orders for the staff review screen, newest first,
// along with the total number of matches.
func (s *OrderQueryService) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	if f.Status == "" {
		f.Status = models.OrderStatusConfirmed
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("status = ?", f.Status)
		if f.From != nil {
			db = db.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			db = db.Where("created_at < ?", *f.To)
		}
		if f.OrderNumber != "" {
			db = db.Where("order_number = ?", f.OrderNumber)
		}
		return db
	}
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Order{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count orders", err)
	}

	var orders []models.Order
	err := withItems(db).Scopes(filter).
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, storageErr("list orders", err)
	}
	return orders, total, nil
}

// Get loads any order with its items.
func (s *OrderQueryService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withItems(s.db.WithContext(ctx)).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, notFoundOr("load order", fmt.Sprintf("order %s", orderID), err)
	}
	return &order, nil
}

// GetForUser loads an order only if it belongs to userID.
func (s *OrderQueryService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withItems(s.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, notFoundOr("load order", fmt.Sprintf("order %s", orderID), err)
	}
	return &order, nil
}

func (s *OrderQueryService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := withItems(s.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, storageErr("list user orders", err)
	}
	return orders, nil
}
