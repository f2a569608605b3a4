package services

import (
	"context"
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 500
)

// LedgerService appends to and reads the stock movement log. It never touches
// Product.CachedQuantity; StockService keeps the two in step.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Record appends one movement inside the caller's transaction.
func (l *LedgerService) Record(tx *gorm.DB, productID uuid.UUID, change int, reason string) (*models.StockMovement, error) {
	movement := &models.StockMovement{
		ProductID: productID,
		Change:    change,
		Reason:    reason,
	}
	if err := tx.Omit(clause.Associations).Create(movement).Error; err != nil {
		return nil, storageErr("record stock movement", err)
	}
	return movement, nil
}

func (l *LedgerService) Sum(ctx context.Context, productID uuid.UUID) (int, error) {
	return l.sum(l.db.WithContext(ctx), productID)
}

func (l *LedgerService) sum(db *gorm.DB, productID uuid.UUID) (int, error) {
	var total int64
	err := db.Model(&models.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(change), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, storageErr("sum stock movements", err)
	}
	return int(total), nil
}

type MovementFilter struct {
	ProductID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
}

// List returns movements newest first.
func (l *LedgerService) List(ctx context.Context, f MovementFilter) ([]models.StockMovement, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}

	query := l.db.WithContext(ctx).Preload("Product", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	})
	if f.ProductID != nil {
		query = query.Where("product_id = ?", *f.ProductID)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}

	var movements []models.StockMovement
	if err := query.Order("created_at DESC").Limit(limit).Find(&movements).Error; err != nil {
		return nil, storageErr("list stock movements", err)
	}
	return movements, nil
}
