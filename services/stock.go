package services

import (
	"context"
	"fmt"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ReasonStockAdded   = "Stock added"
	ReasonStockRemoved = "Stock removed"
)

// StockService owns Product.CachedQuantity. Every change goes through the
// ledger in the same transaction so the cached value always equals the sum
// of the product's movements.
type StockService struct {
	db     *gorm.DB
	ledger *LedgerService
	log    *zap.Logger
}

func NewStockService(db *gorm.DB, ledger *LedgerService, log *zap.Logger) *StockService {
	return &StockService{db: db, ledger: ledger, log: log}
}

// StockResult reports a staff stock operation. Applied differs from
// Requested only when a removal was clamped at zero.
type StockResult struct {
	Product   *models.Product `json:"product"`
	Requested int             `json:"requested"`
	Applied   int             `json:"applied"`
}

type StockReport struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Cached      int       `json:"cached_quantity"`
	LedgerSum   int       `json:"ledger_sum"`
	Consistent  bool      `json:"consistent"`
}

// lockProduct reads the product row FOR UPDATE. Soft-deleted products are
// still returned so returns can restock them.
func (s *StockService) lockProduct(tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, notFoundOr("lock product", fmt.Sprintf("product %s", productID), err)
	}
	return &product, nil
}

// Adjust changes stock by delta and rejects any decrement the product cannot
// cover. Used by checkout and returns.
func (s *StockService) Adjust(tx *gorm.DB, productID uuid.UUID, delta int, reason string) (*models.Product, error) {
	product, err := s.lockProduct(tx, productID)
	if err != nil {
		return nil, err
	}
	if delta < 0 && product.CachedQuantity+delta < 0 {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -delta,
			Available:   product.CachedQuantity,
		}
	}
	if err := s.apply(tx, product, delta, reason); err != nil {
		return nil, err
	}
	return product, nil
}

// apply writes the cache and the ledger entry. The conditional update keeps
// the quantity non-negative even if the row was not locked by the caller.
func (s *StockService) apply(tx *gorm.DB, product *models.Product, delta int, reason string) error {
	if delta == 0 {
		return nil
	}

	res := tx.Unscoped().Model(&models.Product{}).
		Where("id = ? AND cached_quantity + ? >= 0", product.ID, delta).
		Update("cached_quantity", gorm.Expr("cached_quantity + ?", delta))
	if res.Error != nil {
		return storageErr("update cached quantity", res.Error)
	}
	if res.RowsAffected == 0 {
		// The snapshot is stale; report what is on the shelf now.
		var current []int
		if err := tx.Unscoped().Model(&models.Product{}).Where("id = ?", product.ID).
			Pluck("cached_quantity", &current).Error; err != nil {
			return storageErr("reload cached quantity", err)
		}
		available := 0
		if len(current) > 0 {
			available = current[0]
			product.CachedQuantity = available
		}
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -delta,
			Available:   available,
		}
	}
	product.CachedQuantity += delta

	_, err := s.ledger.Record(tx, product.ID, delta, reason)
	return err
}

func (s *StockService) AddStock(ctx context.Context, productID uuid.UUID, quantity int, reason string) (*StockResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("add %d units: %w", quantity, ErrInvalidQuantity)
	}
	if reason == "" {
		reason = ReasonStockAdded
	}

	var result *StockResult
	err := inTx(s.db.WithContext(ctx), "add stock", func(tx *gorm.DB) error {
		product, err := s.Adjust(tx, productID, quantity, reason)
		if err != nil {
			return err
		}
		result = &StockResult{Product: product, Requested: quantity, Applied: quantity}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock added",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
		zap.Int("on_hand", result.Product.CachedQuantity))
	return result, nil
}

// RemoveStock takes up to quantity units off the shelf, stopping at zero.
// The ledger records the units actually removed.
func (s *StockService) RemoveStock(ctx context.Context, productID uuid.UUID, quantity int, reason string) (*StockResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("remove %d units: %w", quantity, ErrInvalidQuantity)
	}
	if reason == "" {
		reason = ReasonStockRemoved
	}

	var result *StockResult
	err := inTx(s.db.WithContext(ctx), "remove stock", func(tx *gorm.DB) error {
		product, err := s.lockProduct(tx, productID)
		if err != nil {
			return err
		}
		applied := min(quantity, product.CachedQuantity)
		if err := s.apply(tx, product, -applied, reason); err != nil {
			return err
		}
		result = &StockResult{Product: product, Requested: quantity, Applied: applied}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied < quantity {
		s.log.Warn("stock removal clamped at zero",
			zap.String("product_id", productID.String()),
			zap.Int("requested", quantity),
			zap.Int("applied", result.Applied))
	}
	return result, nil
}

// Reconcile compares the cached quantity with the ledger sum.
func (s *StockService) Reconcile(ctx context.Context, productID uuid.UUID) (*StockReport, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Unscoped().Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, notFoundOr("load product", fmt.Sprintf("product %s", productID), err)
	}
	sum, err := s.ledger.sum(db, productID)
	if err != nil {
		return nil, err
	}

	report := &StockReport{
		ProductID:   product.ID,
		ProductName: product.Name,
		Cached:      product.CachedQuantity,
		LedgerSum:   sum,
		Consistent:  product.CachedQuantity == sum,
	}
	if !report.Consistent {
		s.log.Error("stock cache diverged from ledger",
			zap.String("product_id", productID.String()),
			zap.Int("cached", report.Cached),
			zap.Int("ledger_sum", report.LedgerSum))
	}
	return report, nil
}

// LowStock lists active products at or below threshold, emptiest first.
func (s *StockService) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND cached_quantity <= ?", true, threshold).
		Order("cached_quantity ASC").Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, storageErr("list low stock", err)
	}
	return products, nil
}
