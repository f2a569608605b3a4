package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCartService(db *gorm.DB, log *zap.Logger) *CartService {
	return &CartService{db: db, log: log}
}

type CartSummary struct {
	Cart       *models.Cart    `json:"cart"`
	TotalItems int             `json:"cart_count"`
	TotalPrice decimal.Decimal `json:"cart_total"`
}

// QuantityResult is the outcome of a +1/-1 step on a cart line.
type QuantityResult struct {
	Blocked   bool
	Removed   bool
	Quantity  int
	MaxStock  int
	CartCount int
	CartTotal decimal.Decimal
}

// resolveTx finds the active cart of the identity and locks it, creating one
// when none exists. The create runs in a savepoint: if a concurrent request
// won the race the unique index rejects ours and the winner is re-read.
func (s *CartService) resolveTx(tx *gorm.DB, id Identity) (*models.Cart, error) {
	cart, err := findActiveCart(tx, id)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("find active cart", err)
	}

	fresh := id.newCart()
	createErr := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Omit(clause.Associations).Create(fresh).Error
	})
	if createErr == nil {
		return fresh, nil
	}

	cart, err = findActiveCart(tx, id)
	if err != nil {
		return nil, storageErr("create cart", createErr)
	}
	return cart, nil
}

func findActiveCart(tx *gorm.DB, id Identity) (*models.Cart, error) {
	var cart models.Cart
	err := id.scope(tx.Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("is_active = ?", true).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func loadItems(db *gorm.DB, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := db.Preload("Product", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, storageErr("load cart items", err)
	}
	return items, nil
}

func cartTotals(db *gorm.DB, cartID uuid.UUID) (int, decimal.Decimal, error) {
	items, err := loadItems(db, cartID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	cart := models.Cart{Items: items}
	return cart.TotalItems(), cart.TotalPrice(), nil
}

// Resolve returns the identity's active cart with its lines and products.
func (s *CartService) Resolve(ctx context.Context, id Identity) (*models.Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var cart *models.Cart
	err := inTx(s.db.WithContext(ctx), "resolve cart", func(tx *gorm.DB) error {
		var err error
		if cart, err = s.resolveTx(tx, id); err != nil {
			return err
		}
		cart.Items, err = loadItems(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// Summary computes counts and totals from live product prices.
func (s *CartService) Summary(cart *models.Cart) CartSummary {
	return CartSummary{
		Cart:       cart,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
	}
}

func (s *CartService) Get(ctx context.Context, id Identity) (*CartSummary, error) {
	cart, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := s.Summary(cart)
	return &summary, nil
}

// AddLine puts quantity units of a product in the cart. The line never grows
// past the product's stock; extra units are dropped without error. Returns
// the cart's item count.
func (s *CartService) AddLine(ctx context.Context, id Identity, productID uuid.UUID, quantity int) (int, error) {
	if err := id.Validate(); err != nil {
		return 0, err
	}
	if quantity < 1 {
		return 0, fmt.Errorf("add %d units: %w", quantity, ErrInvalidQuantity)
	}

	var count int
	err := inTx(s.db.WithContext(ctx), "add cart line", func(tx *gorm.DB) error {
		cart, err := s.resolveTx(tx, id)
		if err != nil {
			return err
		}

		var product models.Product
		if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
			return notFoundOr("load product", fmt.Sprintf("product %s", productID), err)
		}
		if !product.InStock() {
			return fmt.Errorf("%s: %w", product.Name, ErrOutOfStock)
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  min(quantity, product.CachedQuantity),
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return storageErr("create cart line", err)
			}
		case err != nil:
			return storageErr("find cart line", err)
		case item.Quantity < product.CachedQuantity:
			next := min(item.Quantity+quantity, product.CachedQuantity)
			if err := setItemQuantity(tx, item.ID, next); err != nil {
				return err
			}
		}

		if err := touchCart(tx, cart.ID); err != nil {
			return err
		}
		count, _, err = cartTotals(tx, cart.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetLineQuantity steps a line up or down by one. Stepping up at the stock
// ceiling is reported as blocked; stepping down from one removes the line.
func (s *CartService) SetLineQuantity(ctx context.Context, id Identity, itemID uuid.UUID, delta int) (*QuantityResult, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if delta != 1 && delta != -1 {
		return nil, fmt.Errorf("step of %d: %w", delta, ErrInvalidQuantity)
	}

	result := &QuantityResult{}
	err := inTx(s.db.WithContext(ctx), "set cart line quantity", func(tx *gorm.DB) error {
		cart, err := s.resolveTx(tx, id)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Where("id = ? AND cart_id = ?", itemID, cart.ID).
			First(&item).Error
		if err != nil {
			return notFoundOr("find cart line", fmt.Sprintf("cart item %s", itemID), err)
		}
		result.MaxStock = item.Product.CachedQuantity

		switch {
		case delta > 0 && item.Quantity >= item.Product.CachedQuantity:
			result.Blocked = true
			result.Quantity = item.Quantity
		case delta > 0:
			result.Quantity = item.Quantity + 1
			if err := setItemQuantity(tx, item.ID, result.Quantity); err != nil {
				return err
			}
		case item.Quantity <= 1:
			if err := tx.Delete(&models.CartItem{}, "id = ?", item.ID).Error; err != nil {
				return storageErr("delete cart line", err)
			}
			result.Removed = true
		default:
			result.Quantity = item.Quantity - 1
			if err := setItemQuantity(tx, item.ID, result.Quantity); err != nil {
				return err
			}
		}

		if err := touchCart(tx, cart.ID); err != nil {
			return err
		}
		result.CartCount, result.CartTotal, err = cartTotals(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CartService) RemoveLine(ctx context.Context, id Identity, itemID uuid.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}

	return inTx(s.db.WithContext(ctx), "remove cart line", func(tx *gorm.DB) error {
		cart, err := s.resolveTx(tx, id)
		if err != nil {
			return err
		}
		res := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&models.CartItem{})
		if res.Error != nil {
			return storageErr("delete cart line", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
		}
		return touchCart(tx, cart.ID)
	})
}

// Clear empties the active cart. The cart itself stays active.
func (s *CartService) Clear(ctx context.Context, id Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}

	return inTx(s.db.WithContext(ctx), "clear cart", func(tx *gorm.DB) error {
		cart, err := s.resolveTx(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return storageErr("clear cart", err)
		}
		return touchCart(tx, cart.ID)
	})
}

// Merge moves the lines of a guest cart into the user's active cart, capped
// at current stock, then deactivates the guest cart. Without a guest cart it
// just resolves the user's cart.
func (s *CartService) Merge(ctx context.Context, sessionKey string, userID uuid.UUID) (*models.Cart, error) {
	guestID := GuestIdentity(sessionKey)
	userIdentity := UserIdentity(userID)
	if err := guestID.Validate(); err != nil {
		return nil, err
	}

	var cart *models.Cart
	moved := 0
	err := inTx(s.db.WithContext(ctx), "merge cart", func(tx *gorm.DB) error {
		guest, err := findActiveCart(tx, guestID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return storageErr("find guest cart", err)
		}

		if cart, err = s.resolveTx(tx, userIdentity); err != nil {
			return err
		}

		if guest != nil {
			guestItems, err := loadItems(tx, guest.ID)
			if err != nil {
				return err
			}
			for _, line := range guestItems {
				merged, err := mergeLine(tx, cart.ID, line)
				if err != nil {
					return err
				}
				if merged {
					moved++
				}
			}
			if err := tx.Where("cart_id = ?", guest.ID).Delete(&models.CartItem{}).Error; err != nil {
				return storageErr("empty guest cart", err)
			}
			if err := tx.Model(&models.Cart{}).Where("id = ?", guest.ID).Update("is_active", false).Error; err != nil {
				return storageErr("deactivate guest cart", err)
			}
		}

		cart.Items, err = loadItems(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved > 0 {
		s.log.Info("guest cart merged",
			zap.String("user_id", userID.String()),
			zap.Int("lines", moved))
	}
	return cart, nil
}

// mergeLine reports whether the guest line changed the user's cart.
func mergeLine(tx *gorm.DB, cartID uuid.UUID, line models.CartItem) (bool, error) {
	stock := line.Product.CachedQuantity
	if stock <= 0 || !line.Product.IsActive || line.Product.DeletedAt.Valid {
		return false, nil
	}

	var existing models.CartItem
	err := tx.Where("cart_id = ? AND product_id = ?", cartID, line.ProductID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := models.CartItem{
			CartID:    cartID,
			ProductID: line.ProductID,
			Quantity:  min(line.Quantity, stock),
		}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return false, storageErr("create merged line", err)
		}
		return true, nil
	case err != nil:
		return false, storageErr("find cart line", err)
	default:
		next := min(existing.Quantity+line.Quantity, stock)
		if next <= existing.Quantity {
			return false, nil
		}
		return true, setItemQuantity(tx, existing.ID, next)
	}
}

func setItemQuantity(tx *gorm.DB, itemID uuid.UUID, quantity int) error {
	err := tx.Model(&models.CartItem{}).Where("id = ?", itemID).Update("quantity", quantity).Error
	if err != nil {
		return storageErr("update cart line", err)
	}
	return nil
}

func touchCart(tx *gorm.DB, cartID uuid.UUID) error {
	err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now()).Error
	if err != nil {
		return storageErr("touch cart", err)
	}
	return nil
}
