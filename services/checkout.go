package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"amhaz-backend/models"
	"amhaz-backend/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRequest carries the contact and delivery snapshot stored on the
// order. Guests have no profile, so every field comes from the request.
type CheckoutRequest struct {
	CustomerName    string           `json:"customer_name" binding:"required,max=120"`
	CustomerEmail   string           `json:"customer_email" binding:"required,email"`
	CustomerPhone   string           `json:"customer_phone" binding:"required,max=30"`
	District        string           `json:"district" binding:"omitempty,max=50"`
	CustomerAddress string           `json:"customer_address"`
	BuildingName    string           `json:"building_name" binding:"omitempty,max=100"`
	OrderType       models.OrderType `json:"order_type" binding:"omitempty,oneof=delivery take_from_store"`
}

// Validate trims the request and checks it independently of gin binding.
func (r *CheckoutRequest) Validate() error {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.District = strings.TrimSpace(r.District)
	r.CustomerAddress = strings.TrimSpace(r.CustomerAddress)
	r.BuildingName = strings.TrimSpace(r.BuildingName)
	if r.OrderType == "" {
		r.OrderType = models.OrderTypeDelivery
	}

	switch {
	case r.CustomerName == "":
		return fmt.Errorf("customer name is required: %w", ErrInvalidCheckout)
	case r.CustomerPhone == "":
		return fmt.Errorf("customer phone is required: %w", ErrInvalidCheckout)
	case !r.OrderType.Valid():
		return fmt.Errorf("unknown order type %q: %w", r.OrderType, ErrInvalidCheckout)
	case r.District != "" && !models.IsValidDistrict(r.District):
		return fmt.Errorf("unknown district %q: %w", r.District, ErrInvalidCheckout)
	}
	if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
		return fmt.Errorf("invalid email %q: %w", r.CustomerEmail, ErrInvalidCheckout)
	}
	return nil
}

// CheckoutFields pre-fills the checkout form.
type CheckoutFields struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	District        string `json:"district"`
	CustomerAddress string `json:"customer_address"`
	BuildingName    string `json:"building_name"`
}

type CheckoutService struct {
	db       *gorm.DB
	carts    *CartService
	stock    *StockService
	notifier notify.Notifier
	log      *zap.Logger
}

func NewCheckoutService(db *gorm.DB, carts *CartService, stock *StockService, notifier notify.Notifier, log *zap.Logger) *CheckoutService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &CheckoutService{db: db, carts: carts, stock: stock, notifier: notifier, log: log}
}

// Checkout turns the identity's active cart into a confirmed order. Every
// line is checked against locked stock before anything is written; on any
// failure the transaction rolls back and the cart is left as it was. The
// confirmation event is handed to the notifier only after commit.
func (s *CheckoutService) Checkout(ctx context.Context, id Identity, req CheckoutRequest) (*models.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := inTx(s.db.WithContext(ctx), "checkout", func(tx *gorm.DB) error {
		cart, err := s.carts.resolveTx(tx, id)
		if err != nil {
			return err
		}

		var lines []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("created_at ASC").Find(&lines).Error; err != nil {
			return storageErr("load cart items", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		products, err := s.lockLines(tx, lines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			p := products[line.ProductID]
			available := p.CachedQuantity
			if !p.IsActive || p.DeletedAt.Valid {
				available = 0
			}
			if line.Quantity > available {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   available,
				}
			}
		}

		order = &models.Order{
			UserID:          id.UserID,
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			District:        req.District,
			CustomerAddress: req.CustomerAddress,
			BuildingName:    req.BuildingName,
			Status:          models.OrderStatusNotConfirmed,
			OrderType:       req.OrderType,
			Total:           decimal.Zero,
		}
		if id.IsGuest() {
			order.UserID = nil
		}
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return storageErr("create order", err)
		}

		reason := fmt.Sprintf("Order #%s from %s", order.OrderNumber, req.CustomerName)
		for _, line := range lines {
			p := products[line.ProductID]
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				Price:       p.Price,
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return storageErr("create order item", err)
			}
			if err := s.stock.apply(tx, p, -line.Quantity, reason); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		order.Status = models.OrderStatusConfirmed
		order.Total = order.ItemsTotal()
		err = tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"status": order.Status,
			"total":  order.Total,
		}).Error
		if err != nil {
			return storageErr("confirm order", err)
		}

		return s.closeCart(tx, id, cart.ID)
	})
	if err != nil {
		var sErr *InsufficientStockError
		if errors.As(err, &sErr) {
			s.log.Info("checkout rejected",
				zap.String("identity", id.String()),
				zap.String("product", sErr.ProductName),
				zap.Int("requested", sErr.Requested),
				zap.Int("available", sErr.Available))
		}
		return nil, err
	}

	s.log.Info("order confirmed",
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)))

	if err := s.notifier.Notify(ctx, notify.NewOrderEvent(notify.EventOrderConfirmed, order)); err != nil {
		s.log.Warn("order confirmation not queued",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
	return order, nil
}

// lockLines locks every product in the cart in id order so two checkouts
// over overlapping products cannot deadlock.
func (s *CheckoutService) lockLines(tx *gorm.DB, lines []models.CartItem) (map[uuid.UUID]*models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	products := make(map[uuid.UUID]*models.Product, len(ids))
	for _, pid := range ids {
		p, err := s.stock.lockProduct(tx, pid)
		if err != nil {
			return nil, err
		}
		products[pid] = p
	}
	return products, nil
}

// closeCart empties and deactivates the checked-out cart and opens a fresh
// one for the same identity.
func (s *CheckoutService) closeCart(tx *gorm.DB, id Identity, cartID uuid.UUID) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return storageErr("empty cart", err)
	}
	if err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("is_active", false).Error; err != nil {
		return storageErr("deactivate cart", err)
	}
	if err := tx.Omit(clause.Associations).Create(id.newCart()).Error; err != nil {
		return storageErr("open fresh cart", err)
	}
	return nil
}

// Prefill derives checkout defaults from a user and their saved profile.
// Either may be nil.
func Prefill(user *models.User, profile *models.CustomerProfile) CheckoutFields {
	var fields CheckoutFields
	if user != nil {
		fields.CustomerName = user.Name
		fields.CustomerEmail = user.Email
		fields.CustomerPhone = user.Phone
	}
	if profile != nil {
		if profile.Phone != "" {
			fields.CustomerPhone = profile.Phone
		}
		fields.District = profile.District
		fields.CustomerAddress = profile.Address
		fields.BuildingName = profile.BuildingName
	}
	return fields
}

// PrefillFor loads the identity's user and profile and derives the checkout
// defaults. Guests get empty fields.
func (s *CheckoutService) PrefillFor(ctx context.Context, id Identity) (CheckoutFields, error) {
	if id.IsGuest() {
		return CheckoutFields{}, nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("id = ?", *id.UserID).First(&user).Error
	if err != nil {
		return CheckoutFields{}, notFoundOr("load user", fmt.Sprintf("user %s", id.UserID), err)
	}
	return Prefill(&user, user.Profile), nil
}
