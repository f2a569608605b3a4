// Package services holds the order lifecycle and stock consistency core:
// the stock ledger, cart, checkout, returns and order queries. Every
// operation that touches stock runs in a single database transaction.
package services

import (
	"amhaz-backend/notify"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Services struct {
	Ledger   *LedgerService
	Stock    *StockService
	Carts    *CartService
	Checkout *CheckoutService
	Returns  *ReturnService
	Orders   *OrderQueryService
}

func New(db *gorm.DB, notifier notify.Notifier, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	ledger := NewLedgerService(db)
	stock := NewStockService(db, ledger, log.Named("stock"))
	carts := NewCartService(db, log.Named("cart"))
	return &Services{
		Ledger:   ledger,
		Stock:    stock,
		Carts:    carts,
		Checkout: NewCheckoutService(db, carts, stock, notifier, log.Named("checkout")),
		Returns:  NewReturnService(db, stock, notifier, log.Named("returns")),
		Orders:   NewOrderQueryService(db),
	}
}
