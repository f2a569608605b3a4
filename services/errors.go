package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidState      = errors.New("invalid order state")
	ErrStorage           = errors.New("storage failure")
	ErrNotFound          = errors.New("not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrForbidden         = errors.New("forbidden")
	ErrNoIdentity        = errors.New("no cart identity")
	ErrInvalidCheckout   = errors.New("invalid checkout details")
)

// InsufficientStockError names the product that cannot cover a request.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StorageError wraps a database failure. It matches ErrStorage and unwraps
// to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// notFoundOr maps gorm's missing-row error to ErrNotFound and anything else
// to a StorageError.
func notFoundOr(op, what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return storageErr(op, err)
}

var domainErrors = []error{
	ErrOutOfStock, ErrInsufficientStock, ErrEmptyCart, ErrInvalidState,
	ErrStorage, ErrNotFound, ErrInvalidQuantity, ErrForbidden,
	ErrNoIdentity, ErrInvalidCheckout,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// inTx runs fn in one transaction. Errors produced inside fn pass through
// untouched; a failing commit surfaces as a StorageError.
func inTx(db *gorm.DB, op string, fn func(tx *gorm.DB) error) error {
	err := db.Transaction(fn)
	if err == nil || isDomainError(err) {
		return err
	}
	return storageErr(op, err)
}
