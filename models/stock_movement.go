package models

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMovementReasonLength bounds StockMovement.Reason, in characters.
const MaxMovementReasonLength = 100

var ErrImmutableMovement = errors.New("stock movements are append-only")

// StockMovement is one entry of the append-only stock ledger. Change is
// positive for restocks and returns, negative for sales and removals. For
// every product, Product.CachedQuantity equals the sum of its movements.
type StockMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Change    int       `gorm:"not null" json:"change"`
	Reason    string    `gorm:"size:100;not null" json:"reason"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	// The column limit counts characters, so cut on rune boundaries.
	if utf8.RuneCountInString(m.Reason) > MaxMovementReasonLength {
		m.Reason = string([]rune(m.Reason)[:MaxMovementReasonLength])
	}
	return nil
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableMovement
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableMovement
}
