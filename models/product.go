package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is owned by the catalog. The storefront core only reads Name and
// Price and mutates CachedQuantity, always together with a StockMovement.
type Product struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name           string          `gorm:"not null;index" json:"name"`
	Description    string          `gorm:"type:text" json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CachedQuantity int             `gorm:"not null;default:0;check:chk_products_cached_quantity,cached_quantity >= 0" json:"cached_quantity"`
	SubcategoryID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"subcategory_id"`
	Subcategory    *Subcategory    `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"`
	PhotoURL       string          `json:"photo_url"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Product) InStock() bool {
	return p.CachedQuantity > 0
}
