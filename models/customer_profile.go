package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerProfile holds the optional delivery details a registered customer
// saved. Guests have none; orders always carry their own snapshot.
type CustomerProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Phone        string    `json:"phone"`
	District     string    `json:"district"`
	Address      string    `gorm:"type:text" json:"address"`
	BuildingName string    `json:"building_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *CustomerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
