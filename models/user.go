package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	Email     string           `gorm:"uniqueIndex;not null" json:"email"`
	Password  string           `gorm:"not null" json:"-"`
	Name      string           `json:"name"`
	Role      string           `gorm:"default:customer" json:"role"` // customer, staff, admin
	Phone     string           `json:"phone"`
	IsBlocked bool             `gorm:"default:false" json:"is_blocked"`
	Profile   *CustomerProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStaff reports whether the user may manage stock and orders.
func (u *User) IsStaff() bool {
	return IsStaffRole(u.Role)
}

func IsStaffRole(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}
