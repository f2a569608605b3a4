package services

import (
	"strings"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity owns a cart. A registered user takes precedence over the guest
// session token when both are known.
type Identity struct {
	UserID     *uuid.UUID
	SessionKey string
}

func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

func GuestIdentity(sessionKey string) Identity {
	return Identity{SessionKey: sessionKey}
}

func (i Identity) IsGuest() bool {
	return i.UserID == nil || *i.UserID == uuid.Nil
}

func (i Identity) Validate() error {
	if i.IsGuest() && strings.TrimSpace(i.SessionKey) == "" {
		return ErrNoIdentity
	}
	return nil
}

func (i Identity) String() string {
	if !i.IsGuest() {
		return "user:" + i.UserID.String()
	}
	return "guest:" + i.SessionKey
}

func (i Identity) scope(db *gorm.DB) *gorm.DB {
	if !i.IsGuest() {
		return db.Where("user_id = ?", *i.UserID)
	}
	return db.Where("session_key = ? AND user_id IS NULL", i.SessionKey)
}

func (i Identity) newCart() *models.Cart {
	cart := &models.Cart{IsActive: true}
	if !i.IsGuest() {
		id := *i.UserID
		cart.UserID = &id
	} else {
		key := i.SessionKey
		cart.SessionKey = &key
	}
	return cart
}
