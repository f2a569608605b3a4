package handlers

import (
	"errors"
	"net/http"
	"strings"

	"amhaz-backend/models"
	"amhaz-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB *gorm.DB
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":      user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
		"phone":   user.Phone,
		"profile": user.Profile,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if user.IsBlocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account has been blocked. Please contact support."})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(&user),
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.Preload("Profile").Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userResponse(&user))
}

// UpdateProfile edits the user's name and phone and the saved delivery
// details used to pre-fill checkout. Omitted fields are left alone.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req struct {
		Name         *string `json:"name" binding:"omitempty,max=120"`
		Phone        *string `json:"phone" binding:"omitempty,max=30"`
		District     *string `json:"district"`
		Address      *string `json:"address"`
		BuildingName *string `json:"building_name" binding:"omitempty,max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.District != nil && *req.District != "" && !models.IsValidDistrict(*req.District) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown district"})
		return
	}

	var user models.User
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Profile").Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		if req.Name != nil {
			user.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			user.Phone = strings.TrimSpace(*req.Phone)
		}
		if err := tx.Model(&user).Updates(map[string]any{"name": user.Name, "phone": user.Phone}).Error; err != nil {
			return err
		}

		if req.District == nil && req.Address == nil && req.BuildingName == nil {
			return nil
		}
		profile := user.Profile
		if profile == nil {
			profile = &models.CustomerProfile{UserID: user.ID}
		}
		if req.Phone != nil {
			profile.Phone = user.Phone
		}
		if req.District != nil {
			profile.District = *req.District
		}
		if req.Address != nil {
			profile.Address = strings.TrimSpace(*req.Address)
		}
		if req.BuildingName != nil {
			profile.BuildingName = strings.TrimSpace(*req.BuildingName)
		}
		if err := tx.Save(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, userResponse(&user))
}
