package handlers

import (
	"errors"
	"net/http"

	"amhaz-backend/middleware"
	"amhaz-backend/services"
	"amhaz-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	Carts *services.CartService
}

func (h *CartHandler) GetCart(c *gin.Context) {
	summary, err := h.Carts.Get(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	var req struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		Quantity  int       `json:"quantity" binding:"omitempty,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	count, err := h.Carts.AddLine(c.Request.Context(), identityFrom(c), req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrOutOfStock) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Out of stock"})
			return
		}
		status, body := errorBody(err)
		body["success"] = false
		if status >= http.StatusInternalServerError {
			c.Error(err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cart_count": count})
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=increase decrease"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	delta := 1
	if req.Action == "decrease" {
		delta = -1
	}

	result, err := h.Carts.SetLineQuantity(c.Request.Context(), identityFrom(c), itemID, delta)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Removed {
		c.JSON(http.StatusOK, gin.H{
			"removed":    true,
			"cart_count": result.CartCount,
			"cart_total": result.CartTotal,
		})
		return
	}

	var blocked any = false
	if result.Blocked {
		blocked = "max"
	}
	c.JSON(http.StatusOK, gin.H{
		"blocked":    blocked,
		"quantity":   result.Quantity,
		"max_stock":  result.MaxStock,
		"cart_count": result.CartCount,
		"cart_total": result.CartTotal,
	})
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.Carts.RemoveLine(c.Request.Context(), identityFrom(c), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.Carts.Clear(c.Request.Context(), identityFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// MergeCart folds the caller's guest cart into their account cart. Runs
// behind AuthMiddleware and GuestSession.
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	cart, err := h.Carts.Merge(c.Request.Context(), middleware.CurrentSessionKey(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Carts.Summary(cart))
}
