package handlers

import (
	"net/http"

	"amhaz-backend/models"
	"amhaz-backend/services"
	"amhaz-backend/utils"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

// PlaceOrder turns the caller's cart into a confirmed order. Any stock or
// cart problem sends the shopper back to the cart.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	order, err := h.Checkout.Checkout(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		status, body := errorBody(err)
		if status < http.StatusInternalServerError {
			body["redirect"] = "/cart"
		} else {
			c.Error(err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *CheckoutHandler) Prefill(c *gin.Context) {
	fields, err := h.Checkout.PrefillFor(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *CheckoutHandler) Districts(c *gin.Context) {
	c.JSON(http.StatusOK, models.Districts)
}
