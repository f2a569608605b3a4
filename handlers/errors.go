package handlers

import (
	"errors"
	"net/http"

	"amhaz-backend/services"

	"github.com/gin-gonic/gin"
)

// errorStatus maps a service error to its HTTP status and a client-safe
// message. Storage failures never leak driver text.
func errorStatus(err error) (int, string) {
	var shortage *services.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		return http.StatusConflict, "Not enough stock for " + shortage.ProductName
	case errors.Is(err, services.ErrOutOfStock):
		return http.StatusBadRequest, "Out of stock"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest, "Your cart is empty"
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidCheckout),
		errors.Is(err, services.ErrNoIdentity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict, "Order cannot make that transition"
	default:
		return http.StatusInternalServerError, "Something went wrong, please try again"
	}
}

func errorBody(err error) (int, gin.H) {
	status, message := errorStatus(err)
	body := gin.H{"error": message}

	var shortage *services.InsufficientStockError
	if errors.As(err, &shortage) {
		body["product_id"] = shortage.ProductID
		body["product_name"] = shortage.ProductName
		body["available"] = shortage.Available
		body["requested"] = shortage.Requested
	}
	return status, body
}

func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, body)
}
