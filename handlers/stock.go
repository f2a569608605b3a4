package handlers

import (
	"net/http"
	"strconv"

	"amhaz-backend/services"
	"amhaz-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct {
	Stock             *services.StockService
	Ledger            *services.LedgerService
	LowStockThreshold int
}

type stockRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	Reason   string `json:"reason" binding:"omitempty,max=100"`
}

func (h *StockHandler) AddStock(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	result, err := h.Stock.AddStock(c.Request.Context(), productID, req.Quantity, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RemoveStock never fails on a shortfall: it removes what is there and
// reports the applied quantity.
func (h *StockHandler) RemoveStock(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	result, err := h.Stock.RemoveStock(c.Request.Context(), productID, req.Quantity, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":   result.Product,
		"requested": result.Requested,
		"applied":   result.Applied,
		"clamped":   result.Applied < result.Requested,
	})
}

func (h *StockHandler) GetStock(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := h.Stock.Reconcile(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *StockHandler) ListMovements(c *gin.Context) {
	var (
		filter services.MovementFilter
		ok     bool
	)

	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return
		}
		filter.ProductID = &id
	}
	if filter.From, filter.To, ok = dayRange(c); !ok {
		return
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))

	movements, err := h.Ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (h *StockHandler) LowStock(c *gin.Context) {
	threshold := h.LowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold"})
			return
		}
		threshold = n
	}

	products, err := h.Stock.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "products": products})
}
