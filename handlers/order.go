package handlers

import (
	"net/http"
	"strconv"
	"time"

	"amhaz-backend/models"
	"amhaz-backend/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// dayRange reads the from/to query days. The returned upper bound is the
// start of the day after "to", so the named day is included.
func dayRange(c *gin.Context) (from, to *time.Time, ok bool) {
	if raw := c.Query("from"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return nil, nil, false
		}
		from = &day
	}
	if raw := c.Query("to"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
			return nil, nil, false
		}
		end := day.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, true
}

func todayRange() (from, to *time.Time) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1)
	return &start, &end
}

type OrderHandler struct {
	Orders  *services.OrderQueryService
	Returns *services.ReturnService
}

func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	orders, err := h.Orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.GetForUser(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrders is the staff order review list: confirmed orders placed today
// unless a date range or order number is given.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var ok bool
	filter := services.OrderFilter{
		Status:      models.OrderStatus(c.Query("status")),
		OrderNumber: c.Query("order_number"),
	}

	if filter.Status != "" && !models.IsValidOrderStatus(filter.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if filter.From, filter.To, ok = dayRange(c); !ok {
		return
	}
	if filter.From == nil && filter.To == nil && filter.OrderNumber == "" {
		filter.From, filter.To = todayRange()
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	orders, total, err := h.Orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   filter.Page,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ReturnOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.Returns.ReturnOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
