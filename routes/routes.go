package routes

import (
	"net/http"
	"time"

	"amhaz-backend/handlers"
	"amhaz-backend/middleware"
	"amhaz-backend/services"
	"amhaz-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type Options struct {
	LowStockThreshold int
	// CheckoutLimiter guards order placement. A default of 10 checkouts per
	// minute per client is used when nil.
	CheckoutLimiter *middleware.RateLimiter
}

func SetupRoutes(r *gin.Engine, db *gorm.DB, svc *services.Services, opts Options) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.UseJSONFieldNames(v)
	}
	if opts.CheckoutLimiter == nil {
		opts.CheckoutLimiter = middleware.NewRateLimiter(10, time.Minute)
	}

	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db}
	cartHandler := &handlers.CartHandler{Carts: svc.Carts}
	checkoutHandler := &handlers.CheckoutHandler{Checkout: svc.Checkout}
	orderHandler := &handlers.OrderHandler{Orders: svc.Orders, Returns: svc.Returns}
	stockHandler := &handlers.StockHandler{
		Stock:             svc.Stock,
		Ledger:            svc.Ledger,
		LowStockThreshold: opts.LowStockThreshold,
	}

	api := r.Group("/api")
	api.Use(middleware.GuestSession())
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Storefront routes, open to guests and signed-in users alike
	shop := api.Group("")
	shop.Use(middleware.OptionalAuth())
	{
		shop.GET("/cart", cartHandler.GetCart)
		shop.POST("/cart/items", cartHandler.AddToCart)
		shop.POST("/cart/items/:id/quantity", cartHandler.UpdateQuantity)
		shop.DELETE("/cart/items/:id", cartHandler.RemoveFromCart)
		shop.DELETE("/cart", cartHandler.ClearCart)

		shop.GET("/checkout/prefill", checkoutHandler.Prefill)
		shop.POST("/checkout", opts.CheckoutLimiter.Middleware(), checkoutHandler.PlaceOrder)
		shop.GET("/districts", checkoutHandler.Districts)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)

		protected.POST("/cart/merge", cartHandler.MergeCart)

		protected.GET("/orders", orderHandler.GetMyOrders)
		protected.GET("/orders/:id", orderHandler.GetMyOrder)
	}

	// Staff routes
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.StaffMiddleware())
	{
		admin.GET("/orders", orderHandler.GetOrders)
		admin.GET("/orders/:id", orderHandler.GetOrder)
		admin.POST("/orders/:id/return", orderHandler.ReturnOrder)

		admin.GET("/products/low-stock", stockHandler.LowStock)
		admin.GET("/products/:id/stock", stockHandler.GetStock)
		admin.POST("/products/:id/stock/add", stockHandler.AddStock)
		admin.POST("/products/:id/stock/remove", stockHandler.RemoveStock)
		admin.GET("/stock-movements", stockHandler.ListMovements)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
