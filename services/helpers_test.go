package services

import (
	"context"
	"sync"
	"testing"

	"amhaz-backend/database"
	"amhaz-backend/models"
	"amhaz-backend/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// eventRecorder captures the events handed to the notifier.
type eventRecorder struct {
	mu     sync.Mutex
	events []notify.OrderEvent
	err    error
}

func (r *eventRecorder) Notify(_ context.Context, event notify.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) Events() []notify.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.OrderEvent(nil), r.events...)
}

type fixture struct {
	db          *gorm.DB
	svc         *Services
	events      *eventRecorder
	subcategory models.Subcategory
}

// openTestDB opens a private in-memory database. A single connection keeps
// every goroutine on the same database and serializes transactions.
func openTestDB() (*gorm.DB, error) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db, "sqlite3", nil); err != nil {
		return nil, err
	}
	return db, nil
}

func newFixtureE() (*fixture, error) {
	db, err := openTestDB()
	if err != nil {
		return nil, err
	}

	category := models.Category{Name: "Pantry"}
	if err := db.Create(&category).Error; err != nil {
		return nil, err
	}
	sub := models.Subcategory{Name: "Oils", CategoryID: category.ID}
	if err := db.Create(&sub).Error; err != nil {
		return nil, err
	}

	events := &eventRecorder{}
	return &fixture{
		db:          db,
		svc:         New(db, events, zap.NewNop()),
		events:      events,
		subcategory: sub,
	}, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, err := newFixtureE()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := f.db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return f
}

// productE creates a product and books its opening stock through the ledger.
func (f *fixture) productE(name, price string, stock int) (*models.Product, error) {
	p := &models.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		SubcategoryID: f.subcategory.ID,
		IsActive:      true,
	}
	if err := f.db.Create(p).Error; err != nil {
		return nil, err
	}
	if stock > 0 {
		if _, err := f.svc.Stock.AddStock(context.Background(), p.ID, stock, "Opening stock"); err != nil {
			return nil, err
		}
		p.CachedQuantity = stock
	}
	return p, nil
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.productE(name, price, stock)
	require.NoError(t, err)
	return p
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", Name: "Test Customer", Role: models.RoleCustomer}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.Unscoped().First(&p, "id = ?", productID).Error)
	return p.CachedQuantity
}

func (f *fixture) ledgerSum(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	sum, err := f.svc.Ledger.Sum(context.Background(), productID)
	require.NoError(t, err)
	return sum
}

func (f *fixture) movementCount(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.StockMovement{}).Where("product_id = ?", productID).Count(&n).Error)
	return n
}

// setStockDirect bypasses the ledger to simulate an out-of-band sale.
func (f *fixture) setStockDirect(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", productID).
		Update("cached_quantity", qty).Error)
}

func (f *fixture) assertConsistent(t *testing.T, productIDs ...uuid.UUID) {
	t.Helper()
	for _, id := range productIDs {
		cached := f.stockOf(t, id)
		require.GreaterOrEqual(t, cached, 0)
		require.Equal(t, f.ledgerSum(t, id), cached, "cache and ledger diverged for %s", id)
	}
}

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		CustomerName:    "Rima Khoury",
		CustomerEmail:   "rima@example.com",
		CustomerPhone:   "+961 70 000 000",
		District:        "beirut",
		CustomerAddress: "Hamra Street",
		BuildingName:    "Cedar Tower",
		OrderType:       models.OrderTypeDelivery,
	}
}
