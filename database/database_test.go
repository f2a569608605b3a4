package database

import (
	"testing"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	// every pooled connection to :memory: would be a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db, "sqlite3", nil); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestMigrateCreatesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, model := range []interface{}{
		&models.User{}, &models.CustomerProfile{}, &models.Product{},
		&models.StockMovement{}, &models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Errorf("expected table for %T", model)
		}
	}
	if !db.Migrator().HasIndex(&models.Cart{}, "idx_carts_active_user") {
		t.Error("expected partial unique index on active user carts")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Migrate(db, "sqlite3", nil); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestMigrateUnknownDialect(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	if err := Migrate(db, "not-a-dialect", nil); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestOneActiveCartPerUser(t *testing.T) {
	db := setupTestDB(t)
	userID := uuid.New()

	first := models.Cart{UserID: &userID, IsActive: true}
	if err := db.Create(&first).Error; err != nil {
		t.Fatal(err)
	}
	second := models.Cart{UserID: &userID, IsActive: true}
	if err := db.Create(&second).Error; err == nil {
		t.Fatal("expected unique violation for second active cart")
	}

	// a deactivated cart no longer counts
	if err := db.Model(&first).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}
	third := models.Cart{UserID: &userID, IsActive: true}
	if err := db.Create(&third).Error; err != nil {
		t.Fatalf("expected new active cart after deactivation: %v", err)
	}
}

func TestOneActiveCartPerGuestSession(t *testing.T) {
	db := setupTestDB(t)
	key := "guest-session-1"

	if err := db.Create(&models.Cart{SessionKey: &key, IsActive: true}).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.Cart{SessionKey: &key, IsActive: true}).Error; err == nil {
		t.Fatal("expected unique violation for second active guest cart")
	}
}

func TestCachedQuantityCannotGoNegative(t *testing.T) {
	db := setupTestDB(t)

	product := models.Product{Name: "Olive Oil", SubcategoryID: uuid.New()}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}
	err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("cached_quantity", -1).Error
	if err == nil {
		t.Fatal("expected check constraint to reject negative stock")
	}
}

func TestCreateDefaultAdminNew(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "boss@test.com", "s3cret-pass", nil); err != nil {
		t.Fatal(err)
	}

	var user models.User
	if err := db.Where("email = ?", "boss@test.com").First(&user).Error; err != nil {
		t.Fatal("admin user not created")
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role 'admin', got '%s'", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret-pass")); err != nil {
		t.Error("stored password does not match")
	}
}

func TestCreateDefaultAdminAlreadyExists(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "boss@test.com", "first", nil); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultAdmin(db, "boss@test.com", "second", nil); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "boss@test.com").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 admin, got %d", count)
	}
}

func TestCreateDefaultAdminRequiresPassword(t *testing.T) {
	db := setupTestDB(t)
	if err := CreateDefaultAdmin(db, "boss@test.com", "", nil); err == nil {
		t.Fatal("expected error without password")
	}
}
