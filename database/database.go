package database

import (
	"embed"
	"errors"
	"fmt"

	"amhaz-backend/models"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const DefaultDSN = "host=localhost user=postgres password=postgres dbname=amhaz_store port=5432 sslmode=disable"

//go:embed migrations/*.sql
var migrations embed.FS

func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the tables from the models, then applies the SQL
// migrations that AutoMigrate cannot express (partial unique indexes).
// dialect is a goose dialect name such as "postgres" or "sqlite3".
func Migrate(db *gorm.DB, dialect string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.CustomerProfile{},
		&models.Category{},
		&models.Subcategory{},
		&models.Product{},
		&models.StockMovement{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log.Sugar().Named("goose")})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect %q: %w", dialect, err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.s.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }

// CreateDefaultAdmin seeds an admin account unless one with the email
// already exists.
func CreateDefaultAdmin(db *gorm.DB, email, password string, log *zap.Logger) error {
	if email == "" {
		email = "admin@amhaz.local"
	}
	if password == "" {
		return errors.New("admin password is required")
	}

	var existingUser models.User
	result := db.Where("email = ?", email).First(&existingUser)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		Name:     "Admin User",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if log != nil {
		log.Info("default admin created", zap.String("email", email))
	}
	return nil
}
