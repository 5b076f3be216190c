package database

import (
	"time"

	"commerce-api/config"
	"commerce-api/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres connection pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.Environment == "production" {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate runs schema migrations for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Wishlist{},
		&models.Review{},
		&models.Address{},
		&models.SearchHistory{},
	)
}

// SeedCategories inserts the default category set when the table is empty.
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []models.Category{
		{Name: "electronics", Description: "Electronic devices and gadgets"},
		{Name: "clothing", Description: "Apparel and fashion items"},
		{Name: "books", Description: "Books and publications"},
		{Name: "home", Description: "Home and furniture items"},
		{Name: "sports", Description: "Sports and fitness equipment"},
		{Name: "other", Description: "Other miscellaneous items"},
	}
	if err := db.Create(&categories).Error; err != nil {
		return err
	}
	zap.L().Info("Categories seeded", zap.Int("count", len(categories)))
	return nil
}
