package database

import (
	"fmt"
	"log"

	"github.com/k-tong-dev/v0-elearning-sub007/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the PostgreSQL connection and stores it in the package-level DB.
func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB,
		cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Println("Failed to connect to database:", err)
		return err
	}

	log.Println("Connected to PostgreSQL")
	return nil
}
