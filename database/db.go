// database/db.go - Database Connection (PostgreSQL, embedded SQLite fallback)
package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection. A remote PostgreSQL backend is
// used when DATABASE_URL or DB_HOST is configured; otherwise the service
// falls back to an embedded SQLite file so a fresh checkout runs without
// any backend.
func InitDB() {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var err error
	if dsn := postgresDSN(); dsn != "" {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL database: %v", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get database instance: %v", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		log.Println("✅ PostgreSQL database connected successfully")
	} else {
		path := getEnvOrDefault("SQLITE_PATH", "./unimap.db")
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
		if err != nil {
			log.Fatalf("Failed to open SQLite database at %s: %v", path, err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get database instance: %v", err)
		}
		// SQLite handles one writer at a time.
		sqlDB.SetMaxOpenConns(1)

		log.Printf("✅ SQLite fallback database opened at %s", path)
	}

	RunMigrations()
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "unimap")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetDB overrides the connection. Used by tests.
func SetDB(conn *gorm.DB) {
	db = conn
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	if db == nil {
		log.Fatal("Database not initialized. Call InitDB() first.")
	}
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %v", err)
	}

	log.Println("Database connection closed")
	return nil
}
