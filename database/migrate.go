// database/migrate.go
package database

import (
	"log"

	"unimap/models"
)

// RunMigrations keeps the schema in step with the models. The achievement
// catalog and trophy definitions are static and never migrated.
func RunMigrations() {
	err := db.AutoMigrate(
		&models.User{},
		&models.Progress{},
		&models.CoopInvite{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("✅ Database migrations completed")
}
