package database

import (
	"fmt"
	"log"
	"os"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/billing"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/events"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/invites"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/profiles"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	// TranslateError is required: the invite generator retries on
	// gorm.ErrDuplicatedKey when the unique index rejects a code.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}

// Migrate applies the schema for every domain model. Split out of InitDB so
// tests can run it against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&profiles.Profile{},
		&plans.Plan{},
		&invites.InviteCode{},
		&subscriptions.Subscription{},
		&billing.Refund{},
		&events.WebhookEvent{},
	)
}
