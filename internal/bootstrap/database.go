package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/majidkhoram/Telegram-Subscription-Bot/internal/models"
)

// Migrate ensures the members table exists and carries all optional columns.
// AutoMigrate only adds what is missing, so running it against an older
// database extends the schema in place and running it twice is a no-op.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Member{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
