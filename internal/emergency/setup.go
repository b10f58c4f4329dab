package emergency

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the emergencies table.
func Migrate(d *gorm.DB) error {
	if err := d.AutoMigrate(&Emergency{}); err != nil {
		return fmt.Errorf("auto-migrating emergency tables: %w", err)
	}
	return nil
}
