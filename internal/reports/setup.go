package reports

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the report tables.
func Migrate(d *gorm.DB) error {
	if err := d.AutoMigrate(&Report{}, &Evidence{}, &StatusUpdate{}); err != nil {
		return fmt.Errorf("auto-migrating report tables: %w", err)
	}
	return nil
}
