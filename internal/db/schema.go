package db

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// EnsureSchema creates a Postgres schema if it does not exist yet. Other
// dialects have no schemas and are left untouched.
func EnsureSchema(d *gorm.DB, schema string) error {
	if d.Dialector.Name() != "postgres" {
		return nil
	}
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(schema)).Error
}
