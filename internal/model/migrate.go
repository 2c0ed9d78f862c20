package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for the SQL state backend.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&StateEntry{})
}
