// Package db declares the storage ports the repositories are built on.
package db

// DB hands repositories the driver-specific connection. The GORM adapter
// returns a *gorm.DB.
type DB interface {
	Conn() any
}

// Migrator is implemented by adapters that can create or update the schema
// for the given persistence models.
type Migrator interface {
	Migrate(models ...any) error
}
