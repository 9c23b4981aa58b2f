package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is the shared foundation for the gorm-backed repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository over the provided connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds the connection to ctx when one is supplied.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
