package query

import (
	"time"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page is limit/offset pagination. Zero values fall back to defaults.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (p Page) Apply(db *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return db.Limit(n.Limit).Offset(n.Offset)
}

// Between restricts column to [from, to]; nil bounds are open.
func Between(db *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		db = db.Where(column+" >= ?", *from)
	}
	if to != nil {
		db = db.Where(column+" <= ?", *to)
	}
	return db
}
