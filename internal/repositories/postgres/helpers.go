package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SharedHelpers holds query plumbing used by every repository.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// conn returns tx when the caller is inside a transaction, the root handle otherwise.
func (h *SharedHelpers) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return h.db.WithContext(ctx)
}

// forUpdate adds a row lock. Dialects without row locks drop the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// forShare adds a shared row lock that only conflicts with forUpdate.
func forShare(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "SHARE"})
}

// orderedOptions preloads options in display order.
func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func applySort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool, fallback string) *gorm.DB {
	if !allowed[sortBy] {
		sortBy = fallback
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))
}
