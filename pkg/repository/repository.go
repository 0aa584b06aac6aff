// Package repository provides a small generic gorm-backed store used by
// features whose persistence needs are plain filter/create/update CRUD.
package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Delete(ctx context.Context, query *T) error
	Count(ctx context.Context, query *T) (int64, error)
}

// QueryOption customizes a query built from a filter struct.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type orderBy string

func (o orderBy) Apply(db *gorm.DB) *gorm.DB { return db.Order(string(o)) }

// OrderBy sorts results by the given clause.
func OrderBy(clause string) QueryOption { return orderBy(clause) }

type limit int

func (l limit) Apply(db *gorm.DB) *gorm.DB { return db.Limit(int(l)) }

// Limit caps the number of returned rows.
func Limit(n int) QueryOption { return limit(n) }
