// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"ravencube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WriteOp is one step of a coordinated write. Every op of a Commit runs on
// the same transaction handle.
type WriteOp func(tx *gorm.DB) error

// UnitOfWork applies a list of WriteOps atomically: either every op commits
// or none does.
type UnitOfWork interface {
	Commit(ctx context.Context, ops ...WriteOp) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Commit(ctx context.Context, ops ...WriteOp) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// forUpdate takes a row lock where the dialect supports it.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundMessage(resource + " not found")
	}
	return err
}

func selectUserSummary(db *gorm.DB) *gorm.DB {
	return db.Select(models.UserSummaryColumns)
}
