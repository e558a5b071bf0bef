package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs use-case steps in one transaction. The transaction travels
// in the context; repositories pick it up through dbFrom. Nested calls become
// savepoints.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction commits when fn returns nil and rolls back otherwise.
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    designs, err := coverRepo.LockByBook(ctx, bookID)
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	    return coverRepo.Update(ctx, target)
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbFrom(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction carried by ctx, or fallback bound to ctx.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
