// Package store persists parsed receipts.
package store

import (
	"context"

	"smartreceipts/pkg/nfce"
)

// Store saves and loads receipts. Save assigns ID and CreatedAt when they
// are zero and overwrites the stored receipt otherwise. List returns the
// newest receipts first.
type Store interface {
	Save(ctx context.Context, r *nfce.Receipt) error
	Get(ctx context.Context, id uint) (nfce.Receipt, error)
	List(ctx context.Context) ([]nfce.Receipt, error)
	Delete(ctx context.Context, id uint) error
	Close() error
}
