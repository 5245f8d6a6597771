package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smartreceipts/models"
	"smartreceipts/pkg/nfce"
)

// Gorm stores receipts in the receipts table. A zero user sees every row
// and saves new rows without an owner check.
type Gorm struct {
	db     *gorm.DB
	userID uint
}

// NewGorm wraps db. Use ForUser to scope it.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// ForUser returns a copy scoped to userID.
func (g *Gorm) ForUser(userID uint) *Gorm {
	return &Gorm{db: g.db, userID: userID}
}

func (g *Gorm) scoped(ctx context.Context) *gorm.DB {
	q := g.db.WithContext(ctx).Model(&models.Receipt{})
	if g.userID != 0 {
		q = q.Where("user_id = ?", g.userID)
	}
	return q
}

func (g *Gorm) Save(ctx context.Context, r *nfce.Receipt) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	owner := g.userID
	if r.ID != 0 {
		var existing models.Receipt
		err := g.scoped(ctx).Select("id", "user_id").First(&existing, r.ID).Error
		switch {
		case err == nil:
			owner = existing.UserID
		case errors.Is(err, gorm.ErrRecordNotFound):
			if g.userID != 0 {
				return ErrNotFound
			}
		default:
			return fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
	}
	row, err := models.ReceiptFromDomain(*r, owner)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := g.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	r.ID = row.ID
	r.CreatedAt = row.CreatedAt
	return nil
}

func (g *Gorm) Get(ctx context.Context, id uint) (nfce.Receipt, error) {
	var row models.Receipt
	if err := g.scoped(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nfce.Receipt{}, ErrNotFound
		}
		return nfce.Receipt{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	r, err := row.ToDomain()
	if err != nil {
		return nfce.Receipt{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return r, nil
}

func (g *Gorm) List(ctx context.Context) ([]nfce.Receipt, error) {
	var rows []models.Receipt
	if err := g.scoped(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	out := make([]nfce.Receipt, 0, len(rows))
	for _, row := range rows {
		r, err := row.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: receipt %d: %v", ErrLoadFailed, row.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (g *Gorm) Delete(ctx context.Context, id uint) error {
	q := g.db.WithContext(ctx).Where("id = ?", id)
	if g.userID != 0 {
		q = q.Where("user_id = ?", g.userID)
	}
	res := q.Delete(&models.Receipt{})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op; the caller owns the connection pool.
func (g *Gorm) Close() error { return nil }

// MonthTotal is one row of Summary.
type MonthTotal struct {
	Month string  `json:"month"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// Summary groups receipts by the month they were saved, newest first.
func (g *Gorm) Summary(ctx context.Context) ([]MonthTotal, error) {
	var out []MonthTotal
	err := g.scoped(ctx).
		Select("to_char(created_at, 'YYYY-MM') AS month, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("month").
		Order("month DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return out, nil
}
