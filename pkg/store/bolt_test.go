package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/nfce"
)

func openBolt(t *testing.T) *Bolt {
	t.Helper()
	b, err := NewBolt(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBoltSaveAssignsIDs(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()

	first := &nfce.Receipt{StoreName: "FESTVAL", TotalAmount: 20.37}
	second := &nfce.Receipt{StoreName: "CONDOR"}
	require.NoError(t, b.Save(ctx, first))
	require.NoError(t, b.Save(ctx, second))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestBoltRoundTripItems(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()

	in := &nfce.Receipt{
		StoreName: "MUFFATO",
		Items: []nfce.ReceiptItem{
			{ItemNumber: "001", Barcode: "7891234567890", Description: "BANANA PRATA", Quantity: 1.5, Unit: nfce.UnitKilogram, UnitPrice: 5.99, TotalPrice: 8.99},
			{Description: "DESCONTO ITEM", Quantity: 1, Unit: nfce.UnitPiece, UnitPrice: -2, TotalPrice: -2, IsDiscount: true},
		},
		PaymentMethod: nfce.PaymentPix,
	}
	require.NoError(t, b.Save(ctx, in))

	out, err := b.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Items, out.Items)
	assert.Equal(t, in.StoreName, out.StoreName)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
}

func TestBoltSaveOverwrites(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()

	r := &nfce.Receipt{StoreName: "OLD"}
	require.NoError(t, b.Save(ctx, r))
	r.StoreName = "NEW"
	require.NoError(t, b.Save(ctx, r))

	all, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "NEW", all[0].StoreName)
}

func TestBoltListNewestFirst(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, b.Save(ctx, &nfce.Receipt{StoreName: "A", CreatedAt: base}))
	require.NoError(t, b.Save(ctx, &nfce.Receipt{StoreName: "B", CreatedAt: base.Add(48 * time.Hour)}))
	require.NoError(t, b.Save(ctx, &nfce.Receipt{StoreName: "C", CreatedAt: base.Add(24 * time.Hour)}))

	all, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"B", "C", "A"}, []string{all[0].StoreName, all[1].StoreName, all[2].StoreName})
}

func TestBoltDelete(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()

	r := &nfce.Receipt{StoreName: "X"}
	require.NoError(t, b.Save(ctx, r))
	require.NoError(t, b.Delete(ctx, r.ID))

	_, err := b.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, r.ID), ErrNotFound)
}

func TestBoltExplicitIDAdvancesSequence(t *testing.T) {
	b := openBolt(t)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, &nfce.Receipt{ID: 10}))
	next := &nfce.Receipt{}
	require.NoError(t, b.Save(ctx, next))
	assert.Equal(t, uint(11), next.ID)
}
