package reparse

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/store"
)

const raw = `SUPERMERCADO CONDOR
CNPJ 76189406000199
TOTAL R$ 15,50
PIX`

func seeded(t *testing.T) *store.Bolt {
	t.Helper()
	b, err := store.NewBolt(filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx := context.Background()
	current := nfce.Parse(raw)
	stale := nfce.Receipt{StoreName: "", TotalAmount: 0, RawText: raw}
	require.NoError(t, b.Save(ctx, &current))
	require.NoError(t, b.Save(ctx, &stale))
	require.NoError(t, b.Save(ctx, &nfce.Receipt{StoreName: "MANUAL"}))
	return b
}

func TestRunDry(t *testing.T) {
	b := seeded(t)
	var out bytes.Buffer

	res, err := Run(context.Background(), b, nil, true, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, uint(2), res.Changes[0].ID)
	assert.Equal(t, "CONDOR", res.Changes[0].NewStore)
	assert.InDelta(t, 15.50, res.Changes[0].NewTotal, 1e-9)
	assert.Contains(t, out.String(), "DRY: would update receipt id=2")

	r, err := b.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "", r.StoreName)
}

func TestRunWrites(t *testing.T) {
	b := seeded(t)
	var out bytes.Buffer

	_, err := Run(context.Background(), b, nil, false, &out)
	require.NoError(t, err)

	r, err := b.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "CONDOR", r.StoreName)
	assert.Equal(t, nfce.PaymentPix, r.PaymentMethod)

	res, err := Run(context.Background(), b, nil, false, &out)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}
