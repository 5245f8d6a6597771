package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/nfce"
)

func TestWhen(t *testing.T) {
	created := time.Date(2024, 5, 2, 0, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 3, 12, 18, 45, 10, 0, time.Local), When(nfce.Receipt{DateTime: "12/03/2024 18:45:10"}))
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.Local), When(nfce.Receipt{DateTime: "12/03/2024"}))
	assert.Equal(t, created, When(nfce.Receipt{DateTime: "garbled", CreatedAt: created}))
}

func TestBuild(t *testing.T) {
	receipts := []nfce.Receipt{
		{ID: 1, DateTime: "20/03/2024 10:00:00", TotalAmount: 30, Discount: 2, TotalTaxes: 5, FederalTaxes: 3, StateTaxes: 2, PaymentMethod: nfce.PaymentPix},
		{ID: 2, DateTime: "01/03/2024 09:00:00", TotalAmount: 10.5, PaymentMethod: nfce.PaymentCredit},
		{ID: 3, DateTime: "01/04/2024 00:00:00", TotalAmount: 99},
		{ID: 4, CreatedAt: time.Date(2024, 3, 31, 23, 0, 0, 0, time.Local), TotalAmount: 1},
	}

	rep, err := Build(receipts, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Count)
	assert.InDelta(t, 41.5, rep.Total, 1e-9)
	assert.InDelta(t, 2, rep.Discounts, 1e-9)
	assert.InDelta(t, 5, rep.TotalTaxes, 1e-9)
	assert.InDelta(t, 30, rep.ByPayment[nfce.PaymentPix], 1e-9)
	assert.InDelta(t, 1, rep.ByPayment[nfce.PaymentUnknown], 1e-9)
	require.Len(t, rep.Receipts, 3)
	assert.Equal(t, []uint{2, 1, 4}, []uint{rep.Receipts[0].ID, rep.Receipts[1].ID, rep.Receipts[2].ID})
}

func TestBuildBadMonth(t *testing.T) {
	_, err := Build(nil, "03/2024")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	rep, err := Build([]nfce.Receipt{{ID: 7, DateTime: "05/03/2024", StoreName: "FESTVAL", TotalAmount: 20.37, PaymentMethod: nfce.PaymentPix}}, "2024-03")
	require.NoError(t, err)

	var buf bytes.Buffer
	Write(&buf, "user=ana", rep, true)
	out := buf.String()
	assert.Contains(t, out, "receipts=1 total_amount=20.37")
	assert.Contains(t, out, "PIX=20.37")
	assert.Contains(t, out, "|FESTVAL|20.37|PIX")
}
