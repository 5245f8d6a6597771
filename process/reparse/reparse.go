// Package reparse re-runs the receipt parser over stored raw text, so parser
// fixes reach receipts scanned earlier without another OCR pass.
package reparse

import (
	"context"
	"fmt"
	"io"

	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/store"
)

// Change describes one receipt whose parsed fields differ.
type Change struct {
	ID       uint
	OldStore string
	NewStore string
	OldTotal float64
	NewTotal float64
	OldItems int
	NewItems int
}

type Result struct {
	Scanned int
	Changes []Change
}

// Run re-parses every receipt in st. Receipts without raw text are skipped.
// When dry is false, changed receipts are saved keeping their ID and
// CreatedAt. Each change is reported to out.
func Run(ctx context.Context, st store.Store, p *nfce.Parser, dry bool, out io.Writer) (Result, error) {
	if p == nil {
		p = nfce.DefaultParser()
	}
	receipts, err := st.List(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, old := range receipts {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if old.RawText == "" {
			continue
		}
		res.Scanned++
		fresh := p.Parse(old.RawText)
		fresh.ID, fresh.CreatedAt = old.ID, old.CreatedAt
		if !changed(old, fresh) {
			continue
		}
		ch := Change{
			ID:       old.ID,
			OldStore: old.StoreName, NewStore: fresh.StoreName,
			OldTotal: old.TotalAmount, NewTotal: fresh.TotalAmount,
			OldItems: len(old.Items), NewItems: len(fresh.Items),
		}
		res.Changes = append(res.Changes, ch)

		prefix := "updated"
		if dry {
			prefix = "DRY: would update"
		} else if err := st.Save(ctx, &fresh); err != nil {
			return res, fmt.Errorf("receipt %d: %w", old.ID, err)
		}
		fmt.Fprintf(out, "%s receipt id=%d store=%q->%q total=%.2f->%.2f items=%d->%d\n",
			prefix, ch.ID, ch.OldStore, ch.NewStore, ch.OldTotal, ch.NewTotal, ch.OldItems, ch.NewItems)
	}
	return res, nil
}

func changed(a, b nfce.Receipt) bool {
	if a.StoreName != b.StoreName || a.Cnpj != b.Cnpj || a.Address != b.Address || a.DateTime != b.DateTime ||
		a.Subtotal != b.Subtotal || a.Discount != b.Discount || a.TotalAmount != b.TotalAmount ||
		a.TotalTaxes != b.TotalTaxes || a.FederalTaxes != b.FederalTaxes || a.StateTaxes != b.StateTaxes ||
		a.PaymentMethod != b.PaymentMethod || a.CardNumber != b.CardNumber ||
		a.AccessKey != b.AccessKey || a.NfceNumber != b.NfceNumber {
		return true
	}
	if len(a.Items) != len(b.Items) {
		return true
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return true
		}
	}
	return false
}
