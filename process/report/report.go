// Package report summarises a month of receipts.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"smartreceipts/pkg/nfce"
	"smartreceipts/pkg/store"
)

// Report is the month summary. Money fields are sums over the month.
type Report struct {
	Month        string
	Count        int
	Total        float64
	Discounts    float64
	TotalTaxes   float64
	FederalTaxes float64
	StateTaxes   float64
	ByPayment    map[string]float64
	Receipts     []nfce.Receipt
}

// When returns the printed emission time when it parses, else CreatedAt.
func When(r nfce.Receipt) time.Time {
	for _, layout := range []string{"02/01/2006 15:04:05", "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, r.DateTime, time.Local); err == nil {
			return t
		}
	}
	return r.CreatedAt
}

// Build aggregates the receipts falling in month (YYYY-MM).
func Build(receipts []nfce.Receipt, month string) (Report, error) {
	t, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return Report{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := t
	end := start.AddDate(0, 1, 0)

	rep := Report{Month: month, ByPayment: map[string]float64{}}
	for _, r := range receipts {
		w := When(r)
		if w.Before(start) || !w.Before(end) {
			continue
		}
		rep.Count++
		rep.Total += r.TotalAmount
		rep.Discounts += r.Discount
		rep.TotalTaxes += r.TotalTaxes
		rep.FederalTaxes += r.FederalTaxes
		rep.StateTaxes += r.StateTaxes
		method := r.PaymentMethod
		if method == "" {
			method = nfce.PaymentUnknown
		}
		rep.ByPayment[method] += r.TotalAmount
		rep.Receipts = append(rep.Receipts, r)
	}
	sort.SliceStable(rep.Receipts, func(i, j int) bool {
		return When(rep.Receipts[i]).Before(When(rep.Receipts[j]))
	})
	return rep, nil
}

// Load builds the report from everything st lists.
func Load(ctx context.Context, st store.Store, month string) (Report, error) {
	receipts, err := st.List(ctx)
	if err != nil {
		return Report{}, err
	}
	return Build(receipts, month)
}

// Write prints rep; list adds one line per receipt.
func Write(w io.Writer, who string, rep Report, list bool) {
	fmt.Fprintf(w, "Report for %s month=%s:\n", who, rep.Month)
	fmt.Fprintf(w, "  receipts=%d total_amount=%.2f discounts=%.2f\n", rep.Count, rep.Total, rep.Discounts)
	fmt.Fprintf(w, "  taxes=%.2f federal=%.2f state=%.2f\n", rep.TotalTaxes, rep.FederalTaxes, rep.StateTaxes)

	methods := make([]string, 0, len(rep.ByPayment))
	for m := range rep.ByPayment {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(w, "  %s=%.2f\n", m, rep.ByPayment[m])
	}

	if list {
		for _, r := range rep.Receipts {
			fmt.Fprintf(w, "%d|%s|%s|%.2f|%s\n", r.ID, When(r).Format(time.RFC3339), r.StoreName, r.TotalAmount, r.PaymentMethod)
		}
	}
}
