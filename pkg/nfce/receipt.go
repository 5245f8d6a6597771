// Package nfce extracts structured receipts from the recognized text of
// Brazilian NFC-e consumer receipts.
package nfce

import (
	"strings"
	"time"
)

// Unit is the measuring unit printed next to an item quantity.
type Unit string

const (
	UnitPiece      Unit = "UN"
	UnitKilogram   Unit = "KG"
	UnitPackage    Unit = "PC"
	UnitLiter      Unit = "LT"
	UnitMilliliter Unit = "ML"
	UnitGram       Unit = "G"
)

// ParseUnit maps a printed unit to a Unit. Unknown units map to UnitPiece.
func ParseUnit(s string) Unit {
	switch u := Unit(strings.ToUpper(strings.TrimSpace(s))); u {
	case UnitPiece, UnitKilogram, UnitPackage, UnitLiter, UnitMilliliter, UnitGram:
		return u
	}
	return UnitPiece
}

// Payment methods reported in Receipt.PaymentMethod.
const (
	PaymentCredit  = "Credit Card"
	PaymentDebit   = "Debit Card"
	PaymentPix     = "PIX"
	PaymentCash    = "Cash"
	PaymentUnknown = "Unknown"
)

// ReceiptItem is one product line. Discounts are items with IsDiscount set
// and negative prices, so summing TotalPrice nets them out.
type ReceiptItem struct {
	ItemNumber  string  `json:"itemNumber"`
	Barcode     string  `json:"barcode"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        Unit    `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
	IsDiscount  bool    `json:"isDiscount"`
}

// Receipt is the structured form of one scanned receipt. Fields that were
// not found keep their zero value.
type Receipt struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	StoreName string `json:"storeName"`
	Cnpj      string `json:"cnpj"`
	Address   string `json:"address"`
	DateTime  string `json:"dateTime"`

	Items []ReceiptItem `json:"items"`

	Subtotal     float64 `json:"subtotal"`
	Discount     float64 `json:"discount"`
	TotalAmount  float64 `json:"totalAmount"`
	TotalTaxes   float64 `json:"totalTaxes"`
	FederalTaxes float64 `json:"federalTaxes"`
	StateTaxes   float64 `json:"stateTaxes"`

	PaymentMethod string `json:"paymentMethod"`
	CardNumber    string `json:"cardNumber"`

	AccessKey  string `json:"accessKey"`
	NfceNumber string `json:"nfceNumber"`

	RawText string `json:"rawText"`
}

// ItemsTotal sums TotalPrice over all items, discounts included.
func (r Receipt) ItemsTotal() float64 {
	var sum float64
	for _, it := range r.Items {
		sum += it.TotalPrice
	}
	return round2(sum)
}
