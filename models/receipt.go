package models

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"smartreceipts/pkg/nfce"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Receipt is a parsed NFC-e receipt owned by a user. Items are kept as an
// opaque JSON array in ItemsJSON.
type Receipt struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	UserID        uint    `gorm:"index;not null"`
	StoreName     string  `gorm:"size:255"`
	Cnpj          string  `gorm:"size:32;index"`
	Address       string  `gorm:"size:512"`
	DateTime      string  `gorm:"size:32"`
	ItemsJSON     string  `gorm:"column:items_json;type:text;not null"`
	Subtotal      float64 `gorm:"not null;default:0"`
	Discount      float64 `gorm:"not null;default:0"`
	TotalAmount   float64 `gorm:"not null;default:0"`
	TotalTaxes    float64 `gorm:"not null;default:0"`
	FederalTaxes  float64 `gorm:"not null;default:0"`
	StateTaxes    float64 `gorm:"not null;default:0"`
	PaymentMethod string  `gorm:"size:32"`
	CardNumber    string  `gorm:"size:32"`
	AccessKey     string  `gorm:"size:64;index"`
	NfceNumber    string  `gorm:"size:32"`
	RawText       string  `gorm:"type:text"`
}

// ReceiptFromDomain converts a parsed receipt into a row for userID.
func ReceiptFromDomain(r nfce.Receipt, userID uint) (Receipt, error) {
	items := r.Items
	if items == nil {
		items = []nfce.ReceiptItem{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		UserID:        userID,
		StoreName:     r.StoreName,
		Cnpj:          r.Cnpj,
		Address:       r.Address,
		DateTime:      r.DateTime,
		ItemsJSON:     string(blob),
		Subtotal:      r.Subtotal,
		Discount:      r.Discount,
		TotalAmount:   r.TotalAmount,
		TotalTaxes:    r.TotalTaxes,
		FederalTaxes:  r.FederalTaxes,
		StateTaxes:    r.StateTaxes,
		PaymentMethod: r.PaymentMethod,
		CardNumber:    r.CardNumber,
		AccessKey:     r.AccessKey,
		NfceNumber:    r.NfceNumber,
		RawText:       r.RawText,
	}, nil
}

// ToDomain rehydrates the row, including its item list.
func (m Receipt) ToDomain() (nfce.Receipt, error) {
	items := []nfce.ReceiptItem{}
	if m.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err != nil {
			return nfce.Receipt{}, err
		}
	}
	return nfce.Receipt{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		StoreName:     m.StoreName,
		Cnpj:          m.Cnpj,
		Address:       m.Address,
		DateTime:      m.DateTime,
		Items:         items,
		Subtotal:      m.Subtotal,
		Discount:      m.Discount,
		TotalAmount:   m.TotalAmount,
		TotalTaxes:    m.TotalTaxes,
		FederalTaxes:  m.FederalTaxes,
		StateTaxes:    m.StateTaxes,
		PaymentMethod: m.PaymentMethod,
		CardNumber:    m.CardNumber,
		AccessKey:     m.AccessKey,
		NfceNumber:    m.NfceNumber,
		RawText:       m.RawText,
	}, nil
}
