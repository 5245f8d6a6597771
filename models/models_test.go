package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartreceipts/pkg/nfce"
)

func TestReceiptDomainRoundTrip(t *testing.T) {
	in := nfce.Receipt{
		ID:        7,
		StoreName: "FESTVAL",
		Cnpj:      "76.189.406/0001-99",
		DateTime:  "12/03/2024 18:45:10",
		Items: []nfce.ReceiptItem{
			{ItemNumber: "001", Description: "BANANA PRATA", Quantity: 1.234, Unit: nfce.UnitKilogram, UnitPrice: 5.99, TotalPrice: 7.39},
			{Description: "DESCONTO", Quantity: 1, Unit: nfce.UnitPiece, UnitPrice: -1.5, TotalPrice: -1.5},
		},
		TotalAmount:   5.89,
		PaymentMethod: nfce.PaymentPix,
		AccessKey:     "41240376189406000199650010000123451000123456",
	}

	row, err := ReceiptFromDomain(in, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(3), row.UserID)
	assert.Contains(t, row.ItemsJSON, `"itemNumber":"001"`)

	out, err := row.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReceiptWithoutItems(t *testing.T) {
	row, err := ReceiptFromDomain(nfce.Receipt{StoreName: "X"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "[]", row.ItemsJSON)

	out, err := Receipt{}.ToDomain()
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
}

func TestReceiptBadItems(t *testing.T) {
	_, err := Receipt{ItemsJSON: "{"}.ToDomain()
	assert.Error(t, err)
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	assert.True(t, RefreshToken{ExpiresAt: now.Add(time.Hour)}.Usable(now))
	assert.False(t, RefreshToken{ExpiresAt: now.Add(-time.Second)}.Usable(now))
	assert.False(t, RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}.Usable(now))
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, User{Role: Role{Name: RoleAdministrator}}.IsAdmin())
	assert.False(t, User{Role: Role{Name: RoleUser}}.IsAdmin())
	assert.Len(t, DefaultRoles(), 2)
}
