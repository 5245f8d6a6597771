package nfce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightedCodedItem(t *testing.T) {
	r := Parse("COD DESC\n001 7891234567890 BANANA PRATA KG 1.500 x 5.99 8.99")
	require.Len(t, r.Items, 1)
	it := r.Items[0]
	assert.Equal(t, UnitKilogram, it.Unit)
	assert.InDelta(t, 1.5, it.Quantity, 1e-9)
	assert.InDelta(t, 5.99, it.UnitPrice, 1e-9)
	assert.InDelta(t, 8.99, it.TotalPrice, 1e-9)
}

func TestCodedItemWithoutTrailingTotal(t *testing.T) {
	r := Parse("COD DESC\n007 7890000000024 PATINHO 0,512 KG x 39,90")
	require.Len(t, r.Items, 1)
	assert.InDelta(t, 20.43, r.Items[0].TotalPrice, 1e-9)
	assert.Equal(t, "PATINHO", r.Items[0].Description)
}

func TestItemNumbersIgnorePrintedSequence(t *testing.T) {
	r := Parse("COD DESC\n005 7891111111111 SABAO EM PO 12,90\n009 7892222222222 DETERGENTE 2,49")
	require.Len(t, r.Items, 2)
	assert.Equal(t, "001", r.Items[0].ItemNumber)
	assert.Equal(t, "002", r.Items[1].ItemNumber)
	assert.Equal(t, "SABAO EM PO", r.Items[0].Description)
	assert.Equal(t, UnitPiece, r.Items[0].Unit)
	assert.InDelta(t, 1.0, r.Items[0].Quantity, 1e-9)
}

func TestPlainItemWithWeight(t *testing.T) {
	r := Parse("TOMATE 0,750 KG x 8,90 6,68\nTOTAL 6,68")
	require.Len(t, r.Items, 1)
	it := r.Items[0]
	assert.Equal(t, "TOMATE", it.Description)
	assert.Equal(t, UnitKilogram, it.Unit)
	assert.InDelta(t, 0.75, it.Quantity, 1e-9)
	assert.InDelta(t, 8.90, it.UnitPrice, 1e-9)
	assert.InDelta(t, 6.68, it.TotalPrice, 1e-9)
}

func TestSplitItems(t *testing.T) {
	text := "COD DESC\n" +
		"003 7891000100103\n" +
		"LEITE INTEGRAL 1L 4,79\n" +
		"004 7891000053508 CAFE 500G\n" +
		"R$ 15,99\n" +
		"TOTAL 20,78"
	r := Parse(text)
	require.Len(t, r.Items, 2)

	assert.Equal(t, "7891000100103", r.Items[0].Barcode)
	assert.Equal(t, "LEITE INTEGRAL 1L", r.Items[0].Description)
	assert.InDelta(t, 4.79, r.Items[0].TotalPrice, 1e-9)

	assert.Equal(t, "002", r.Items[1].ItemNumber)
	assert.Equal(t, "CAFE 500G", r.Items[1].Description)
	assert.InDelta(t, 15.99, r.Items[1].TotalPrice, 1e-9)
}

func TestSplitItemRejectsBoilerplateNextLine(t *testing.T) {
	r := Parse("COD DESC\n003 7891000100103\nSUBTOTAL 4,79")
	assert.Empty(t, r.Items)
}

func TestDiscountLine(t *testing.T) {
	r := Parse("COD DESC\nDESCONTO ITEM -2,00")
	require.Len(t, r.Items, 1)
	d := r.Items[0]
	assert.True(t, d.IsDiscount)
	assert.InDelta(t, -2.0, d.TotalPrice, 1e-9)
	assert.InDelta(t, -2.0, d.UnitPrice, 1e-9)
	assert.Equal(t, "DESCONTO ITEM -2,00", d.Description)
}

func TestLineCanYieldItemAndDiscount(t *testing.T) {
	r := Parse("COD DESC\nLEITE DESC 10% ITEM 1,50")
	require.Len(t, r.Items, 2)
	assert.False(t, r.Items[0].IsDiscount)
	assert.InDelta(t, 1.50, r.Items[0].TotalPrice, 1e-9)
	assert.True(t, r.Items[1].IsDiscount)
	assert.InDelta(t, -1.50, r.Items[1].TotalPrice, 1e-9)
}

func TestItemWindowBoundaries(t *testing.T) {
	text := "MERCADO BOM PRECO 9,99\n" +
		"ITEM COD DESCRICAO QTD VL\n" +
		"ARROZ BRANCO 22,90\n" +
		"TOTAL R$ 22,90\n" +
		"FEIJAO PRETO 8,50"
	r := Parse(text)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "ARROZ BRANCO", r.Items[0].Description)
}

func TestNoHeaderStartsAtTop(t *testing.T) {
	r := Parse("BANANA 8,99")
	require.Len(t, r.Items, 1)
	assert.Equal(t, "BANANA", r.Items[0].Description)
}

func TestNonItemLinesSkipped(t *testing.T) {
	r := Parse("COD DESC\nOPERADOR 12 JOAO 1,00\nCPF DO CONSUMIDOR 0,00\n12/03/2024 10:00\nGELO EM CUBOS 5,00")
	require.Len(t, r.Items, 1)
	assert.Equal(t, "GELO EM CUBOS", r.Items[0].Description)
}

func TestIsNonItemLine(t *testing.T) {
	assert.True(t, IsNonItemLine("abc"))
	assert.True(t, IsNonItemLine("12/03/2024 10:00:00"))
	assert.True(t, IsNonItemLine("Consulta pela chave de acesso"))
	assert.True(t, IsNonItemLine("NFC-e nº 123"))
	assert.False(t, IsNonItemLine("CAMELO DE PELUCIA"))
	assert.False(t, IsNonItemLine("GELO EM CUBOS"))
	assert.True(t, IsNonItemLine("DESCONTOS R$ 2,00"))
	assert.True(t, IsNonItemLine("VALORES TOTAIS 9,90"))
	assert.True(t, IsNonItemLine("TRIBUTOS FEDERAIS 1,20"))
	assert.True(t, IsNonItemLine("CARTOES ACEITOS"))
}

func TestPluralKeywordsAfterSubtotal(t *testing.T) {
	text := "ITEM COD DESC QTD
" +
		"001 7891234567890 LEITE 5,00
" +
		"SUBTOTAL R$ 5,00
" +
		"DESCONTOS R$ 2,00
" +
		"TOTAL R$ 3,00"
	r := Parse(text)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "LEITE", r.Items[0].Description)
	assert.InDelta(t, 5.00, r.Items[0].TotalPrice, 1e-9)
	assert.InDelta(t, 2.00, r.Discount, 1e-9)
	assert.InDelta(t, 3.00, r.TotalAmount, 1e-9)
}

func TestCodedLineWithKeywordSkipped(t *testing.T) {
	text := "COD DESC
" +
		"001 7891234567890 TRIBUTOS FEDERAIS 1,23
" +
		"002 7890000000017 PAGO EM DINHEIRO 10,00
" +
		"003 7890000000024 CAFE 500G 15,99"
	r := Parse(text)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "CAFE 500G", r.Items[0].Description)
	assert.Equal(t, "001", r.Items[0].ItemNumber)
}

func TestDiscountItemsAreNotNumbered(t *testing.T) {
	r := Parse("COD DESC
ARROZ 25,90
DESCONTO ITEM -2,00
FEIJAO 8,50")
	require.Len(t, r.Items, 3)
	assert.Equal(t, "001", r.Items[0].ItemNumber)
	assert.True(t, r.Items[1].IsDiscount)
	assert.Empty(t, r.Items[1].ItemNumber)
	assert.Equal(t, "002", r.Items[2].ItemNumber)
}

func TestCustomItemMatcher(t *testing.T) {
	p := DefaultParser()
	p.ItemMatchers = append([]ItemMatcher{func(lines []string, i int) (ReceiptItem, int, bool) {
		if lines[i] != "BRINDE ESPECIAL" {
			return ReceiptItem{}, 0, false
		}
		return ReceiptItem{Description: "BRINDE", Quantity: 1, Unit: UnitPiece}, 1, true
	}}, p.ItemMatchers...)

	r := p.Parse("COD DESC\nBRINDE ESPECIAL\nPAO FRANCES 3,20")
	require.Len(t, r.Items, 2)
	assert.Equal(t, "BRINDE", r.Items[0].Description)
	assert.Equal(t, "PAO FRANCES", r.Items[1].Description)
}
