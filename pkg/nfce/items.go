package nfce

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ItemMatcher tries to read an item starting at lines[i]. On success it
// returns the item (ItemNumber is assigned by the parser) and how many lines
// it used.
type ItemMatcher func(lines []string, i int) (item ReceiptItem, consumed int, ok bool)

const minDescription = 3

var (
	codedHeadRE      = regexp.MustCompile(`^(\d{3})\s+(\d{7,14})\s+(.+)$`)
	splitHeadRE      = regexp.MustCompile(`^\d{3}\s+(\d{7,14})\b\s*(.*)$`)
	weightRE         = regexp.MustCompile(`(?i)(?:([0-9]+[.,][0-9]+)\s*KG|KG\s*([0-9]+[.,][0-9]+))\s*[xX*]\s*([0-9]+[.,][0-9]+)`)
	qtyUnitPriceRE   = regexp.MustCompile(`(?i)\s([0-9]+(?:[.,][0-9]+)?)\s*(UN|KG|PC|LT|ML|G)\s*[xX*]\s*([0-9]+[.,][0-9]+)`)
	trailingPriceRE  = regexp.MustCompile(`(?:R\$\s*)?` + money + `\s*$`)
	trailingAmountRE = regexp.MustCompile(`\s*(?:R\$\s*)?` + amount + `\s*$`)
	trailingQtyRE    = regexp.MustCompile(`(?i)\s+[0-9]+(?:[.,][0-9]+)?\s+(?:UN|KG|PC|LT|ML|G)$`)
	plainItemRE      = regexp.MustCompile(`^(.+?)\s+(?:R\$\s*)?` + money + `$`)
	negativeAmountRE = regexp.MustCompile(`-\s*` + money)
	anyAmountRE      = regexp.MustCompile(money)
)

var nonItemKeywords = []string{
	"CNPJ", "CPF", "CONSUMIDOR", "DOCUMENTO", "FISCAL", "FISCAIS", "ELETRONICA", "CONSULTA",
	"CHAVE", "ACESSO", "TRIBUTO", "FEDERAL", "FEDERAIS", "ESTADUAL", "ESTADUAIS",
	"MUNICIPAL", "MUNICIPAIS", "NFC-E", "PROTOCOLO", "AUTORIZACAO", "QR", "HTTP", "WWW",
	"FAZENDA", "ITEM COD", "DESC QTD", "VL.UNIT", "VL.ITEM", "TOTAL", "TOTAIS", "SUBTOTAL",
	"DESCONTO", "TROCO", "DINHEIRO", "CARTAO", "CARTOES", "CREDITO", "DEBITO", "MASTERCARD",
	"VISA", "ELO", "OPERADOR", "CAIXA", "DATA", "HORA", "SERIE", "NUMERO", "VALOR A PAGAR",
}

// Keywords shorter than prefixMin must be whole words so that product names
// such as GELO or CAMELO survive; longer ones match as word prefixes, which
// also covers plurals (DESCONTOS, TRIBUTOS, OPERADORA).
const prefixMin = 5

var nonItemRE = func() *regexp.Regexp {
	alts := make([]string, len(nonItemKeywords))
	for i, kw := range nonItemKeywords {
		alts[i] = regexp.QuoteMeta(kw)
		if utf8.RuneCountInString(kw) < prefixMin {
			alts[i] += `\b`
		}
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)`)
}()

// IsNonItemLine reports whether line is receipt boilerplate rather than a
// product: too short, only digits and punctuation, or carrying a fiscal,
// payment or totals keyword.
func IsNonItemLine(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < 5 {
		return true
	}
	if nonItemRE.MatchString(fold(line)) {
		return true
	}
	return onlyDigitsAndPunct(line)
}

// isCandidateLine reports whether the item matchers should look at line. A
// "<seq> <barcode>" line skips the length and digits checks so the split
// matcher can join it with the following line, but its text must still be
// free of boilerplate keywords.
func isCandidateLine(line string) bool {
	if m := splitHeadRE.FindStringSubmatch(line); m != nil {
		return !nonItemRE.MatchString(fold(m[2]))
	}
	return !IsNonItemLine(line)
}

func isItemsHeader(line string) bool {
	f := fold(line)
	return strings.Contains(f, "COD") && containsAny(f, "DESC", "PROD")
}

func isItemsEnd(line string) bool {
	f := fold(line)
	if strings.Contains(f, "TOTAL") && !strings.Contains(f, "SUBTOTAL") {
		return true
	}
	return containsAny(f, "VALOR A PAGAR", "FORMA DE PAGAMENTO", "FORMA PAGAMENTO", "CARTAO")
}

type scanState int

const (
	seeking scanState = iota
	inItems
	done
)

// items walks the item window of lines: it seeks past the column header (or
// starts at the top when there is none) and stops at the totals or payment
// block.
func (p *Parser) items(lines []string) []ReceiptItem {
	items := []ReceiptItem{}
	state := seeking
	seq := 0
	i := 0
	for state != done {
		switch state {
		case seeking:
			i = 0
			for j, line := range lines {
				if isItemsHeader(line) {
					i = j + 1
					break
				}
			}
			state = inItems
		case inItems:
			if i >= len(lines) || isItemsEnd(lines[i]) {
				state = done
				continue
			}
			line := lines[i]
			step := 1
			if isCandidateLine(line) {
				for _, match := range p.ItemMatchers {
					item, n, ok := match(lines, i)
					if !ok {
						continue
					}
					seq++
					item.ItemNumber = fmt.Sprintf("%03d", seq)
					items = append(items, item)
					step = max(n, 1)
					break
				}
			}
			if d, ok := discountItem(line); ok {
				items = append(items, d)
			}
			i += step
		}
	}
	return items
}

// MatchCodedItem reads "<seq> <barcode> <description> ... <price>" lines,
// with an optional "qty KG x unitPrice" weight or "qty UN x unitPrice".
func MatchCodedItem(lines []string, i int) (ReceiptItem, int, bool) {
	m := codedHeadRE.FindStringSubmatch(lines[i])
	if m == nil {
		return ReceiptItem{}, 0, false
	}
	item := ReceiptItem{Barcode: m[2], Quantity: 1, Unit: UnitPiece}
	rest := m[3]
	desc, tail := rest, rest
	if loc := weightRE.FindStringSubmatchIndex(rest); loc != nil {
		qty := submatch(rest, loc, 1)
		if qty == "" {
			qty = submatch(rest, loc, 2)
		}
		item.Quantity = ParseNumber(qty)
		item.Unit = UnitKilogram
		item.UnitPrice = ParseNumber(submatch(rest, loc, 3))
		desc, tail = rest[:loc[0]], rest[loc[1]:]
	} else if loc := qtyUnitPriceRE.FindStringSubmatchIndex(rest); loc != nil {
		item.Quantity = ParseNumber(submatch(rest, loc, 1))
		item.Unit = ParseUnit(submatch(rest, loc, 2))
		item.UnitPrice = ParseNumber(submatch(rest, loc, 3))
		desc, tail = rest[:loc[0]], rest[loc[1]:]
	}

	if p := trailingPriceRE.FindStringSubmatch(tail); p != nil {
		item.TotalPrice = ParseNumber(p[1])
	} else if item.UnitPrice > 0 {
		item.TotalPrice = round2(item.Quantity * item.UnitPrice)
	}
	if item.TotalPrice <= 0 {
		return ReceiptItem{}, 0, false
	}
	if item.UnitPrice == 0 {
		item.UnitPrice = item.TotalPrice
	}
	item.Description = cleanDescription(desc)
	if item.Description == "" {
		return ReceiptItem{}, 0, false
	}
	return item, 1, true
}

// MatchPlainItem reads "<description> <price>" lines.
func MatchPlainItem(lines []string, i int) (ReceiptItem, int, bool) {
	m := plainItemRE.FindStringSubmatch(lines[i])
	if m == nil {
		return ReceiptItem{}, 0, false
	}
	desc := strings.TrimSpace(m[1])
	if utf8.RuneCountInString(desc) < minDescription || IsNonItemLine(desc) {
		return ReceiptItem{}, 0, false
	}
	item := ReceiptItem{Quantity: 1, Unit: UnitPiece, TotalPrice: ParseNumber(m[2])}
	if loc := weightRE.FindStringSubmatchIndex(desc); loc != nil {
		qty := submatch(desc, loc, 1)
		if qty == "" {
			qty = submatch(desc, loc, 2)
		}
		item.Quantity = ParseNumber(qty)
		item.Unit = UnitKilogram
		item.UnitPrice = ParseNumber(submatch(desc, loc, 3))
		desc = desc[:loc[0]] + " " + desc[loc[1]:]
	} else {
		item.UnitPrice = item.TotalPrice
	}
	item.Description = cleanDescription(desc)
	if utf8.RuneCountInString(item.Description) < minDescription {
		return ReceiptItem{}, 0, false
	}
	return item, 1, true
}

// MatchSplitItem reads an item whose code line and description/price line
// were broken apart by the recognizer. It consumes both lines.
func MatchSplitItem(lines []string, i int) (ReceiptItem, int, bool) {
	m := splitHeadRE.FindStringSubmatch(lines[i])
	if m == nil || i+1 >= len(lines) {
		return ReceiptItem{}, 0, false
	}
	next := lines[i+1]
	if IsNonItemLine(next) {
		return ReceiptItem{}, 0, false
	}
	p := trailingPriceRE.FindStringSubmatch(next)
	if p == nil {
		p = trailingPriceRE.FindStringSubmatch(lines[i])
	}
	if p == nil {
		return ReceiptItem{}, 0, false
	}
	price := ParseNumber(p[1])
	if price <= 0 {
		return ReceiptItem{}, 0, false
	}
	desc := cleanDescription(next)
	if utf8.RuneCountInString(desc) < minDescription {
		desc = cleanDescription(m[2])
	}
	if utf8.RuneCountInString(desc) < minDescription {
		return ReceiptItem{}, 0, false
	}
	return ReceiptItem{
		Barcode:     m[1],
		Description: desc,
		Quantity:    1,
		Unit:        UnitPiece,
		UnitPrice:   price,
		TotalPrice:  price,
	}, 2, true
}

// discountItem reports a per-item discount line as a negative item.
func discountItem(line string) (ReceiptItem, bool) {
	f := fold(line)
	if !containsAny(f, "DESCONTO", "DESC ") {
		return ReceiptItem{}, false
	}
	if !strings.Contains(f, "ITEM") && !negativeAmountRE.MatchString(line) {
		return ReceiptItem{}, false
	}
	m := anyAmountRE.FindStringSubmatch(line)
	if m == nil {
		return ReceiptItem{}, false
	}
	price := -ParseNumber(m[1])
	return ReceiptItem{
		Description: line,
		Quantity:    1,
		Unit:        UnitPiece,
		UnitPrice:   price,
		TotalPrice:  price,
		IsDiscount:  true,
	}, true
}

// cleanDescription drops trailing prices and a trailing "qty unit" column.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	for {
		t := strings.TrimSpace(trailingAmountRE.ReplaceAllString(s, ""))
		if t == s {
			break
		}
		s = t
	}
	return strings.TrimSpace(trailingQtyRE.ReplaceAllString(s, ""))
}

func submatch(s string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}
