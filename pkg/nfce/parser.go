package nfce

import (
	"slices"
	"strings"
)

// Parser turns recognized receipt text into a Receipt. The zero value has no
// known stores and no item matchers; use DefaultParser.
type Parser struct {
	// Stores are brand names matched anywhere in the text, first wins.
	Stores []string
	// ItemMatchers are tried in order on each line of the item window.
	ItemMatchers []ItemMatcher
}

// DefaultParser returns a Parser with the known supermarket brands and the
// coded, plain and split item matchers.
func DefaultParser() *Parser {
	return &Parser{
		Stores:       slices.Clone(KnownStores),
		ItemMatchers: []ItemMatcher{MatchCodedItem, MatchPlainItem, MatchSplitItem},
	}
}

var defaultParser = DefaultParser()

// Parse parses text with the default parser.
func Parse(text string) Receipt {
	return defaultParser.Parse(text)
}

// Parse never fails: fields that cannot be found keep their zero value and
// blank text yields a receipt carrying only RawText.
func (p *Parser) Parse(text string) Receipt {
	r := Receipt{RawText: text, Items: []ReceiptItem{}}
	if strings.TrimSpace(text) == "" {
		return r
	}
	lines := splitLines(text)
	folded := fold(text)

	r.StoreName = storeName(p.Stores, folded, lines)
	r.Address = findAddress(lines)
	applyFields(&r, text)
	r.PaymentMethod = paymentMethod(folded)
	r.Items = p.items(lines)
	return r
}
