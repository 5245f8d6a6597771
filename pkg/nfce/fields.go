package nfce

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	cnpjRE       = regexp.MustCompile(`(?i)CNPJ[:\s-]*([0-9]{2}[./]?[0-9]{3}[./]?[0-9]{3}/?[0-9]{4}-?[0-9]{2})`)
	dateTimeRE   = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s*(\d{2}:\d{2}:\d{2})?`)
	toPayRE      = regexp.MustCompile(`(?i)(?:VALOR\s*A\s*PAGAR|V\.?\s*PAGAR)[:\s]*R?\$?\s*` + money)
	totalRE      = regexp.MustCompile(`(?im)(?:^|[^A-Za-z])((?:VALOR|VL?)\.?\s*)?TOTAL[:\s]*R?\$?\s*` + money)
	subtotalRE   = regexp.MustCompile(`(?i)(?:VALOR\s*TOTAL|SUBTOTAL|VL?\.?\s*TOTAL)[:\s]*R?\$?\s*` + money)
	discountRE   = regexp.MustCompile(`(?i)DESCONTOS?[:\s]*R?\$?\s*-?\s*` + money)
	nfceNumberRE = regexp.MustCompile(`(?i)NFC-?e\s*(?:N[º°o.]*)?[:\s]*([0-9]+)`)
	accessKeyRE  = regexp.MustCompile(`(?:[0-9]{4}\s*){11}`)
	totalTaxRE   = regexp.MustCompile(`(?i)Tributos.*?R\$\s*:?\s*` + money)
	federalTaxRE = regexp.MustCompile(`(?i)Federa(?:l|is)[^0-9\n]*?R\$\s*:?\s*` + money)
	stateTaxRE   = regexp.MustCompile(`(?i)Estadua(?:l|is)[^0-9\n]*?R\$\s*:?\s*` + money)
	cardNumberRE = regexp.MustCompile(`([0-9]{4,6}\*+[0-9]{4})`)
)

// textField extracts one string field. Patterns are tried in order and the
// first match wins.
type textField struct {
	patterns []*regexp.Regexp
	value    func(m []string) string
	set      func(r *Receipt, v string)
}

// moneyField extracts one currency field from capture group 1 of the first
// finder that matches.
type moneyField struct {
	finders []func(string) []string
	set     func(r *Receipt, v float64)
}

var textFields = []textField{
	{
		patterns: []*regexp.Regexp{cnpjRE},
		value:    func(m []string) string { return FormatCnpj(m[1]) },
		set:      func(r *Receipt, v string) { r.Cnpj = v },
	},
	{
		patterns: []*regexp.Regexp{dateTimeRE},
		value:    func(m []string) string { return strings.TrimSpace(m[1] + " " + m[2]) },
		set:      func(r *Receipt, v string) { r.DateTime = v },
	},
	{
		patterns: []*regexp.Regexp{nfceNumberRE},
		value:    group(1),
		set:      func(r *Receipt, v string) { r.NfceNumber = v },
	},
	{
		patterns: []*regexp.Regexp{accessKeyRE},
		value:    func(m []string) string { return digitsOnly(m[0]) },
		set:      func(r *Receipt, v string) { r.AccessKey = v },
	},
	{
		patterns: []*regexp.Regexp{cardNumberRE},
		value:    group(1),
		set:      func(r *Receipt, v string) { r.CardNumber = v },
	},
}

var moneyFields = []moneyField{
	{finders(toPayRE.FindStringSubmatch, standaloneTotal), func(r *Receipt, v float64) { r.TotalAmount = v }},
	{finders(subtotalRE.FindStringSubmatch), func(r *Receipt, v float64) { r.Subtotal = v }},
	{finders(discountRE.FindStringSubmatch), func(r *Receipt, v float64) { r.Discount = v }},
	{finders(totalTaxRE.FindStringSubmatch), func(r *Receipt, v float64) { r.TotalTaxes = v }},
	{finders(federalTaxRE.FindStringSubmatch), func(r *Receipt, v float64) { r.FederalTaxes = v }},
	{finders(stateTaxRE.FindStringSubmatch), func(r *Receipt, v float64) { r.StateTaxes = v }},
}

func finders(f ...func(string) []string) []func(string) []string { return f }

// standaloneTotal finds the first TOTAL label that is not the tail of
// VALOR TOTAL, VL TOTAL or V. TOTAL. Those feed the subtotal.
func standaloneTotal(text string) []string {
	for _, m := range totalRE.FindAllStringSubmatch(text, -1) {
		if m[1] == "" {
			return []string{m[0], m[2]}
		}
	}
	return nil
}

func group(i int) func(m []string) string {
	return func(m []string) string { return strings.TrimSpace(m[i]) }
}

func firstMatch(patterns []*regexp.Regexp, text string) []string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m
		}
	}
	return nil
}

// applyFields runs every field extractor over the whole text.
func applyFields(r *Receipt, text string) {
	for _, f := range textFields {
		if m := firstMatch(f.patterns, text); m != nil {
			f.set(r, f.value(m))
		}
	}
	for _, f := range moneyFields {
		for _, find := range f.finders {
			if m := find(text); m != nil {
				f.set(r, ParseNumber(m[1]))
				break
			}
		}
	}
}

var paymentRules = []struct {
	re     *regexp.Regexp
	method string
}{
	{regexp.MustCompile(`CREDITO`), PaymentCredit},
	{regexp.MustCompile(`DEBITO`), PaymentDebit},
	{regexp.MustCompile(`\bPIX\b`), PaymentPix},
	{regexp.MustCompile(`DINHEIRO`), PaymentCash},
	{regexp.MustCompile(`MASTERCARD|\bVISA\b|\bELO\b`), PaymentCredit},
}

// paymentMethod classifies folded text by payment keywords.
func paymentMethod(folded string) string {
	for _, rule := range paymentRules {
		if rule.re.MatchString(folded) {
			return rule.method
		}
	}
	return PaymentUnknown
}

// KnownStores lists supermarket brands recognised anywhere in the text, in
// priority order.
var KnownStores = []string{
	"FESTVAL", "CONDOR", "CARREFOUR", "PAO DE ACUCAR", "EXTRA", "BIG",
	"WALMART", "ATACADAO", "ASSAI", "MAKRO", "ANGELONI", "MUFFATO",
	"SUPER MUFFATO", "CIDADE CANCAO", "SUPER CENTER",
}

func storeName(stores []string, folded string, lines []string) string {
	for _, s := range stores {
		if strings.Contains(folded, s) {
			return s
		}
	}
	for _, line := range lines[:min(10, len(lines))] {
		if plausibleStoreLine(line) {
			return line
		}
	}
	return ""
}

func plausibleStoreLine(line string) bool {
	if containsAny(fold(line), "CNPJ", "RUA", "AV ", "AVENIDA") {
		return false
	}
	n := utf8.RuneCountInString(line)
	if n < 3 || n > 50 || strings.Contains(line, "@") {
		return false
	}
	return !onlyDigitsAndPunct(line)
}

var addressKeywords = []string{
	"RUA", "AV ", "AVENIDA", "R.", "BR-", "BR ", "ROD", "ALAMEDA", "AL.", "PRACA", "PCA",
}

// findAddress returns the first of the first 15 lines that names a street.
func findAddress(lines []string) string {
	for _, line := range lines[:min(15, len(lines))] {
		if containsAny(fold(line), addressKeywords...) {
			return line
		}
	}
	return ""
}
