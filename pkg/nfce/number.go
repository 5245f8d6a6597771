package nfce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amount matches a printed currency value with two decimals, optionally with
// thousands grouping (1.234,56 or 1,234.56).
const amount = `(?:[0-9]{1,3}(?:\.[0-9]{3})+,[0-9]{2}|[0-9]{1,3}(?:,[0-9]{3})+\.[0-9]{2}|[0-9]+[.,][0-9]{2})`

// money is amount as a capturing group.
const money = `(` + amount + `)`

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// ParseNumber reads a printed number. Comma is the decimal separator; when
// both separators are present the last one is the decimal separator and the
// other is grouping. Anything unparsable yields 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma >= 0 && lastDot >= 0 {
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = nonNumeric.ReplaceAllString(s, "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// FormatCnpj formats a 14 digit CNPJ as NN.NNN.NNN/NNNN-NN. Any other input
// is returned unchanged.
func FormatCnpj(cnpj string) string {
	d := digitsOnly(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
