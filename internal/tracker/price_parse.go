package tracker

import (
	"strconv"
	"strings"
	"unicode"

	"pricewatch/internal/models"
)

// Symbol lookup is ordered: multi-rune symbols first so "R$" is not read
// as "$".
var currencySymbols = []struct {
	symbol   string
	currency string
}{
	{"R$", "BRL"},
	{"US$", "USD"},
	{"₹", "INR"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"$", "USD"},
}

var currencyCodes = []string{"USD", "EUR", "GBP", "INR", "BRL", "JPY", "CAD", "AUD", "MXN", "KWD", "BHD"}

// parsePrice turns a raw price string like "₹1,29,999.00", "R$ 1.299,90"
// or "$49.99" into minor units and the currency it infers from any symbol
// or ISO code present. hintCurrency applies when the string carries
// neither.
func parsePrice(raw, hintCurrency string) (int64, string, bool) {
	currency := hintCurrency
	for _, cs := range currencySymbols {
		if strings.Contains(raw, cs.symbol) {
			currency = cs.currency
			break
		}
	}
	if currency == hintCurrency {
		upper := strings.ToUpper(raw)
		for _, code := range currencyCodes {
			if strings.Contains(upper, code) {
				currency = code
				break
			}
		}
	}
	if currency == "" {
		return 0, "", false
	}

	intPart, fracPart, ok := splitNumeric(raw)
	if !ok {
		return 0, "", false
	}

	exp := models.CurrencyExponent(currency)
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, "", false
	}

	minor := whole
	for i := 0; i < exp; i++ {
		minor *= 10
	}
	if fracPart != "" {
		// Pad or truncate the fraction to the currency exponent.
		for len(fracPart) < exp {
			fracPart += "0"
		}
		frac, err := strconv.ParseInt(fracPart[:exp], 10, 64)
		if err != nil {
			return 0, "", false
		}
		minor += frac
	}
	if minor <= 0 {
		return 0, "", false
	}
	return minor, currency, true
}

// splitNumeric extracts the first number in the string and splits it into
// integer and fractional digits. Both "1.234,56" and "1,234.56" grouping
// styles are handled; a lone separator followed by exactly three digits is
// read as a thousands group.
func splitNumeric(raw string) (string, string, bool) {
	start := -1
	end := len(raw)
	for i, r := range raw {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && r != '.' && r != ',' && r != ' ' {
			end = i
			break
		}
	}
	if start < 0 {
		return "", "", false
	}
	num := strings.TrimRight(strings.ReplaceAll(raw[start:end], " ", ""), ".,")

	lastDot := strings.LastIndexByte(num, '.')
	lastComma := strings.LastIndexByte(num, ',')

	sep := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep = max(lastDot, lastComma)
	case lastDot >= 0:
		sep = lastDot
	case lastComma >= 0:
		sep = lastComma
	}

	if sep < 0 {
		return num, "", true
	}
	frac := num[sep+1:]
	if strings.ContainsAny(frac, ".,") {
		return "", "", false
	}

	// A separator kind that repeats is always grouping: "1,29,999" (lakh
	// style) and "1.234.567" carry no fraction.
	if strings.Count(num, string(num[sep])) > 1 {
		return stripSeparators(num), "", true
	}

	onlySep := strings.Count(num, ".")+strings.Count(num, ",") == 1
	if onlySep && len(frac) == 3 {
		// "1,299" style grouping, not a fraction.
		return stripSeparators(num), "", true
	}
	return stripSeparators(num[:sep]), frac, true
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", "")
}
