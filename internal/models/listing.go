package models

import "time"

type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityUnknown    Availability = "unknown"
)

type ExtractionMethod string

const (
	MethodDeterministic ExtractionMethod = "deterministic"
	MethodAIAssisted    ExtractionMethod = "ai-assisted"
)

// ExtractedListing is an immutable observation of a listing. Prices are
// integer minor currency units; a new observation is a new value.
type ExtractedListing struct {
	Title        string           `json:"title"`
	Brand        string           `json:"brand,omitempty"`
	PriceMinor   int64            `json:"price_minor"`
	Currency     string           `json:"currency"`
	Availability Availability     `json:"availability"`
	ImageURL     string           `json:"image_url,omitempty"`
	Confidence   float64          `json:"confidence"`
	Method       ExtractionMethod `json:"method"`
	ExtractedAt  time.Time        `json:"extracted_at"`
}

// currencyExponents covers the tracked sources' currencies. Anything not
// listed uses the ISO-4217 common case of 2.
var currencyExponents = map[string]int{
	"JPY": 0, "KRW": 0, "VND": 0,
	"BHD": 3, "KWD": 3, "OMR": 3, "JOD": 3, "TND": 3,
	"USD": 2, "EUR": 2, "GBP": 2, "INR": 2, "BRL": 2,
	"CNY": 2, "CAD": 2, "AUD": 2, "CHF": 2, "RUB": 2,
}

func CurrencyExponent(code string) int {
	if exp, ok := currencyExponents[code]; ok {
		return exp
	}
	return 2
}

func IsKnownCurrency(code string) bool {
	_, ok := currencyExponents[code]
	return ok
}
