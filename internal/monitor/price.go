package monitor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Trend classifies a price change
type Trend string

const (
	TrendIncreased Trend = "increased"
	TrendDecreased Trend = "decreased"
	TrendUnchanged Trend = "unchanged"
	TrendUnknown   Trend = "unknown"
)

// ParsePrice reads the first amount in a display price such as "$12.990",
// "1.234,50" or "1,234.50". When both separators appear the last one is the
// decimal separator; a lone separator followed by exactly three digits, or
// repeated, groups thousands.
func ParsePrice(raw string) (decimal.Decimal, error) {
	token := firstAmount(raw)
	if token == "" {
		return decimal.Zero, fmt.Errorf("no amount in price %q", raw)
	}

	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			token = strings.ReplaceAll(token, ",", "")
		} else {
			token = strings.ReplaceAll(token, ".", "")
			token = strings.ReplaceAll(token, ",", ".")
		}
	case lastComma >= 0:
		token = normalizeSeparator(token, ",")
	case lastDot >= 0:
		token = normalizeSeparator(token, ".")
	}

	amount, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return amount, nil
}

func firstAmount(raw string) string {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != ','
	})
	for _, token := range tokens {
		token = strings.Trim(token, ".,")
		if strings.IndexFunc(token, unicode.IsDigit) >= 0 {
			return token
		}
	}
	return ""
}

func normalizeSeparator(token, sep string) string {
	parts := strings.Split(token, sep)
	if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, ".")
}

// ClassifyTrend compares two display prices numerically. Prices that cannot
// be parsed yield TrendUnknown.
func ClassifyTrend(oldPrice, newPrice string) Trend {
	before, err := ParsePrice(oldPrice)
	if err != nil {
		return TrendUnknown
	}
	after, err := ParsePrice(newPrice)
	if err != nil {
		return TrendUnknown
	}
	switch after.Cmp(before) {
	case 1:
		return TrendIncreased
	case -1:
		return TrendDecreased
	default:
		return TrendUnchanged
	}
}

// samePrice compares display prices ignoring whitespace differences
func samePrice(a, b string) bool {
	return strings.Join(strings.Fields(a), " ") == strings.Join(strings.Fields(b), " ")
}
