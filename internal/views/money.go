package views

import "strings"

// FormatCLP renders an amount in Chilean peso style with dot thousand
// separators, e.g. 6000 -> "6.000".
func FormatCLP(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := []byte{}
	if amount == 0 {
		digits = append(digits, '0')
	}
	for amount > 0 {
		digits = append(digits, byte('0'+amount%10))
		amount /= 10
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
		if i > 0 && i%3 == 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}
