package validate

import (
	"strings"
)

// CleanRUT strips dots and dashes from a Chilean RUT.
func CleanRUT(rut string) string {
	rut = strings.ReplaceAll(rut, ".", "")
	rut = strings.ReplaceAll(rut, "-", "")
	return strings.TrimSpace(rut)
}

// FormatRUT renders a RUT with thousand dots and the check-digit dash.
func FormatRUT(rut string) string {
	value := CleanRUT(rut)
	if len(value) < 2 {
		return value
	}

	body := value[:len(value)-1]
	dv := strings.ToUpper(value[len(value)-1:])

	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + dv
}

// ValidateRUT checks the mod-11 check digit: weights cycle 2..7 from
// the rightmost body digit; 11 maps to 0 and 10 to K. Repeated-digit
// bodies like 11.111.111 are placeholder values, not real RUTs, and
// are rejected even when their check digit works out.
func ValidateRUT(rut string) bool {
	if rut == "" {
		return false
	}

	cleaned := CleanRUT(rut)
	if len(cleaned) < 2 {
		return false
	}

	body := cleaned[:len(cleaned)-1]
	dv := strings.ToUpper(cleaned[len(cleaned)-1:])

	sum := 0
	multiplier := 2
	sameDigits := true
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != body[0] {
			sameDigits = false
		}
		sum += int(c-'0') * multiplier
		if multiplier == 7 {
			multiplier = 2
		} else {
			multiplier++
		}
	}
	if sameDigits {
		return false
	}

	expected := 11 - (sum % 11)
	var expectedStr string
	switch expected {
	case 11:
		expectedStr = "0"
	case 10:
		expectedStr = "K"
	default:
		expectedStr = string(rune('0' + expected))
	}
	return dv == expectedStr
}
