package validate

import "testing"

func TestValidateRUT(t *testing.T) {
	cases := []struct {
		rut  string
		want bool
	}{
		// Repeated-digit placeholder bodies fail even though their
		// mod-11 check digit is arithmetically correct.
		{"11.111.111-1", false},
		{"22.222.222-2", false},
		{"12.345.678-5", true},
		{"12345678-5", true},
		{"123456785", true},
		{"12.345.678-6", false},
		{"7.775.777-K", false},
		{"", false},
		{"1", false},
		{"abc-1", false},
	}
	for _, tc := range cases {
		if got := ValidateRUT(tc.rut); got != tc.want {
			t.Errorf("ValidateRUT(%q) = %v, want %v", tc.rut, got, tc.want)
		}
	}
}

func TestValidateRUTCheckDigitK(t *testing.T) {
	// Find a body whose expected digit is 10 (rendered K) and make
	// sure the validator accepts it.
	found := false
	for body := 1000000; body < 1100000; body++ {
		sum := 0
		multiplier := 2
		n := body
		for n > 0 {
			sum += (n % 10) * multiplier
			if multiplier == 7 {
				multiplier = 2
			} else {
				multiplier++
			}
			n /= 10
		}
		if 11-(sum%11) == 10 {
			rut := intToRUT(body) + "K"
			if !ValidateRUT(rut) {
				t.Fatalf("computed K-digit RUT %q rejected", rut)
			}
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no K-digit body found in range")
	}
}

func intToRUT(n int) string {
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestFormatRUT(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123456785", "12.345.678-5"},
		{"12345678-5", "12.345.678-5"},
		{"12.345.678-5", "12.345.678-5"},
		{"9", "9"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatRUT(tc.in); got != tc.want {
			t.Errorf("FormatRUT(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPhoneValidation(t *testing.T) {
	if !ValidatePhone("+56912345678") {
		t.Error("international phone rejected")
	}
	if !ValidatePhone("912345678") {
		t.Error("national phone rejected")
	}
	if ValidatePhone("1234") {
		t.Error("short phone accepted")
	}
	if ValidatePhone("12345678901234567890") {
		t.Error("overlong phone accepted")
	}
}

func TestFormatPhone(t *testing.T) {
	if got := FormatPhone("+56 9 1234 5678"); got != "+56912345678" {
		t.Errorf("FormatPhone = %q", got)
	}
	if got := FormatPhone("(56) 9-1234.5678"); got != "56912345678" {
		t.Errorf("FormatPhone = %q", got)
	}
}
