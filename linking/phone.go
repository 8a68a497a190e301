package linking

import "strings"

// NormalizePhone strips every character that is not a decimal digit. The result
// is the canonical form used for all phone equality checks.
func NormalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneEqual reports whether two numbers have the same non-empty normalized form.
func PhoneEqual(a, b string) bool {
	na := NormalizePhone(a)
	return na != "" && na == NormalizePhone(b)
}

// toLocal rewrites a South African international number (27XXXXXXXXX) to its
// local form (0XXXXXXXXX).
func toLocal(digits string) string {
	if len(digits) == 11 && strings.HasPrefix(digits, "27") {
		return "0" + digits[2:]
	}
	return digits
}

// PhoneNumbersMatch compares two numbers after normalization, treating a leading
// 27 and a leading 0 as the same prefix. Display and UI comparisons only:
// FindCustomerByPhone does not reconcile country codes.
func PhoneNumbersMatch(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return toLocal(na) == toLocal(nb)
}

// FormatPhoneForDisplay groups the digits of a phone number for display.
func FormatPhoneForDisplay(phone string) string {
	digits := NormalizePhone(phone)
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "27"):
		return "+27 " + digits[2:4] + " " + digits[4:7] + " " + digits[7:]
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return digits[0:3] + " " + digits[3:6] + " " + digits[6:]
	}
	return digits
}
