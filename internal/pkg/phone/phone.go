// Package phone normalizes Kyrgyz phone numbers for code delivery and
// contact comparison.
package phone

import "strings"

// Digits strips everything but ASCII digits. This is the canonical form used
// when comparing a channel-reported contact against a claimed one.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// Normalize converts a phone number in any input format to the bare
// country-code-plus-national digit string the SMS gateway expects.
//
// Rules, in order: strip non-digits; a leading 8 on an 11-digit number is the
// legacy Russian trunk prefix and becomes 7; a leading 00 international prefix
// is dropped; a leading 0 on a 10-digit number is the local trunk prefix and is
// dropped; a 9-digit local number starting with 2, 5, 7 or 9 gets the Kyrgyz
// country code 996 injected.
func Normalize(raw string) string {
	clean := Digits(raw)

	if len(clean) == 11 && strings.HasPrefix(clean, "8") {
		clean = "7" + clean[1:]
	}

	if strings.HasPrefix(clean, "00") {
		clean = clean[2:]
	}

	if len(clean) == 10 && clean[0] == '0' {
		clean = clean[1:]
	}

	if len(clean) == 9 {
		switch clean[0] {
		case '2', '5', '7', '9':
			clean = "996" + clean
		}
	}

	return clean
}

// IsEmail reports whether the contact looks like an email address rather than
// a phone number.
func IsEmail(contact string) bool {
	at := strings.IndexByte(contact, '@')
	return at > 0 && at < len(contact)-1
}
