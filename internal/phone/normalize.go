// Package phone canonicalizes phone numbers to a single digit-string form
// carrying the country calling code. All comparisons and storage in the
// contact store happen on this normalized form.
package phone

import "strings"

// Invalid is returned when the input yields no digits at all.
const Invalid = ""

// Normalizer rewrites raw phone input into the canonical
// <country code><national number> digit string.
//
// Rules, applied to the digits left after stripping everything else:
//   - "00" international prefix: dropped
//   - single leading "0": replaced with the country code
//   - a bare national number (length == NationalLen): country code prepended
//
// Normalize is idempotent: an already-canonical number passes through
// unchanged.
type Normalizer struct {
	CountryCode string
	NationalLen int
}

func New(countryCode string, nationalLen int) Normalizer {
	return Normalizer{CountryCode: countryCode, NationalLen: nationalLen}
}

func (n Normalizer) Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return Invalid
	}

	// The rules are checked in sequence, not chained: dropping "00" can
	// expose a local leading zero ("000712..."), which must still be
	// rewritten for the result to be canonical in one pass.
	if strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	if strings.HasPrefix(digits, "0") {
		digits = n.CountryCode + digits[1:]
	}

	if !strings.HasPrefix(digits, n.CountryCode) && len(digits) == n.NationalLen {
		digits = n.CountryCode + digits
	}

	if digits == "" {
		return Invalid
	}
	return digits
}

// Valid reports whether raw normalizes to a usable number.
func (n Normalizer) Valid(raw string) bool {
	return n.Normalize(raw) != Invalid
}
