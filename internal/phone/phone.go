package phone

import (
	"errors"
	"strings"
)

// ErrInvalidNumber is returned for any input that cannot be mapped to
// the canonical dialing format.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalizer canonicalizes raw phone text into a single
// +<countrycode><national> digit string. It is pure and deterministic;
// nothing else in the engine ever stores another representation.
type Normalizer struct {
	countryCode  string
	mobilePrefix string
}

func NewNormalizer(countryCode, mobilePrefix string) *Normalizer {
	return &Normalizer{
		countryCode:  countryCode,
		mobilePrefix: mobilePrefix,
	}
}

// Normalize accepts three shapes, all mapping to the same canonical
// form (examples for cc=92, prefix=3):
//
//	3001234567   (10 digits, starts with the mobile prefix)
//	03001234567  (11 digits, leading zero + prefix)
//	923001234567 (already cc-length, starts with the country code)
//
// Everything else is rejected with ErrInvalidNumber.
func (n *Normalizer) Normalize(raw string) (string, error) {
	digits := stripNonDigits(raw)

	nationalLen := 10
	fullLen := len(n.countryCode) + nationalLen

	switch {
	case len(digits) == nationalLen && strings.HasPrefix(digits, n.mobilePrefix):
		digits = n.countryCode + digits
	case len(digits) == nationalLen+1 && strings.HasPrefix(digits, "0"+n.mobilePrefix):
		digits = n.countryCode + digits[1:]
	}

	if len(digits) == fullLen && strings.HasPrefix(digits, n.countryCode) {
		return "+" + digits, nil
	}

	return "", ErrInvalidNumber
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
