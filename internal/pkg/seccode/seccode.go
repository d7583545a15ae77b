// Package seccode maps between venue-prefixed security codes (sh.600000) and the bare
// six-digit codes used by the quote feed (600000).
package seccode

import "strings"

const (
	Shanghai = "sh"
	Shenzhen = "sz"

	delimiter = "."
)

// ToExternal strips the venue prefix. Codes without a delimiter are returned unchanged.
func ToExternal(internal string) string {
	if i := strings.Index(internal, delimiter); i >= 0 {
		return internal[i+1:]
	}
	return internal
}

// ToInternal reattaches prefix to a bare code. With an empty prefix the venue is guessed
// from the leading digit of a six-digit numeric code: 6 is Shanghai, 0 and 3 are Shenzhen.
//
// The guess is lossy. Index codes break it: 000016 is a Shanghai index but is reported as
// Shenzhen. Callers that know the venue must pass it.
func ToInternal(external, prefix string) string {
	if !isSixDigits(external) {
		return external
	}
	if prefix != "" {
		return prefix + delimiter + external
	}
	if venue := InferVenue(external); venue != "" {
		return venue + delimiter + external
	}
	return external
}

// InferVenue returns the guessed venue of a bare six-digit code, or "" when there is no guess.
// See ToInternal for the limits of the guess.
func InferVenue(external string) string {
	if !isSixDigits(external) {
		return ""
	}
	switch external[0] {
	case '6':
		return Shanghai
	case '0', '3':
		return Shenzhen
	}
	return ""
}

// Venue returns the prefix of an internal code, or "" if it has none.
func Venue(internal string) string {
	venue, _ := Split(internal)
	return venue
}

// Split returns the venue and bare code of an internal code.
func Split(internal string) (venue, symbol string) {
	if i := strings.Index(internal, delimiter); i >= 0 {
		return internal[:i], internal[i+1:]
	}
	return "", internal
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
