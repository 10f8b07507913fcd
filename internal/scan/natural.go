package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NaturalLess reports whether a sorts before b in natural order: digit runs
// compare numerically, other runs compare case-insensitively, so "file2"
// precedes "file10". Names that compare equal fall back to byte order.
func NaturalLess(a, b string) bool {
	if c := naturalCompare(a, b); c != 0 {
		return c < 0
	}
	return a < b
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ra, rb := runOf(a), runOf(b)
		ca, cb := a[:ra], b[:rb]
		a, b = a[ra:], b[rb:]

		da, db := isDigitRun(ca), isDigitRun(cb)
		switch {
		case da && db:
			if c := compareDigits(ca, cb); c != 0 {
				return c
			}
		case da:
			return -1
		case db:
			return 1
		default:
			if c := strings.Compare(strings.ToLower(ca), strings.ToLower(cb)); c != 0 {
				return c
			}
		}
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// runOf returns the byte length of the leading run of digits or non-digits.
func runOf(s string) int {
	first, _ := utf8.DecodeRuneInString(s)
	digit := isDigit(first)
	for i, r := range s {
		if isDigit(r) != digit {
			return i
		}
	}
	return len(s)
}

func isDigitRun(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isDigit(r)
}

func isDigit(r rune) bool {
	return r < utf8.RuneSelf && unicode.IsDigit(r)
}

// compareDigits compares two ASCII digit strings by numeric value without
// converting them, so arbitrarily long runs never overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
