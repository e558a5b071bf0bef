// Package isbn validates and normalizes ISBN-13 and ISBN-10 numbers.
//
// Accepted input: the bare digits, or the hyphen/space separated groups
// printed on books ("978-0-306-40615-7", "0-306-40615-2"). Normalized form
// is digits only, with an upper-case X check character for ISBN-10.
package isbn

import (
	"regexp"
	"strings"
)

var (
	raw13       = regexp.MustCompile(`^97[89]\d{10}$`)
	grouped13   = regexp.MustCompile(`^97[89][- ]\d{1,5}[- ]\d{1,7}[- ]\d{1,7}[- ]\d$`)
	raw10       = regexp.MustCompile(`^\d{9}[\dX]$`)
	grouped10   = regexp.MustCompile(`^\d{1,5}[- ]\d{1,7}[- ]\d{1,7}[- ][\dX]$`)
	separatorRE = regexp.MustCompile(`[- ]`)
)

// Normalize13 returns the 13 digits of s, or false when s is not a
// well-formed ISBN-13 with a correct check digit.
func Normalize13(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !raw13.MatchString(s) && !grouped13.MatchString(s) {
		return "", false
	}
	digits := separatorRE.ReplaceAllString(s, "")
	if len(digits) != 13 {
		return "", false
	}
	if CheckDigit13(digits[:12]) != digits[12] {
		return "", false
	}
	return digits, true
}

// IsValid13 reports whether s is a valid ISBN-13.
func IsValid13(s string) bool {
	_, ok := Normalize13(s)
	return ok
}

// CheckDigit13 computes the check digit of the first 12 digits:
// weights alternate 1,3 and the digit is (10 - sum mod 10) mod 10.
func CheckDigit13(first12 string) byte {
	sum := 0
	for i := 0; i < 12 && i < len(first12); i++ {
		d := int(first12[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return byte('0' + (10-sum%10)%10)
}

// Normalize10 returns the 10 characters of s, or false when s is not a
// well-formed ISBN-10 with a correct mod-11 check character.
func Normalize10(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !raw10.MatchString(s) && !grouped10.MatchString(s) {
		return "", false
	}
	chars := separatorRE.ReplaceAllString(s, "")
	if len(chars) != 10 || strings.IndexByte(chars[:9], 'X') >= 0 {
		return "", false
	}

	sum := 0
	for i := 0; i < 10; i++ {
		v := int(chars[i] - '0')
		if chars[i] == 'X' {
			v = 10
		}
		sum += (10 - i) * v
	}
	if sum%11 != 0 {
		return "", false
	}
	return chars, true
}

// IsValid10 reports whether s is a valid ISBN-10.
func IsValid10(s string) bool {
	_, ok := Normalize10(s)
	return ok
}

// Pattern strips separators from a search term so partial numbers match
// the normalized column.
func Pattern(term string) string {
	return strings.ToUpper(separatorRE.ReplaceAllString(strings.TrimSpace(term), ""))
}
