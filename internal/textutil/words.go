package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NFC returns s in Unicode normalization form C.
func NFC(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Words splits NFC-normalized text on Unicode whitespace.
func Words(text string) []string {
	return strings.Fields(NFC(text))
}

// RuneLength returns the number of code points in the NFC form of s.
func RuneLength(s string) int {
	return utf8.RuneCountInString(NFC(s))
}

// CollapseSpace joins the words of text with single spaces.
func CollapseSpace(text string) string {
	return strings.Join(Words(text), " ")
}
