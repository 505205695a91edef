package utils

import (
	"regexp"
)

var nonDigitRegexp = regexp.MustCompile(`\D`)

// PhoneDigits strips everything but digits, the form wa.me and tel: links expect.
func PhoneDigits(phone string) string {
	return nonDigitRegexp.ReplaceAllString(phone, "")
}
