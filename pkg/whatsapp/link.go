// Package whatsapp builds click-to-chat links. WhatsApp has no free server-side
// send API, so the admin client opens the link to deliver the message.
package whatsapp

import (
	"errors"
	"net/url"

	"field-dispatch/pkg/utils"
)

var ErrInvalidNumber = errors.New("whatsapp number must contain 7 to 15 digits")

const baseURL = "https://wa.me/"

func ChatLink(number, text string) (string, error) {
	digits := utils.PhoneDigits(number)
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidNumber
	}

	link := baseURL + digits
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}
