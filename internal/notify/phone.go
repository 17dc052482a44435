package notify

import (
	"errors"
	"net/url"
	"strings"
)

// MinPhoneDigits is the shortest number accepted after stripping separators.
const MinPhoneDigits = 5

// ErrInvalidPhone is returned for numbers that cannot be addressed.
var ErrInvalidPhone = errors.New("invalid phone number")

var phoneSeparators = strings.NewReplacer("+", "", "-", "", "(", "", ")", "", " ", "")

// NormalizePhone strips + - ( ) and spaces and requires the rest to be at
// least MinPhoneDigits digits.
//
//	NormalizePhone("+54 9 11 1234-5678") == "5491112345678"
func NormalizePhone(raw string) (string, error) {
	digits := phoneSeparators.Replace(strings.TrimSpace(raw))
	if len(digits) < MinPhoneDigits {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return digits, nil
}

// WhatsAppLink builds the click-to-chat deep link for phone carrying message.
func WhatsAppLink(phone, message string) (string, error) {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	// QueryEscape encodes spaces as '+'; the deep link expects %20
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}
