// Package phone normalizes the phone numbers stored on customer contacts.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Numbers without a country code are assumed to be Dutch.
const defaultRegion = "NL"

// NormalizeE164 formats a contact phone number to E.164. Input that does not
// parse as a phone number comes back trimmed but otherwise untouched, so
// free-form entries like extensions are never destroyed.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
