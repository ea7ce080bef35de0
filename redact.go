package transit

import (
	"net/url"
	"strings"
)

// Upstream URLs carry the API key as a query parameter, so it leaks
// into transport errors and any message that embeds a URL. Everything
// the workers log goes through Redact first.

// Redact removes every occurrence of the secret from a message, in
// both its raw and percent-encoded forms.
func Redact(message, secret string) string {
	if secret == "" {
		return message
	}
	message = strings.ReplaceAll(message, secret, "[redacted]")
	if encoded := url.QueryEscape(secret); encoded != secret {
		message = strings.ReplaceAll(message, encoded, "[redacted]")
	}
	return message
}
