package transit_test

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"peninsula.dev/transit"
)

func TestRedact(t *testing.T) {
	// A key with characters that percent-encode differently.
	key := "s3cr3t+key/with=padding=="
	encoded := url.QueryEscape(key)

	message := fmt.Sprintf(
		"fetching tripupdates: Get \"https://api.example.com/feed?api_key=%s\": timeout (raw %s)",
		encoded, key)

	redacted := transit.Redact(message, key)
	assert.NotContains(t, redacted, key)
	assert.NotContains(t, redacted, encoded)
	assert.Contains(t, redacted, "[redacted]")
	assert.Contains(t, redacted, "fetching tripupdates")
}

func TestRedactEmptySecret(t *testing.T) {
	assert.Equal(t, "unchanged", transit.Redact("unchanged", ""))
}
