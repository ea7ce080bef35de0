package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peninsula.dev/transit/model"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, "sf→palo_alto", model.PairKey("sf", "palo_alto"))
}

func TestActiveOn(t *testing.T) {
	rules := model.ServiceRules{
		Calendar: map[string]model.CalendarEntry{
			"weekday": {
				Days:  [7]int{1, 1, 1, 1, 1, 0, 0},
				Start: 20260101,
				End:   20261231,
			},
		},
		Exceptions: map[string][]model.CalendarException{
			"weekday": {
				{Date: 20260704, Type: model.ServiceRemoved},
			},
			"special": {
				{Date: 20260704, Type: model.ServiceAdded},
			},
		},
	}

	// 2026-07-03 is a Friday, 2026-07-04 a Saturday.
	assert.True(t, rules.ActiveOn("weekday", 20260703))
	assert.False(t, rules.ActiveOn("weekday", 20260704))

	// Out of range.
	assert.False(t, rules.ActiveOn("weekday", 20251231))
	assert.False(t, rules.ActiveOn("weekday", 20270101))

	// Weekend day inside range.
	assert.False(t, rules.ActiveOn("weekday", 20260705))

	// Added exception activates a service with no calendar row.
	assert.True(t, rules.ActiveOn("special", 20260704))
	assert.False(t, rules.ActiveOn("special", 20260705))

	// Unknown service.
	assert.False(t, rules.ActiveOn("nope", 20260703))
}

func TestTripStatusOmitsAbsentSignals(t *testing.T) {
	body, err := json.Marshal(model.TripStatus{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))

	delay := 300
	body, err = json.Marshal(model.TripStatus{Delay: &delay, Stop: "s1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":300,"s":"s1"}`, string(body))
}
