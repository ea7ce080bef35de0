package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrips(t *testing.T) {
	routes := map[string]bool{"r": true}
	services := map[string]bool{"weekday": true}

	for _, tc := range []struct {
		name    string
		content string
		trips   []Trip
		err     string
	}{
		{
			"minimal_trip",
			`
trip_id,route_id,service_id
t,r,weekday`,
			[]Trip{{ID: "t", RouteID: "r", ServiceID: "weekday"}},
			"",
		},

		{
			"full_trip",
			`
trip_id,route_id,service_id,trip_headsign,trip_short_name,direction_id
t,r,weekday,San Francisco,101,1`,
			[]Trip{{
				ID:          "t",
				RouteID:     "r",
				ServiceID:   "weekday",
				Headsign:    "San Francisco",
				ShortName:   "101",
				DirectionID: 1,
			}},
			"",
		},

		{
			"missing_trip_id",
			`
trip_id,route_id,service_id
,r,weekday`,
			nil,
			"empty trip_id",
		},

		{
			"repeated_trip_id",
			`
trip_id,route_id,service_id
t,r,weekday
t,r,weekday`,
			nil,
			"repeated trip_id 't'",
		},

		{
			"unknown_route",
			`
trip_id,route_id,service_id
t,bogus,weekday`,
			nil,
			"unknown route_id 'bogus'",
		},

		{
			"unknown_service",
			`
trip_id,route_id,service_id
t,r,bogus`,
			nil,
			"unknown service_id 'bogus'",
		},

		{
			"bad_direction",
			`
trip_id,route_id,service_id,direction_id
t,r,weekday,2`,
			nil,
			"invalid direction_id '2'",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			trips, err := ParseTrips(bytes.NewBufferString(tc.content), routes, services)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.trips, trips)
		})
	}
}
