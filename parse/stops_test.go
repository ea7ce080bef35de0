package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStops(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		stops   []Stop
		err     string
	}{
		{
			"minimal_stop",
			`
stop_id,stop_name,stop_lat,stop_lon
s,name,1.1,2.2`,
			[]Stop{{
				ID:   "s",
				Name: "name",
				Lat:  1.1,
				Lon:  2.2,
			}},
			"",
		},

		{
			"platform_with_parent",
			`
stop_id,stop_code,stop_name,stop_lat,stop_lon,zone_id,location_type,parent_station,platform_code
p1,70011,Station North,37.1,-122.2,Z1,0,ps,NB
ps,70010,Station,37.1,-122.2,,1,,`,
			[]Stop{
				{
					ID:            "p1",
					Code:          "70011",
					Name:          "Station North",
					Lat:           37.1,
					Lon:           -122.2,
					ZoneID:        "Z1",
					LocationType:  LocationTypePlatform,
					ParentStation: "ps",
					PlatformCode:  "NB",
				},
				{
					ID:           "ps",
					Code:         "70010",
					Name:         "Station",
					Lat:          37.1,
					Lon:          -122.2,
					LocationType: LocationTypeStation,
				},
			},
			"",
		},

		{
			"missing_stop_id",
			`
stop_id,stop_name,stop_lat,stop_lon
,name,1.1,2.2`,
			nil,
			"empty stop_id",
		},

		{
			"repeated_stop_id",
			`
stop_id,stop_name,stop_lat,stop_lon
s,name,1.1,2.2
s,other,3.3,4.4`,
			nil,
			"repeated stop_id 's'",
		},

		{
			"missing_name",
			`
stop_id,stop_name,stop_lat,stop_lon
s,,1.1,2.2`,
			nil,
			"empty stop_name",
		},

		{
			"missing_coordinates",
			`
stop_id,stop_name,stop_lat,stop_lon
s,name,,2.2`,
			nil,
			"empty stop_lat or stop_lon",
		},

		{
			"unknown_parent",
			`
stop_id,stop_name,stop_lat,stop_lon,parent_station
s,name,1.1,2.2,nope`,
			nil,
			"unknown parent_station 'nope'",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stops, err := ParseStops(bytes.NewBufferString(tc.content))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.stops, stops)
		})
	}
}
