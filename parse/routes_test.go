package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoutes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		routes  []Route
		err     string
	}{
		{
			"minimal_route",
			`
route_id,route_short_name,route_type
r,R,2`,
			[]Route{{ID: "r", ShortName: "R", Type: "2"}},
			"",
		},

		{
			"long_name_only",
			`
route_id,route_long_name,route_type
local,Local,2`,
			[]Route{{ID: "local", LongName: "Local", Type: "2"}},
			"",
		},

		{
			"missing_route_id",
			`
route_id,route_short_name,route_type
,R,2`,
			nil,
			"route has no route_id",
		},

		{
			"repeated_route_id",
			`
route_id,route_short_name,route_type
r,R,2
r,R2,2`,
			nil,
			"repeated route_id: 'r'",
		},

		{
			"missing_names",
			`
route_id,route_short_name,route_long_name,route_type
r,,,2`,
			nil,
			"no short_name or long_name",
		},

		{
			"missing_route_type",
			`
route_id,route_short_name,route_type
r,R,`,
			nil,
			"has no route_type",
		},

		{
			"bad_route_type",
			`
route_id,route_short_name,route_type
r,R,9`,
			nil,
			"invalid route_type: 9",
		},

		{
			"extended_route_types",
			`
route_id,route_short_name,route_type
m,M,11
m2,M2,12`,
			[]Route{
				{ID: "m", ShortName: "M", Type: "11"},
				{ID: "m2", ShortName: "M2", Type: "12"},
			},
			"",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			routes, err := ParseRoutes(bytes.NewBufferString(tc.content))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.routes, routes)
		})
	}
}
