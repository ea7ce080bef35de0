package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendar(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		entries []Calendar
		err     string
	}{
		{
			"weekday_service",
			`
service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
weekday,1,1,1,1,1,0,0,20260101,20261231`,
			[]Calendar{{
				ServiceID: "weekday",
				StartDate: "20260101",
				EndDate:   "20261231",
				Monday:    1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1,
				Days:  [7]int{1, 1, 1, 1, 1, 0, 0},
				Start: 20260101,
				End:   20261231,
			}},
			"",
		},

		{
			"missing_service_id",
			`
service_id,monday,start_date,end_date
,1,20260101,20261231`,
			nil,
			"empty service_id",
		},

		{
			"repeated_service_id",
			`
service_id,monday,start_date,end_date
weekday,1,20260101,20261231
weekday,1,20260101,20261231`,
			nil,
			"repeated service_id 'weekday'",
		},

		{
			"bad_day_value",
			`
service_id,monday,start_date,end_date
weekday,2,20260101,20261231`,
			nil,
			"invalid monday value '2'",
		},

		{
			"bad_start_date",
			`
service_id,monday,start_date,end_date
weekday,1,2026-01-01,20261231`,
			nil,
			"parsing start_date",
		},

		{
			"impossible_date",
			`
service_id,monday,start_date,end_date
weekday,1,20260101,20261301`,
			nil,
			"parsing end_date",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := ParseCalendar(bytes.NewBufferString(tc.content))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.entries, entries)
		})
	}
}
