package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendarDates(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		dates   []CalendarDate
		err     string
	}{
		{
			"added_and_removed",
			`
service_id,date,exception_type
weekend,20260704,1
weekday,20260704,2`,
			[]CalendarDate{
				{ServiceID: "weekend", RawDate: "20260704", ExceptionType: 1, Date: 20260704},
				{ServiceID: "weekday", RawDate: "20260704", ExceptionType: 2, Date: 20260704},
			},
			"",
		},

		{
			"bad_exception_type",
			`
service_id,date,exception_type
weekday,20260704,3`,
			nil,
			"illegal exception_type: '3'",
		},

		{
			"bad_date",
			`
service_id,date,exception_type
weekday,July 4,1`,
			nil,
			"parsing date 'July 4'",
		},

		{
			"duplicate_service_date",
			`
service_id,date,exception_type
weekday,20260704,2
weekday,20260704,1`,
			nil,
			"duplicate service/date: '20260704-weekday'",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dates, err := ParseCalendarDates(bytes.NewBufferString(tc.content))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.dates, dates)
		})
	}
}
