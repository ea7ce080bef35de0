package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	RawDate       string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`

	// YYYYMMDD integer, filled in during parsing.
	Date int `csv:"-"`
}

func ParseCalendarDates(data io.Reader) ([]CalendarDate, error) {
	calendarDateCsv := []*CalendarDate{}
	if err := gocsv.Unmarshal(data, &calendarDateCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	knownServiceDate := map[string]bool{}
	dates := make([]CalendarDate, 0, len(calendarDateCsv))
	for _, cd := range calendarDateCsv {
		if cd.ExceptionType < 1 || cd.ExceptionType > 2 {
			return nil, fmt.Errorf("illegal exception_type: '%d'", cd.ExceptionType)
		}

		var err error
		cd.Date, err = parseDate(cd.RawDate)
		if err != nil {
			return nil, fmt.Errorf("parsing date '%s': %w", cd.RawDate, err)
		}

		serviceDate := fmt.Sprintf("%s-%s", cd.RawDate, cd.ServiceID)
		if knownServiceDate[serviceDate] {
			return nil, fmt.Errorf("duplicate service/date: '%s'", serviceDate)
		}
		knownServiceDate[serviceDate] = true

		dates = append(dates, *cd)
	}

	return dates, nil
}
