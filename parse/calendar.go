package parse

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
)

type Calendar struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`

	// Monday-first day mask and YYYYMMDD integers, filled in
	// during parsing.
	Days  [7]int `csv:"-"`
	Start int    `csv:"-"`
	End   int    `csv:"-"`
}

var dayNames = [7]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

func ParseCalendar(data io.Reader) ([]Calendar, error) {
	calendarCsv := []*Calendar{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	seen := map[string]bool{}
	entries := make([]Calendar, 0, len(calendarCsv))
	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if seen[c.ServiceID] {
			return nil, fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		seen[c.ServiceID] = true

		days := [7]int8{
			c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday,
		}
		for i, d := range days {
			if d != 0 && d != 1 {
				return nil, fmt.Errorf("invalid %s value '%d' for service_id '%s'", dayNames[i], d, c.ServiceID)
			}
			c.Days[i] = int(d)
		}

		var err error
		c.Start, err = parseDate(c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		c.End, err = parseDate(c.EndDate)
		if err != nil {
			return nil, fmt.Errorf("parsing end_date: %w", err)
		}

		entries = append(entries, *c)
	}

	return entries, nil
}

// parseDate validates a GTFS YYYYMMDD date and returns it as an
// integer, which preserves chronological ordering.
func parseDate(s string) (int, error) {
	if _, err := time.ParseInLocation("20060102", s, time.UTC); err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}
