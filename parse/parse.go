package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// Archive holds the parsed tables of one GTFS archive. Rows keep
// their file order; the schedule builder depends on that for
// deterministic pattern assignment.
type Archive struct {
	Stops          []Stop
	Routes         []Route
	Trips          []Trip
	StopTimes      []StopTime
	Calendar       []Calendar
	CalendarDates  []CalendarDate
	FareAttributes []FareAttribute
	FareRules      []FareRule
	Zones          []Zone
}

// ParseArchive reads the CSV tables out of a zipped GTFS archive.
func ParseArchive(buf []byte) (*Archive, error) {
	// These are the tables we load. The fare files and the zone
	// names are optional; everything else is required.
	file := map[string]io.ReadCloser{
		"stops.txt":               nil,
		"routes.txt":              nil,
		"trips.txt":               nil,
		"stop_times.txt":          nil,
		"calendar.txt":            nil,
		"calendar_dates.txt":      nil,
		"fare_attributes.txt":     nil,
		"fare_rules.txt":          nil,
		"farezone_attributes.txt": nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	if file["calendar.txt"] == nil && file["calendar_dates.txt"] == nil {
		return nil, fmt.Errorf("missing calendar.txt and calendar_dates.txt")
	}

	for _, required := range []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	archive := &Archive{}

	archive.Routes, err = ParseRoutes(file["routes.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}
	routes := map[string]bool{}
	for _, rt := range archive.Routes {
		routes[rt.ID] = true
	}

	// Parse calendar.txt and calendar_dates.txt, collecting the
	// set of all known service IDs for trip validation.
	services := map[string]bool{}
	if file["calendar.txt"] != nil {
		archive.Calendar, err = ParseCalendar(file["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
		for _, c := range archive.Calendar {
			services[c.ServiceID] = true
		}
	}
	if file["calendar_dates.txt"] != nil {
		archive.CalendarDates, err = ParseCalendarDates(file["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
		for _, cd := range archive.CalendarDates {
			services[cd.ServiceID] = true
		}
	}

	archive.Trips, err = ParseTrips(file["trips.txt"], routes, services)
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}
	trips := map[string]bool{}
	for _, t := range archive.Trips {
		trips[t.ID] = true
	}

	archive.Stops, err = ParseStops(file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}
	stops := map[string]bool{}
	for _, s := range archive.Stops {
		stops[s.ID] = true
	}

	archive.StopTimes, err = ParseStopTimes(file["stop_times.txt"], trips, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}

	if file["fare_attributes.txt"] != nil {
		archive.FareAttributes, err = ParseFareAttributes(file["fare_attributes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing fare_attributes.txt: %w", err)
		}
	}
	if file["fare_rules.txt"] != nil {
		fares := map[string]bool{}
		for _, fa := range archive.FareAttributes {
			fares[fa.ID] = true
		}
		archive.FareRules, err = ParseFareRules(file["fare_rules.txt"], fares)
		if err != nil {
			return nil, fmt.Errorf("parsing fare_rules.txt: %w", err)
		}
	}
	if file["farezone_attributes.txt"] != nil {
		archive.Zones, err = ParseZones(file["farezone_attributes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing farezone_attributes.txt: %w", err)
		}
	}

	return archive, nil
}
