package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// Location types from stops.txt. The agency's feed only uses
// platforms and parent stations.
const (
	LocationTypePlatform = 0
	LocationTypeStation  = 1
)

type Stop struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	ZoneID        string  `csv:"zone_id"`
	LocationType  int8    `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
	PlatformCode  string  `csv:"platform_code"`
}

func ParseStops(data io.Reader) ([]Stop, error) {
	stopCsv := []*Stop{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	seen := map[string]bool{}
	stops := make([]Stop, 0, len(stopCsv))
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		seen[st.ID] = true

		if st.Name == "" {
			return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
		}
		if st.Lat == 0 || st.Lon == 0 {
			return nil, fmt.Errorf("empty stop_lat or stop_lon for stop_id '%s'", st.ID)
		}

		stops = append(stops, *st)
	}

	// verify stops referenced by parent_station exist
	for _, st := range stops {
		if st.ParentStation != "" && !seen[st.ParentStation] {
			return nil, fmt.Errorf("stop '%s' references unknown parent_station '%s'", st.ID, st.ParentStation)
		}
	}

	return stops, nil
}
