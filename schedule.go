package transit

import (
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"

	"peninsula.dev/transit/model"
	"peninsula.dev/transit/parse"
)

// The static side of the pipeline: turns a GTFS archive into the
// compact schedule bundle clients download once a day. Everything
// after the archive bytes is a deterministic transformation, so the
// same archive always produces byte-identical JSON and the same
// version hash.

// Occurrences of this get stripped from station names. The upstream
// feed calls every stop "<Name> Caltrain Station", which is noise on
// a client that only ever shows this one agency.
const stationNameNoise = " Caltrain Station"

// BuildSchedule parses a zipped GTFS archive and assembles the
// schedule bundle: canonical stations, deduplicated stop patterns,
// trips with interleaved minute arrays, service calendars, zone
// fares, and the station-pair index.
func BuildSchedule(archive []byte) (*model.StaticSchedule, error) {
	parsed, err := parse.ParseArchive(archive)
	if err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}

	stations, stationByStop := buildStations(parsed.Stops)

	schedule := &model.StaticSchedule{
		Meta: model.ScheduleMeta{
			Version:       fmt.Sprintf("%x", sha256.Sum256(archive)),
			SchemaVersion: model.SchemaVersion,
		},
		Patterns: map[string][]string{},
		Trips:    []model.Trip{},
		Rules: model.ServiceRules{
			Calendar:   map[string]model.CalendarEntry{},
			Exceptions: map[string][]model.CalendarException{},
		},
		Stations: stations,
		Fares: model.FareTable{
			Zones: map[string]model.Zone{},
			Fares: map[string]int{},
		},
		Pairs: map[string][]string{},
		Order: stationOrder(stations),
	}

	// Group stop times by trip. ParseStopTimes returns them sorted
	// by (trip_id, stop_sequence), so each group keeps stop order.
	timesByTrip := map[string][]parse.StopTime{}
	for _, st := range parsed.StopTimes {
		timesByTrip[st.TripID] = append(timesByTrip[st.TripID], st)
	}

	routeName := map[string]string{}
	for _, r := range parsed.Routes {
		name := r.ShortName
		if name == "" {
			name = r.ID
		}
		routeName[r.ID] = name
	}

	// Trips and patterns, in trip file order. The first trip with a
	// given station sequence allocates the pattern id; later trips
	// with the same sequence reuse it.
	patternBySeq := map[string]string{}
	for _, t := range parsed.Trips {
		var seq []string
		var times []int
		for _, st := range timesByTrip[t.ID] {
			stationID, ok := stationByStop[st.StopID]
			if !ok {
				// Stop doesn't map to a canonical
				// station. Skip it.
				continue
			}
			seq = append(seq, stationID)
			times = append(times, st.Arrival, st.Departure)
		}
		if len(seq) == 0 {
			continue
		}

		seqKey := strings.Join(seq, ",")
		patternID, ok := patternBySeq[seqKey]
		if !ok {
			patternID = fmt.Sprintf("p%d", len(schedule.Patterns))
			patternBySeq[seqKey] = patternID
			schedule.Patterns[patternID] = seq
		}

		tripID := t.ShortName
		if tripID == "" {
			tripID = t.ID
		}

		schedule.Trips = append(schedule.Trips, model.Trip{
			ID:        tripID,
			ServiceID: t.ServiceID,
			PatternID: patternID,
			Direction: int(t.DirectionID),
			StopTimes: times,
			RouteType: routeName[t.RouteID],
		})
	}

	for _, c := range parsed.Calendar {
		schedule.Rules.Calendar[c.ServiceID] = model.CalendarEntry{
			Days:  c.Days,
			Start: c.Start,
			End:   c.End,
		}
		if c.End > schedule.Meta.EndDate {
			schedule.Meta.EndDate = c.End
		}
	}
	for _, cd := range parsed.CalendarDates {
		schedule.Rules.Exceptions[cd.ServiceID] = append(
			schedule.Rules.Exceptions[cd.ServiceID],
			model.CalendarException{Date: cd.Date, Type: int(cd.ExceptionType)},
		)
	}

	buildFares(schedule, parsed)
	buildPairIndex(schedule)

	return schedule, nil
}

// buildStations collapses the stops table into canonical stations.
// Parent stations (location_type 1) become stations; platform stops
// (location_type 0) attach to their parent, and the parent inherits
// the first non-empty child zone if it has none. Parents with zero
// children are dropped. Returns the station map and a platform stop
// to station id mapping.
func buildStations(stops []parse.Stop) (map[string]model.Station, map[string]string) {
	stations := map[string]model.Station{}
	for _, s := range stops {
		if s.LocationType != parse.LocationTypeStation {
			continue
		}
		stations[s.ID] = model.Station{
			Name: strings.TrimSpace(strings.ReplaceAll(s.Name, stationNameNoise, "")),
			Zone: s.ZoneID,
			Lat:  s.Lat,
			Lon:  s.Lon,
		}
	}

	stationByStop := map[string]string{}
	for _, s := range stops {
		if s.LocationType != parse.LocationTypePlatform || s.ParentStation == "" {
			continue
		}
		station, ok := stations[s.ParentStation]
		if !ok {
			continue
		}
		station.StopIDs = append(station.StopIDs, s.ID)
		if station.Zone == "" && s.ZoneID != "" {
			station.Zone = s.ZoneID
		}
		stations[s.ParentStation] = station
		stationByStop[s.ID] = s.ParentStation
	}

	for id, station := range stations {
		if len(station.StopIDs) == 0 {
			delete(stations, id)
		}
	}

	return stations, stationByStop
}

// stationOrder returns station ids north to south: latitude
// descending, with the id as tie breaker to keep builds stable.
func stationOrder(stations map[string]model.Station) []string {
	order := make([]string, 0, len(stations))
	for id := range stations {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := stations[order[i]], stations[order[j]]
		if a.Lat != b.Lat {
			return a.Lat > b.Lat
		}
		return order[i] < order[j]
	})
	return order
}

func buildFares(schedule *model.StaticSchedule, parsed *parse.Archive) {
	for _, z := range parsed.Zones {
		schedule.Fares.Zones[z.ID] = model.Zone{Name: z.Name}
	}

	priceCents := map[string]int{}
	for _, fa := range parsed.FareAttributes {
		priceCents[fa.ID] = int(math.Round(fa.Price * 100))
	}
	for _, rule := range parsed.FareRules {
		if rule.OriginID == "" || rule.DestinationID == "" {
			continue
		}
		schedule.Fares.Fares[model.PairKey(rule.OriginID, rule.DestinationID)] = priceCents[rule.FareID]
	}
}

// buildPairIndex precomputes, for every ordered station pair served
// by some pattern, the trips that cover it. Quadratic in stops per
// pattern, which is fine at commuter rail scale.
func buildPairIndex(schedule *model.StaticSchedule) {
	for _, t := range schedule.Trips {
		seq := schedule.Patterns[t.PatternID]
		for i := 0; i < len(seq); i++ {
			for j := i + 1; j < len(seq); j++ {
				key := model.PairKey(seq[i], seq[j])
				schedule.Pairs[key] = append(schedule.Pairs[key], t.ID)
			}
		}
	}
}
