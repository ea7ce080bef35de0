package transit

import (
	"fmt"

	"peninsula.dev/transit/model"
)

// Sanity floors for a publishable bundle. The agency runs a single
// line with a few dozen stations; anything below these means the
// upstream archive is broken, not that service shrank.
const (
	minStations = 10
	minTrips    = 10
	minPatterns = 2
)

// Validate checks a built schedule for structural and referential
// problems and returns every violated expectation. The daily worker
// only publishes when the returned list is empty.
func Validate(s *model.StaticSchedule, minEndDate int) []string {
	violations := []string{}

	if s.Meta.Version == "" {
		violations = append(violations, "metadata has empty version")
	}
	if s.Meta.EndDate < minEndDate {
		violations = append(violations, fmt.Sprintf(
			"calendar ends %d, before required %d", s.Meta.EndDate, minEndDate))
	}

	if len(s.Stations) < minStations {
		violations = append(violations, fmt.Sprintf(
			"only %d stations, need at least %d", len(s.Stations), minStations))
	}
	if len(s.Trips) < minTrips {
		violations = append(violations, fmt.Sprintf(
			"only %d trips, need at least %d", len(s.Trips), minTrips))
	}
	if len(s.Patterns) < minPatterns {
		violations = append(violations, fmt.Sprintf(
			"only %d patterns, need at least %d", len(s.Patterns), minPatterns))
	}

	for patternID, seq := range s.Patterns {
		for _, stationID := range seq {
			if _, ok := s.Stations[stationID]; !ok {
				violations = append(violations, fmt.Sprintf(
					"pattern %s references unknown station %s", patternID, stationID))
			}
		}
	}

	for _, t := range s.Trips {
		seq, ok := s.Patterns[t.PatternID]
		if !ok {
			violations = append(violations, fmt.Sprintf(
				"trip %s references unknown pattern %s", t.ID, t.PatternID))
		} else if len(t.StopTimes) != 2*len(seq) {
			violations = append(violations, fmt.Sprintf(
				"trip %s has %d stop times for a %d stop pattern",
				t.ID, len(t.StopTimes), len(seq)))
		}

		_, inCalendar := s.Rules.Calendar[t.ServiceID]
		_, inExceptions := s.Rules.Exceptions[t.ServiceID]
		if !inCalendar && !inExceptions {
			violations = append(violations, fmt.Sprintf(
				"trip %s references unknown service %s", t.ID, t.ServiceID))
		}
	}

	if len(s.Order) == 0 {
		violations = append(violations, "ordered station list is empty")
	}
	for _, stationID := range s.Order {
		if _, ok := s.Stations[stationID]; !ok {
			violations = append(violations, fmt.Sprintf(
				"ordered station list contains unknown station %s", stationID))
		}
	}

	return violations
}
