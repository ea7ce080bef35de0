package model

import (
	"time"
)

// Holds the wire types shared with clients. The short JSON field
// names are part of the cross-tier contract: clients deserialize the
// full schedule bundle on every cold start, so the names must match
// exactly.

// SchemaVersion is carried in ScheduleMeta and bumped whenever the
// shape of StaticSchedule changes in a way clients must know about.
const SchemaVersion = 3

// The only keys ever written to the KV store. The schedule keys
// persist until the next successful build overwrites them; the
// realtime key carries a TTL.
const (
	KeySchedule = "schedule:data"
	KeyMeta     = "schedule:meta"
	KeyRealtime = "realtime:status"
)

// Calendar exception types, per GTFS calendar_dates.txt.
const (
	ServiceAdded   = 1
	ServiceRemoved = 2
)

// Trip progress states.
const (
	StateIncoming  = 0
	StateStopped   = 1
	StateInTransit = 2
)

// StaticSchedule is the compact daily bundle: canonical stations,
// deduplicated stop patterns, trips with interleaved minute arrays,
// service calendars, zone fares, and the station-pair index.
type StaticSchedule struct {
	Meta     ScheduleMeta        `json:"m"`
	Patterns map[string][]string `json:"p"`
	Trips    []Trip              `json:"t"`
	Rules    ServiceRules        `json:"r"`
	Stations map[string]Station  `json:"s"`
	Fares    FareTable           `json:"f"`
	Pairs    map[string][]string `json:"x"`
	Order    []string            `json:"o"`
}

// ScheduleMeta describes a published bundle. Version is the SHA-256
// of the source archive. RealtimeAge is never stored; the read API
// derives it at serve time.
type ScheduleMeta struct {
	Version       string `json:"v"`
	EndDate       int    `json:"e"`
	SchemaVersion int    `json:"sv"`
	RealtimeAge   *int64 `json:"realtimeAge,omitempty"`
}

// Trip is a single scheduled run. ID is the train number
// (trip_short_name) when the feed provides one. StopTimes interleaves
// [arr0, dep0, arr1, dep1, ...] as minutes past local midnight;
// values beyond 1440 are post-midnight stops. Invariant:
// len(StopTimes) == 2 * len(Patterns[PatternID]).
type Trip struct {
	ID        string `json:"i"`
	ServiceID string `json:"s"`
	PatternID string `json:"p"`
	Direction int    `json:"d"`
	StopTimes []int  `json:"st"`
	RouteType string `json:"rt"`
}

// Station is a canonical rider-visible stop aggregating one or more
// platform stops from the upstream feed.
type Station struct {
	Name    string   `json:"n"`
	Zone    string   `json:"z"`
	StopIDs []string `json:"ids"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
}

// ServiceRules decides which services run on which dates.
type ServiceRules struct {
	Calendar   map[string]CalendarEntry       `json:"c"`
	Exceptions map[string][]CalendarException `json:"e"`
}

// CalendarEntry is one calendar.txt row: a weekday mask indexed
// Monday through Sunday and an inclusive YYYYMMDD date range.
type CalendarEntry struct {
	Days  [7]int `json:"days"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// CalendarException adds (type 1) or removes (type 2) service on a
// single YYYYMMDD date.
type CalendarException struct {
	Date int `json:"date"`
	Type int `json:"type"`
}

// FareTable maps zone ids to metadata and ordered zone pairs to
// prices in integer cents. Fares are asymmetric: the reverse pair may
// or may not exist.
type FareTable struct {
	Zones map[string]Zone `json:"zones"`
	Fares map[string]int  `json:"fares"`
}

type Zone struct {
	Name string `json:"name"`
}

// RealtimeStatus is one merged view over the three upstream feeds.
// Timestamp is the max of the three feed header timestamps.
type RealtimeStatus struct {
	Timestamp int64                 `json:"t"`
	ByTrip    map[string]TripStatus `json:"byTrip"`
	Alerts    []Alert               `json:"a"`
}

// TripStatus carries whatever realtime signal exists for one trip.
// Absent fields mean "no signal", not "on time". Delay is seconds and
// may be negative. Time is a predicted event time in epoch seconds.
type TripStatus struct {
	Delay    *int      `json:"d,omitempty"`
	Time     *int64    `json:"t,omitempty"`
	Stop     string    `json:"s,omitempty"`
	State    *int      `json:"st,omitempty"`
	Position *Position `json:"p,omitempty"`
}

// Position is a vehicle location quantized to five decimal places.
// Bearing and Speed are only present when the feed reports a non-zero
// value.
type Position struct {
	Lat     float64  `json:"la"`
	Lon     float64  `json:"lo"`
	Bearing *float64 `json:"b,omitempty"`
	Speed   *float64 `json:"sp,omitempty"`
}

// Alert is a service alert with English text. Start and End bound the
// first active period, in epoch seconds, when the feed provides one.
type Alert struct {
	Header      string   `json:"h"`
	Description string   `json:"d"`
	Cause       string   `json:"c,omitempty"`
	Effect      string   `json:"e,omitempty"`
	Stops       []string `json:"s,omitempty"`
	Trips       []string `json:"tr,omitempty"`
	Start       *int64   `json:"st,omitempty"`
	End         *int64   `json:"en,omitempty"`
}

// RealtimeMetadata is stored in the KV metadata slot next to the
// realtime blob. The read API turns T into the ETag and the derived
// realtimeAge on /api/meta without touching the value itself.
type RealtimeMetadata struct {
	T int64 `json:"t"`
}

// PairKey builds the "origin→destination" key (U+2192 separator) used
// by both the fare table and the station-pair index.
func PairKey(from, to string) string {
	return from + "→" + to
}

// ActiveOn reports whether a service runs on the given YYYYMMDD date:
// the date must fall in the calendar range with the weekday enabled,
// and any exception for that exact date overrides the result.
func (r ServiceRules) ActiveOn(serviceID string, date int) bool {
	active := false
	if c, ok := r.Calendar[serviceID]; ok {
		if date >= c.Start && date <= c.End && c.Days[weekdayIndex(date)] == 1 {
			active = true
		}
	}
	for _, ex := range r.Exceptions[serviceID] {
		if ex.Date != date {
			continue
		}
		switch ex.Type {
		case ServiceAdded:
			active = true
		case ServiceRemoved:
			active = false
		}
	}
	return active
}

func weekdayIndex(date int) int {
	t := time.Date(date/10000, time.Month(date/100%100), date%100, 12, 0, 0, 0, time.UTC)
	return (int(t.Weekday()) + 6) % 7
}
