package transit

import (
	"math"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"peninsula.dev/transit/model"
)

// The realtime side of the pipeline: merges the three upstream feeds
// (trip updates, vehicle positions, service alerts) into one per-trip
// view.
//
// A delay of zero in the feed is treated as "no signal" rather than
// "on time" throughout. The upstream doesn't disambiguate the two,
// and presentation is the client's call.

// MergeRealtime combines three decoded feeds into a RealtimeStatus.
// Deterministic: the same three feeds always produce the same value.
// Any of the feeds may be nil, in which case it contributes nothing.
func MergeRealtime(tripUpdates, vehicles, alerts *gtfsrt.FeedMessage) *model.RealtimeStatus {
	status := &model.RealtimeStatus{
		ByTrip: map[string]model.TripStatus{},
		Alerts: []model.Alert{},
	}

	for _, entity := range tripUpdates.GetEntity() {
		tu := entity.GetTripUpdate()
		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}
		status.ByTrip[tripID] = mergeTripUpdate(tu)
	}

	// Positions only attach to trips the trip update feed knows
	// about. A position without an update has nothing to join onto.
	for _, entity := range vehicles.GetEntity() {
		v := entity.GetVehicle()
		tripID := v.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}
		pos := vehiclePosition(v.GetPosition())
		if pos == nil {
			continue
		}
		if ts, ok := status.ByTrip[tripID]; ok {
			ts.Position = pos
			status.ByTrip[tripID] = ts
		}
	}

	for _, entity := range alerts.GetEntity() {
		if entity.GetAlert() == nil {
			continue
		}
		status.Alerts = append(status.Alerts, mergeAlert(entity.GetAlert()))
	}

	status.Timestamp = maxTimestamp(tripUpdates, vehicles, alerts)

	return status
}

// mergeTripUpdate reduces one trip update to a TripStatus. The stop
// context starts as the first stop_time_update carrying a stop id;
// the first non-zero delay (departure preferred over arrival) wins
// and moves the stop context to its stop. With no stop-level signal,
// the trip-level delay applies, again only when non-zero.
func mergeTripUpdate(tu *gtfsrt.TripUpdate) model.TripStatus {
	state := model.StateInTransit
	ts := model.TripStatus{State: &state}

	var delay *int
	var predicted *int64
	for _, stu := range tu.GetStopTimeUpdate() {
		if ts.Stop == "" && stu.GetStopId() != "" {
			ts.Stop = stu.GetStopId()
		}

		if delay == nil {
			if d := int(stu.GetDeparture().GetDelay()); d != 0 {
				delay = &d
			} else if d := int(stu.GetArrival().GetDelay()); d != 0 {
				delay = &d
			}
			if delay != nil && stu.GetStopId() != "" {
				ts.Stop = stu.GetStopId()
			}
		}

		if predicted == nil {
			if t := stu.GetDeparture().GetTime(); t != 0 {
				predicted = &t
			} else if t := stu.GetArrival().GetTime(); t != 0 {
				predicted = &t
			}
		}
	}

	if delay == nil {
		if d := int(tu.GetDelay()); d != 0 {
			delay = &d
		}
	}

	ts.Delay = delay
	ts.Time = predicted
	return ts
}

// vehiclePosition quantizes a feed position to five decimal places
// (about one meter), rounding half away from zero. Returns nil when
// the coordinates aren't usable numbers.
func vehiclePosition(pos *gtfsrt.Position) *model.Position {
	if pos == nil {
		return nil
	}

	lat := quantize(float64(pos.GetLatitude()))
	lon := quantize(float64(pos.GetLongitude()))
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil
	}

	p := &model.Position{Lat: lat, Lon: lon}
	if b := float64(pos.GetBearing()); b != 0 && !math.IsNaN(b) && !math.IsInf(b, 0) {
		p.Bearing = &b
	}
	if sp := float64(pos.GetSpeed()); sp != 0 && !math.IsNaN(sp) && !math.IsInf(sp, 0) {
		p.Speed = &sp
	}
	return p
}

func quantize(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func mergeAlert(alert *gtfsrt.Alert) model.Alert {
	a := model.Alert{
		Header:      englishText(alert.GetHeaderText()),
		Description: englishText(alert.GetDescriptionText()),
	}

	if alert.Cause != nil {
		a.Cause = alert.GetCause().String()
	}
	if alert.Effect != nil {
		a.Effect = alert.GetEffect().String()
	}

	for _, ie := range alert.GetInformedEntity() {
		if stopID := ie.GetStopId(); stopID != "" {
			a.Stops = append(a.Stops, stopID)
		}
		if tripID := ie.GetTrip().GetTripId(); tripID != "" {
			a.Trips = append(a.Trips, tripID)
		}
	}

	if periods := alert.GetActivePeriod(); len(periods) > 0 {
		if periods[0].Start != nil {
			start := int64(periods[0].GetStart())
			a.Start = &start
		}
		if periods[0].End != nil {
			end := int64(periods[0].GetEnd())
			a.End = &end
		}
	}

	return a
}

// englishText picks the English translation of an alert string, or
// the empty string when no translation qualifies. Translations
// without a language tag count as English; most feeds only ever
// carry one.
func englishText(ts *gtfsrt.TranslatedString) string {
	for _, tr := range ts.GetTranslation() {
		if tr.GetLanguage() == "en" || tr.Language == nil {
			return tr.GetText()
		}
	}
	return ""
}

func maxTimestamp(feeds ...*gtfsrt.FeedMessage) int64 {
	var max int64
	for _, feed := range feeds {
		if t := int64(feed.GetHeader().GetTimestamp()); t > max {
			max = t
		}
	}
	return max
}
