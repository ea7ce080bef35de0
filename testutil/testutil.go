// Package testutil builds GTFS fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	proto "google.golang.org/protobuf/proto"
)

// BuildArchive zips up a map of filename to CSV lines. Tables the
// archive walker requires but the caller didn't provide are filled
// in with minimal placeholder data.
func BuildArchive(t testing.TB, files map[string][]string) []byte {
	if files["stops.txt"] == nil {
		files["stops.txt"] = []string{
			"stop_id,stop_name,stop_lat,stop_lon,zone_id,location_type,parent_station",
			"station_x,Station X,37.1,-122.1,Z1,1,",
			"stop_x1,Station X Platform,37.1,-122.1,Z1,0,station_x",
		}
	}
	if files["routes.txt"] == nil {
		files["routes.txt"] = []string{
			"route_id,route_short_name,route_type",
			"RT1,Local,2",
		}
	}
	if files["trips.txt"] == nil {
		files["trips.txt"] = []string{
			"route_id,service_id,trip_id",
			"RT1,svc1,t1",
		}
	}
	if files["stop_times.txt"] == nil {
		files["stop_times.txt"] = []string{
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"t1,08:00:00,08:01:00,stop_x1,1",
		}
	}
	if files["calendar.txt"] == nil && files["calendar_dates.txt"] == nil {
		files["calendar.txt"] = []string{
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"svc1,1,1,1,1,1,0,0,20260101,20261231",
		}
	}

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// ValidArchive builds an archive big enough to pass the validator:
// twelve stations, twelve trips on two patterns, fares, and a
// calendar running through the end of 2026.
func ValidArchive(t testing.TB) []byte {
	stops := []string{"stop_id,stop_name,stop_lat,stop_lon,zone_id,location_type,parent_station"}
	for i := 1; i <= 12; i++ {
		zone := "Z1"
		if i > 6 {
			zone = "Z2"
		}
		// Latitudes decrease with i, so station_1 is northmost.
		lat := 38.0 - float64(i)*0.05
		stops = append(stops,
			fmt.Sprintf("station_%d,Station %d Caltrain Station,%.2f,-122.40,,1,", i, i, lat),
			fmt.Sprintf("stop_%dn,Station %d Northbound,%.2f,-122.40,%s,0,station_%d", i, i, lat, zone, i),
			fmt.Sprintf("stop_%ds,Station %d Southbound,%.2f,-122.40,%s,0,station_%d", i, i, lat, zone, i),
		)
	}

	trips := []string{"route_id,service_id,trip_id,trip_short_name,direction_id"}
	stopTimes := []string{"trip_id,arrival_time,departure_time,stop_id,stop_sequence"}
	for n := 0; n < 12; n++ {
		tripID := fmt.Sprintf("trip_%d", n)
		shortName := fmt.Sprintf("%d", 100+n)
		route := "LOCAL"
		if n%2 == 1 {
			route = "LTD"
		}
		trips = append(trips, fmt.Sprintf("%s,svc_weekday,%s,%s,0", route, tripID, shortName))

		seq := 1
		for i := 1; i <= 12; i++ {
			if route == "LTD" && i%2 == 0 {
				// Limiteds skip every other station.
				continue
			}
			minute := 6*60 + n*20 + i*4
			hhmm := fmt.Sprintf("%02d:%02d:00", minute/60, minute%60)
			stopTimes = append(stopTimes,
				fmt.Sprintf("%s,%s,%s,stop_%dn,%d", tripID, hhmm, hhmm, i, seq))
			seq++
		}
	}

	return BuildArchive(t, map[string][]string{
		"stops.txt": stops,
		"routes.txt": {
			"route_id,route_short_name,route_type",
			"LOCAL,Local,2",
			"LTD,Limited,2",
		},
		"trips.txt":      trips,
		"stop_times.txt": stopTimes,
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"svc_weekday,1,1,1,1,1,0,0,20260101,20261231",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"svc_weekday,20260704,2",
		},
		"fare_attributes.txt": {
			"fare_id,price,currency_type,payment_method,transfers",
			"F12,4.00,USD,1,0",
			"F21,4.00,USD,1,0",
		},
		"fare_rules.txt": {
			"fare_id,origin_id,destination_id",
			"F12,Z1,Z2",
			"F21,Z2,Z1",
		},
		"farezone_attributes.txt": {
			"zone_id,zone_name",
			"Z1,Zone 1",
			"Z2,Zone 2",
		},
	})
}

// Builders for GTFS Realtime fixture feeds. Each Feed call returns a
// marshaled FeedMessage ready for the wire decoder.

func Feed(t testing.TB, timestamp uint64, entities ...*gtfsrt.FeedEntity) []byte {
	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(timestamp),
		},
		Entity: entities,
	}
	data, err := proto.Marshal(msg)
	require.NoError(t, err)
	return data
}

// StopDelay describes one stop_time_update for TripUpdateEntity: a
// stop id with a departure or arrival delay and an optional
// predicted time.
type StopDelay struct {
	StopID    string
	Departure bool
	Delay     int32
	Time      int64
}

func TripUpdateEntity(id, tripID string, tripDelay int32, stops ...StopDelay) *gtfsrt.FeedEntity {
	tu := &gtfsrt.TripUpdate{
		Trip: &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
	}
	if tripDelay != 0 {
		tu.Delay = proto.Int32(tripDelay)
	}

	for _, sd := range stops {
		stu := &gtfsrt.TripUpdate_StopTimeUpdate{}
		if sd.StopID != "" {
			stu.StopId = proto.String(sd.StopID)
		}
		event := &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(sd.Delay)}
		if sd.Time != 0 {
			event.Time = proto.Int64(sd.Time)
		}
		if sd.Departure {
			stu.Departure = event
		} else {
			stu.Arrival = event
		}
		tu.StopTimeUpdate = append(tu.StopTimeUpdate, stu)
	}

	return &gtfsrt.FeedEntity{
		Id:         proto.String(id),
		TripUpdate: tu,
	}
}

func VehicleEntity(id, tripID string, lat, lon, bearing, speed float32) *gtfsrt.FeedEntity {
	pos := &gtfsrt.Position{
		Latitude:  proto.Float32(lat),
		Longitude: proto.Float32(lon),
	}
	if bearing != 0 {
		pos.Bearing = proto.Float32(bearing)
	}
	if speed != 0 {
		pos.Speed = proto.Float32(speed)
	}
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip:     &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
			Position: pos,
		},
	}
}

func AlertEntity(id, header, description string, stopIDs, tripIDs []string) *gtfsrt.FeedEntity {
	alert := &gtfsrt.Alert{
		HeaderText:      translated(header),
		DescriptionText: translated(description),
	}
	for _, stopID := range stopIDs {
		alert.InformedEntity = append(alert.InformedEntity, &gtfsrt.EntitySelector{
			StopId: proto.String(stopID),
		})
	}
	for _, tripID := range tripIDs {
		alert.InformedEntity = append(alert.InformedEntity, &gtfsrt.EntitySelector{
			Trip: &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
		})
	}
	return &gtfsrt.FeedEntity{
		Id:    proto.String(id),
		Alert: alert,
	}
}

func translated(text string) *gtfsrt.TranslatedString {
	return &gtfsrt.TranslatedString{
		Translation: []*gtfsrt.TranslatedString_Translation{
			{Text: proto.String(text), Language: proto.String("en")},
		},
	}
}
