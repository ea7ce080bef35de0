package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string][]string) []byte {
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

// A simple archive with all required tables plus fares.
func fixtureSimple() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_type",
			"local,Local,2",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"weekday,1,1,1,1,1,0,0,20260101,20261231",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"weekday,20260704,2",
		},
		"trips.txt": {
			"route_id,service_id,trip_id,trip_short_name",
			"local,weekday,t1,101",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon,zone_id,location_type,parent_station",
			"s1,Station A Caltrain Station,37.7,-122.4,,1,",
			"s1p,Station A Caltrain Station,37.7,-122.4,Z1,0,s1",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"t1,08:00:00,08:01:00,s1p,1",
		},
		"fare_attributes.txt": {
			"fare_id,price,currency_type,payment_method,transfers",
			"F11,4.00,USD,1,0",
		},
		"fare_rules.txt": {
			"fare_id,origin_id,destination_id",
			"F11,Z1,Z1",
		},
		"farezone_attributes.txt": {
			"zone_id,zone_name",
			"Z1,Zone 1",
		},
	}
}

func TestParseArchive(t *testing.T) {
	archive, err := ParseArchive(buildZip(t, fixtureSimple()))
	require.NoError(t, err)

	require.Len(t, archive.Stops, 2)
	assert.Equal(t, "s1", archive.Stops[0].ID)
	require.Len(t, archive.Routes, 1)
	require.Len(t, archive.Trips, 1)
	assert.Equal(t, "101", archive.Trips[0].ShortName)
	require.Len(t, archive.StopTimes, 1)
	assert.Equal(t, 480, archive.StopTimes[0].Arrival)
	require.Len(t, archive.Calendar, 1)
	assert.Equal(t, 20261231, archive.Calendar[0].End)
	require.Len(t, archive.CalendarDates, 1)
	require.Len(t, archive.FareAttributes, 1)
	require.Len(t, archive.FareRules, 1)
	require.Len(t, archive.Zones, 1)
}

func TestParseArchiveIgnoresExtraFiles(t *testing.T) {
	files := fixtureSimple()
	files["shapes.txt"] = []string{"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence"}
	files["nested/stops.txt"] = files["stops.txt"]

	_, err := ParseArchive(buildZip(t, files))
	assert.NoError(t, err)
}

func TestParseArchiveFaresOptional(t *testing.T) {
	files := fixtureSimple()
	delete(files, "fare_attributes.txt")
	delete(files, "fare_rules.txt")
	delete(files, "farezone_attributes.txt")

	archive, err := ParseArchive(buildZip(t, files))
	require.NoError(t, err)
	assert.Empty(t, archive.FareAttributes)
	assert.Empty(t, archive.FareRules)
	assert.Empty(t, archive.Zones)
}

func TestParseArchiveMissingRequired(t *testing.T) {
	for _, missing := range []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"} {
		t.Run(missing, func(t *testing.T) {
			files := fixtureSimple()
			delete(files, missing)

			_, err := ParseArchive(buildZip(t, files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "missing "+missing)
		})
	}
}

func TestParseArchiveCalendarEitherSuffices(t *testing.T) {
	files := fixtureSimple()
	delete(files, "calendar_dates.txt")
	_, err := ParseArchive(buildZip(t, files))
	assert.NoError(t, err)

	files = fixtureSimple()
	delete(files, "calendar.txt")
	files["trips.txt"] = []string{
		"route_id,service_id,trip_id",
		"local,special,t1",
	}
	files["calendar_dates.txt"] = []string{
		"service_id,date,exception_type",
		"special,20260704,1",
	}
	_, err = ParseArchive(buildZip(t, files))
	assert.NoError(t, err)

	files = fixtureSimple()
	delete(files, "calendar.txt")
	delete(files, "calendar_dates.txt")
	_, err = ParseArchive(buildZip(t, files))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing calendar.txt and calendar_dates.txt")
}

func TestParseArchiveNotAZip(t *testing.T) {
	_, err := ParseArchive([]byte("these are not the bytes you are looking for"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unzipping")
}

func TestParseArchiveBadTable(t *testing.T) {
	files := fixtureSimple()
	files["stop_times.txt"] = []string{
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
		"t1,junk,08:01:00,s1p,1",
	}

	_, err := ParseArchive(buildZip(t, files))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing stop_times.txt")
}
