package transit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peninsula.dev/transit"
	"peninsula.dev/transit/model"
	"peninsula.dev/transit/testutil"
)

func validSchedule(t *testing.T) *model.StaticSchedule {
	schedule, err := transit.BuildSchedule(testutil.ValidArchive(t))
	require.NoError(t, err)
	return schedule
}

func TestValidatePasses(t *testing.T) {
	assert.Empty(t, transit.Validate(validSchedule(t), 20260101))
}

func TestValidateMetadata(t *testing.T) {
	s := validSchedule(t)
	s.Meta.Version = ""
	violations := transit.Validate(s, 20260101)
	assert.Contains(t, violations, "metadata has empty version")

	s = validSchedule(t)
	// Calendar ends 20261231; require a year beyond it.
	violations = transit.Validate(s, 20271231)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "calendar ends")
}

func TestValidateMinimumCounts(t *testing.T) {
	s := validSchedule(t)
	s.Trips = s.Trips[:3]
	violations := transit.Validate(s, 20260101)
	require.NotEmpty(t, violations)
	assert.Contains(t, violations[0], "only 3 trips")

	// The two-station fixture fails all three floors.
	small, err := transit.BuildSchedule(testutil.BuildArchive(t, map[string][]string{}))
	require.NoError(t, err)
	violations = transit.Validate(small, 20260101)
	assert.GreaterOrEqual(t, len(violations), 3)
}

func TestValidateReferentialIntegrity(t *testing.T) {
	s := validSchedule(t)
	s.Patterns["p0"] = append([]string{"station_unknown"}, s.Patterns["p0"]...)
	violations := transit.Validate(s, 20260101)
	assert.Contains(t, violations, "pattern p0 references unknown station station_unknown")

	s = validSchedule(t)
	s.Trips[0].PatternID = "p99"
	violations = transit.Validate(s, 20260101)
	assert.Contains(t, violations, "trip 100 references unknown pattern p99")

	s = validSchedule(t)
	s.Trips[0].ServiceID = "svc_unknown"
	violations = transit.Validate(s, 20260101)
	assert.Contains(t, violations, "trip 100 references unknown service svc_unknown")
}

func TestValidateStopTimeLength(t *testing.T) {
	s := validSchedule(t)
	s.Trips[0].StopTimes = s.Trips[0].StopTimes[:4]
	violations := transit.Validate(s, 20260101)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "trip 100 has 4 stop times")
}

func TestValidateStationOrder(t *testing.T) {
	s := validSchedule(t)
	s.Order = nil
	violations := transit.Validate(s, 20260101)
	assert.Contains(t, violations, "ordered station list is empty")

	s = validSchedule(t)
	s.Order = append(s.Order, "station_unknown")
	violations = transit.Validate(s, 20260101)
	assert.Contains(t, violations, "ordered station list contains unknown station station_unknown")
}
