/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package door

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tuesday Jan 2 2024, 10:30 UTC.
var tuesdayMorning = time.Date(2024, time.January, 2, 10, 30, 0, 0, time.UTC)

func TestScheduleDefaults(t *testing.T) {
	s := NewSchedule(3)
	require.Equal(t, 3, s.Index)
	require.True(t, s.Enabled)
	require.Equal(t, AllDays, s.Days)
	require.Equal(t, 6, s.StartHour)
	require.Equal(t, 0, s.StartMin)
	require.Equal(t, 22, s.EndHour)
	require.Equal(t, 0, s.EndMin)
}

func TestScheduleAllowsAtSensorMatch(t *testing.T) {
	s := NewSchedule(0)
	s.Inside = true
	require.True(t, s.AllowsAt(SensorInside, tuesdayMorning))
	require.False(t, s.AllowsAt(SensorOutside, tuesdayMorning))

	s.Inside = false
	s.Outside = true
	require.False(t, s.AllowsAt(SensorInside, tuesdayMorning))
	require.True(t, s.AllowsAt(SensorOutside, tuesdayMorning))
}

func TestScheduleAllowsAtDayMask(t *testing.T) {
	s := NewSchedule(0)
	s.Inside = true
	// Mask out Tuesday (index 2, Sunday-based).
	s.Days[2] = 0
	require.False(t, s.AllowsAt(SensorInside, tuesdayMorning))
	s.Days[2] = 1
	require.True(t, s.AllowsAt(SensorInside, tuesdayMorning))

	s.Enabled = false
	require.False(t, s.AllowsAt(SensorInside, tuesdayMorning))
}

func TestScheduleAllowsAtWindow(t *testing.T) {
	s := NewSchedule(0)
	s.Inside = true
	s.StartHour, s.StartMin = 10, 30
	s.EndHour, s.EndMin = 11, 0
	// Start bound is inclusive.
	require.True(t, s.AllowsAt(SensorInside, tuesdayMorning))
	// End bound is exclusive.
	s.EndHour, s.EndMin = 10, 30
	s.StartHour, s.StartMin = 9, 0
	require.False(t, s.AllowsAt(SensorInside, tuesdayMorning))
}

func TestScheduleAllowsAtMidnightWrap(t *testing.T) {
	s := NewSchedule(0)
	s.Inside = true
	s.StartHour, s.StartMin = 22, 0
	s.EndHour, s.EndMin = 6, 0

	night := time.Date(2024, time.January, 2, 23, 15, 0, 0, time.UTC)
	early := time.Date(2024, time.January, 2, 3, 0, 0, 0, time.UTC)
	midday := time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC)
	require.True(t, s.AllowsAt(SensorInside, night))
	require.True(t, s.AllowsAt(SensorInside, early))
	require.False(t, s.AllowsAt(SensorInside, midday))
}

func TestScheduleToWire(t *testing.T) {
	s := NewSchedule(1)
	s.Inside = true
	s.StartHour, s.StartMin = 8, 15
	s.EndHour, s.EndMin = 20, 45

	w := s.ToWire()
	require.Equal(t, 1, w["index"])
	require.Equal(t, "1", w["enabled"])
	require.Equal(t, []int{1, 1, 1, 1, 1, 1, 1}, w["daysOfWeek"])
	require.Equal(t, true, w["inside"])
	require.Equal(t, false, w["outside"])
	require.Equal(t, wireTime{Hour: 8, Min: 15}, w["inStartTime"])
	require.Equal(t, wireTime{Hour: 20, Min: 45}, w["inEndTime"])
	// The unused sensor still carries zeroed time objects.
	require.Equal(t, wireTime{}, w["outStartTime"])
	require.Equal(t, wireTime{}, w["outEndTime"])
}

func TestScheduleFromWire(t *testing.T) {
	data := []byte(`{
		"index": 2,
		"enabled": "1",
		"daysOfWeek": [0,1,1,1,1,1,0],
		"inside": true,
		"outside": false,
		"inStartTime": {"hour": 7, "min": 30},
		"inEndTime": {"hour": 19, "min": 0},
		"outStartTime": {"hour": 0, "min": 0},
		"outEndTime": {"hour": 0, "min": 0}
	}`)
	s, err := ScheduleFromWire(data)
	require.NoError(t, err)
	require.Equal(t, 2, s.Index)
	require.True(t, s.Enabled)
	require.Equal(t, [7]int{0, 1, 1, 1, 1, 1, 0}, s.Days)
	require.True(t, s.Inside)
	require.False(t, s.Outside)
	require.Equal(t, 7, s.StartHour)
	require.Equal(t, 30, s.StartMin)
	require.Equal(t, 19, s.EndHour)
	require.Equal(t, 0, s.EndMin)
}

func TestScheduleFromWireBooleanEnabled(t *testing.T) {
	s, err := ScheduleFromWire([]byte(`{"index": 0, "enabled": false, "inside": true}`))
	require.NoError(t, err)
	require.False(t, s.Enabled)
}

func TestScheduleFromWireLegacyBitmask(t *testing.T) {
	// Bit i covers day i counted from Sunday: 0b0111110 is Mon-Fri.
	s, err := ScheduleFromWire([]byte(`{"index": 0, "daysOfWeek": 62, "outside": true,
		"outStartTime": {"hour": 9, "min": 0}, "outEndTime": {"hour": 17, "min": 0}}`))
	require.NoError(t, err)
	require.Equal(t, [7]int{0, 1, 1, 1, 1, 1, 0}, s.Days)
	require.Equal(t, 9, s.StartHour)
	require.Equal(t, 17, s.EndHour)
}

func TestScheduleFromWireDefaults(t *testing.T) {
	// Absent fields keep the device defaults.
	s, err := ScheduleFromWire([]byte(`{"index": 4, "inside": true}`))
	require.NoError(t, err)
	require.True(t, s.Enabled)
	require.Equal(t, AllDays, s.Days)
	require.Equal(t, 6, s.StartHour)
	require.Equal(t, 22, s.EndHour)
}

func TestScheduleFromWireBadInput(t *testing.T) {
	_, err := ScheduleFromWire([]byte(`{"index": 0, "daysOfWeek": [1,1]}`))
	require.Error(t, err)

	_, err = ScheduleFromWire([]byte(`{"index": 0, "enabled": {"nested": true}}`))
	require.Error(t, err)

	_, err = ScheduleFromWire([]byte(`not json`))
	require.Error(t, err)
}
