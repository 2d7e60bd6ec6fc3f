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
	"encoding/json"
	"fmt"
	"time"

	"github.com/facebook/petdoor/protocol"
)

// Schedule is one sensor activation window. When auto mode is on and at
// least one schedule exists, a sensor only triggers the door inside a
// window that covers it.
type Schedule struct {
	Index   int
	Enabled bool
	// Days flags the active weekdays, indexed Sunday through Saturday.
	// This matches both the wire layout and Go's time.Weekday.
	Days [7]int
	// Inside and Outside select which sensor(s) the entry covers.
	Inside  bool
	Outside bool
	// Window bounds in local wall-clock time. A start after the end
	// wraps across midnight.
	StartHour, StartMin int
	EndHour, EndMin     int
}

// AllDays is the day mask with every weekday active.
var AllDays = [7]int{1, 1, 1, 1, 1, 1, 1}

// NewSchedule returns an entry with the device defaults: enabled, every
// day, 06:00 to 22:00.
func NewSchedule(index int) *Schedule {
	return &Schedule{
		Index:     index,
		Enabled:   true,
		Days:      AllDays,
		StartHour: 6,
		EndHour:   22,
	}
}

// ActiveOn reports whether the entry applies on the given weekday.
func (s *Schedule) ActiveOn(day time.Weekday) bool {
	return s.Enabled && s.Days[int(day)] != 0
}

// AllowsAt reports whether the entry authorizes a trigger of sensor at
// the local time t. The window is inclusive of start, exclusive of end.
func (s *Schedule) AllowsAt(sensor Sensor, t time.Time) bool {
	switch sensor {
	case SensorInside:
		if !s.Inside {
			return false
		}
	case SensorOutside:
		if !s.Outside {
			return false
		}
	}
	if !s.ActiveOn(t.Weekday()) {
		return false
	}
	cur := t.Hour()*60 + t.Minute()
	start := s.StartHour*60 + s.StartMin
	end := s.EndHour*60 + s.EndMin
	if start <= end {
		return cur >= start && cur < end
	}
	return cur >= start || cur < end
}

// wireTime is the {"hour":H,"min":M} object schedule entries carry.
type wireTime struct {
	Hour int `json:"hour"`
	Min  int `json:"min"`
}

// ToWire renders the entry in its wire shape. Both sensors always carry
// start/end time objects; the unused sensor gets zeros.
func (s *Schedule) ToWire() map[string]interface{} {
	days := make([]int, len(s.Days))
	copy(days, s.Days[:])
	out := map[string]interface{}{
		protocol.FieldIndex:        s.Index,
		protocol.FieldEnabled:      protocol.Flag(s.Enabled),
		protocol.FieldDaysOfWeek:   days,
		protocol.FieldInside:       s.Inside,
		protocol.FieldOutside:      s.Outside,
		protocol.FieldInStartTime:  wireTime{},
		protocol.FieldInEndTime:    wireTime{},
		protocol.FieldOutStartTime: wireTime{},
		protocol.FieldOutEndTime:   wireTime{},
	}
	if s.Inside {
		out[protocol.FieldInStartTime] = wireTime{Hour: s.StartHour, Min: s.StartMin}
		out[protocol.FieldInEndTime] = wireTime{Hour: s.EndHour, Min: s.EndMin}
	}
	if s.Outside {
		out[protocol.FieldOutStartTime] = wireTime{Hour: s.StartHour, Min: s.StartMin}
		out[protocol.FieldOutEndTime] = wireTime{Hour: s.EndHour, Min: s.EndMin}
	}
	return out
}

// wireSchedule mirrors the tolerant inbound shape: enabled may be a
// "1"/"0" string or a boolean, daysOfWeek either a 7-element list or a
// legacy bitmask with bit i set for day i counted from Sunday.
type wireSchedule struct {
	Index        int             `json:"index"`
	Enabled      json.RawMessage `json:"enabled"`
	DaysOfWeek   json.RawMessage `json:"daysOfWeek"`
	Inside       bool            `json:"inside"`
	Outside      bool            `json:"outside"`
	InStartTime  *wireTime       `json:"inStartTime"`
	InEndTime    *wireTime       `json:"inEndTime"`
	OutStartTime *wireTime       `json:"outStartTime"`
	OutEndTime   *wireTime       `json:"outEndTime"`
}

// ScheduleFromWire parses a wire schedule object.
func ScheduleFromWire(data []byte) (*Schedule, error) {
	var w wireSchedule
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}
	s := NewSchedule(w.Index)
	s.Inside = w.Inside
	s.Outside = w.Outside

	if w.Enabled != nil {
		var flag string
		var b bool
		switch {
		case json.Unmarshal(w.Enabled, &flag) == nil:
			s.Enabled = protocol.ParseFlag(flag)
		case json.Unmarshal(w.Enabled, &b) == nil:
			s.Enabled = b
		default:
			return nil, fmt.Errorf("schedule enabled: unsupported value %s", w.Enabled)
		}
	}

	if w.DaysOfWeek != nil {
		var list []int
		var mask int
		switch {
		case json.Unmarshal(w.DaysOfWeek, &list) == nil:
			if len(list) != len(s.Days) {
				return nil, fmt.Errorf("schedule daysOfWeek: want %d entries, got %d", len(s.Days), len(list))
			}
			copy(s.Days[:], list)
		case json.Unmarshal(w.DaysOfWeek, &mask) == nil:
			for i := range s.Days {
				s.Days[i] = (mask >> i) & 1
			}
		default:
			return nil, fmt.Errorf("schedule daysOfWeek: unsupported value %s", w.DaysOfWeek)
		}
	}

	// The window comes from whichever sensor the entry covers; entries
	// for both sensors carry the same window twice.
	start, end := w.InStartTime, w.InEndTime
	if !w.Inside && w.Outside {
		start, end = w.OutStartTime, w.OutEndTime
	}
	if start != nil {
		s.StartHour, s.StartMin = start.Hour, start.Min
	}
	if end != nil {
		s.EndHour, s.EndMin = end.Hour, end.Min
	}
	return s, nil
}
