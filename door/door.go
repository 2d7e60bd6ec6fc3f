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

/*
Package door models a Power Pet Door appliance: the panel position state
machine, sensor and power flags, battery, notification toggles and
per-sensor schedules. Everything here is plain data and pure logic;
locking and timers belong to the simulator that owns the State.
*/
package door

import (
	"fmt"
)

// Status is the position of the door panel within its motion cycle.
type Status int

// Door phases in the order a normal open-then-close cycle visits them.
const (
	StatusClosed Status = iota
	StatusRising
	StatusSlowing
	StatusHolding
	StatusKeepup
	StatusClosingTopOpen
	StatusClosingMidOpen
)

var statusToString = map[Status]string{
	StatusClosed:         "CLOSED",
	StatusRising:         "RISING",
	StatusSlowing:        "SLOWING",
	StatusHolding:        "HOLDING",
	StatusKeepup:         "KEEPUP",
	StatusClosingTopOpen: "CLOSING_TOP_OPEN",
	StatusClosingMidOpen: "CLOSING_MID_OPEN",
}

func (s Status) String() string {
	str, found := statusToString[s]
	if !found {
		return "UNSUPPORTED VALUE"
	}
	return str
}

// StatusFromString maps a wire phase name back to a Status.
func StatusFromString(s string) (Status, error) {
	for status, str := range statusToString {
		if str == s {
			return status, nil
		}
	}
	return StatusClosed, fmt.Errorf("unknown door status %q", s)
}

// Opening reports whether the panel is travelling upwards.
func (s Status) Opening() bool {
	return s == StatusRising || s == StatusSlowing
}

// Closing reports whether the panel is travelling downwards.
func (s Status) Closing() bool {
	return s == StatusClosingTopOpen || s == StatusClosingMidOpen
}

// Open reports whether the panel is parked at the top.
func (s Status) Open() bool {
	return s == StatusHolding || s == StatusKeepup
}

// Moving reports whether the panel is between endpoints.
func (s Status) Moving() bool {
	return s.Opening() || s.Closing()
}

// Sensor identifies one of the two proximity sensors.
type Sensor int

const (
	SensorInside Sensor = iota
	SensorOutside
)

var sensorToString = map[Sensor]string{
	SensorInside:  "inside",
	SensorOutside: "outside",
}

func (s Sensor) String() string {
	str, found := sensorToString[s]
	if !found {
		return "UNSUPPORTED VALUE"
	}
	return str
}

// SensorFromString maps "inside"/"outside" back to a Sensor.
func SensorFromString(s string) (Sensor, error) {
	for sensor, str := range sensorToString {
		if str == s {
			return sensor, nil
		}
	}
	return SensorInside, fmt.Errorf("unknown sensor %q", s)
}
