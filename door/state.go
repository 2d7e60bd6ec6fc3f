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
	"sort"
	"time"

	"github.com/facebook/petdoor/protocol"
)

// State is the complete mutable state of one simulated door. It carries
// no lock of its own; the simulator serializes access.
type State struct {
	Status Status

	// Settings toggles mirrored to clients.
	Power       bool
	Inside      bool // inside sensor enabled
	Outside     bool // outside sensor enabled
	Auto        bool // schedule (timers) mode
	Autoretract bool
	SafetyLock  bool
	CmdLockout  bool

	// Live sensor detection flags.
	InsideSensorActive  bool
	OutsideSensorActive bool

	// Battery model. Percent is kept as a float so sub-percent drift
	// accumulates between broadcasts; the wire only ever sees the
	// integer part.
	BatteryPercent float64
	BatteryPresent bool
	ACPresent      bool

	// Remaining settings.
	Timezone                  string
	HoldTime                  float64 // seconds
	SensorTriggerVoltage      int
	SleepSensorTriggerVoltage int

	// Counters.
	TotalOpenCycles   int
	TotalAutoRetracts int

	// Identity.
	FwMajor, FwMinor, FwPatch int
	HwVersion, HwRevision     int

	// Notification toggles.
	NotifyInsideOn   bool
	NotifyInsideOff  bool
	NotifyOutsideOn  bool
	NotifyOutsideOff bool
	NotifyLowBattery bool

	// Schedules keyed by their index.
	Schedules map[int]*Schedule

	Timing  Timing
	Battery BatteryConfig
}

// NewState returns the factory defaults the real device boots with.
func NewState() *State {
	return &State{
		Status:                    StatusClosed,
		Power:                     true,
		Inside:                    true,
		Outside:                   true,
		Auto:                      true,
		Autoretract:               true,
		BatteryPercent:            85,
		BatteryPresent:            true,
		ACPresent:                 true,
		Timezone:                  "America/New_York",
		HoldTime:                  10,
		SensorTriggerVoltage:      100,
		SleepSensorTriggerVoltage: 50,
		TotalOpenCycles:           1234,
		TotalAutoRetracts:         56,
		FwMajor:                   1,
		FwMinor:                   2,
		FwPatch:                   3,
		HwVersion:                 2,
		HwRevision:                0,
		NotifyInsideOn:            true,
		NotifyOutsideOn:           true,
		NotifyLowBattery:          true,
		Schedules:                 map[int]*Schedule{},
		Timing:                    DefaultTiming(),
		Battery:                   DefaultBatteryConfig(),
	}
}

// Settings renders the full settings object as it travels inside
// GET_SETTINGS replies and broadcasts. Hold time goes out in
// centiseconds.
func (s *State) Settings() map[string]interface{} {
	return map[string]interface{}{
		protocol.FieldPower:                     protocol.Flag(s.Power),
		protocol.FieldInside:                    protocol.Flag(s.Inside),
		protocol.FieldOutside:                   protocol.Flag(s.Outside),
		protocol.FieldAuto:                      protocol.Flag(s.Auto),
		protocol.FieldSafetyLock:                protocol.Flag(s.SafetyLock),
		protocol.FieldCmdLockout:                protocol.Flag(s.CmdLockout),
		protocol.FieldAutoretract:               protocol.Flag(s.Autoretract),
		protocol.FieldTimezone:                  s.Timezone,
		protocol.FieldHoldOpenTime:              protocol.Centiseconds(s.HoldTime),
		protocol.FieldSensorTriggerVoltage:      s.SensorTriggerVoltage,
		protocol.FieldSleepSensorTriggerVoltage: s.SleepSensorTriggerVoltage,
	}
}

// Notifications renders the notification toggles object.
func (s *State) Notifications() map[string]interface{} {
	return map[string]interface{}{
		protocol.FieldNotifyInsideOn:   protocol.Flag(s.NotifyInsideOn),
		protocol.FieldNotifyInsideOff:  protocol.Flag(s.NotifyInsideOff),
		protocol.FieldNotifyOutsideOn:  protocol.Flag(s.NotifyOutsideOn),
		protocol.FieldNotifyOutsideOff: protocol.Flag(s.NotifyOutsideOff),
		protocol.FieldNotifyLowBattery: protocol.Flag(s.NotifyLowBattery),
	}
}

// FirmwareInfo renders the fwInfo object of GET_HW_INFO.
func (s *State) FirmwareInfo() map[string]interface{} {
	return map[string]interface{}{
		protocol.FieldFwMajor:    s.FwMajor,
		protocol.FieldFwMinor:    s.FwMinor,
		protocol.FieldFwPatch:    s.FwPatch,
		protocol.FieldHwVersion:  s.HwVersion,
		protocol.FieldHwRevision: s.HwRevision,
	}
}

// ScheduleList renders every schedule in wire shape, ordered by index.
func (s *State) ScheduleList() []map[string]interface{} {
	indexes := make([]int, 0, len(s.Schedules))
	for idx := range s.Schedules {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	out := make([]map[string]interface{}, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, s.Schedules[idx].ToWire())
	}
	return out
}

// NextScheduleIndex returns the lowest unused schedule index.
func (s *State) NextScheduleIndex() int {
	idx := 0
	for {
		if _, taken := s.Schedules[idx]; !taken {
			return idx
		}
		idx++
	}
}

// WireBatteryPercent is the integer percent reported to clients; a
// missing battery always reads zero.
func (s *State) WireBatteryPercent() int {
	if !s.BatteryPresent {
		return 0
	}
	return int(s.BatteryPercent)
}

// SensorBlockingClose reports whether an active sensor currently keeps
// the door from closing. A sensor blocks only while it is enabled, not
// overridden by the safety lock (outside only) and the command lockout
// is off.
func (s *State) SensorBlockingClose() bool {
	if s.CmdLockout {
		return false
	}
	if s.InsideSensorActive && s.Inside {
		return true
	}
	if s.OutsideSensorActive && s.Outside && !s.SafetyLock {
		return true
	}
	return false
}

// Location resolves the configured timezone for schedule math. POSIX TZ
// strings and unknown names fall back to UTC.
func (s *State) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ScheduleAllows reports whether schedule enforcement permits a trigger
// of sensor at the given instant. With auto off, or no schedules
// configured, every trigger is allowed.
func (s *State) ScheduleAllows(sensor Sensor, now time.Time) bool {
	if !s.Auto || len(s.Schedules) == 0 {
		return true
	}
	local := now.In(s.Location())
	for _, sched := range s.Schedules {
		if sched.AllowsAt(sensor, local) {
			return true
		}
	}
	return false
}

// TriggerAllowed applies the full gating chain for a sensor trigger.
// The returned reason names the first gate that denied it and feeds the
// simulator's log line.
func (s *State) TriggerAllowed(sensor Sensor, now time.Time) (bool, string) {
	if !s.Power {
		return false, "power OFF"
	}
	if s.CmdLockout {
		return false, "command lockout"
	}
	switch sensor {
	case SensorInside:
		if !s.Inside {
			return false, "disabled"
		}
	case SensorOutside:
		if !s.Outside {
			return false, "disabled"
		}
		if s.SafetyLock {
			return false, "safety lock"
		}
	}
	if !s.ScheduleAllows(sensor, now) {
		return false, "outside schedule"
	}
	return true, ""
}
