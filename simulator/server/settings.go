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

package server

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	log "github.com/sirupsen/logrus"
)

// Hold time limits in seconds, matching the device firmware.
const (
	MinHoldTime = 0.1
	MaxHoldTime = 900.0
)

// broadcastFlag pushes a single-setting change under the setter's tag.
// Re-setting a value that didn't change still broadcasts, so clients
// stay converged.
func (s *Simulator) broadcastFlag(tag, field string, value bool) {
	s.broadcast(protocol.NewReply(tag).Set(field, protocol.Flag(value)))
}

// broadcastSetting pushes a one-field settings subobject under the
// setter's tag.
func (s *Simulator) broadcastSetting(tag, field string, value bool) {
	s.broadcast(protocol.NewReply(tag).Set(protocol.FieldSettings,
		map[string]interface{}{field: protocol.Flag(value)}))
}

// flagTag picks the enable or disable command tag for a new value.
func flagTag(on bool, enableTag, disableTag string) string {
	if on {
		return enableTag
	}
	return disableTag
}

// SetPower turns the door power on or off and reports the new value.
func (s *Simulator) SetPower(on bool) bool {
	s.withState(func(st *door.State) { st.Power = on })
	log.Infof("power set to %v", on)
	s.broadcastFlag(flagTag(on, protocol.CmdPowerOn, protocol.CmdPowerOff),
		protocol.FieldPower, on)
	return on
}

// SetInsideEnabled enables or disables the inside sensor.
func (s *Simulator) SetInsideEnabled(on bool) bool {
	s.withState(func(st *door.State) { st.Inside = on })
	log.Infof("inside sensor enabled=%v", on)
	s.broadcastFlag(flagTag(on, protocol.CmdEnableInside, protocol.CmdDisableInside),
		protocol.FieldInside, on)
	return on
}

// SetOutsideEnabled enables or disables the outside sensor.
func (s *Simulator) SetOutsideEnabled(on bool) bool {
	s.withState(func(st *door.State) { st.Outside = on })
	log.Infof("outside sensor enabled=%v", on)
	s.broadcastFlag(flagTag(on, protocol.CmdEnableOutside, protocol.CmdDisableOutside),
		protocol.FieldOutside, on)
	return on
}

// SetAuto turns schedule (timers) mode on or off.
func (s *Simulator) SetAuto(on bool) bool {
	s.withState(func(st *door.State) { st.Auto = on })
	log.Infof("auto mode set to %v", on)
	s.broadcastFlag(flagTag(on, protocol.CmdEnableAuto, protocol.CmdDisableAuto),
		protocol.FieldAuto, on)
	return on
}

// SetSafetyLock engages or releases the outside sensor safety lock.
func (s *Simulator) SetSafetyLock(on bool) bool {
	s.withState(func(st *door.State) { st.SafetyLock = on })
	log.Infof("outside sensor safety lock=%v", on)
	s.broadcastSetting(flagTag(on, protocol.CmdEnableSafetyLock, protocol.CmdDisableSafetyLock),
		protocol.FieldSafetyLock, on)
	return on
}

// SetCmdLockout engages or releases the command lockout.
func (s *Simulator) SetCmdLockout(on bool) bool {
	s.withState(func(st *door.State) { st.CmdLockout = on })
	log.Infof("command lockout=%v", on)
	s.broadcastSetting(flagTag(on, protocol.CmdEnableCmdLockout, protocol.CmdDisableCmdLockout),
		protocol.FieldCmdLockout, on)
	return on
}

// SetAutoretract enables or disables obstruction auto-retract.
func (s *Simulator) SetAutoretract(on bool) bool {
	s.withState(func(st *door.State) { st.Autoretract = on })
	log.Infof("autoretract=%v", on)
	s.broadcastSetting(flagTag(on, protocol.CmdEnableAutoretract, protocol.CmdDisableAutoretract),
		protocol.FieldAutoretract, on)
	return on
}

// TogglePower and friends flip the current value; the control channel
// uses them when no explicit on/off argument is given.
func (s *Simulator) TogglePower() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.Power })
	return s.SetPower(!cur)
}

// ToggleInsideEnabled flips the inside sensor enable.
func (s *Simulator) ToggleInsideEnabled() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.Inside })
	return s.SetInsideEnabled(!cur)
}

// ToggleOutsideEnabled flips the outside sensor enable.
func (s *Simulator) ToggleOutsideEnabled() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.Outside })
	return s.SetOutsideEnabled(!cur)
}

// ToggleAuto flips schedule mode.
func (s *Simulator) ToggleAuto() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.Auto })
	return s.SetAuto(!cur)
}

// ToggleSafetyLock flips the safety lock.
func (s *Simulator) ToggleSafetyLock() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.SafetyLock })
	return s.SetSafetyLock(!cur)
}

// ToggleCmdLockout flips the command lockout.
func (s *Simulator) ToggleCmdLockout() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.CmdLockout })
	return s.SetCmdLockout(!cur)
}

// ToggleAutoretract flips autoretract.
func (s *Simulator) ToggleAutoretract() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.Autoretract })
	return s.SetAutoretract(!cur)
}

// SetHoldTime stores a new hold time in seconds.
func (s *Simulator) SetHoldTime(seconds float64) error {
	if seconds < MinHoldTime || seconds > MaxHoldTime {
		return fmt.Errorf("hold time %.2fs out of range [%.1f, %.1f]", seconds, MinHoldTime, MaxHoldTime)
	}
	s.withState(func(st *door.State) { st.HoldTime = seconds })
	log.Infof("hold time set to %.2fs", seconds)
	s.broadcast(protocol.NewReply(protocol.CmdSetHoldTime).
		Set(protocol.FieldHoldTime, protocol.Centiseconds(seconds)))
	return nil
}

// looksLikePosixTZ spots POSIX TZ strings such as EST5EDT or
// CST6CDT,M3.2.0,M11.1.0: a run of letters followed by a digit or sign.
func looksLikePosixTZ(tz string) bool {
	for i, r := range tz {
		if unicode.IsLetter(r) {
			continue
		}
		return i >= 3 && (unicode.IsDigit(r) || r == '+' || r == '-')
	}
	return false
}

// SetTimezone stores the timezone string. IANA names must resolve in
// the zone database; POSIX TZ strings are kept opaque and schedule math
// degrades to UTC for them.
func (s *Simulator) SetTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("timezone must not be empty")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		if !looksLikePosixTZ(tz) {
			return fmt.Errorf("unknown timezone %q", tz)
		}
		log.Warningf("POSIX TZ %q accepted, schedule math falls back to UTC", tz)
	}
	s.withState(func(st *door.State) { st.Timezone = tz })
	log.Infof("timezone set to %s", tz)
	s.broadcast(protocol.NewReply(protocol.CmdSetTimezone).Set(protocol.FieldTimezone, tz))
	return nil
}

// SetNotification flips one notification toggle by its wire field name.
func (s *Simulator) SetNotification(field string, on bool) error {
	var bad bool
	s.withState(func(st *door.State) {
		switch field {
		case protocol.FieldNotifyInsideOn:
			st.NotifyInsideOn = on
		case protocol.FieldNotifyInsideOff:
			st.NotifyInsideOff = on
		case protocol.FieldNotifyOutsideOn:
			st.NotifyOutsideOn = on
		case protocol.FieldNotifyOutsideOff:
			st.NotifyOutsideOff = on
		case protocol.FieldNotifyLowBattery:
			st.NotifyLowBattery = on
		default:
			bad = true
		}
	})
	if bad {
		return fmt.Errorf("unknown notification %q", field)
	}
	log.Infof("notification %s=%v", field, on)
	var n map[string]interface{}
	s.withState(func(st *door.State) { n = st.Notifications() })
	s.broadcast(protocol.NewReply(protocol.CmdSetNotifications).
		Set(protocol.FieldNotifications, n))
	return nil
}

// SetSchedule stores one schedule entry, replacing any entry with the
// same index, and pushes the stored entry.
func (s *Simulator) SetSchedule(sched *door.Schedule) error {
	if sched.Index < 0 {
		return fmt.Errorf("schedule index %d must not be negative", sched.Index)
	}
	s.withState(func(st *door.State) { st.Schedules[sched.Index] = sched })
	log.Infof("schedule %d stored: %s", sched.Index, describeSchedule(sched))
	s.broadcast(protocol.NewReply(protocol.CmdSetSchedule).
		Set(protocol.FieldSchedule, sched.ToWire()))
	return nil
}

// DeleteSchedule drops an entry by index. Deleting a missing index is
// a no-op success; the delete broadcast goes out either way.
func (s *Simulator) DeleteSchedule(index int) {
	s.withState(func(st *door.State) { delete(st.Schedules, index) })
	log.Infof("schedule %d deleted", index)
	s.broadcast(protocol.NewReply(protocol.CmdDeleteSchedule).
		Set(protocol.FieldIndex, index))
}

// Schedule returns a copy of one entry.
func (s *Simulator) Schedule(index int) (door.Schedule, bool) {
	var out door.Schedule
	var found bool
	s.withState(func(st *door.State) {
		if sched, ok := st.Schedules[index]; ok {
			out = *sched
			found = true
		}
	})
	return out, found
}

// Schedules returns copies of every entry, ordered by index.
func (s *Simulator) Schedules() []door.Schedule {
	var out []door.Schedule
	s.withState(func(st *door.State) {
		indexes := make([]int, 0, len(st.Schedules))
		for idx := range st.Schedules {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)
		for _, idx := range indexes {
			out = append(out, *st.Schedules[idx])
		}
	})
	return out
}

// NextScheduleIndex returns the lowest free schedule slot.
func (s *Simulator) NextScheduleIndex() int {
	var idx int
	s.withState(func(st *door.State) { idx = st.NextScheduleIndex() })
	return idx
}

// Notification reads one notification toggle by its wire field name.
// Unknown fields read as false.
func (s *Simulator) Notification(field string) bool {
	var on bool
	s.withState(func(st *door.State) {
		switch field {
		case protocol.FieldNotifyInsideOn:
			on = st.NotifyInsideOn
		case protocol.FieldNotifyInsideOff:
			on = st.NotifyInsideOff
		case protocol.FieldNotifyOutsideOn:
			on = st.NotifyOutsideOn
		case protocol.FieldNotifyOutsideOff:
			on = st.NotifyOutsideOff
		case protocol.FieldNotifyLowBattery:
			on = st.NotifyLowBattery
		}
	})
	return on
}

func describeSchedule(sched *door.Schedule) string {
	sensors := []string{}
	if sched.Inside {
		sensors = append(sensors, "inside")
	}
	if sched.Outside {
		sensors = append(sensors, "outside")
	}
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d enabled=%v",
		strings.Join(sensors, "+"), sched.StartHour, sched.StartMin,
		sched.EndHour, sched.EndMin, sched.Enabled)
}
