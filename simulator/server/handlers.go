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

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
)

// handlerFunc serves one wire command. The reply comes back with
// msgId not yet echoed; the dispatcher takes care of that.
type handlerFunc func(s *Simulator, req *protocol.Request) protocol.Reply

// handlers is the static command registry, built once at load.
var handlers = map[string]handlerFunc{
	protocol.CmdOpen:        handleOpen,
	protocol.CmdOpenAndHold: handleOpenAndHold,
	protocol.CmdClose:       handleClose,

	protocol.CmdGetDoorStatus:    handleGetDoorStatus,
	protocol.CmdGetSettings:      handleGetSettings,
	protocol.CmdGetSensors:       handleGetSensors,
	protocol.CmdGetPower:         handleGetPower,
	protocol.CmdGetAuto:          handleGetAuto,
	protocol.CmdGetDoorBattery:   handleGetDoorBattery,
	protocol.CmdGetHwInfo:        handleGetHwInfo,
	protocol.CmdGetDoorOpenStats: handleGetDoorOpenStats,
	protocol.CmdGetHoldTime:      handleGetHoldTime,
	protocol.CmdGetTimezone:      handleGetTimezone,
	protocol.CmdGetNotifications: handleGetNotifications,

	protocol.CmdPowerOn:           makeFlagSetter(protocol.FieldPower, true, (*Simulator).SetPower),
	protocol.CmdPowerOff:          makeFlagSetter(protocol.FieldPower, false, (*Simulator).SetPower),
	protocol.CmdEnableInside:      makeFlagSetter(protocol.FieldInside, true, (*Simulator).SetInsideEnabled),
	protocol.CmdDisableInside:     makeFlagSetter(protocol.FieldInside, false, (*Simulator).SetInsideEnabled),
	protocol.CmdEnableOutside:     makeFlagSetter(protocol.FieldOutside, true, (*Simulator).SetOutsideEnabled),
	protocol.CmdDisableOutside:    makeFlagSetter(protocol.FieldOutside, false, (*Simulator).SetOutsideEnabled),
	protocol.CmdEnableAuto:        makeFlagSetter(protocol.FieldAuto, true, (*Simulator).SetAuto),
	protocol.CmdDisableAuto:       makeFlagSetter(protocol.FieldAuto, false, (*Simulator).SetAuto),
	protocol.CmdEnableSafetyLock:  makeFlagSetter(protocol.FieldSafetyLock, true, (*Simulator).SetSafetyLock),
	protocol.CmdDisableSafetyLock: makeFlagSetter(protocol.FieldSafetyLock, false, (*Simulator).SetSafetyLock),
	protocol.CmdEnableCmdLockout:  makeFlagSetter(protocol.FieldCmdLockout, true, (*Simulator).SetCmdLockout),
	protocol.CmdDisableCmdLockout: makeFlagSetter(protocol.FieldCmdLockout, false, (*Simulator).SetCmdLockout),
	protocol.CmdEnableAutoretract: makeFlagSetter(protocol.FieldAutoretract, true, (*Simulator).SetAutoretract),
	protocol.CmdDisableAutoretract: makeFlagSetter(
		protocol.FieldAutoretract, false, (*Simulator).SetAutoretract),

	protocol.CmdSetHoldTime:      handleSetHoldTime,
	protocol.CmdSetTimezone:      handleSetTimezone,
	protocol.CmdSetNotifications: handleSetNotifications,

	protocol.CmdGetScheduleList: handleGetScheduleList,
	protocol.CmdGetSchedule:     handleGetSchedule,
	protocol.CmdSetSchedule:     handleSetSchedule,
	protocol.CmdDeleteSchedule:  handleDeleteSchedule,
}

// makeFlagSetter builds a handler for one half of an ENABLE/DISABLE
// command pair. The reply carries the new value under its wire field.
func makeFlagSetter(field string, value bool, set func(*Simulator, bool) bool) handlerFunc {
	return func(s *Simulator, req *protocol.Request) protocol.Reply {
		set(s, value)
		return protocol.NewReply(req.Cmd).Set(field, protocol.Flag(value))
	}
}

func handleOpen(s *Simulator, req *protocol.Request) protocol.Reply {
	if err := s.Open(false); err != nil {
		return protocol.NewReply(req.Cmd).Failure(err.Error())
	}
	return protocol.NewReply(req.Cmd)
}

func handleOpenAndHold(s *Simulator, req *protocol.Request) protocol.Reply {
	if err := s.Open(true); err != nil {
		return protocol.NewReply(req.Cmd).Failure(err.Error())
	}
	return protocol.NewReply(req.Cmd)
}

func handleClose(s *Simulator, req *protocol.Request) protocol.Reply {
	if err := s.Close(); err != nil {
		return protocol.NewReply(req.Cmd).Failure(err.Error())
	}
	return protocol.NewReply(req.Cmd)
}

func handleGetDoorStatus(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldDoorStatus, st.Status.String())
	})
	return r
}

func handleGetSettings(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldSettings, st.Settings())
	})
	return r
}

func handleGetSensors(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldInside, protocol.Flag(st.Inside))
		r.Set(protocol.FieldOutside, protocol.Flag(st.Outside))
	})
	return r
}

func handleGetPower(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldPower, protocol.Flag(st.Power))
	})
	return r
}

func handleGetAuto(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldAuto, protocol.Flag(st.Auto))
	})
	return r
}

func handleGetDoorBattery(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldBatteryPercent, st.WireBatteryPercent())
		r.Set(protocol.FieldBatteryPresent, protocol.Flag(st.BatteryPresent))
		r.Set(protocol.FieldACPresent, protocol.Flag(st.ACPresent))
	})
	return r
}

func handleGetHwInfo(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldFwInfo, st.FirmwareInfo())
	})
	return r
}

func handleGetDoorOpenStats(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldTotalOpenCycles, st.TotalOpenCycles)
		r.Set(protocol.FieldTotalAutoRetracts, st.TotalAutoRetracts)
	})
	return r
}

func handleGetHoldTime(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldHoldTime, protocol.Centiseconds(st.HoldTime))
	})
	return r
}

func handleSetHoldTime(s *Simulator, req *protocol.Request) protocol.Reply {
	cs, ok := req.IntField(protocol.FieldHoldTime)
	if !ok {
		return protocol.NewReply(req.Cmd).Failure("holdTime (centiseconds) is required")
	}
	if err := s.SetHoldTime(protocol.Seconds(cs)); err != nil {
		return protocol.NewReply(req.Cmd).Failure(fmt.Sprintf("holdTime: %v", err))
	}
	return protocol.NewReply(req.Cmd).Set(protocol.FieldHoldTime, cs)
}

func handleGetTimezone(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldTimezone, st.Timezone)
	})
	return r
}

func handleSetTimezone(s *Simulator, req *protocol.Request) protocol.Reply {
	tz, ok := req.StringField(protocol.FieldTimezone)
	if !ok {
		return protocol.NewReply(req.Cmd).Failure("tz is required")
	}
	if err := s.SetTimezone(tz); err != nil {
		return protocol.NewReply(req.Cmd).Failure(fmt.Sprintf("tz: %v", err))
	}
	return protocol.NewReply(req.Cmd).Set(protocol.FieldTimezone, tz)
}

func handleGetNotifications(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldNotifications, st.Notifications())
	})
	return r
}

// handleSetNotifications accepts partial updates: only the flags
// present in the payload change.
func handleSetNotifications(s *Simulator, req *protocol.Request) protocol.Reply {
	fields := []string{
		protocol.FieldNotifyInsideOn,
		protocol.FieldNotifyInsideOff,
		protocol.FieldNotifyOutsideOn,
		protocol.FieldNotifyOutsideOff,
		protocol.FieldNotifyLowBattery,
	}
	touched := false
	for _, field := range fields {
		flag, ok := req.StringField(field)
		if !ok {
			continue
		}
		touched = true
		if err := s.SetNotification(field, protocol.ParseFlag(flag)); err != nil {
			return protocol.NewReply(req.Cmd).Failure(err.Error())
		}
	}
	if !touched {
		return protocol.NewReply(req.Cmd).Failure("no notification flags in payload")
	}
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldNotifications, st.Notifications())
	})
	return r
}

func handleGetScheduleList(s *Simulator, req *protocol.Request) protocol.Reply {
	r := protocol.NewReply(req.Cmd)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldSchedules, st.ScheduleList())
	})
	return r
}

func handleGetSchedule(s *Simulator, req *protocol.Request) protocol.Reply {
	index, ok := req.IntField(protocol.FieldIndex)
	if !ok {
		return protocol.NewReply(req.Cmd).Failure("index is required")
	}
	sched, found := s.Schedule(index)
	if !found {
		return protocol.NewReply(req.Cmd).Failure(fmt.Sprintf("no schedule at index %d", index))
	}
	return protocol.NewReply(req.Cmd).Set(protocol.FieldSchedule, sched.ToWire())
}

func handleSetSchedule(s *Simulator, req *protocol.Request) protocol.Reply {
	sched, err := door.ScheduleFromWire(req.Raw)
	if err != nil {
		return protocol.NewReply(req.Cmd).Failure(err.Error())
	}
	if err := s.SetSchedule(sched); err != nil {
		return protocol.NewReply(req.Cmd).Failure(err.Error())
	}
	return protocol.NewReply(req.Cmd).Set(protocol.FieldSchedule, sched.ToWire())
}

func handleDeleteSchedule(s *Simulator, req *protocol.Request) protocol.Reply {
	index, ok := req.IntField(protocol.FieldIndex)
	if !ok {
		return protocol.NewReply(req.Cmd).Failure("index is required")
	}
	s.DeleteSchedule(index)
	return protocol.NewReply(req.Cmd).Set(protocol.FieldIndex, index)
}
