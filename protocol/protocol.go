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
Package protocol implements the JSON wire protocol spoken by the
Power Pet Door appliance on TCP port 3000: concatenated JSON objects
with no delimiter or length prefix, one command or reply per object.

All references throughout the code relate to the traffic of the real
device as observed by its phone app and the Home Assistant integration.
*/
package protocol

import (
	"math"
)

// Port is the TCP port the door listens on.
const Port = 3000

// Carrier and envelope fields.
const (
	FieldCmd       = "CMD"
	FieldConfig    = "CONFIG"
	FieldPing      = "PING"
	FieldPong      = "PONG"
	FieldSuccess   = "success"
	FieldDirection = "direction"
	FieldMsgID     = "msgId"
	FieldReason    = "reason"
)

// DirectionDoorToPhone marks every message originating from the door.
const DirectionDoorToPhone = "door-to-phone"

// Success values are strings on the wire, not JSON booleans.
const (
	SuccessTrue  = "true"
	SuccessFalse = "false"
)

// Payload fields. Boolean settings travel as the strings "1"/"0".
const (
	FieldDoorStatus                = "door_status"
	FieldSettings                  = "settings"
	FieldNotifications             = "notifications"
	FieldSchedules                 = "schedules"
	FieldSchedule                  = "schedule"
	FieldIndex                     = "index"
	FieldPower                     = "power"
	FieldInside                    = "inside"
	FieldOutside                   = "outside"
	FieldAuto                      = "timersEnabled"
	FieldSafetyLock                = "outsideSensorSafetyLock"
	FieldCmdLockout                = "cmdLockout"
	FieldAutoretract               = "autoRetract"
	FieldHoldTime                  = "holdTime"
	FieldHoldOpenTime              = "holdOpenTime"
	FieldTimezone                  = "tz"
	FieldSensorTriggerVoltage      = "sensorTriggerVoltage"
	FieldSleepSensorTriggerVoltage = "sleepSensorTriggerVoltage"
	FieldBatteryPercent            = "batteryPercent"
	FieldBatteryPresent            = "batteryPresent"
	FieldACPresent                 = "acPresent"
	FieldFwInfo                    = "fwInfo"
	FieldFwMajor                   = "fw_maj"
	FieldFwMinor                   = "fw_min"
	FieldFwPatch                   = "fw_pat"
	FieldHwVersion                 = "hw_ver"
	FieldHwRevision                = "hw_rev"
	FieldTotalOpenCycles           = "totalOpenCycles"
	FieldTotalAutoRetracts         = "totalAutoRetracts"
	FieldNotifyInsideOn            = "sensorOnIndoorNotifications"
	FieldNotifyInsideOff           = "sensorOffIndoorNotifications"
	FieldNotifyOutsideOn           = "sensorOnOutdoorNotifications"
	FieldNotifyOutsideOff          = "sensorOffOutdoorNotifications"
	FieldNotifyLowBattery          = "lowBatteryNotifications"
)

// Fields of a schedule entry object.
const (
	FieldEnabled      = "enabled"
	FieldDaysOfWeek   = "daysOfWeek"
	FieldInStartTime  = "inStartTime"
	FieldInEndTime    = "inEndTime"
	FieldOutStartTime = "outStartTime"
	FieldOutEndTime   = "outEndTime"
)

// Command tags.
const (
	CmdPong             = "PONG"
	CmdGetDoorStatus    = "GET_DOOR_STATUS"
	CmdGetSettings      = "GET_SETTINGS"
	CmdGetSensors       = "GET_SENSORS"
	CmdGetPower         = "GET_POWER"
	CmdGetAuto          = "GET_AUTO"
	CmdGetDoorBattery   = "GET_DOOR_BATTERY"
	CmdGetHwInfo        = "GET_HW_INFO"
	CmdGetDoorOpenStats = "GET_DOOR_OPEN_STATS"
	CmdGetHoldTime      = "GET_HOLD_TIME"
	CmdGetTimezone      = "GET_TIMEZONE"
	CmdGetNotifications = "GET_NOTIFICATIONS"
	CmdGetScheduleList  = "GET_SCHEDULE_LIST"
	CmdGetSchedule      = "GET_SCHEDULE"

	CmdOpen        = "OPEN"
	CmdOpenAndHold = "OPEN_AND_HOLD"
	CmdClose       = "CLOSE"

	CmdPowerOn            = "POWER_ON"
	CmdPowerOff           = "POWER_OFF"
	CmdEnableInside       = "ENABLE_INSIDE"
	CmdDisableInside      = "DISABLE_INSIDE"
	CmdEnableOutside      = "ENABLE_OUTSIDE"
	CmdDisableOutside     = "DISABLE_OUTSIDE"
	CmdEnableAuto         = "ENABLE_AUTO"
	CmdDisableAuto        = "DISABLE_AUTO"
	CmdEnableSafetyLock   = "ENABLE_OUTSIDE_SENSOR_SAFETY_LOCK"
	CmdDisableSafetyLock  = "DISABLE_OUTSIDE_SENSOR_SAFETY_LOCK"
	CmdEnableCmdLockout   = "ENABLE_CMD_LOCKOUT"
	CmdDisableCmdLockout  = "DISABLE_CMD_LOCKOUT"
	CmdEnableAutoretract  = "ENABLE_AUTORETRACT"
	CmdDisableAutoretract = "DISABLE_AUTORETRACT"

	CmdSetHoldTime      = "SET_HOLD_TIME"
	CmdSetTimezone      = "SET_TIMEZONE"
	CmdSetNotifications = "SET_NOTIFICATIONS"
	CmdSetSchedule      = "SET_SCHEDULE"
	CmdDeleteSchedule   = "DELETE_SCHEDULE"

	// Broadcast-only tags. The door pushes DOOR_STATUS on every phase
	// transition and NOTIFY_LOW_BATTERY when the battery crosses the low
	// threshold downwards.
	CmdDoorStatus       = "DOOR_STATUS"
	CmdNotifyLowBattery = "NOTIFY_LOW_BATTERY"
)

// Flag renders a boolean setting the way the appliance does.
func Flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// ParseFlag converts a wire flag back to a boolean. Anything but "1"
// reads as false.
func ParseFlag(s string) bool {
	return s == "1"
}

// Centiseconds converts a hold time in seconds to the wire unit.
func Centiseconds(seconds float64) int {
	return int(math.Round(seconds * 100))
}

// Seconds converts a wire hold time back to seconds.
func Seconds(centiseconds int) float64 {
	return float64(centiseconds) / 100
}
