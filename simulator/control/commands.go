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

package control

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	"github.com/facebook/petdoor/simulator/server"
	log "github.com/sirupsen/logrus"
)

// Env is what control commands run against.
type Env struct {
	Sim *server.Simulator
	// Shutdown stops the whole daemon; wired by the host.
	Shutdown func()
}

// command is one entry of the static control command table. Commands
// either run directly or hold a subcommand table (schedule does).
type command struct {
	name    string
	aliases []string
	help    string
	args    []argSpec
	sub     []*command
	run     func(env *Env, args []Value) (string, error)
}

func (c *command) matches(token string) bool {
	if token == c.name {
		return true
	}
	for _, a := range c.aliases {
		if token == a {
			return true
		}
	}
	return false
}

// Dispatch resolves a tokenized control line against the command table
// and runs it.
func Dispatch(env *Env, tokens []string) (string, error) {
	if len(tokens) == 0 {
		return "", fmt.Errorf("empty command")
	}
	return dispatch(env, commands, tokens)
}

func dispatch(env *Env, table []*command, tokens []string) (string, error) {
	name := strings.ToLower(tokens[0])
	for _, c := range table {
		if !c.matches(name) {
			continue
		}
		if c.sub != nil {
			if len(tokens) == 1 {
				// Bare parent falls through to its default subcommand.
				return dispatch(env, c.sub, []string{c.sub[0].name})
			}
			return dispatch(env, c.sub, tokens[1:])
		}
		args, err := parseArgs(tokens[1:], c.args)
		if err != nil {
			return "", fmt.Errorf("%s: %w", c.name, err)
		}
		return c.run(env, args)
	}
	return "", fmt.Errorf("unknown command %q, try help", name)
}

// onOff renders a bool the way the terminal shows settings.
func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

// boolToggleArg is the shared optional on/off slot.
var boolToggleArg = argSpec{name: "value", kind: argBoolToggle}

// makeToggle builds a settings command: with an argument it sets, bare
// it flips.
func makeToggle(name string, aliases []string, help string,
	set func(*server.Simulator, bool) bool, toggle func(*server.Simulator) bool) *command {
	return &command{
		name:    name,
		aliases: aliases,
		help:    help,
		args:    []argSpec{boolToggleArg},
		run: func(env *Env, args []Value) (string, error) {
			var v bool
			if args[0].Present {
				v = set(env.Sim, args[0].Bool)
			} else {
				v = toggle(env.Sim)
			}
			return fmt.Sprintf("%s %s", name, onOff(v)), nil
		},
	}
}

// makeTrigger builds a sensor trigger command. The default is a short
// pulse; 0 toggles the detection flag until triggered again.
func makeTrigger(name, alias string, sensor door.Sensor) *command {
	return &command{
		name:    name,
		aliases: []string{alias},
		help:    fmt.Sprintf("fire the %s sensor; duration 0 toggles, default 0.5s pulse", sensor),
		args: []argSpec{
			{name: "duration", kind: argFloat, min: 0, max: 900},
		},
		run: func(env *Env, args []Value) (string, error) {
			duration := 0.5
			if args[0].Present {
				duration = args[0].Float
			}
			env.Sim.Trigger(sensor, duration)
			if duration == 0 {
				return fmt.Sprintf("%s sensor toggled", sensor), nil
			}
			return fmt.Sprintf("%s sensor pulsed for %.2fs", sensor, duration), nil
		},
	}
}

var notifyKinds = map[string]string{
	"inside_on":   protocol.FieldNotifyInsideOn,
	"inside_off":  protocol.FieldNotifyInsideOff,
	"outside_on":  protocol.FieldNotifyOutsideOn,
	"outside_off": protocol.FieldNotifyOutsideOff,
	"low_battery": protocol.FieldNotifyLowBattery,
}

var commands []*command

// Assigned in init so the help closure may refer to formatHelp, which
// itself walks commands, without a package initialization cycle.
func init() {
	commands = []*command{
		makeTrigger("inside", "i", door.SensorInside),
		makeTrigger("outside", "o", door.SensorOutside),
		{
			name:    "close",
			aliases: []string{"c"},
			help:    "close the door",
			run: func(env *Env, _ []Value) (string, error) {
				if err := env.Sim.Close(); err != nil {
					return "", err
				}
				return "closing", nil
			},
		},
		{
			name:    "hold",
			aliases: []string{"h", "open"},
			help:    "open the door and keep it up until close",
			run: func(env *Env, _ []Value) (string, error) {
				if err := env.Sim.Open(true); err != nil {
					return "", err
				}
				return "opening and holding", nil
			},
		},
		{
			name:    "cycle",
			aliases: []string{"y"},
			help:    "run one open cycle, like a plain OPEN from a peer",
			run: func(env *Env, _ []Value) (string, error) {
				if err := env.Sim.Open(false); err != nil {
					return "", err
				}
				return "cycling", nil
			},
		},
		makeToggle("power", []string{"p"}, "door power",
			(*server.Simulator).SetPower, (*server.Simulator).TogglePower),
		makeToggle("auto", []string{"m"}, "schedule (timers) mode",
			(*server.Simulator).SetAuto, (*server.Simulator).ToggleAuto),
		makeToggle("inside_enable", []string{"n"}, "inside sensor enable",
			(*server.Simulator).SetInsideEnabled, (*server.Simulator).ToggleInsideEnabled),
		makeToggle("outside_enable", []string{"u"}, "outside sensor enable",
			(*server.Simulator).SetOutsideEnabled, (*server.Simulator).ToggleOutsideEnabled),
		makeToggle("safety", []string{"s"}, "outside sensor safety lock",
			(*server.Simulator).SetSafetyLock, (*server.Simulator).ToggleSafetyLock),
		makeToggle("lockout", []string{"l"}, "command lockout",
			(*server.Simulator).SetCmdLockout, (*server.Simulator).ToggleCmdLockout),
		makeToggle("autoretract", []string{"a"}, "obstruction auto-retract",
			(*server.Simulator).SetAutoretract, (*server.Simulator).ToggleAutoretract),
		{
			name:    "holdtime",
			aliases: []string{"t"},
			help:    "set the hold time in seconds",
			args: []argSpec{
				{name: "seconds", kind: argFloat, required: true, min: server.MinHoldTime, max: server.MaxHoldTime},
			},
			run: func(env *Env, args []Value) (string, error) {
				if err := env.Sim.SetHoldTime(args[0].Float); err != nil {
					return "", err
				}
				return fmt.Sprintf("hold time %.2fs", args[0].Float), nil
			},
		},
		{
			name:    "battery",
			aliases: []string{"b"},
			help:    "set the battery percent; omitted picks a random level",
			args: []argSpec{
				{name: "percent", kind: argFloat, min: 0, max: 100},
			},
			run: func(env *Env, args []Value) (string, error) {
				percent := float64(rand.Intn(101))
				if args[0].Present {
					percent = args[0].Float
				}
				env.Sim.SetBattery(percent)
				return fmt.Sprintf("battery %.0f%%", percent), nil
			},
		},
		{
			name: "ac",
			help: "connect or disconnect AC power",
			args: []argSpec{
				{name: "state", kind: argChoice, choices: []string{"connect", "disconnect", "toggle"}},
			},
			run: func(env *Env, args []Value) (string, error) {
				var on bool
				switch args[0].Str {
				case "connect":
					on = env.Sim.SetACPresent(true)
				case "disconnect":
					on = env.Sim.SetACPresent(false)
				default:
					on = env.Sim.ToggleACPresent()
				}
				return fmt.Sprintf("AC %s", onOff(on)), nil
			},
		},
		makeToggle("battery_present", []string{"bp"}, "battery installed",
			(*server.Simulator).SetBatteryPresent, func(s *server.Simulator) bool {
				return s.SetBatteryPresent(!s.BatteryPresent())
			}),
		{
			name:    "charge_rate",
			aliases: []string{"cr"},
			help:    "set the charge rate in percent per minute",
			args: []argSpec{
				{name: "rate", kind: argFloat, required: true, min: 0, max: 1000},
			},
			run: func(env *Env, args []Value) (string, error) {
				if err := env.Sim.SetChargeRate(args[0].Float); err != nil {
					return "", err
				}
				return fmt.Sprintf("charge rate %.2f%%/min", args[0].Float), nil
			},
		},
		{
			name:    "discharge_rate",
			aliases: []string{"dcr"},
			help:    "set the discharge rate in percent per minute",
			args: []argSpec{
				{name: "rate", kind: argFloat, required: true, min: 0, max: 1000},
			},
			run: func(env *Env, args []Value) (string, error) {
				if err := env.Sim.SetDischargeRate(args[0].Float); err != nil {
					return "", err
				}
				return fmt.Sprintf("discharge rate %.2f%%/min", args[0].Float), nil
			},
		},
		{
			name:    "timezone",
			aliases: []string{"tz"},
			help:    "set the timezone (IANA name or POSIX TZ)",
			args: []argSpec{
				{name: "zone", kind: argString, required: true},
			},
			run: func(env *Env, args []Value) (string, error) {
				if err := env.Sim.SetTimezone(args[0].Str); err != nil {
					return "", err
				}
				return fmt.Sprintf("timezone %s", args[0].Str), nil
			},
		},
		{
			name: "notify",
			help: "show notification toggles, or set one: notify <kind> [on|off]",
			args: []argSpec{
				{name: "kind", kind: argChoice, choices: []string{
					"inside_on", "inside_off", "outside_on", "outside_off", "low_battery"}},
				boolToggleArg,
			},
			run: func(env *Env, args []Value) (string, error) {
				if !args[0].Present {
					return formatNotifications(env.Sim), nil
				}
				field := notifyKinds[args[0].Str]
				on := true
				if args[1].Present {
					on = args[1].Bool
				}
				if err := env.Sim.SetNotification(field, on); err != nil {
					return "", err
				}
				return fmt.Sprintf("notify %s %s", args[0].Str, onOff(on)), nil
			},
		},
		{
			name:    "schedule",
			aliases: []string{"sched"},
			help:    "manage sensor schedules",
			sub: []*command{
				{
					name: "list",
					help: "show all schedule entries",
					run: func(env *Env, _ []Value) (string, error) {
						return formatSchedules(env.Sim), nil
					},
				},
				{
					name: "add",
					help: "schedule add <inside|outside|both> <H:MM-H:MM> [days]",
					args: []argSpec{
						{name: "sensor", kind: argChoice, required: true, choices: []string{"inside", "outside", "both"}},
						{name: "window", kind: argTimeRange, required: true},
						{name: "days", kind: argDays},
					},
					run: func(env *Env, args []Value) (string, error) {
						sched := door.NewSchedule(env.Sim.NextScheduleIndex())
						sched.Inside = args[0].Str != "outside"
						sched.Outside = args[0].Str != "inside"
						sched.StartHour, sched.StartMin = args[1].Start.Hour, args[1].Start.Min
						sched.EndHour, sched.EndMin = args[1].End.Hour, args[1].End.Min
						if args[2].Present {
							sched.Days = args[2].Days
						}
						if err := env.Sim.SetSchedule(sched); err != nil {
							return "", err
						}
						return fmt.Sprintf("schedule %d added", sched.Index), nil
					},
				},
				{
					name:    "delete",
					aliases: []string{"del", "rm", "remove"},
					help:    "schedule delete <index>",
					args: []argSpec{
						{name: "index", kind: argInt, required: true, min: 0, max: 1 << 20},
					},
					run: func(env *Env, args []Value) (string, error) {
						env.Sim.DeleteSchedule(args[0].Int)
						return fmt.Sprintf("schedule %d deleted", args[0].Int), nil
					},
				},
				{
					name:    "enable",
					aliases: []string{"on"},
					help:    "schedule enable <index>",
					args: []argSpec{
						{name: "index", kind: argInt, required: true, min: 0, max: 1 << 20},
					},
					run: func(env *Env, args []Value) (string, error) {
						return setScheduleEnabled(env, args[0].Int, true)
					},
				},
				{
					name:    "disable",
					aliases: []string{"off"},
					help:    "schedule disable <index>",
					args: []argSpec{
						{name: "index", kind: argInt, required: true, min: 0, max: 1 << 20},
					},
					run: func(env *Env, args []Value) (string, error) {
						return setScheduleEnabled(env, args[0].Int, false)
					},
				},
				{
					name: "days",
					help: "schedule days <index> <days>",
					args: []argSpec{
						{name: "index", kind: argInt, required: true, min: 0, max: 1 << 20},
						{name: "days", kind: argDays, required: true},
					},
					run: func(env *Env, args []Value) (string, error) {
						sched, ok := env.Sim.Schedule(args[0].Int)
						if !ok {
							return "", fmt.Errorf("no schedule at index %d", args[0].Int)
						}
						sched.Days = args[1].Days
						if err := env.Sim.SetSchedule(&sched); err != nil {
							return "", err
						}
						return fmt.Sprintf("schedule %d days %s", sched.Index, formatDays(sched.Days)), nil
					},
				},
				{
					name: "time",
					help: "schedule time <index> <H:MM-H:MM>",
					args: []argSpec{
						{name: "index", kind: argInt, required: true, min: 0, max: 1 << 20},
						{name: "window", kind: argTimeRange, required: true},
					},
					run: func(env *Env, args []Value) (string, error) {
						sched, ok := env.Sim.Schedule(args[0].Int)
						if !ok {
							return "", fmt.Errorf("no schedule at index %d", args[0].Int)
						}
						sched.StartHour, sched.StartMin = args[1].Start.Hour, args[1].Start.Min
						sched.EndHour, sched.EndMin = args[1].End.Hour, args[1].End.Min
						if err := env.Sim.SetSchedule(&sched); err != nil {
							return "", err
						}
						return fmt.Sprintf("schedule %d time %02d:%02d-%02d:%02d", sched.Index,
							sched.StartHour, sched.StartMin, sched.EndHour, sched.EndMin), nil
					},
				},
			},
		},
		{
			name:    "obstruction",
			aliases: []string{"x"},
			help:    "simulate something stuck in the flap (toggles the inside sensor)",
			run: func(env *Env, _ []Value) (string, error) {
				active := env.Sim.Obstruction()
				return fmt.Sprintf("obstruction %s", onOff(active)), nil
			},
		},
		{
			name:    "status",
			aliases: []string{"state", "info", "v"},
			help:    "show the full simulator state",
			run: func(env *Env, _ []Value) (string, error) {
				return env.Sim.StatusReport(), nil
			},
		},
		{
			name:    "broadcast",
			aliases: []string{"bc"},
			help:    "push a broadcast to every peer",
			args: []argSpec{
				{name: "kind", kind: argChoice, required: true, choices: []string{
					"status", "settings", "battery", "hwinfo", "stats",
					"schedules", "notifications", "all"}},
			},
			run: func(env *Env, args []Value) (string, error) {
				switch args[0].Str {
				case "status":
					env.Sim.BroadcastDoorStatus()
				case "settings":
					env.Sim.BroadcastSettings()
				case "battery":
					env.Sim.BroadcastBattery()
				case "hwinfo":
					env.Sim.BroadcastHwInfo()
				case "stats":
					env.Sim.BroadcastStats()
				case "schedules":
					env.Sim.BroadcastSchedules()
				case "notifications":
					env.Sim.BroadcastNotifications()
				case "all":
					env.Sim.BroadcastAll()
				}
				return fmt.Sprintf("broadcast %s sent", args[0].Str), nil
			},
		},
		{
			name: "debug",
			help: "toggle debug logging",
			args: []argSpec{boolToggleArg},
			run: func(_ *Env, args []Value) (string, error) {
				on := log.GetLevel() != log.DebugLevel
				if args[0].Present {
					on = args[0].Bool
				}
				if on {
					log.SetLevel(log.DebugLevel)
				} else {
					log.SetLevel(log.InfoLevel)
				}
				return fmt.Sprintf("debug logging %s", onOff(on)), nil
			},
		},
		{
			name:    "shutdown",
			aliases: []string{"stop"},
			help:    "stop the simulator daemon",
			run: func(env *Env, _ []Value) (string, error) {
				if env.Shutdown == nil {
					return "", fmt.Errorf("shutdown is not wired")
				}
				env.Shutdown()
				return "shutting down", nil
			},
		},
		{
			name:    "help",
			aliases: []string{"?"},
			run: func(_ *Env, _ []Value) (string, error) {
				return formatHelp(), nil
			},
		},
	}
}

func setScheduleEnabled(env *Env, index int, on bool) (string, error) {
	sched, ok := env.Sim.Schedule(index)
	if !ok {
		return "", fmt.Errorf("no schedule at index %d", index)
	}
	sched.Enabled = on
	if err := env.Sim.SetSchedule(&sched); err != nil {
		return "", err
	}
	return fmt.Sprintf("schedule %d %s", index, onOff(on)), nil
}

func formatNotifications(sim *server.Simulator) string {
	kinds := make([]string, 0, len(notifyKinds))
	for kind := range notifyKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	lines := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		lines = append(lines, fmt.Sprintf("%s: %s", kind, onOff(sim.Notification(notifyKinds[kind]))))
	}
	return strings.Join(lines, "\n")
}

func formatSchedules(sim *server.Simulator) string {
	scheds := sim.Schedules()
	if len(scheds) == 0 {
		return "no schedules"
	}
	lines := make([]string, 0, len(scheds))
	for _, sched := range scheds {
		sensors := "inside+outside"
		if !sched.Outside {
			sensors = "inside"
		} else if !sched.Inside {
			sensors = "outside"
		}
		lines = append(lines, fmt.Sprintf("%d: %s %02d:%02d-%02d:%02d %s enabled=%v",
			sched.Index, sensors, sched.StartHour, sched.StartMin,
			sched.EndHour, sched.EndMin, formatDays(sched.Days), sched.Enabled))
	}
	return strings.Join(lines, "\n")
}

func formatHelp() string {
	lines := []string{}
	for _, c := range commands {
		name := c.name
		if len(c.aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", c.name, strings.Join(c.aliases, ", "))
		}
		lines = append(lines, fmt.Sprintf("%-28s %s", name, c.help))
		for _, sub := range c.sub {
			lines = append(lines, fmt.Sprintf("  %-26s %s", c.name+" "+sub.name, sub.help))
		}
	}
	return strings.Join(lines, "\n")
}
