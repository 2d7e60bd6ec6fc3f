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
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	ini "github.com/go-ini/ini"
	version "github.com/hashicorp/go-version"
	"golang.org/x/sys/unix"
	yaml "gopkg.in/yaml.v2"
)

var errNegativeRate = errors.New("battery rates must not be negative")
var errBadInterval = errors.New("battery update interval must be positive")
var errBadTiming = errors.New("motion phase durations must be positive")

// dcMux is a dynamic config mutex
var dcMux = sync.Mutex{}

// StaticConfig is a set of static options which require a server restart
type StaticConfig struct {
	ConfigFile     string
	ControlPort    int
	FwVersion      string
	Host           string
	HwVersion      string
	LogLevel       string
	MaxClients     int
	MonitoringPort int
	PidFile        string
	Port           int
	RunDuration    time.Duration
	SettingsFile   string
}

// DynamicConfig is a set of dynamic options which don't need a server restart
type DynamicConfig struct {
	// Timing sets the durations of the door motion phases
	Timing door.Timing `yaml:"timing"`
	// Battery drives the charge/discharge model
	Battery door.BatteryConfig `yaml:"battery"`
	// ChargeCurve optionally replaces the linear charge delta with an
	// expression of percent, rate and interval (seconds)
	ChargeCurve string `yaml:"chargecurve"`
	// DischargeCurve optionally replaces the linear discharge delta
	DischargeCurve string `yaml:"dischargecurve"`
}

// Config is a server config structure
type Config struct {
	StaticConfig
	DynamicConfig

	chargeExpr    *govaluate.EvaluableExpression
	dischargeExpr *govaluate.EvaluableExpression
}

// SanityCheck validates the dynamic options
func (dc *DynamicConfig) SanityCheck() error {
	if dc.Battery.ChargeRate < 0 || dc.Battery.DischargeRate < 0 {
		return errNegativeRate
	}
	if dc.Battery.UpdateInterval <= 0 {
		return errBadInterval
	}
	t := dc.Timing
	if t.Rise <= 0 || t.Slowing <= 0 || t.ClosingTop <= 0 || t.ClosingMid <= 0 || t.HoldPoll <= 0 {
		return errBadTiming
	}
	return nil
}

// ReadDynamicConfig reads dynamic config from the file
func ReadDynamicConfig(path string) (*DynamicConfig, error) {
	dc := &DynamicConfig{
		Timing:  door.DefaultTiming(),
		Battery: door.DefaultBatteryConfig(),
	}
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.UnmarshalStrict(cData, dc); err != nil {
		return nil, err
	}

	if err := dc.SanityCheck(); err != nil {
		return nil, err
	}

	return dc, nil
}

// Write dynamic config to the file
func (dc *DynamicConfig) Write(path string) error {
	d, err := yaml.Marshal(&dc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, d, 0644)
}

// UpdateDynamicConfig reads the config file and applies it to the
// server config, recompiling the battery curve expressions.
func (c *Config) UpdateDynamicConfig() error {
	dc, err := ReadDynamicConfig(c.ConfigFile)
	if err != nil {
		return err
	}
	dcMux.Lock()
	defer dcMux.Unlock()
	c.DynamicConfig = *dc
	return c.PrepareCurves()
}

// PrepareCurves compiles the optional battery curve expressions. Empty
// expressions keep the plain linear model.
func (c *Config) PrepareCurves() error {
	var err error
	c.chargeExpr, err = prepareCurve(c.ChargeCurve)
	if err != nil {
		return fmt.Errorf("charge curve: %w", err)
	}
	c.dischargeExpr, err = prepareCurve(c.DischargeCurve)
	if err != nil {
		return fmt.Errorf("discharge curve: %w", err)
	}
	return nil
}

// ParseFwVersion splits a major.minor.patch override
func ParseFwVersion(s string) (major, minor, patch int, err error) {
	v, err := version.NewVersion(s)
	if err != nil {
		return 0, 0, 0, err
	}
	segments := v.Segments()
	if len(strings.Split(s, ".")) != 3 {
		return 0, 0, 0, fmt.Errorf("firmware version %q: want major.minor.patch", s)
	}
	return segments[0], segments[1], segments[2], nil
}

// ParseHwVersion splits a ver.rev override
func ParseHwVersion(s string) (ver, rev int, err error) {
	v, err := version.NewVersion(s)
	if err != nil {
		return 0, 0, err
	}
	if len(strings.Split(s, ".")) != 2 {
		return 0, 0, fmt.Errorf("hardware version %q: want ver.rev", s)
	}
	segments := v.Segments()
	return segments[0], segments[1], nil
}

// ApplyOverrides pushes the CLI identity overrides into a door state
func (c *Config) ApplyOverrides(state *door.State) error {
	if c.FwVersion != "" {
		major, minor, patch, err := ParseFwVersion(c.FwVersion)
		if err != nil {
			return err
		}
		state.FwMajor, state.FwMinor, state.FwPatch = major, minor, patch
	}
	if c.HwVersion != "" {
		ver, rev, err := ParseHwVersion(c.HwVersion)
		if err != nil {
			return err
		}
		state.HwVersion, state.HwRevision = ver, rev
	}
	state.Timing = c.Timing
	state.Battery = c.Battery
	return nil
}

// LoadSettingsImage overlays a device settings INI file onto the state.
// The [settings] section uses the wire field spellings; unknown keys are
// rejected so typos don't silently boot a different door.
func LoadSettingsImage(path string, state *door.State) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}
	section := cfg.Section("settings")
	for _, key := range section.Keys() {
		val := key.Value()
		switch key.Name() {
		case protocol.FieldPower:
			state.Power = protocol.ParseFlag(val)
		case protocol.FieldInside:
			state.Inside = protocol.ParseFlag(val)
		case protocol.FieldOutside:
			state.Outside = protocol.ParseFlag(val)
		case protocol.FieldAuto:
			state.Auto = protocol.ParseFlag(val)
		case protocol.FieldSafetyLock:
			state.SafetyLock = protocol.ParseFlag(val)
		case protocol.FieldCmdLockout:
			state.CmdLockout = protocol.ParseFlag(val)
		case protocol.FieldAutoretract:
			state.Autoretract = protocol.ParseFlag(val)
		case protocol.FieldTimezone:
			state.Timezone = val
		case protocol.FieldHoldOpenTime:
			cs, err := key.Int()
			if err != nil {
				return fmt.Errorf("settings %s: %w", key.Name(), err)
			}
			state.HoldTime = protocol.Seconds(cs)
		case protocol.FieldBatteryPercent:
			pct, err := key.Float64()
			if err != nil {
				return fmt.Errorf("settings %s: %w", key.Name(), err)
			}
			state.BatteryPercent = clamp(pct, 0, 100)
		case protocol.FieldBatteryPresent:
			state.BatteryPresent = protocol.ParseFlag(val)
		case protocol.FieldACPresent:
			state.ACPresent = protocol.ParseFlag(val)
		case protocol.FieldSensorTriggerVoltage:
			v, err := key.Int()
			if err != nil {
				return fmt.Errorf("settings %s: %w", key.Name(), err)
			}
			state.SensorTriggerVoltage = v
		case protocol.FieldSleepSensorTriggerVoltage:
			v, err := key.Int()
			if err != nil {
				return fmt.Errorf("settings %s: %w", key.Name(), err)
			}
			state.SleepSensorTriggerVoltage = v
		case protocol.FieldNotifyInsideOn:
			state.NotifyInsideOn = protocol.ParseFlag(val)
		case protocol.FieldNotifyInsideOff:
			state.NotifyInsideOff = protocol.ParseFlag(val)
		case protocol.FieldNotifyOutsideOn:
			state.NotifyOutsideOn = protocol.ParseFlag(val)
		case protocol.FieldNotifyOutsideOff:
			state.NotifyOutsideOff = protocol.ParseFlag(val)
		case protocol.FieldNotifyLowBattery:
			state.NotifyLowBattery = protocol.ParseFlag(val)
		default:
			return fmt.Errorf("settings image: unknown key %q", key.Name())
		}
	}
	return nil
}

// CreatePidFile creates a pid file in a defined location
func (c *Config) CreatePidFile() error {
	if c.PidFile == "" {
		return nil
	}
	return os.WriteFile(c.PidFile, []byte(fmt.Sprintf("%d\n", unix.Getpid())), 0644)
}

// DeletePidFile deletes a pid file from a defined location
func (c *Config) DeletePidFile() error {
	if c.PidFile == "" {
		return nil
	}
	return os.Remove(c.PidFile)
}

// ReadPidFile read a pid file from a path location and returns a pid
func ReadPidFile(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.Replace(string(content), "\n", "", -1))
}
