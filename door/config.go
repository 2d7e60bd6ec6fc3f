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
	"time"
)

// Timing holds the fixed durations of the door motion phases.
// HOLDING has no fixed duration; it runs for State.HoldTime, extended
// while a sensor blocks the close.
type Timing struct {
	Rise       time.Duration `yaml:"rise"`
	Slowing    time.Duration `yaml:"slowing"`
	ClosingTop time.Duration `yaml:"closingtop"`
	ClosingMid time.Duration `yaml:"closingmid"`
	// HoldPoll is the interval of the blocking-sensor check while HOLDING.
	HoldPoll time.Duration `yaml:"holdpoll"`
}

// DefaultTiming matches the measured travel of the real hardware.
func DefaultTiming() Timing {
	return Timing{
		Rise:       1500 * time.Millisecond,
		Slowing:    300 * time.Millisecond,
		ClosingTop: 400 * time.Millisecond,
		ClosingMid: 400 * time.Millisecond,
		HoldPoll:   100 * time.Millisecond,
	}
}

// BatteryConfig drives the charge/discharge model of the battery ticker.
// Rates are percent per minute; a zero rate disables that direction.
type BatteryConfig struct {
	ChargeRate     float64       `yaml:"chargerate"`
	DischargeRate  float64       `yaml:"dischargerate"`
	UpdateInterval time.Duration `yaml:"updateinterval"`
}

// DefaultBatteryConfig charges at 1%/min on AC and discharges at
// 0.1%/min on battery, evaluated once a minute.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		ChargeRate:     1.0,
		DischargeRate:  0.1,
		UpdateInterval: time.Minute,
	}
}

// LowBatteryThreshold is the percent at which a downward crossing emits
// a low battery notification.
const LowBatteryThreshold = 20
