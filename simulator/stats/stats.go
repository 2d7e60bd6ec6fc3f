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
Package stats implements statistics collection and reporting.
It is used by the simulator to report internal statistics, such as
number of connections, commands and broadcasts.
*/
package stats

import (
	"sync"

	"github.com/eclesh/welford"
)

// Stats is a metric collection interface
type Stats interface {
	// Start starts a stat reporter
	// Use this for passive reporters
	Start(monitoringport int)

	// Snapshot the values so they can be reported atomically
	Snapshot()

	// Reset atomically sets all the counters to 0
	Reset()

	// IncConnections atomically add 1 to the counter
	IncConnections()

	// DecConnections atomically removes 1 from the counter
	DecConnections()

	// IncRX atomically add 1 to the counter of received commands per tag
	IncRX(tag string)

	// IncTX atomically add 1 to the counter of sent replies per tag
	IncTX(tag string)

	// IncBroadcast atomically add 1 to the counter of broadcasts per tag
	IncBroadcast(tag string)

	// IncInvalidFrames atomically add 1 to the counter
	IncInvalidFrames()

	// IncUnknownCommands atomically add 1 to the counter
	IncUnknownCommands()

	// IncCommandErrors atomically add 1 to the counter
	IncCommandErrors()

	// IncTriggers atomically add 1 to the counter of sensor triggers
	IncTriggers(sensor string)

	// IncDroppedTriggers atomically add 1 to the counter of gated triggers
	IncDroppedTriggers(sensor string)

	// IncOpenCycles atomically add 1 to the counter
	IncOpenCycles()

	// IncAutoRetracts atomically add 1 to the counter
	IncAutoRetracts()

	// AddCycleDuration records the duration of one full open cycle
	AddCycleDuration(seconds float64)

	// SetBatteryPercent atomically sets the reported battery level
	SetBatteryPercent(percent int64)

	// SetDoorStatus atomically sets the reported door phase
	SetDoorStatus(status int64)
}

// syncMapStr64 sync map of per-tag counters
type syncMapStr64 struct {
	sync.Mutex
	m map[string]int64
}

// init initializes the underlying map
func (s *syncMapStr64) init() {
	s.m = make(map[string]int64)
}

// keys returns slice of keys of the underlying map
func (s *syncMapStr64) keys() []string {
	s.Lock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	s.Unlock()
	return keys
}

// load gets the value by the key
func (s *syncMapStr64) load(key string) int64 {
	s.Lock()
	defer s.Unlock()
	return s.m[key]
}

// inc increments the counter for the given key
func (s *syncMapStr64) inc(key string) {
	s.Lock()
	s.m[key]++
	s.Unlock()
}

// store saves the value with the key
func (s *syncMapStr64) store(key string, value int64) {
	s.Lock()
	s.m[key] = value
	s.Unlock()
}

// copy all key-values between maps
func (s *syncMapStr64) copy(dst *syncMapStr64) {
	for _, t := range s.keys() {
		dst.store(t, s.load(t))
	}
}

// reset stats to 0
func (s *syncMapStr64) reset() {
	s.Lock()
	for t := range s.m {
		s.m[t] = 0
	}
	s.Unlock()
}

// cycleStats keeps a welford summary of open cycle durations
type cycleStats struct {
	sync.Mutex
	w *welford.Stats
}

func (c *cycleStats) init() {
	c.w = welford.New()
}

func (c *cycleStats) add(seconds float64) {
	c.Lock()
	c.w.Add(seconds)
	c.Unlock()
}

// summary returns count, mean and stddev of the recorded durations
func (c *cycleStats) summary() (uint64, float64, float64) {
	c.Lock()
	defer c.Unlock()
	if c.w.Count() == 0 {
		return 0, 0, 0
	}
	return c.w.Count(), c.w.Mean(), c.w.Stddev()
}

func (c *cycleStats) reset() {
	c.Lock()
	c.w = welford.New()
	c.Unlock()
}

type counters struct {
	rx              syncMapStr64
	tx              syncMapStr64
	broadcasts      syncMapStr64
	triggers        syncMapStr64
	droppedTriggers syncMapStr64

	connections     int64
	invalidFrames   int64
	unknownCommands int64
	commandErrors   int64
	openCycles      int64
	autoRetracts    int64
	batteryPercent  int64
	doorStatus      int64
}

// init initializes the underlying maps
func (c *counters) init() {
	c.rx.init()
	c.tx.init()
	c.broadcasts.init()
	c.triggers.init()
	c.droppedTriggers.init()
}

// reset all the counters
func (c *counters) reset() {
	c.rx.reset()
	c.tx.reset()
	c.broadcasts.reset()
	c.triggers.reset()
	c.droppedTriggers.reset()
}

// toMap flattens all the counters into the exported map shape
func (c *counters) toMap() map[string]int64 {
	res := make(map[string]int64)
	for _, t := range c.rx.keys() {
		res["rx."+t] = c.rx.load(t)
	}
	for _, t := range c.tx.keys() {
		res["tx."+t] = c.tx.load(t)
	}
	for _, t := range c.broadcasts.keys() {
		res["broadcast."+t] = c.broadcasts.load(t)
	}
	for _, t := range c.triggers.keys() {
		res["trigger."+t] = c.triggers.load(t)
	}
	for _, t := range c.droppedTriggers.keys() {
		res["trigger.dropped."+t] = c.droppedTriggers.load(t)
	}
	res["connections"] = c.connections
	res["invalid_frames"] = c.invalidFrames
	res["unknown_commands"] = c.unknownCommands
	res["command_errors"] = c.commandErrors
	res["open_cycles"] = c.openCycles
	res["auto_retracts"] = c.autoRetracts
	res["battery_percent"] = c.batteryPercent
	res["door_status"] = c.doorStatus
	return res
}
