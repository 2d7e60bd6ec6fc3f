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

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// JSONStats is what we want to report as stats via http
type JSONStats struct {
	report counters

	counters
	cycles   cycleStats
	sysstats SysStats
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	s := &JSONStats{}

	s.init()
	s.report.init()
	s.cycles.init()

	return s
}

// Start runs http server and initializes maps
func (s *JSONStats) Start(monitoringport int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)
	addr := fmt.Sprintf(":%d", monitoringport)
	log.Infof("Starting http json server on %s", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}

// Snapshot the values so they can be reported atomically
func (s *JSONStats) Snapshot() {
	s.rx.copy(&s.report.rx)
	s.tx.copy(&s.report.tx)
	s.broadcasts.copy(&s.report.broadcasts)
	s.triggers.copy(&s.report.triggers)
	s.droppedTriggers.copy(&s.report.droppedTriggers)
	s.report.connections = atomic.LoadInt64(&s.connections)
	s.report.invalidFrames = atomic.LoadInt64(&s.invalidFrames)
	s.report.unknownCommands = atomic.LoadInt64(&s.unknownCommands)
	s.report.commandErrors = atomic.LoadInt64(&s.commandErrors)
	s.report.openCycles = atomic.LoadInt64(&s.openCycles)
	s.report.autoRetracts = atomic.LoadInt64(&s.autoRetracts)
	s.report.batteryPercent = atomic.LoadInt64(&s.batteryPercent)
	s.report.doorStatus = atomic.LoadInt64(&s.doorStatus)
}

// CollectSysStats adds process and runtime metrics to the report
func (s *JSONStats) CollectSysStats(result map[string]int64) {
	sys, err := s.sysstats.CollectRuntimeStats()
	if err != nil {
		log.Errorf("Failed to collect system stats: %v", err)
		return
	}
	for k, v := range sys {
		result[k] = int64(v)
	}
}

// handleRequest is a handler used for all http monitoring requests
func (s *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	s.Snapshot()
	result := s.report.toMap()
	count, mean, stddev := s.cycles.summary()
	result["cycle.count"] = int64(count)
	result["cycle.duration_ms.mean"] = int64(mean * 1000)
	result["cycle.duration_ms.stddev"] = int64(stddev * 1000)
	s.CollectSysStats(result)
	js, err := json.Marshal(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Reset atomically sets all the counters to 0
func (s *JSONStats) Reset() {
	s.reset()
	s.cycles.reset()
	atomic.StoreInt64(&s.connections, 0)
	atomic.StoreInt64(&s.invalidFrames, 0)
	atomic.StoreInt64(&s.unknownCommands, 0)
	atomic.StoreInt64(&s.commandErrors, 0)
	atomic.StoreInt64(&s.openCycles, 0)
	atomic.StoreInt64(&s.autoRetracts, 0)
}

// IncConnections atomically add 1 to the counter
func (s *JSONStats) IncConnections() {
	atomic.AddInt64(&s.connections, 1)
}

// DecConnections atomically removes 1 from the counter
func (s *JSONStats) DecConnections() {
	atomic.AddInt64(&s.connections, -1)
}

// IncRX atomically add 1 to the counter of received commands per tag
func (s *JSONStats) IncRX(tag string) {
	s.rx.inc(tag)
}

// IncTX atomically add 1 to the counter of sent replies per tag
func (s *JSONStats) IncTX(tag string) {
	s.tx.inc(tag)
}

// IncBroadcast atomically add 1 to the counter of broadcasts per tag
func (s *JSONStats) IncBroadcast(tag string) {
	s.broadcasts.inc(tag)
}

// IncInvalidFrames atomically add 1 to the counter
func (s *JSONStats) IncInvalidFrames() {
	atomic.AddInt64(&s.invalidFrames, 1)
}

// IncUnknownCommands atomically add 1 to the counter
func (s *JSONStats) IncUnknownCommands() {
	atomic.AddInt64(&s.unknownCommands, 1)
}

// IncCommandErrors atomically add 1 to the counter
func (s *JSONStats) IncCommandErrors() {
	atomic.AddInt64(&s.commandErrors, 1)
}

// IncTriggers atomically add 1 to the counter of sensor triggers
func (s *JSONStats) IncTriggers(sensor string) {
	s.triggers.inc(sensor)
}

// IncDroppedTriggers atomically add 1 to the counter of gated triggers
func (s *JSONStats) IncDroppedTriggers(sensor string) {
	s.droppedTriggers.inc(sensor)
}

// IncOpenCycles atomically add 1 to the counter
func (s *JSONStats) IncOpenCycles() {
	atomic.AddInt64(&s.openCycles, 1)
}

// IncAutoRetracts atomically add 1 to the counter
func (s *JSONStats) IncAutoRetracts() {
	atomic.AddInt64(&s.autoRetracts, 1)
}

// AddCycleDuration records the duration of one full open cycle
func (s *JSONStats) AddCycleDuration(seconds float64) {
	s.cycles.add(seconds)
}

// SetBatteryPercent atomically sets the reported battery level
func (s *JSONStats) SetBatteryPercent(percent int64) {
	atomic.StoreInt64(&s.batteryPercent, percent)
}

// SetDoorStatus atomically sets the reported door phase
func (s *JSONStats) SetDoorStatus(status int64) {
	atomic.StoreInt64(&s.doorStatus, status)
}
