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
Package server implements the Power Pet Door network emulator: the TCP
wire protocol endpoint, the door motion state machine and the battery
model. One Simulator owns one door; peers connect over TCP, issue
commands and receive state change broadcasts.
*/
package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	"github.com/facebook/petdoor/simulator/stats"
	log "github.com/sirupsen/logrus"
)

// Simulator is one emulated door with its connected peers. All access
// to the door state goes through the state mutex; broadcasts happen
// after the mutex is released so no lock is ever held across I/O.
type Simulator struct {
	cfg   *Config
	state *door.State
	mu    sync.Mutex

	hub *Hub
	st  stats.Stats
	// now is the wall clock; tests pin it to exercise schedule gating.
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	motionMu     sync.Mutex
	motionCancel context.CancelFunc
	motionDone   chan struct{}
	cycleStart   time.Time

	pulseMu     sync.Mutex
	pulseTimers map[door.Sensor]*time.Timer

	histMu  sync.Mutex
	history []float64
}

// NewSimulator builds a simulator from the config, applying identity
// overrides and the optional settings image to the factory defaults.
func NewSimulator(cfg *Config, st stats.Stats) (*Simulator, error) {
	state := door.NewState()
	if err := cfg.PrepareCurves(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(state); err != nil {
		return nil, err
	}
	if cfg.SettingsFile != "" {
		if err := LoadSettingsImage(cfg.SettingsFile, state); err != nil {
			return nil, fmt.Errorf("loading settings image: %w", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		cfg:         cfg,
		state:       state,
		hub:         NewHub(),
		st:          st,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		pulseTimers: map[door.Sensor]*time.Timer{},
	}
	s.st.SetBatteryPercent(int64(state.WireBatteryPercent()))
	s.st.SetDoorStatus(int64(state.Status))
	return s, nil
}

// Hub exposes the broadcast hub, mostly so hosts can install
// connect/disconnect callbacks.
func (s *Simulator) Hub() *Hub {
	return s.hub
}

// Start launches the background battery ticker.
func (s *Simulator) Start() {
	s.wg.Add(1)
	go s.runBattery()
}

// Stop shuts the simulator down: motion and battery activities are
// cancelled and every peer is disconnected.
func (s *Simulator) Stop() {
	s.cancel()
	s.stopMotion()
	s.wg.Wait()
	for _, p := range s.hub.snapshot() {
		p.close()
		s.hub.unregister(p)
	}
}

// Attach serves one accepted connection until the peer goes away. It
// blocks; the accept loop runs it on its own goroutine.
func (s *Simulator) Attach(conn net.Conn) {
	p := newPeer(conn)
	s.hub.register(p)
	s.st.IncConnections()
	go p.writeLoop()
	defer func() {
		p.close()
		s.hub.unregister(p)
		s.st.DecConnections()
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := p.framer.Feed(buf[:n])
			for _, frame := range frames {
				s.handleFrame(p, frame)
			}
			if ferr != nil {
				s.st.IncInvalidFrames()
				log.Warningf("peer #%d: %v, dropping connection", p.id, ferr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// handleFrame parses one framed object, dispatches it and queues the
// reply back on the originating peer.
func (s *Simulator) handleFrame(p *Peer, frame []byte) {
	req, err := protocol.ParseRequest(frame)
	if err != nil {
		// A complete-looking object that does not parse is skipped;
		// framing already resumed after it.
		s.st.IncInvalidFrames()
		log.Warningf("peer #%d sent unparseable frame %q: %v", p.id, frame, err)
		return
	}

	var reply protocol.Reply
	switch {
	case req.Ping != nil:
		s.st.IncRX(protocol.FieldPing)
		reply = protocol.NewPong(req.Ping)
	default:
		s.st.IncRX(req.Cmd)
		log.Debugf("peer #%d: %s", p.id, req.Cmd)
		handler, known := handlers[req.Cmd]
		if !known {
			s.st.IncUnknownCommands()
			reply = protocol.NewReply(req.Cmd).Failure(fmt.Sprintf("unknown command %q", req.Cmd))
		} else {
			reply = handler(s, req)
		}
	}

	if reply[protocol.FieldSuccess] == protocol.SuccessFalse {
		s.st.IncCommandErrors()
	}
	reply.Echo(req)
	msg, err := reply.Marshal()
	if err != nil {
		log.Errorf("marshalling reply to peer #%d: %v", p.id, err)
		return
	}
	if err := p.Send(msg); err != nil {
		log.Debugf("reply to peer #%d: %v", p.id, err)
		return
	}
	s.st.IncTX(fmt.Sprint(reply[protocol.FieldCmd]))
}

// withState runs fn under the state mutex.
func (s *Simulator) withState(fn func(st *door.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// broadcast fans one message out and counts it.
func (s *Simulator) broadcast(r protocol.Reply) {
	s.hub.Broadcast(r)
	s.st.IncBroadcast(fmt.Sprint(r[protocol.FieldCmd]))
}

// BroadcastDoorStatus pushes the current phase to every peer.
func (s *Simulator) BroadcastDoorStatus() {
	var status door.Status
	s.withState(func(st *door.State) { status = st.Status })
	s.broadcast(protocol.NewReply(protocol.CmdDoorStatus).
		Set(protocol.FieldDoorStatus, status.String()))
}

// BroadcastSettings pushes the full settings object.
func (s *Simulator) BroadcastSettings() {
	var settings map[string]interface{}
	s.withState(func(st *door.State) { settings = st.Settings() })
	s.broadcast(protocol.NewReply(protocol.CmdGetSettings).
		Set(protocol.FieldSettings, settings))
}

// BroadcastBattery pushes the battery status.
func (s *Simulator) BroadcastBattery() {
	r := protocol.NewReply(protocol.CmdGetDoorBattery)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldBatteryPercent, st.WireBatteryPercent())
		r.Set(protocol.FieldBatteryPresent, protocol.Flag(st.BatteryPresent))
		r.Set(protocol.FieldACPresent, protocol.Flag(st.ACPresent))
	})
	s.broadcast(r)
}

// BroadcastHwInfo pushes the firmware and hardware identity.
func (s *Simulator) BroadcastHwInfo() {
	var info map[string]interface{}
	s.withState(func(st *door.State) { info = st.FirmwareInfo() })
	s.broadcast(protocol.NewReply(protocol.CmdGetHwInfo).
		Set(protocol.FieldFwInfo, info))
}

// BroadcastStats pushes the open/retract counters.
func (s *Simulator) BroadcastStats() {
	r := protocol.NewReply(protocol.CmdGetDoorOpenStats)
	s.withState(func(st *door.State) {
		r.Set(protocol.FieldTotalOpenCycles, st.TotalOpenCycles)
		r.Set(protocol.FieldTotalAutoRetracts, st.TotalAutoRetracts)
	})
	s.broadcast(r)
}

// BroadcastSchedules pushes the whole schedule list.
func (s *Simulator) BroadcastSchedules() {
	var list []map[string]interface{}
	s.withState(func(st *door.State) { list = st.ScheduleList() })
	s.broadcast(protocol.NewReply(protocol.CmdGetScheduleList).
		Set(protocol.FieldSchedules, list))
}

// BroadcastNotifications pushes the notification toggles.
func (s *Simulator) BroadcastNotifications() {
	var n map[string]interface{}
	s.withState(func(st *door.State) { n = st.Notifications() })
	s.broadcast(protocol.NewReply(protocol.CmdGetNotifications).
		Set(protocol.FieldNotifications, n))
}

// BroadcastAll pushes every broadcast kind, the way the device does
// after a settings restore.
func (s *Simulator) BroadcastAll() {
	s.BroadcastDoorStatus()
	s.BroadcastSettings()
	s.BroadcastBattery()
	s.BroadcastHwInfo()
	s.BroadcastStats()
	s.BroadcastSchedules()
	s.BroadcastNotifications()
}

// StatusReport renders a human-readable summary for the control channel.
func (s *Simulator) StatusReport() string {
	var b strings.Builder
	s.withState(func(st *door.State) {
		fmt.Fprintf(&b, "door: %s\n", st.Status)
		fmt.Fprintf(&b, "power: %v  auto: %v  inside: %v  outside: %v\n",
			st.Power, st.Auto, st.Inside, st.Outside)
		fmt.Fprintf(&b, "safety lock: %v  cmd lockout: %v  autoretract: %v\n",
			st.SafetyLock, st.CmdLockout, st.Autoretract)
		fmt.Fprintf(&b, "sensors active: inside=%v outside=%v\n",
			st.InsideSensorActive, st.OutsideSensorActive)
		fmt.Fprintf(&b, "battery: %d%% present=%v ac=%v charge=%.2f%%/min discharge=%.2f%%/min\n",
			st.WireBatteryPercent(), st.BatteryPresent, st.ACPresent,
			st.Battery.ChargeRate, st.Battery.DischargeRate)
		fmt.Fprintf(&b, "hold time: %.2fs  timezone: %s\n", st.HoldTime, st.Timezone)
		fmt.Fprintf(&b, "cycles: %d  retracts: %d\n", st.TotalOpenCycles, st.TotalAutoRetracts)
		fmt.Fprintf(&b, "firmware: %d.%d.%d  hardware: %d.%d\n",
			st.FwMajor, st.FwMinor, st.FwPatch, st.HwVersion, st.HwRevision)
		fmt.Fprintf(&b, "schedules: %d", len(st.Schedules))
	})
	fmt.Fprintf(&b, "\npeers: %d", s.hub.Count())
	return b.String()
}
