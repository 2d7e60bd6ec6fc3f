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
	"context"
	"errors"
	"time"

	"github.com/facebook/petdoor/door"
	log "github.com/sirupsen/logrus"
)

// Errors returned to peers that try to move the door when it can't.
var (
	ErrPowerOff   = errors.New("Door power is OFF")
	ErrCmdLockout = errors.New("Command lockout is engaged")
)

// Open runs the open command: start a cycle from CLOSED, reverse an
// in-flight close, or do nothing when the door is already up or on its
// way up. With keepup the door parks in KEEPUP instead of timing out of
// HOLDING.
func (s *Simulator) Open(keepup bool) error {
	s.mu.Lock()
	if !s.state.Power {
		s.mu.Unlock()
		return ErrPowerOff
	}
	if s.state.CmdLockout {
		s.mu.Unlock()
		return ErrCmdLockout
	}
	status := s.state.Status
	s.mu.Unlock()

	switch status {
	case door.StatusClosed:
		s.startMotion(door.StatusRising, keepup)
	case door.StatusClosingTopOpen:
		// The panel is barely below the top; resume at SLOWING.
		s.startMotion(door.StatusSlowing, keepup)
	case door.StatusClosingMidOpen:
		s.startMotion(door.StatusRising, keepup)
	default:
		// Already open or opening.
		log.Debugf("open while %s is a no-op", status)
	}
	return nil
}

// Close runs the close command: start the close sequence, reverse an
// in-flight open, or do nothing when the door is already down or on its
// way down.
func (s *Simulator) Close() error {
	s.mu.Lock()
	if !s.state.Power {
		s.mu.Unlock()
		return ErrPowerOff
	}
	if s.state.CmdLockout {
		s.mu.Unlock()
		return ErrCmdLockout
	}
	status := s.state.Status
	s.mu.Unlock()

	switch status {
	case door.StatusRising:
		// Low panel, short drop.
		s.startMotion(door.StatusClosingMidOpen, false)
	case door.StatusSlowing:
		s.startMotion(door.StatusClosingTopOpen, false)
	case door.StatusHolding, door.StatusKeepup:
		s.startMotion(door.StatusClosingTopOpen, false)
	default:
		log.Debugf("close while %s is a no-op", status)
	}
	return nil
}

// Trigger feeds one sensor event into the simulator. duration is the
// pulse length in seconds; zero toggles the active flag instead. Gated
// triggers are dropped silently, per device behavior.
func (s *Simulator) Trigger(sensor door.Sensor, duration float64) {
	now := s.now()
	s.mu.Lock()
	allowed, reason := s.state.TriggerAllowed(sensor, now)
	if !allowed {
		s.mu.Unlock()
		s.st.IncDroppedTriggers(sensor.String())
		log.Infof("dropping %s trigger: %s", sensor, reason)
		return
	}
	var active bool
	if duration == 0 {
		active = s.toggleSensor(sensor)
	} else {
		s.activateSensor(sensor)
		active = true
	}
	status := s.state.Status
	s.mu.Unlock()
	s.st.IncTriggers(sensor.String())

	if duration > 0 {
		s.schedulePulseClear(sensor, time.Duration(duration*float64(time.Second)))
	}
	if active && status == door.StatusClosed {
		s.startMotion(door.StatusRising, false)
	}
}

// Obstruction flips the inside sensor detection flag directly,
// bypassing the trigger gates. It models something physically stuck in
// the flap and is driven from the control channel.
func (s *Simulator) Obstruction() bool {
	s.mu.Lock()
	active := s.toggleSensor(door.SensorInside)
	s.mu.Unlock()
	log.Infof("obstruction simulation: inside sensor active=%v", active)
	return active
}

// toggleSensor flips one detection flag. Held with the state mutex.
func (s *Simulator) toggleSensor(sensor door.Sensor) bool {
	var active bool
	switch sensor {
	case door.SensorInside:
		s.state.InsideSensorActive = !s.state.InsideSensorActive
		active = s.state.InsideSensorActive
		if active {
			s.state.OutsideSensorActive = false
		}
	case door.SensorOutside:
		s.state.OutsideSensorActive = !s.state.OutsideSensorActive
		active = s.state.OutsideSensorActive
		if active {
			s.state.InsideSensorActive = false
		}
	}
	return active
}

// activateSensor sets one detection flag, clearing the other. Held with
// the state mutex.
func (s *Simulator) activateSensor(sensor door.Sensor) {
	switch sensor {
	case door.SensorInside:
		s.state.InsideSensorActive = true
		s.state.OutsideSensorActive = false
	case door.SensorOutside:
		s.state.OutsideSensorActive = true
		s.state.InsideSensorActive = false
	}
}

// schedulePulseClear arms the timer that ends a pulse activation. A new
// pulse on the same sensor rearms it.
func (s *Simulator) schedulePulseClear(sensor door.Sensor, after time.Duration) {
	s.pulseMu.Lock()
	defer s.pulseMu.Unlock()
	if t := s.pulseTimers[sensor]; t != nil {
		t.Stop()
	}
	s.pulseTimers[sensor] = time.AfterFunc(after, func() {
		s.mu.Lock()
		switch sensor {
		case door.SensorInside:
			s.state.InsideSensorActive = false
		case door.SensorOutside:
			s.state.OutsideSensorActive = false
		}
		s.mu.Unlock()
		log.Debugf("%s sensor pulse ended", sensor)
	})
}

// startMotion replaces the in-flight motion activity (if any) with a
// new one beginning at the given phase. There is never more than one
// motion goroutine; reversals cancel and restart rather than stack.
func (s *Simulator) startMotion(phase door.Status, keepup bool) {
	s.motionMu.Lock()
	defer s.motionMu.Unlock()
	if s.motionCancel != nil {
		s.motionCancel()
		<-s.motionDone
	}
	s.mu.Lock()
	if s.state.Status == door.StatusClosed {
		s.cycleStart = time.Now()
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.motionCancel = cancel
	s.motionDone = done
	go func() {
		defer close(done)
		s.runMotion(ctx, phase, keepup)
	}()
}

// stopMotion cancels the in-flight motion activity and waits for it.
// The door stays in whatever phase it was in.
func (s *Simulator) stopMotion() {
	s.motionMu.Lock()
	defer s.motionMu.Unlock()
	if s.motionCancel != nil {
		s.motionCancel()
		<-s.motionDone
		s.motionCancel = nil
		s.motionDone = nil
	}
}

// setStatus records a phase transition and pushes the door status
// broadcast after releasing the state mutex.
func (s *Simulator) setStatus(phase door.Status) {
	s.mu.Lock()
	s.state.Status = phase
	s.mu.Unlock()
	s.st.SetDoorStatus(int64(phase))
	log.Debugf("door is %s", phase)
	s.BroadcastDoorStatus()
}

// sleep waits for the duration unless the motion is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// runMotion drives the panel through its phases until the cycle
// completes or the context is cancelled. Reversal commands cancel this
// goroutine and start a fresh one in the mirrored phase.
func (s *Simulator) runMotion(ctx context.Context, phase door.Status, keepup bool) {
	s.mu.Lock()
	timing := s.state.Timing
	s.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}
		s.setStatus(phase)
		switch phase {
		case door.StatusRising:
			if !sleep(ctx, timing.Rise) {
				return
			}
			phase = door.StatusSlowing
		case door.StatusSlowing:
			if !sleep(ctx, timing.Slowing) {
				return
			}
			if keepup {
				phase = door.StatusKeepup
			} else {
				phase = door.StatusHolding
			}
		case door.StatusKeepup:
			// Parked until an explicit close command replaces us.
			<-ctx.Done()
			return
		case door.StatusHolding:
			if !s.holdOpen(ctx, timing.HoldPoll) {
				return
			}
			phase = door.StatusClosingTopOpen
		case door.StatusClosingTopOpen:
			if !sleep(ctx, timing.ClosingTop) {
				return
			}
			if s.checkAutoRetract() {
				phase = door.StatusRising
				keepup = false
				continue
			}
			phase = door.StatusClosingMidOpen
		case door.StatusClosingMidOpen:
			if !sleep(ctx, timing.ClosingMid) {
				return
			}
			if s.checkAutoRetract() {
				phase = door.StatusRising
				keepup = false
				continue
			}
			s.finishCycle()
			return
		}
	}
}

// holdOpen keeps the door in HOLDING for the configured hold time,
// restarting the countdown whenever a sensor blocks the close. Returns
// false on cancellation.
func (s *Simulator) holdOpen(ctx context.Context, poll time.Duration) bool {
	s.mu.Lock()
	remaining := time.Duration(s.state.HoldTime * float64(time.Second))
	s.mu.Unlock()
	for remaining > 0 {
		if !sleep(ctx, poll) {
			return false
		}
		s.mu.Lock()
		if s.state.SensorBlockingClose() {
			remaining = time.Duration(s.state.HoldTime * float64(time.Second))
		} else {
			remaining -= poll
		}
		s.mu.Unlock()
	}
	return true
}

// checkAutoRetract aborts an in-flight close when a blocking sensor is
// seen and autoretract is on. Both detection flags clear and the
// retract counter bumps.
func (s *Simulator) checkAutoRetract() bool {
	s.mu.Lock()
	if !s.state.Autoretract || !s.state.SensorBlockingClose() {
		s.mu.Unlock()
		return false
	}
	s.state.TotalAutoRetracts++
	s.state.InsideSensorActive = false
	s.state.OutsideSensorActive = false
	total := s.state.TotalAutoRetracts
	s.mu.Unlock()
	s.st.IncAutoRetracts()
	log.Infof("obstruction detected mid-close, auto-retracting (%d total)", total)
	return true
}

// finishCycle lands the panel in CLOSED and bumps the cycle counter.
func (s *Simulator) finishCycle() {
	s.mu.Lock()
	s.state.TotalOpenCycles++
	s.mu.Unlock()
	s.st.IncOpenCycles()
	s.setStatus(door.StatusClosed)
	if !s.cycleStart.IsZero() {
		s.st.AddCycleDuration(time.Since(s.cycleStart).Seconds())
	}
}
