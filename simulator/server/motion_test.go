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
	"testing"
	"time"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/simulator/stats"
	"github.com/stretchr/testify/require"
)

// fastTiming keeps motion tests well under a second per cycle.
func fastTiming() door.Timing {
	return door.Timing{
		Rise:       50 * time.Millisecond,
		Slowing:    20 * time.Millisecond,
		ClosingTop: 20 * time.Millisecond,
		ClosingMid: 20 * time.Millisecond,
		HoldPoll:   10 * time.Millisecond,
	}
}

func newTestSim(t *testing.T) *Simulator {
	cfg := &Config{
		DynamicConfig: DynamicConfig{
			Timing:  fastTiming(),
			Battery: door.DefaultBatteryConfig(),
		},
	}
	sim, err := NewSimulator(cfg, stats.NewJSONStats())
	require.NoError(t, err)
	t.Cleanup(sim.Stop)
	return sim
}

func status(s *Simulator) door.Status {
	var out door.Status
	s.withState(func(st *door.State) { out = st.Status })
	return out
}

func waitForStatus(t *testing.T, s *Simulator, want door.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return status(s) == want },
		2*time.Second, 5*time.Millisecond, "waiting for %s, stuck in %s", want, status(s))
}

func TestOpenCycleCompletes(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) { st.HoldTime = 0.05 })
	var before int
	sim.withState(func(st *door.State) { before = st.TotalOpenCycles })

	require.NoError(t, sim.Open(false))
	waitForStatus(t, sim, door.StatusRising)
	waitForStatus(t, sim, door.StatusClosed)

	var after int
	sim.withState(func(st *door.State) { after = st.TotalOpenCycles })
	require.Equal(t, before+1, after)
}

func TestOpenAndHoldParksInKeepup(t *testing.T) {
	sim := newTestSim(t)
	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusKeepup)

	// KEEPUP never times out; only close brings it down.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, door.StatusKeepup, status(sim))

	require.NoError(t, sim.Close())
	waitForStatus(t, sim, door.StatusClosed)
}

func TestOpenPreconditions(t *testing.T) {
	sim := newTestSim(t)

	sim.SetPower(false)
	require.ErrorIs(t, sim.Open(false), ErrPowerOff)
	require.ErrorIs(t, sim.Close(), ErrPowerOff)
	sim.SetPower(true)

	sim.SetCmdLockout(true)
	require.ErrorIs(t, sim.Open(false), ErrCmdLockout)
	require.ErrorIs(t, sim.Close(), ErrCmdLockout)
	sim.SetCmdLockout(false)

	require.NoError(t, sim.Open(false))
}

func TestCloseReversesOpen(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) {
		// Slow rise so the close command lands mid-phase.
		st.Timing.Rise = 300 * time.Millisecond
	})

	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusRising)

	require.NoError(t, sim.Close())
	waitForStatus(t, sim, door.StatusClosingMidOpen)
	waitForStatus(t, sim, door.StatusClosed)
}

func TestOpenReversesClose(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) {
		st.Timing.ClosingTop = 300 * time.Millisecond
	})

	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusKeepup)

	require.NoError(t, sim.Close())
	waitForStatus(t, sim, door.StatusClosingTopOpen)

	// Reopen resumes just below the top.
	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusSlowing)
	waitForStatus(t, sim, door.StatusKeepup)
}

func TestHoldExtendsWhileSensorBlocks(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) { st.HoldTime = 0.05 })

	require.NoError(t, sim.Open(false))
	waitForStatus(t, sim, door.StatusHolding)

	sim.withState(func(st *door.State) { st.InsideSensorActive = true })
	// Well past the hold time the blocking sensor keeps the door up.
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, door.StatusHolding, status(sim))

	sim.withState(func(st *door.State) { st.InsideSensorActive = false })
	waitForStatus(t, sim, door.StatusClosed)
}

func TestAutoRetract(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) {
		st.Timing.ClosingTop = 100 * time.Millisecond
	})

	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusKeepup)

	require.NoError(t, sim.Close())
	waitForStatus(t, sim, door.StatusClosingTopOpen)
	// Obstruction appears while the panel is dropping.
	sim.withState(func(st *door.State) { st.InsideSensorActive = true })

	waitForStatus(t, sim, door.StatusRising)
	var retracts int
	var inside bool
	sim.withState(func(st *door.State) {
		retracts = st.TotalAutoRetracts
		inside = st.InsideSensorActive
	})
	require.Equal(t, 57, retracts)
	require.False(t, inside, "retract should clear the detection flags")
	waitForStatus(t, sim, door.StatusClosed)
}

func TestAutoRetractDisabled(t *testing.T) {
	sim := newTestSim(t)
	sim.SetAutoretract(false)
	sim.withState(func(st *door.State) {
		st.Timing.ClosingTop = 100 * time.Millisecond
	})

	require.NoError(t, sim.Open(true))
	waitForStatus(t, sim, door.StatusKeepup)
	require.NoError(t, sim.Close())
	waitForStatus(t, sim, door.StatusClosingTopOpen)
	sim.withState(func(st *door.State) { st.InsideSensorActive = true })

	// Without autoretract the close runs through regardless.
	waitForStatus(t, sim, door.StatusClosed)
	var retracts int
	sim.withState(func(st *door.State) { retracts = st.TotalAutoRetracts })
	require.Equal(t, 56, retracts)
}

func TestTriggerOpensFromClosed(t *testing.T) {
	sim := newTestSim(t)
	sim.withState(func(st *door.State) { st.HoldTime = 0.05 })

	sim.Trigger(door.SensorInside, 0.05)
	waitForStatus(t, sim, door.StatusRising)
	waitForStatus(t, sim, door.StatusClosed)
}

func TestTriggerGatedBySensorEnable(t *testing.T) {
	sim := newTestSim(t)
	sim.SetInsideEnabled(false)

	sim.Trigger(door.SensorInside, 0.05)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, door.StatusClosed, status(sim))

	// The other sensor still works.
	sim.Trigger(door.SensorOutside, 0.05)
	waitForStatus(t, sim, door.StatusRising)
}

func TestTriggerGatedBySafetyLock(t *testing.T) {
	sim := newTestSim(t)
	sim.SetSafetyLock(true)

	sim.Trigger(door.SensorOutside, 0.05)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, door.StatusClosed, status(sim))

	sim.Trigger(door.SensorInside, 0.05)
	waitForStatus(t, sim, door.StatusRising)
}

func TestTriggerGatedBySchedule(t *testing.T) {
	sim := newTestSim(t)
	// Pin the clock to a Wednesday noon UTC.
	noon := time.Date(2023, 6, 14, 12, 0, 0, 0, time.UTC)
	sim.now = func() time.Time { return noon }
	sim.withState(func(st *door.State) { st.Timezone = "UTC" })

	night := door.NewSchedule(0)
	night.StartHour, night.StartMin = 22, 0
	night.EndHour, night.EndMin = 6, 0
	night.Inside = true
	require.NoError(t, sim.SetSchedule(night))

	sim.Trigger(door.SensorInside, 0.05)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, door.StatusClosed, status(sim))

	// Auto off bypasses the schedule entirely.
	sim.SetAuto(false)
	sim.Trigger(door.SensorInside, 0.05)
	waitForStatus(t, sim, door.StatusRising)
}

func TestScheduleWindowCovers(t *testing.T) {
	sim := newTestSim(t)
	// 23:30 falls inside a 22:00-06:00 window that wraps midnight.
	lateNight := time.Date(2023, 6, 14, 23, 30, 0, 0, time.UTC)
	sim.now = func() time.Time { return lateNight }
	sim.withState(func(st *door.State) { st.Timezone = "UTC" })

	night := door.NewSchedule(0)
	night.StartHour = 22
	night.EndHour = 6
	night.Inside = true
	require.NoError(t, sim.SetSchedule(night))

	sim.Trigger(door.SensorInside, 0.05)
	waitForStatus(t, sim, door.StatusRising)
}

func TestSensorToggleMutualExclusion(t *testing.T) {
	sim := newTestSim(t)
	// Power off keeps triggers from moving the door; Obstruction bypasses
	// gating and flips the flag directly.
	require.True(t, sim.Obstruction())
	sim.withState(func(st *door.State) {
		st.OutsideSensorActive = true
		st.InsideSensorActive = false
	})
	require.True(t, sim.Obstruction())
	var outside bool
	sim.withState(func(st *door.State) { outside = st.OutsideSensorActive })
	require.False(t, outside, "activating one sensor clears the other")
}
