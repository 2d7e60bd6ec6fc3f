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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebook/petdoor/door"
	"github.com/stretchr/testify/require"
)

func TestParseFwVersion(t *testing.T) {
	major, minor, patch, err := ParseFwVersion("4.12.9")
	require.NoError(t, err)
	require.Equal(t, 4, major)
	require.Equal(t, 12, minor)
	require.Equal(t, 9, patch)

	for _, bad := range []string{"", "4.12", "4.12.9.1", "banana"} {
		_, _, _, err := ParseFwVersion(bad)
		require.Error(t, err, bad)
	}
}

func TestParseHwVersion(t *testing.T) {
	ver, rev, err := ParseHwVersion("3.1")
	require.NoError(t, err)
	require.Equal(t, 3, ver)
	require.Equal(t, 1, rev)

	for _, bad := range []string{"", "3", "3.1.2", "rev A"} {
		_, _, err := ParseHwVersion(bad)
		require.Error(t, err, bad)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		StaticConfig: StaticConfig{FwVersion: "9.8.7", HwVersion: "5.2"},
		DynamicConfig: DynamicConfig{
			Timing:  door.DefaultTiming(),
			Battery: door.DefaultBatteryConfig(),
		},
	}
	state := door.NewState()
	require.NoError(t, cfg.ApplyOverrides(state))
	require.Equal(t, 9, state.FwMajor)
	require.Equal(t, 8, state.FwMinor)
	require.Equal(t, 7, state.FwPatch)
	require.Equal(t, 5, state.HwVersion)
	require.Equal(t, 2, state.HwRevision)

	cfg.FwVersion = "nope"
	require.Error(t, cfg.ApplyOverrides(state))
}

func TestReadDynamicConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petdoor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timing:
  rise: 2s
  slowing: 500ms
battery:
  chargerate: 2.5
  dischargerate: 0.2
  updateinterval: 30s
dischargecurve: "rate * interval / 60"
`), 0644))

	dc, err := ReadDynamicConfig(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, dc.Timing.Rise)
	require.Equal(t, 500*time.Millisecond, dc.Timing.Slowing)
	// Unset timing values keep the defaults.
	require.Equal(t, door.DefaultTiming().ClosingTop, dc.Timing.ClosingTop)
	require.Equal(t, 2.5, dc.Battery.ChargeRate)
	require.Equal(t, 30*time.Second, dc.Battery.UpdateInterval)
	require.Equal(t, "rate * interval / 60", dc.DischargeCurve)
}

func TestReadDynamicConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petdoor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warpdrive: 11\n"), 0644))
	_, err := ReadDynamicConfig(path)
	require.Error(t, err)
}

func TestDynamicConfigSanityCheck(t *testing.T) {
	dc := &DynamicConfig{
		Timing:  door.DefaultTiming(),
		Battery: door.DefaultBatteryConfig(),
	}
	require.NoError(t, dc.SanityCheck())

	dc.Battery.DischargeRate = -1
	require.ErrorIs(t, dc.SanityCheck(), errNegativeRate)
	dc.Battery.DischargeRate = 0.1

	dc.Battery.UpdateInterval = 0
	require.ErrorIs(t, dc.SanityCheck(), errBadInterval)
	dc.Battery.UpdateInterval = time.Minute

	dc.Timing.Rise = 0
	require.ErrorIs(t, dc.SanityCheck(), errBadTiming)
}

func TestDynamicConfigWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petdoor.yaml")
	dc := &DynamicConfig{
		Timing:  door.DefaultTiming(),
		Battery: door.DefaultBatteryConfig(),
	}
	dc.Battery.ChargeRate = 3.5
	require.NoError(t, dc.Write(path))

	got, err := ReadDynamicConfig(path)
	require.NoError(t, err)
	require.Equal(t, dc.Timing, got.Timing)
	require.Equal(t, 3.5, got.Battery.ChargeRate)
}

func TestLoadSettingsImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[settings]
power = 0
timersEnabled = 0
holdOpenTime = 450
tz = Europe/Berlin
batteryPercent = 33.5
lowBatteryNotifications = 0
`), 0644))

	state := door.NewState()
	require.NoError(t, LoadSettingsImage(path, state))
	require.False(t, state.Power)
	require.False(t, state.Auto)
	require.Equal(t, 4.5, state.HoldTime)
	require.Equal(t, "Europe/Berlin", state.Timezone)
	require.Equal(t, 33.5, state.BatteryPercent)
	require.False(t, state.NotifyLowBattery)
	// Untouched settings keep the factory defaults.
	require.True(t, state.Inside)
}

func TestLoadSettingsImageUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "door.ini")
	require.NoError(t, os.WriteFile(path, []byte("[settings]\nflux = 1\n"), 0644))
	require.Error(t, LoadSettingsImage(path, door.NewState()))
}

func TestPidFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petdoorsim.pid")
	cfg := &Config{StaticConfig: StaticConfig{PidFile: path}}
	require.NoError(t, cfg.CreatePidFile())

	pid, err := ReadPidFile(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	require.NoError(t, cfg.DeletePidFile())
	_, err = ReadPidFile(path)
	require.Error(t, err)
}

func TestPidFileDisabled(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.CreatePidFile())
	require.NoError(t, cfg.DeletePidFile())
}
