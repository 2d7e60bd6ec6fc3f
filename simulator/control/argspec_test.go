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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgFloatBounds(t *testing.T) {
	spec := argSpec{name: "seconds", kind: argFloat, min: 0.1, max: 900}
	v, err := parseArg("7.5", spec)
	require.NoError(t, err)
	require.Equal(t, 7.5, v.Float)

	_, err = parseArg("0.05", spec)
	require.Error(t, err)
	_, err = parseArg("1000", spec)
	require.Error(t, err)
	_, err = parseArg("soon", spec)
	require.Error(t, err)
}

func TestParseArgBoolToggle(t *testing.T) {
	spec := argSpec{name: "value", kind: argBoolToggle}
	for _, token := range []string{"on", "true", "1", "yes", "ON"} {
		v, err := parseArg(token, spec)
		require.NoError(t, err, token)
		require.True(t, v.Bool, token)
	}
	for _, token := range []string{"off", "false", "0", "no"} {
		v, err := parseArg(token, spec)
		require.NoError(t, err, token)
		require.False(t, v.Bool, token)
	}
	_, err := parseArg("maybe", spec)
	require.Error(t, err)
}

func TestParseArgChoice(t *testing.T) {
	spec := argSpec{name: "state", kind: argChoice, choices: []string{"connect", "disconnect"}}
	v, err := parseArg("Connect", spec)
	require.NoError(t, err)
	require.Equal(t, "connect", v.Str)

	_, err = parseArg("plug", spec)
	require.Error(t, err)
}

func TestParseArgsOptionalTail(t *testing.T) {
	specs := []argSpec{
		{name: "sensor", kind: argChoice, required: true, choices: []string{"inside", "outside"}},
		{name: "duration", kind: argFloat, min: 0, max: 10},
	}
	values, err := parseArgs([]string{"inside"}, specs)
	require.NoError(t, err)
	require.True(t, values[0].Present)
	require.False(t, values[1].Present)

	values, err = parseArgs([]string{"inside", "2.5"}, specs)
	require.NoError(t, err)
	require.Equal(t, 2.5, values[1].Float)

	_, err = parseArgs(nil, specs)
	require.Error(t, err)
	_, err = parseArgs([]string{"inside", "2.5", "extra"}, specs)
	require.Error(t, err)
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("6:30-22:00")
	require.NoError(t, err)
	require.Equal(t, HourMin{Hour: 6, Min: 30}, start)
	require.Equal(t, HourMin{Hour: 22, Min: 0}, end)

	// Wrapping windows are allowed; gating handles them.
	start, end, err = parseTimeRange("22:00-6:00")
	require.NoError(t, err)
	require.Equal(t, 22, start.Hour)
	require.Equal(t, 6, end.Hour)

	for _, bad := range []string{"6:30", "25:00-26:00", "6:61-7:00", "six-seven"} {
		_, _, err := parseTimeRange(bad)
		require.Error(t, err, bad)
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want [7]int
	}{
		{"all", [7]int{1, 1, 1, 1, 1, 1, 1}},
		{"weekdays", [7]int{0, 1, 1, 1, 1, 1, 0}},
		{"weekends", [7]int{1, 0, 0, 0, 0, 0, 1}},
		{"mon,wed,fri", [7]int{0, 1, 0, 1, 0, 1, 0}},
		{"0,6", [7]int{1, 0, 0, 0, 0, 0, 1}},
		{"Sun,SAT", [7]int{1, 0, 0, 0, 0, 0, 1}},
	}
	for _, tt := range tests {
		days, err := parseDays(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, days, tt.in)
	}

	for _, bad := range []string{"", "funday", "7", "-1"} {
		_, err := parseDays(bad)
		require.Error(t, err, bad)
	}
}

func TestFormatDays(t *testing.T) {
	require.Equal(t, "all", formatDays([7]int{1, 1, 1, 1, 1, 1, 1}))
	require.Equal(t, "mon,wed,fri", formatDays([7]int{0, 1, 0, 1, 0, 1, 0}))
	require.Equal(t, "none", formatDays([7]int{}))
}
