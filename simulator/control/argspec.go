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
	"strconv"
	"strings"
)

// argKind tags the parse rule of one argument slot.
type argKind int

const (
	argString argKind = iota
	argInt
	argFloat
	// argBoolToggle accepts on/true/1/yes and off/false/0/no; an absent
	// optional toggle means "flip the current value".
	argBoolToggle
	argChoice
	// argTimeRange is H:MM-H:MM in local wall-clock time.
	argTimeRange
	// argDays is a comma list of day names or indexes, or a preset.
	argDays
)

// argSpec describes one argument slot of a control command.
type argSpec struct {
	name     string
	kind     argKind
	required bool
	min, max float64 // argInt/argFloat bounds
	choices  []string
}

// HourMin is one bound of a schedule window.
type HourMin struct {
	Hour, Min int
}

// Value is one parsed argument. Present is false for an omitted
// optional argument.
type Value struct {
	Present bool
	Str     string
	Int     int
	Float   float64
	Bool    bool
	Start   HourMin
	End     HourMin
	Days    [7]int
}

var dayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// parseArg parses one token against a spec.
func parseArg(token string, spec argSpec) (Value, error) {
	v := Value{Present: true, Str: token}
	switch spec.kind {
	case argString:
		// anything goes
	case argInt:
		n, err := strconv.Atoi(token)
		if err != nil {
			return v, fmt.Errorf("%s: %q is not an integer", spec.name, token)
		}
		if float64(n) < spec.min || float64(n) > spec.max {
			return v, fmt.Errorf("%s: %d out of range [%g, %g]", spec.name, n, spec.min, spec.max)
		}
		v.Int = n
	case argFloat:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return v, fmt.Errorf("%s: %q is not a number", spec.name, token)
		}
		if f < spec.min || f > spec.max {
			return v, fmt.Errorf("%s: %g out of range [%g, %g]", spec.name, f, spec.min, spec.max)
		}
		v.Float = f
	case argBoolToggle:
		switch strings.ToLower(token) {
		case "on", "true", "1", "yes":
			v.Bool = true
		case "off", "false", "0", "no":
			v.Bool = false
		case "toggle", "t":
			// Same as leaving the value out: flip whatever is set.
			v.Present = false
		default:
			return v, fmt.Errorf("%s: %q is not on/off", spec.name, token)
		}
	case argChoice:
		lower := strings.ToLower(token)
		for _, c := range spec.choices {
			if lower == c {
				v.Str = c
				return v, nil
			}
		}
		return v, fmt.Errorf("%s: %q is not one of %s", spec.name, token, strings.Join(spec.choices, "|"))
	case argTimeRange:
		start, end, err := parseTimeRange(token)
		if err != nil {
			return v, fmt.Errorf("%s: %v", spec.name, err)
		}
		v.Start, v.End = start, end
	case argDays:
		days, err := parseDays(token)
		if err != nil {
			return v, fmt.Errorf("%s: %v", spec.name, err)
		}
		v.Days = days
	}
	return v, nil
}

// parseArgs matches tokens against the argument slots. Optional slots may be
// omitted only from the tail.
func parseArgs(tokens []string, specs []argSpec) ([]Value, error) {
	if len(tokens) > len(specs) {
		return nil, fmt.Errorf("too many arguments: want at most %d, got %d", len(specs), len(tokens))
	}
	values := make([]Value, len(specs))
	for i, spec := range specs {
		if i >= len(tokens) {
			if spec.required {
				return nil, fmt.Errorf("%s is required", spec.name)
			}
			continue
		}
		v, err := parseArg(tokens[i], spec)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// parseTimeRange parses H:MM-H:MM.
func parseTimeRange(s string) (HourMin, HourMin, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return HourMin{}, HourMin{}, fmt.Errorf("%q is not H:MM-H:MM", s)
	}
	start, err := parseHourMin(parts[0])
	if err != nil {
		return HourMin{}, HourMin{}, err
	}
	end, err := parseHourMin(parts[1])
	if err != nil {
		return HourMin{}, HourMin{}, err
	}
	return start, end, nil
}

func parseHourMin(s string) (HourMin, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return HourMin{}, fmt.Errorf("%q is not H:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return HourMin{}, fmt.Errorf("bad hour in %q", s)
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return HourMin{}, fmt.Errorf("bad minute in %q", s)
	}
	return HourMin{Hour: hour, Min: min}, nil
}

// parseDays accepts presets (all, weekdays, weekends) or a comma list
// of names (mon,tue) or indexes counted from Sunday (0,1,2).
func parseDays(s string) ([7]int, error) {
	var days [7]int
	switch strings.ToLower(s) {
	case "all":
		return [7]int{1, 1, 1, 1, 1, 1, 1}, nil
	case "weekdays":
		return [7]int{0, 1, 1, 1, 1, 1, 0}, nil
	case "weekends":
		return [7]int{1, 0, 0, 0, 0, 0, 1}, nil
	}
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := -1
		for i, name := range dayNames {
			if part == name {
				idx = i
				break
			}
		}
		if idx == -1 {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 || n > 6 {
				return days, fmt.Errorf("unknown day %q", part)
			}
			idx = n
		}
		days[idx] = 1
	}
	if days == [7]int{} {
		return days, fmt.Errorf("no days in %q", s)
	}
	return days, nil
}

// formatDays renders a day mask back to names.
func formatDays(days [7]int) string {
	if days == [7]int{1, 1, 1, 1, 1, 1, 1} {
		return "all"
	}
	names := []string{}
	for i, set := range days {
		if set != 0 {
			names = append(names, dayNames[i])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
