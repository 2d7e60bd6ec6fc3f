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
	"fmt"
	"math"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/eclesh/welford"
	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

// batteryHistorySize is how many recent percent samples the curve
// functions can see.
const batteryHistorySize = 100

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// curveFunctions are available inside charge/discharge curve
// expressions next to the percent, rate and interval parameters.
var curveFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs wants 1 argument, got %d", len(args))
		}
		v := args[0].(float64)
		if v < 0 {
			return -v, nil
		}
		return v, nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("min wants 2 arguments, got %d", len(args))
		}
		return math.Min(args[0].(float64), args[1].(float64)), nil
	},
	"max": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("max wants 2 arguments, got %d", len(args))
		}
		return math.Max(args[0].(float64), args[1].(float64)), nil
	},
	"mean": func(args ...interface{}) (interface{}, error) {
		return welfordOf(args, func(w *welford.Stats) float64 { return w.Mean() })
	},
	"stddev": func(args ...interface{}) (interface{}, error) {
		return welfordOf(args, func(w *welford.Stats) float64 { return w.Stddev() })
	},
}

func welfordOf(args []interface{}, pick func(*welford.Stats) float64) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("want 1 argument, got %d", len(args))
	}
	values, ok := args[0].([]float64)
	if !ok {
		return nil, fmt.Errorf("want a sample list, got %T", args[0])
	}
	w := welford.New()
	for _, v := range values {
		w.Add(v)
	}
	return pick(w), nil
}

// prepareCurve compiles an expression, or returns nil for the empty
// string meaning the plain linear model.
func prepareCurve(expr string) (*govaluate.EvaluableExpression, error) {
	if expr == "" {
		return nil, nil
	}
	return govaluate.NewEvaluableExpressionWithFunctions(expr, curveFunctions)
}

// evalCurve computes the per-tick percent delta from a compiled curve.
func (s *Simulator) evalCurve(expr *govaluate.EvaluableExpression, percent, rate float64, interval time.Duration) (float64, error) {
	s.histMu.Lock()
	history := make([]float64, len(s.history))
	copy(history, s.history)
	s.histMu.Unlock()
	result, err := expr.Evaluate(map[string]interface{}{
		"percent":  percent,
		"rate":     rate,
		"interval": interval.Seconds(),
		"history":  history,
	})
	if err != nil {
		return 0, err
	}
	delta, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("curve produced %T, want float64", result)
	}
	return delta, nil
}

// recordHistory appends one percent sample for the curve functions.
func (s *Simulator) recordHistory(percent float64) {
	s.histMu.Lock()
	s.history = append(s.history, percent)
	if len(s.history) > batteryHistorySize {
		s.history = s.history[len(s.history)-batteryHistorySize:]
	}
	s.histMu.Unlock()
}

// runBattery is the background charge/discharge ticker. One per
// simulator, running until shutdown.
func (s *Simulator) runBattery() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		interval := s.state.Battery.UpdateInterval
		s.mu.Unlock()
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(interval):
		}
		s.batteryTick(interval)
	}
}

// batteryTick advances the battery one interval.
func (s *Simulator) batteryTick(interval time.Duration) {
	s.mu.Lock()
	st := s.state
	if !st.BatteryPresent {
		s.mu.Unlock()
		return
	}
	old := st.BatteryPercent
	cfg := st.Battery
	var expr *govaluate.EvaluableExpression
	var rate float64
	charging := st.ACPresent
	switch {
	case charging && cfg.ChargeRate > 0:
		expr, rate = s.cfg.chargeExpr, cfg.ChargeRate
	case !charging && cfg.DischargeRate > 0:
		expr, rate = s.cfg.dischargeExpr, cfg.DischargeRate
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	delta := rate * interval.Minutes()
	if expr != nil {
		v, err := s.evalCurve(expr, old, rate, interval)
		if err != nil {
			log.Errorf("battery curve: %v, using linear delta", err)
		} else {
			delta = v
		}
	}
	if !charging {
		delta = -delta
	}
	s.applyBattery(old+delta, false)
}

// applyBattery clamps and stores a new percent, broadcasting when the
// integer part moves and firing the low battery notification on a
// downward threshold crossing. force pushes the broadcast even when the
// integer part is unchanged (direct setters do).
func (s *Simulator) applyBattery(percent float64, force bool) {
	percent = clamp(percent, 0, 100)
	s.mu.Lock()
	st := s.state
	old := st.BatteryPercent
	st.BatteryPercent = percent
	changed := int(percent) != int(old)
	crossed := old > door.LowBatteryThreshold && percent <= door.LowBatteryThreshold
	notify := crossed && st.NotifyLowBattery
	wire := st.WireBatteryPercent()
	s.mu.Unlock()

	s.recordHistory(percent)
	s.st.SetBatteryPercent(int64(wire))
	if changed || force {
		log.Debugf("battery at %.2f%%", percent)
		s.BroadcastBattery()
	}
	if notify {
		log.Infof("battery crossed %d%%, notifying", door.LowBatteryThreshold)
		s.broadcast(protocol.NewReply(protocol.CmdNotifyLowBattery).
			Set(protocol.FieldBatteryPercent, wire))
	}
}

// SetBattery pins the battery to a percent.
func (s *Simulator) SetBattery(percent float64) {
	log.Infof("battery set to %.1f%%", percent)
	s.applyBattery(percent, true)
}

// SetACPresent connects or disconnects AC power.
func (s *Simulator) SetACPresent(on bool) bool {
	var unchanged bool
	s.withState(func(st *door.State) {
		unchanged = st.ACPresent == on
		st.ACPresent = on
	})
	if unchanged {
		return on
	}
	log.Infof("AC present=%v", on)
	s.BroadcastBattery()
	return on
}

// ToggleACPresent flips AC power.
func (s *Simulator) ToggleACPresent() bool {
	var cur bool
	s.withState(func(st *door.State) { cur = st.ACPresent })
	return s.SetACPresent(!cur)
}

// SetBatteryPresent inserts or removes the battery.
func (s *Simulator) SetBatteryPresent(on bool) bool {
	var unchanged bool
	s.withState(func(st *door.State) {
		unchanged = st.BatteryPresent == on
		st.BatteryPresent = on
	})
	if unchanged {
		return on
	}
	log.Infof("battery present=%v", on)
	var wire int
	s.withState(func(st *door.State) { wire = st.WireBatteryPercent() })
	s.st.SetBatteryPercent(int64(wire))
	s.BroadcastBattery()
	return on
}

// BatteryPresent reports whether the battery is installed.
func (s *Simulator) BatteryPresent() bool {
	var on bool
	s.withState(func(st *door.State) { on = st.BatteryPresent })
	return on
}

// SetChargeRate updates the charge rate in percent per minute.
func (s *Simulator) SetChargeRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("charge rate must not be negative")
	}
	s.withState(func(st *door.State) { st.Battery.ChargeRate = rate })
	log.Infof("charge rate set to %.2f%%/min", rate)
	return nil
}

// SetDischargeRate updates the discharge rate in percent per minute.
func (s *Simulator) SetDischargeRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("discharge rate must not be negative")
	}
	s.withState(func(st *door.State) { st.Battery.DischargeRate = rate })
	log.Infof("discharge rate set to %.2f%%/min", rate)
	return nil
}
