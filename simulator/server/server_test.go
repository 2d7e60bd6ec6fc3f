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
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	"github.com/facebook/petdoor/simulator/stats"
	"github.com/stretchr/testify/require"
)

// testClient wraps one peer connection with frame reassembly.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	framer *protocol.Framer
	queued [][]byte
}

func startTestServer(t *testing.T) (*Server, *Simulator) {
	cfg := &Config{
		StaticConfig: StaticConfig{Host: "127.0.0.1", Port: 0},
		DynamicConfig: DynamicConfig{
			Timing:  fastTiming(),
			Battery: door.DefaultBatteryConfig(),
		},
	}
	sim, err := NewSimulator(cfg, stats.NewJSONStats())
	require.NoError(t, err)
	srv := &Server{Config: cfg, Sim: sim}
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	require.Eventually(t, func() bool { return srv.Addr() != nil },
		2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		srv.Stop()
		require.NoError(t, <-done)
	})
	return srv, sim
}

func dialTest(t *testing.T, srv *Server) *testClient {
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, framer: protocol.NewFramer()}
}

func (c *testClient) send(msg string) {
	_, err := c.conn.Write([]byte(msg))
	require.NoError(c.t, err)
}

// next returns the next complete frame, decoded.
func (c *testClient) next() map[string]interface{} {
	deadline := time.Now().Add(2 * time.Second)
	for len(c.queued) == 0 {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		buf := make([]byte, 4096)
		n, err := c.conn.Read(buf)
		require.NoError(c.t, err, "waiting for a frame")
		frames, err := c.framer.Feed(buf[:n])
		require.NoError(c.t, err)
		c.queued = append(c.queued, frames...)
	}
	frame := c.queued[0]
	c.queued = c.queued[1:]
	var decoded map[string]interface{}
	require.NoError(c.t, json.Unmarshal(frame, &decoded))
	return decoded
}

// nextTagged skips frames until one carries the wanted CMD tag.
func (c *testClient) nextTagged(tag string) map[string]interface{} {
	for {
		msg := c.next()
		if msg[protocol.FieldCmd] == tag {
			return msg
		}
	}
}

func TestServerPingPong(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"PING": "1234567890"}`)
	msg := c.next()
	require.Equal(t, "PONG", msg[protocol.FieldCmd])
	require.Equal(t, "1234567890", msg[protocol.FieldPong])
	require.Equal(t, "true", msg[protocol.FieldSuccess])
	require.Equal(t, "door-to-phone", msg[protocol.FieldDirection])
}

func TestServerMsgIDEcho(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"CMD": "GET_POWER", "msgId": 42}`)
	msg := c.nextTagged("GET_POWER")
	require.Equal(t, float64(42), msg[protocol.FieldMsgID])
	require.Equal(t, "1", msg[protocol.FieldPower])
}

func TestServerConfigCarrier(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	// The phone app sends the tag under CONFIG instead of CMD.
	c.send(`{"CONFIG": "GET_DOOR_STATUS"}`)
	msg := c.nextTagged("GET_DOOR_STATUS")
	require.Equal(t, "CLOSED", msg[protocol.FieldDoorStatus])
}

func TestServerCoalescedAndSplitFrames(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	// Two commands in one write.
	c.send(`{"CMD": "GET_POWER"}{"CMD": "GET_AUTO"}`)
	require.Equal(t, "1", c.nextTagged("GET_POWER")[protocol.FieldPower])
	require.Equal(t, "1", c.nextTagged("GET_AUTO")[protocol.FieldAuto])

	// One command over two writes.
	c.send(`{"CMD": "GET_TIME`)
	c.send(`ZONE"}`)
	msg := c.nextTagged("GET_TIMEZONE")
	require.Equal(t, "America/New_York", msg[protocol.FieldTimezone])
}

func TestServerHoldTimeRoundTrip(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	// 750 centiseconds on the wire is 7.5 seconds internally.
	c.send(`{"CMD": "SET_HOLD_TIME", "holdTime": 750}`)
	msg := c.nextTagged("SET_HOLD_TIME")
	require.Equal(t, "true", msg[protocol.FieldSuccess])

	c.send(`{"CMD": "GET_HOLD_TIME"}`)
	msg = c.nextTagged("GET_HOLD_TIME")
	require.Equal(t, float64(750), msg[protocol.FieldHoldTime])

	c.send(`{"CMD": "GET_SETTINGS"}`)
	msg = c.nextTagged("GET_SETTINGS")
	settings := msg[protocol.FieldSettings].(map[string]interface{})
	require.Equal(t, float64(750), settings[protocol.FieldHoldOpenTime])

	// Out of range values fail and leave the setting alone.
	c.send(`{"CMD": "SET_HOLD_TIME", "holdTime": 2}`)
	msg = c.nextTagged("SET_HOLD_TIME")
	require.Equal(t, "false", msg[protocol.FieldSuccess])
}

func TestServerFlagCommands(t *testing.T) {
	srv, sim := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"CMD": "POWER_OFF"}`)
	msg := c.nextTagged("POWER_OFF")
	require.Equal(t, "0", msg[protocol.FieldPower])

	var power bool
	sim.withState(func(st *door.State) { power = st.Power })
	require.False(t, power)

	c.send(`{"CMD": "OPEN"}`)
	msg = c.nextTagged("OPEN")
	require.Equal(t, "false", msg[protocol.FieldSuccess])
	require.Contains(t, msg[protocol.FieldReason], "power")

	c.send(`{"CMD": "POWER_ON"}`)
	msg = c.nextTagged("POWER_ON")
	require.Equal(t, "1", msg[protocol.FieldPower])
}

func TestServerScheduleCRUD(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"CMD": "SET_SCHEDULE", "index": 0, "enabled": "1",
		"daysOfWeek": [0,1,1,1,1,1,0], "inside": true, "outside": false,
		"inStartTime": {"hour": 8, "min": 30}, "inEndTime": {"hour": 17, "min": 0}}`)
	msg := c.nextTagged("SET_SCHEDULE")
	require.Equal(t, "true", msg[protocol.FieldSuccess])

	c.send(`{"CMD": "GET_SCHEDULE", "index": 0}`)
	msg = c.nextTagged("GET_SCHEDULE")
	sched := msg[protocol.FieldSchedule].(map[string]interface{})
	require.Equal(t, "1", sched[protocol.FieldEnabled])
	start := sched[protocol.FieldInStartTime].(map[string]interface{})
	require.Equal(t, float64(8), start["hour"])
	require.Equal(t, float64(30), start["min"])

	c.send(`{"CMD": "GET_SCHEDULE_LIST"}`)
	msg = c.nextTagged("GET_SCHEDULE_LIST")
	require.Len(t, msg[protocol.FieldSchedules], 1)

	// Missing index reads fail.
	c.send(`{"CMD": "GET_SCHEDULE", "index": 9}`)
	msg = c.nextTagged("GET_SCHEDULE")
	require.Equal(t, "false", msg[protocol.FieldSuccess])

	c.send(`{"CMD": "DELETE_SCHEDULE", "index": 0}`)
	msg = c.nextTagged("DELETE_SCHEDULE")
	require.Equal(t, "true", msg[protocol.FieldSuccess])

	c.send(`{"CMD": "GET_SCHEDULE_LIST"}`)
	msg = c.nextTagged("GET_SCHEDULE_LIST")
	require.Len(t, msg[protocol.FieldSchedules], 0)
}

func TestServerUnknownCommand(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"CMD": "MAKE_COFFEE", "msgId": "m1"}`)
	msg := c.nextTagged("MAKE_COFFEE")
	require.Equal(t, "false", msg[protocol.FieldSuccess])
	require.Equal(t, "m1", msg[protocol.FieldMsgID])
}

func TestServerBroadcastFanOut(t *testing.T) {
	srv, sim := startTestServer(t)
	sim.withState(func(st *door.State) { st.HoldTime = 0.05 })

	peers := make([]*testClient, 3)
	for i := range peers {
		peers[i] = dialTest(t, srv)
		// A round trip proves the peer is registered before the cycle.
		peers[i].send(fmt.Sprintf(`{"PING": "%d"}`, i))
		peers[i].nextTagged("PONG")
	}

	peers[0].send(`{"CMD": "OPEN"}`)

	// Every peer sees the full phase sequence pushed as DOOR_STATUS.
	want := []string{"RISING", "SLOWING", "HOLDING", "CLOSING_TOP_OPEN", "CLOSING_MID_OPEN", "CLOSED"}
	for _, p := range peers {
		for _, phase := range want {
			msg := p.nextTagged("DOOR_STATUS")
			require.Equal(t, phase, msg[protocol.FieldDoorStatus])
		}
	}
}

func TestServerNotificationsPartialUpdate(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	c.send(`{"CMD": "SET_NOTIFICATIONS", "lowBatteryNotifications": "0"}`)
	msg := c.nextTagged("SET_NOTIFICATIONS")
	require.Equal(t, "true", msg[protocol.FieldSuccess])
	n := msg[protocol.FieldNotifications].(map[string]interface{})
	require.Equal(t, "0", n[protocol.FieldNotifyLowBattery])
	// Untouched flags keep their defaults.
	require.Equal(t, "1", n[protocol.FieldNotifyInsideOn])

	c.send(`{"CMD": "SET_NOTIFICATIONS"}`)
	msg = c.nextTagged("SET_NOTIFICATIONS")
	require.Equal(t, "false", msg[protocol.FieldSuccess])
}

func TestServerHwInfo(t *testing.T) {
	cfg := &Config{
		StaticConfig: StaticConfig{Host: "127.0.0.1", Port: 0, FwVersion: "4.5.6", HwVersion: "3.1"},
		DynamicConfig: DynamicConfig{
			Timing:  fastTiming(),
			Battery: door.DefaultBatteryConfig(),
		},
	}
	sim, err := NewSimulator(cfg, stats.NewJSONStats())
	require.NoError(t, err)
	srv := &Server{Config: cfg, Sim: sim}
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	require.Eventually(t, func() bool { return srv.Addr() != nil },
		2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		srv.Stop()
		require.NoError(t, <-done)
	})

	c := dialTest(t, srv)
	c.send(`{"CMD": "GET_HW_INFO"}`)
	msg := c.nextTagged("GET_HW_INFO")
	info := msg[protocol.FieldFwInfo].(map[string]interface{})
	require.Equal(t, float64(4), info[protocol.FieldFwMajor])
	require.Equal(t, float64(5), info[protocol.FieldFwMinor])
	require.Equal(t, float64(6), info[protocol.FieldFwPatch])
	require.Equal(t, float64(3), info[protocol.FieldHwVersion])
	require.Equal(t, float64(1), info[protocol.FieldHwRevision])
}

func TestServerOversizedFrameDropsPeer(t *testing.T) {
	srv, _ := startTestServer(t)
	c := dialTest(t, srv)

	// An unterminated object bigger than the frame ceiling kills the
	// connection instead of buffering forever.
	junk := make([]byte, protocol.MaxFrame+1024)
	junk[0] = '{'
	for i := 1; i < len(junk); i++ {
		junk[i] = 'a'
	}
	c.send(string(junk))

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 16)
	_, err := c.conn.Read(buf)
	require.Error(t, err, "server should drop the connection")
}
