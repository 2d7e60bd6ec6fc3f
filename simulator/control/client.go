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
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client talks to a running simulator's control channel.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	// OnLog receives asynchronous LOG lines seen while waiting for a
	// command reply. Nil drops them.
	OnLog func(line string)
}

// Dial connects to a control channel.
func Dial(address string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}
	return &Client{conn: conn, scanner: bufio.NewScanner(conn)}, nil
}

// Close terminates the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one command line and returns the unescaped OK payload. An
// ERROR reply comes back as an error. LOG lines arriving before the
// reply go to OnLog.
func (c *Client) Do(line string) (string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return "", fmt.Errorf("sending %q: %w", line, err)
	}
	for c.scanner.Scan() {
		reply := c.scanner.Text()
		switch {
		case strings.HasPrefix(reply, "OK: "):
			return Unescape(strings.TrimPrefix(reply, "OK: ")), nil
		case strings.HasPrefix(reply, "ERROR: "):
			return "", fmt.Errorf("%s", Unescape(strings.TrimPrefix(reply, "ERROR: ")))
		case strings.HasPrefix(reply, "LOG: "):
			if c.OnLog != nil {
				c.OnLog(Unescape(strings.TrimPrefix(reply, "LOG: ")))
			}
		default:
			return "", fmt.Errorf("malformed control reply %q", reply)
		}
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("connection closed before reply")
}

// Watch blocks forever streaming LOG lines to OnLog, until the
// connection drops.
func (c *Client) Watch() error {
	for c.scanner.Scan() {
		reply := c.scanner.Text()
		if strings.HasPrefix(reply, "LOG: ") && c.OnLog != nil {
			c.OnLog(Unescape(strings.TrimPrefix(reply, "LOG: ")))
		}
	}
	return c.scanner.Err()
}
