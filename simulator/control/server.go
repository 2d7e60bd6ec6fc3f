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

// Package control implements the plain-text operator channel of the
// simulator. It is a line protocol: one command per line in, one
// "OK: ..." or "ERROR: ..." line back, with asynchronous "LOG: ..."
// lines interleaved for attached watchers. Multi-line payloads travel
// on a single line with newlines and backslashes escaped.
package control

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Escape folds a reply onto one line: backslashes double, newlines
// become the two characters \n.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// Unescape undoes Escape.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			if r == 'n' {
				b.WriteRune('\n')
			} else {
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// client is one attached control connection. The mutex serializes
// command replies against LOG lines pushed from the logrus hook.
type client struct {
	conn net.Conn
	mu   sync.Mutex
}

func (c *client) writeLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	return err
}

// Server is the control channel listener.
type Server struct {
	Host string
	Port int
	Env  *Env

	mu       sync.Mutex
	clients  map[*client]bool
	listener net.Listener
}

// logHook fans formatted log entries out to every attached control
// connection as LOG lines.
type logHook struct {
	srv *Server
}

func (h *logHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *logHook) Fire(entry *log.Entry) error {
	line := fmt.Sprintf("%s %s", strings.ToUpper(entry.Level.String()), entry.Message)
	h.srv.mu.Lock()
	clients := make([]*client, 0, len(h.srv.clients))
	for c := range h.srv.clients {
		clients = append(clients, c)
	}
	h.srv.mu.Unlock()
	for _, c := range clients {
		// A dead watcher gets dropped on its next read, not here.
		_ = c.writeLine("LOG: " + Escape(line))
	}
	return nil
}

// Start serves the control channel until ctx is done. It blocks.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding control %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.clients = map[*client]bool{}
	s.mu.Unlock()
	log.Infof("control channel on %s", listener.Addr())

	hook := &logHook{srv: s}
	log.AddHook(hook)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("control accept: %w", err)
		}
		go s.serve(conn)
	}
}

// Addr reports the bound listener address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) serve(conn net.Conn) {
	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	log.Debugf("control client %s attached", conn.RemoteAddr())

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		log.Debugf("control client %s detached", conn.RemoteAddr())
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out, err := Dispatch(s.Env, strings.Fields(line))
		if err != nil {
			if werr := c.writeLine("ERROR: " + Escape(err.Error())); werr != nil {
				return
			}
			continue
		}
		if werr := c.writeLine("OK: " + Escape(out)); werr != nil {
			return
		}
	}
}
