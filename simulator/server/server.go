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
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/facebook/petdoor/door"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Server owns the wire protocol listener and the simulator lifecycle.
type Server struct {
	Config *Config
	Sim    *Simulator

	listener net.Listener
	cancel   context.CancelFunc
}

// Start binds the listener and serves until a termination signal, the
// run duration elapsing, or Stop. It blocks.
func (s *Server) Start() error {
	if err := s.Config.CreatePidFile(); err != nil {
		return fmt.Errorf("creating pid file: %w", err)
	}
	defer func() {
		if err := s.Config.DeletePidFile(); err != nil && !os.IsNotExist(err) {
			log.Warningf("deleting pid file: %v", err)
		}
	}()

	addr := net.JoinHostPort(s.Config.Host, strconv.Itoa(s.Config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	if s.Config.MaxClients > 0 {
		listener = netutil.LimitListener(listener, s.Config.MaxClients)
	}
	s.listener = listener
	log.Infof("listening on %s", listener.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.Sim.Start()
	defer s.Sim.Stop()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			go s.Sim.Attach(conn)
		}
	})

	eg.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return nil
			case sig := <-sigs:
				if sig == unix.SIGHUP {
					s.reload()
					continue
				}
				log.Infof("got %s, shutting down", sig)
				return errors.New("terminated by signal")
			}
		}
	})

	if s.Config.RunDuration > 0 {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.Config.RunDuration):
				log.Infof("run duration %s elapsed, shutting down", s.Config.RunDuration)
				return errors.New("run duration elapsed")
			}
		})
	}

	// Closing the listener unblocks the accept goroutine on cancel.
	eg.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debugf("sd_notify: %v", err)
	}

	err = eg.Wait()
	if err != nil && (errors.Is(err, net.ErrClosed) || err.Error() == "terminated by signal" || err.Error() == "run duration elapsed") {
		return nil
	}
	return err
}

// Stop terminates a running Start.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Addr reports the bound listener address, handy when Port was 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// reload re-reads the dynamic config on SIGHUP.
func (s *Server) reload() {
	if s.Config.ConfigFile == "" {
		log.Warningf("SIGHUP with no -config file, nothing to reload")
		return
	}
	if err := s.Config.UpdateDynamicConfig(); err != nil {
		log.Errorf("reloading %s: %v", s.Config.ConfigFile, err)
		return
	}
	s.Sim.withState(func(st *door.State) {
		st.Timing = s.Config.Timing
		st.Battery = s.Config.Battery
	})
	log.Infof("reloaded dynamic config from %s", s.Config.ConfigFile)
}
