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

package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/facebook/petdoor/door"
	"github.com/facebook/petdoor/protocol"
	"github.com/facebook/petdoor/simulator/control"
	"github.com/facebook/petdoor/simulator/server"
	"github.com/facebook/petdoor/simulator/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	c := &server.Config{}
	c.Timing = door.DefaultTiming()
	c.Battery = door.DefaultBatteryConfig()

	var pprofaddr string
	var promport int
	var prominterval time.Duration

	flag.StringVar(&c.Host, "host", "", "IP to bind on, empty for all")
	flag.IntVar(&c.Port, "port", protocol.Port, "Port to listen on")
	flag.IntVar(&c.ControlPort, "controlport", 0, "Control channel port. 0 means port+1, negative disables the channel")
	flag.StringVar(&c.FwVersion, "fw", "", "Firmware version to report, as major.minor.patch")
	flag.StringVar(&c.HwVersion, "hw", "", "Hardware version to report, as ver.rev")
	flag.StringVar(&c.LogLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	flag.IntVar(&c.MonitoringPort, "monitoringport", 8889, "Port to run monitoring server on, 0 disables it")
	flag.IntVar(&c.MaxClients, "maxclients", 0, "Cap on concurrent peers, 0 means unlimited")
	flag.StringVar(&c.ConfigFile, "config", "", "Path to a dynamic config file, re-read on SIGHUP")
	flag.StringVar(&c.SettingsFile, "settings", "", "Path to a device settings image to boot with")
	flag.StringVar(&c.PidFile, "pidfile", "", "Pid file location")
	flag.DurationVar(&c.RunDuration, "rundur", 0, "Exit after the duration elapses, 0 runs forever")
	flag.StringVar(&pprofaddr, "pprofaddr", "", "host:port for the pprof to bind")
	flag.IntVar(&promport, "promport", 0, "Port to expose prometheus /metrics on, 0 disables it")
	flag.DurationVar(&prominterval, "prominterval", 10*time.Second, "Scrape interval of the prometheus exporter")

	flag.Parse()

	switch c.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", c.LogLevel)
	}

	if c.ConfigFile != "" {
		if err := c.UpdateDynamicConfig(); err != nil {
			log.Fatalf("Reading config %s: %v", c.ConfigFile, err)
		}
	}

	if pprofaddr != "" {
		log.Warningf("Starting profiler on %s", pprofaddr)
		go func() {
			log.Println(http.ListenAndServe(pprofaddr, nil))
		}()
	}

	// Monitoring
	st := stats.NewJSONStats()
	if c.MonitoringPort > 0 {
		go st.Start(c.MonitoringPort)
	}
	if promport > 0 {
		exporter := stats.NewPrometheusExporter(st, promport, prominterval)
		go exporter.Start()
	}

	sim, err := server.NewSimulator(c, st)
	if err != nil {
		log.Fatalf("Setting up simulator: %v", err)
	}

	s := &server.Server{
		Config: c,
		Sim:    sim,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer cancel()
		return s.Start()
	})

	if c.ControlPort >= 0 {
		port := c.ControlPort
		if port == 0 {
			port = c.Port + 1
		}
		ctl := &control.Server{
			Host: c.Host,
			Port: port,
			Env: &control.Env{
				Sim: sim,
				Shutdown: func() {
					s.Stop()
					cancel()
				},
			},
		}
		eg.Go(func() error {
			return ctl.Start(ctx)
		})
	}

	if err := eg.Wait(); err != nil {
		log.Fatalf("Simulator run failed: %v", err)
	}
}
