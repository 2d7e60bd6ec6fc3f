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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/facebook/petdoor/protocol"
	"github.com/facebook/petdoor/simulator/control"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// RootCmd is a main entry point. It's exported so petdoorctl could be easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "petdoorctl",
	Short: "Operator CLI for the pet door simulator control channel",
}

// flags
var rootVerboseFlag bool
var rootTargetFlag string
var rootTimeoutFlag time.Duration

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&rootTargetFlag, "target", "t",
		fmt.Sprintf("127.0.0.1:%d", protocol.Port+1), "control channel address of a running simulator")
	RootCmd.PersistentFlags().DurationVar(&rootTimeoutFlag, "timeout", 5*time.Second, "connection timeout")

	// Color output only makes sense on a terminal.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

var okColor = color.New(color.FgGreen)
var errColor = color.New(color.FgRed)
var logColor = color.New(color.FgYellow)

// dial connects to the configured simulator, wiring LOG lines to
// stderr so they never pollute a piped reply.
func dial() (*control.Client, error) {
	client, err := control.Dial(rootTargetFlag, rootTimeoutFlag)
	if err != nil {
		return nil, err
	}
	client.OnLog = func(line string) {
		logColor.Fprintf(os.Stderr, "LOG: %s\n", line)
	}
	return client, nil
}

// run sends one command line and prints the reply.
func run(line string) error {
	client, err := dial()
	if err != nil {
		return err
	}
	defer client.Close()
	out, err := client.Do(line)
	if err != nil {
		errColor.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	okColor.Println(out)
	return nil
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
