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
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(broadcastCmd)
}

var broadcastCmd = &cobra.Command{
	Use:       "broadcast <kind>",
	Short:     "Make the simulator push a broadcast to every connected peer",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"status", "settings", "battery", "hwinfo", "stats", "schedules", "notifications", "all"},
	RunE: func(_ *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return run("broadcast " + args[0])
	},
}
