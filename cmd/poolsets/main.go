/*
Copyright 2019 The Rook Authors. All rights reserved.

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
	"fmt"
	"os"

	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/util/flags"
	"github.com/spf13/cobra"
)

func main() {
	addCommands()

	if err := poolsets.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCommands() {
	for _, cmd := range []*cobra.Command{serveCmd, createCmd, listCmd, setCmd, deleteCmd, statusCmd, notifyCmd} {
		// the root command already loaded its persistent flags
		flags.SetFlagsFromEnv(cmd.Flags(), poolsets.EnvVarPrefix)
		poolsets.RootCmd.AddCommand(cmd)
	}
}
