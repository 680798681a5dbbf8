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
	"context"
	"fmt"

	"github.com/coreos/pkg/capnslog"
	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/spf13/cobra"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "poolsets")

var (
	createCmd = &cobra.Command{
		Use:   "create <application> <name> <size>",
		Short: "Creates a poolset for an application (rbd, cephfs or rgw). The size is a percentage of the cluster (\"10%\") or a byte count (\"100GB\")",
		Args:  cobra.ExactArgs(3),
	}
	setCmd = &cobra.Command{
		Use:   "set <name> policy <silent|warn|autoscale>",
		Short: "Sets a property of a poolset",
		Args:  cobra.ExactArgs(3),
	}
	deleteCmd = &cobra.Command{
		Use:   "delete <name>",
		Short: "Deletes a poolset and its pools",
		Args:  cobra.ExactArgs(1),
	}
)

func init() {
	createCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runMessage(poolset.NewCreateCommand(args[0], args[1], args[2]))
	}
	setCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runMessage(newSetCommand(args[0], args[1], args[2]))
	}
	deleteCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runMessage(poolset.NewDeleteCommand(args[0]))
	}
}

func newSetCommand(name, key, value string) poolset.Command {
	if key == poolset.PolicyKey {
		return poolset.NewSetPolicyCommand(name, value)
	}
	// anything else is rejected by the controller
	return &poolset.SetCommand{PoolSet: name, Key: key, Value: value}
}

// runCommand executes the command locally or on the server given with --server
func runCommand(cmd poolset.Command) (*poolset.Result, error) {
	ctx := context.Background()
	runner, err := poolsets.NewCommandRunner(ctx)
	if err != nil {
		return nil, err
	}
	return runner.Exec(ctx, cmd)
}

func runMessage(cmd poolset.Command) error {
	result, err := runCommand(cmd)
	if err != nil {
		return err
	}
	if result != nil && result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}
