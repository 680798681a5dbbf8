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

	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify <osd_map|fs_map|pg_summary>",
	Short: "Tells a running server that part of the cluster changed, for hooks that watch the cluster",
	Args:  cobra.ExactArgs(1),
}

func init() {
	notifyCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ev, err := poolset.ParseEventType(args[0])
		if err != nil {
			return err
		}
		c, err := poolsets.NewServerClient()
		if err != nil {
			return err
		}
		logger.Debugf("sending %q notification", ev)
		return c.Notify(context.Background(), ev)
	}
}
