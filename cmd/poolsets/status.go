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
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/rook/poolsets/pkg/util/display"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Outputs the placement group budget of the crush subtrees and the pending adjustments",
	Args:  cobra.NoArgs,
}

func init() {
	statusCmd.RunE = func(cmd *cobra.Command, args []string) error {
		result, err := runCommand(poolset.NewStatusCommand())
		if err != nil {
			return err
		}
		out, err := getStatus(result.Status)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
}

func getStatus(status *poolset.StatusReport) (string, error) {
	if status == nil {
		return "", errors.New("no status in the response")
	}

	var buffer bytes.Buffer
	w := poolsets.NewTableWriter(&buffer)

	buffer.WriteString(fmt.Sprintf("TARGET PGS PER OSD: %d\n", status.TargetPGsPerOSD))

	if status.Health != nil {
		buffer.WriteString("\n")
		buffer.WriteString(fmt.Sprintf("HEALTH %s: %s\n", status.Health.Name, status.Health.Summary))
		for _, d := range status.Health.Detail {
			buffer.WriteString(fmt.Sprintf("    %s\n", d))
		}
	}

	var rules []string
	for rule := range status.Subtrees {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	buffer.WriteString("\n")
	buffer.WriteString("SUBTREES:\n")
	fmt.Fprintln(w, "RULE\tROOT\tOSDS\tCAPACITY\tPG TARGET\tPG CURRENT\tPOOLS\tOVERLAPPING")
	for _, rule := range rules {
		s := status.Subtrees[rule]
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%t\n", s.Rule, s.Root, s.OSDCount,
			display.SignedBytesToString(s.Capacity), s.PGTarget, s.PGCurrent, s.PoolCount, s.Overlapping)
	}
	w.Flush()

	buffer.WriteString("\n")
	buffer.WriteString("ADJUSTMENTS:\n")
	fmt.Fprintln(w, "POOLSET\tPOOL\tPOLICY\tFROM\tTO")
	for _, i := range status.Intents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", i.PoolSet, i.PoolName, i.Policy, i.From, i.To)
	}
	w.Flush()

	buffer.WriteString("\n")
	buffer.WriteString("IN PROGRESS:\n")
	fmt.Fprintln(w, "POOL\tFROM\tTO\tPROGRESS")
	for _, a := range status.InProgress {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\n", a.PoolName, a.OldPGNumTarget, a.NewPGNumTarget, a.Progress*100)
	}
	w.Flush()

	return buffer.String(), nil
}
