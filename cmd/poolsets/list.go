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
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Lists the poolsets",
	Args:    cobra.NoArgs,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", outputTable, "output format (table, json or yaml)")
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		result, err := runCommand(poolset.NewListCommand())
		if err != nil {
			return err
		}
		out, err := listPoolSets(result.PoolSets, listOutput)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
}

func listPoolSets(poolSets []*poolset.PoolSet, format string) (string, error) {
	switch format {
	case outputJSON:
		out, err := json.MarshalIndent(poolSets, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "failed to format poolsets")
		}
		return string(out) + "\n", nil
	case outputYAML:
		out, err := yaml.Marshal(poolSets)
		if err != nil {
			return "", errors.Wrap(err, "failed to format poolsets")
		}
		return string(out), nil
	case outputTable:
	default:
		return "", errors.Errorf("unknown output format %q", format)
	}

	if len(poolSets) == 0 {
		return "No poolsets\n", nil
	}

	var buffer bytes.Buffer
	w := poolsets.NewTableWriter(&buffer)
	fmt.Fprintln(w, "NAME\tPOLICY\tAPPLICATION\tPOOLS\tCREATING")
	for _, ps := range poolSets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", ps.Name, ps.Policy, applications(ps), poolIDs(ps), len(ps.Intents) > 0)
	}
	w.Flush()
	return buffer.String(), nil
}

func applications(ps *poolset.PoolSet) string {
	var apps []string
	for app := range ps.Application {
		apps = append(apps, app)
	}
	sort.Strings(apps)
	return strings.Join(apps, ",")
}

func poolIDs(ps *poolset.PoolSet) string {
	ids := ps.PoolIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return strings.Join(out, ",")
}
