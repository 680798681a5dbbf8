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
	"encoding/json"
	"testing"

	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func testPoolSets() []*poolset.PoolSet {
	fs := poolset.NewPoolSet("fs", poolset.PolicyWarn)
	fs.Application["cephfs"] = map[string]string{}
	fs.PoolProperties[3] = &poolset.PoolProperties{}
	fs.PoolProperties[2] = &poolset.PoolProperties{}

	creating := poolset.NewPoolSet("new", poolset.PolicyAutoscale)
	creating.Application["rbd"] = map[string]string{}
	creating.Intents = []poolset.PoolIntent{{Application: "rbd", Name: "new", InitialPGNum: 8}}
	return []*poolset.PoolSet{fs, creating}
}

func TestListPoolSetsTable(t *testing.T) {
	out, err := listPoolSets(testPoolSets(), outputTable)
	require.NoError(t, err)

	expectedOut := "NAME      POLICY      APPLICATION   POOLS     CREATING\n" +
		"fs        warn        cephfs        2,3       false\n" +
		"new       autoscale   rbd                     true\n"
	assert.Equal(t, expectedOut, out)

	out, err = listPoolSets(nil, outputTable)
	require.NoError(t, err)
	assert.Equal(t, "No poolsets\n", out)
}

func TestListPoolSetsFormats(t *testing.T) {
	out, err := listPoolSets(testPoolSets(), outputJSON)
	require.NoError(t, err)
	var fromJSON []*poolset.PoolSet
	require.NoError(t, json.Unmarshal([]byte(out), &fromJSON))
	assert.Equal(t, testPoolSets(), fromJSON)

	out, err = listPoolSets(testPoolSets(), outputYAML)
	require.NoError(t, err)
	assert.Contains(t, out, "policy: autoscale")
	var fromYAML []*poolset.PoolSet
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, testPoolSets(), fromYAML)

	_, err = listPoolSets(nil, "xml")
	assert.Error(t, err)
}

func TestNewSetCommand(t *testing.T) {
	assert.Equal(t, poolset.NewSetPolicyCommand("fs", "warn"), newSetCommand("fs", "policy", "warn"))
	assert.Equal(t, &poolset.SetCommand{PoolSet: "fs", Key: "size", Value: "1"}, newSetCommand("fs", "size", "1"))
}
