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
	"strings"
	"testing"

	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatus(t *testing.T) {
	status := &poolset.StatusReport{
		TargetPGsPerOSD: 100,
		Subtrees: map[string]*poolset.SubtreeStatus{
			"replicated_rule_ssd": {Rule: "replicated_rule_ssd", Root: "default~ssd", OSDCount: 4, PGTarget: 400, PGCurrent: 48, PoolCount: 1, Capacity: 4 << 40, Overlapping: true},
			"replicated_rule":     {Rule: "replicated_rule", Root: "default", OSDCount: 8, PGTarget: 800, PGCurrent: 72, PoolCount: 2, Capacity: 8 << 40, Overlapping: true},
		},
		Intents: []poolset.IntentStatus{
			{PoolSet: "fs", PoolName: "fs.data", Policy: poolset.PolicyWarn, From: 8, To: 16},
		},
		InProgress: []poolset.AdjustmentStatus{
			{AdjustmentInProgress: poolset.AdjustmentInProgress{ID: "a", PoolName: "rbd", OldPGNumTarget: 32, NewPGNumTarget: 64}, Progress: 0.25},
		},
		Health: &poolset.HealthCheck{Name: poolset.HealthTooFewPGs, Summary: "1 pools have too few placement groups", Detail: []string{"Pool fs.data has 8 placement groups, should have 16"}},
	}

	out, err := getStatus(status)
	require.NoError(t, err)
	assert.Contains(t, out, "TARGET PGS PER OSD: 100\n")
	assert.Contains(t, out, "HEALTH POOLSETS_TOO_FEW_PGS: 1 pools have too few placement groups\n")
	assert.Contains(t, out, "    Pool fs.data has 8 placement groups, should have 16\n")
	assert.Contains(t, out, "8.00 TiB")
	assert.Contains(t, out, "4.00 TiB")
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "fs.data")

	// subtrees are sorted by rule
	hdd := strings.Index(out, "replicated_rule ")
	require.NotEqual(t, -1, hdd)
	assert.Less(t, hdd, strings.Index(out, "replicated_rule_ssd"))

	_, err = getStatus(nil)
	assert.Error(t, err)
}
