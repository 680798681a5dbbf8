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

package poolset

import (
	"testing"

	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjustmentState(pgNum, pgNumTarget int, states map[string]int) *ClusterState {
	return &ClusterState{
		OSDMap: &cephclient.OSDMap{Pools: []cephclient.PoolInfo{
			{ID: 1, Name: "a", PgNum: pgNum, PgNumTarget: pgNumTarget},
		}},
		PGStates: map[int]map[string]int{1: states},
	}
}

func TestNewAdjustment(t *testing.T) {
	_, err := NewAdjustment("a", 8, 8)
	assert.Error(t, err)

	adj, err := NewAdjustment("a", 8, 16)
	require.NoError(t, err)
	assert.NotEmpty(t, adj.ID)
	assert.Equal(t, "Adjusting pool a placement groups from 8 to 16", adj.Message())

	other, err := NewAdjustment("a", 8, 16)
	require.NoError(t, err)
	assert.NotEqual(t, adj.ID, other.ID)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		pgNum    int
		target   int
		states   map[string]int
		expected AdvanceState
	}{
		{"converged", 16, 16, map[string]int{"active+clean": 16}, Converged},
		{"waiting for pg count", 12, 16, map[string]int{"active+clean": 12}, Converging},
		{"no stats yet", 8, 16, nil, Converging},
		{"creating", 16, 16, map[string]int{"active+clean": 12, "creating": 4}, Converging},
		{"unknown", 16, 16, map[string]int{"active+clean": 10, "unknown": 6}, Converging},
		{"repair", 16, 16, map[string]int{"repair": 16}, Aborted},
		{"compound repair", 12, 16, map[string]int{"active+clean": 10, "active+clean+repair": 2}, Aborted},
		{"toofull", 12, 16, map[string]int{"active+recovery_toofull": 12}, Aborted},
		{"repair is not a substring match", 16, 16, map[string]int{"active+clean": 15, "active+repairing_soon": 1}, Converged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj, err := NewAdjustment("a", 8, 16)
			require.NoError(t, err)
			result := adj.Advance(adjustmentState(tt.pgNum, tt.target, tt.states))
			assert.Equal(t, tt.expected, result.State, result.State.String())
			if tt.expected == Aborted {
				assert.Equal(t, "pool a is unhealthy", result.Reason)
			}
		})
	}
}

func TestAdvanceMissingPool(t *testing.T) {
	adj, err := NewAdjustment("gone", 8, 16)
	require.NoError(t, err)
	result := adj.Advance(adjustmentState(16, 16, nil))
	assert.Equal(t, Aborted, result.State)
	assert.Equal(t, "pool gone no longer exists", result.Reason)
	assert.Equal(t, 0.0, adj.Progress(adjustmentState(16, 16, nil)))
}

func TestProgress(t *testing.T) {
	grow, err := NewAdjustment("a", 8, 16)
	require.NoError(t, err)
	assert.Equal(t, 0.0, grow.Progress(adjustmentState(8, 16, nil)))
	assert.Equal(t, 0.5, grow.Progress(adjustmentState(12, 16, nil)))
	assert.Equal(t, 1.0, grow.Progress(adjustmentState(16, 16, nil)))
	assert.Equal(t, 1.0, grow.Progress(adjustmentState(32, 16, nil)))

	shrink, err := NewAdjustment("a", 64, 32)
	require.NoError(t, err)
	assert.Equal(t, 0.25, shrink.Progress(adjustmentState(56, 32, nil)))
}

func TestAdvanceStateString(t *testing.T) {
	assert.Equal(t, "Converging", Converging.String())
	assert.Equal(t, "Converged", Converged.String())
	assert.Equal(t, "Aborted", Aborted.String())
	assert.Equal(t, "AdvanceState(7)", AdvanceState(7).String())
}
