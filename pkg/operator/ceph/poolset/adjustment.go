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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PG states that stop an adjustment
var abortStates = map[string]bool{
	"repair":           true,
	"recovery_toofull": true,
}

// AdvanceState is the outcome of observing an adjustment
type AdvanceState int

const (
	// Converging means the pool has not reached the new target yet
	Converging AdvanceState = iota
	// Converged means the pool is at the new target and its PGs are settled
	Converged
	// Aborted means the adjustment is abandoned. The target is not rolled back.
	Aborted
)

func (s AdvanceState) String() string {
	switch s {
	case Converging:
		return "Converging"
	case Converged:
		return "Converged"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("AdvanceState(%d)", int(s))
}

// AdvanceResult is returned by Advance
type AdvanceResult struct {
	State AdvanceState
	// Reason is set when the adjustment was aborted
	Reason string
}

// AdjustmentInProgress tracks a pg_num_target change until the mons have carried it out
type AdjustmentInProgress struct {
	ID             string `json:"id"`
	PoolName       string `json:"pool_name"`
	OldPGNumTarget int    `json:"from"`
	NewPGNumTarget int    `json:"to"`
}

// NewAdjustment starts tracking a change of the pool's pg_num_target
func NewAdjustment(poolName string, oldTarget, newTarget int) (*AdjustmentInProgress, error) {
	if oldTarget == newTarget {
		return nil, errors.Errorf("adjustment of pool %q does not change pg_num_target %d", poolName, oldTarget)
	}
	return &AdjustmentInProgress{
		ID:             uuid.NewString(),
		PoolName:       poolName,
		OldPGNumTarget: oldTarget,
		NewPGNumTarget: newTarget,
	}, nil
}

// Message describes the adjustment to users
func (a *AdjustmentInProgress) Message() string {
	return fmt.Sprintf("Adjusting pool %s placement groups from %d to %d", a.PoolName, a.OldPGNumTarget, a.NewPGNumTarget)
}

// Progress is how far pg_num has moved from the old target towards the new one, in [0,1]. The
// mons adjust pg_num in steps after pg_num_target is set.
func (a *AdjustmentInProgress) Progress(state *ClusterState) float64 {
	pool, ok := state.OSDMap.PoolByName(a.PoolName)
	if !ok {
		return 0
	}
	moved := abs(pool.PgNum - a.OldPGNumTarget)
	total := abs(a.NewPGNumTarget - a.OldPGNumTarget)
	fraction := float64(moved) / float64(total)
	if fraction > 1 {
		return 1
	}
	return fraction
}

// Advance observes the adjustment against a new snapshot of the cluster
func (a *AdjustmentInProgress) Advance(state *ClusterState) AdvanceResult {
	pool, ok := state.OSDMap.PoolByName(a.PoolName)
	if !ok {
		return AdvanceResult{State: Aborted, Reason: fmt.Sprintf("pool %s no longer exists", a.PoolName)}
	}

	// a pool with no stats yet was probably just created
	pgStates := state.PGStates[pool.ID]
	total := 0
	for stateName, count := range pgStates {
		total += count
		for _, s := range strings.Split(stateName, "+") {
			if abortStates[s] {
				return AdvanceResult{State: Aborted, Reason: fmt.Sprintf("pool %s is unhealthy", a.PoolName)}
			}
		}
	}
	logger.Debugf("pg states of pool %q: %v", a.PoolName, pgStates)

	if total != pool.PgNumTarget {
		return AdvanceResult{State: Converging}
	}
	for stateName, count := range pgStates {
		if count > 0 && (strings.Contains(stateName, "unknown") || strings.Contains(stateName, "creating")) {
			return AdvanceResult{State: Converging}
		}
	}
	return AdvanceResult{State: Converged}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
