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
	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
)

// AdjustmentIntent is a pg_num change the autoscaler would like to make
type AdjustmentIntent struct {
	PoolSet     *PoolSet
	Pool        cephclient.PoolInfo
	Status      *SubtreeStatus
	RawUsedRate float64
	// NewPGNumTarget is always double or half the current target
	NewPGNumTarget int
	// UndersizeFraction is the ideal target over the current one, 2 meaning the pool is half the
	// size it should be
	UndersizeFraction float64
}

// PoolName is the name of the pool to adjust
func (a *AdjustmentIntent) PoolName() string {
	return a.Pool.Name
}

// CurrentPGNum is the pg_num_target of the pool when the intent was generated
func (a *AdjustmentIntent) CurrentPGNum() int {
	return a.Pool.PgNumTarget
}

// IsGrowth returns true when the pool would get more PGs
func (a *AdjustmentIntent) IsGrowth() bool {
	return a.NewPGNumTarget > a.CurrentPGNum()
}

// PGDelta is the change in the pool's PG count
func (a *AdjustmentIntent) PGDelta() int {
	d := a.CurrentPGNum() - a.NewPGNumTarget
	if d < 0 {
		return -d
	}
	return d
}

// RawPGDelta is the change in the raw PG count, counting every replica
func (a *AdjustmentIntent) RawPGDelta() float64 {
	return float64(a.PGDelta()) * a.RawUsedRate
}

func (a *AdjustmentIntent) autoscaled() bool {
	return a.PoolSet.Policy == PolicyAutoscale
}

// GenerateIntents returns the pools of the registry whose pg_num_target is more than threshold
// times too big or small for the share of their subtree's capacity they use. When ruleFilter is
// set, only pools using those rules are considered.
func GenerateIntents(registry *Registry, state *ClusterState, targetPGsPerOSD int, threshold float64, ruleFilter []string) []*AdjustmentIntent {
	statuses := ComputeSubtreeStatus(state, registryRules(registry, state), targetPGsPerOSD)

	var filter map[string]bool
	if ruleFilter != nil {
		filter = map[string]bool{}
		for _, rule := range ruleFilter {
			filter[rule] = true
		}
	}

	var intents []*AdjustmentIntent
	for _, ps := range registry.List() {
		logger.Debugf("checking poolset %q", ps.Name)
		for _, id := range ps.PoolIDs() {
			pool, ok := state.OSDMap.PoolByID(id)
			if !ok {
				logger.Warningf("pool %d missing from osd map", id)
				continue
			}
			ruleName, ok := state.ruleOf(pool)
			if !ok {
				continue
			}
			if filter != nil && !filter[ruleName] {
				logger.Debugf("ignoring pool %q because its rule %q is not in %v", pool.Name, ruleName, ruleFilter)
				continue
			}
			status, ok := statuses[ruleName]
			if !ok {
				continue
			}
			current := pool.PgNumTarget
			if current <= 0 {
				continue
			}

			rawUsedRate := state.rawUsedRate(pool.ID)
			rawUsed := state.BytesUsed[pool.ID] * rawUsedRate

			capacityRatio := 0.0
			if status.Capacity > 0 {
				capacityRatio = rawUsed / float64(status.Capacity)
			}

			ideal := capacityRatio * float64(status.PGTarget) / rawUsedRate
			if ideal < MinPGNum {
				ideal = MinPGNum
			}
			logger.Debugf("pool %q using %v of space, pg target %v (current %d)", pool.Name, capacityRatio, ideal, current)

			newTarget := 0
			if ideal > float64(current)*threshold {
				newTarget = current * 2
			} else if ideal <= float64(current)/threshold && current/2 >= MinPGNum {
				newTarget = current / 2
			} else {
				continue
			}

			intents = append(intents, &AdjustmentIntent{
				PoolSet:           ps,
				Pool:              *pool,
				Status:            status,
				RawUsedRate:       rawUsedRate,
				NewPGNumTarget:    newTarget,
				UndersizeFraction: ideal / float64(current),
			})
		}
	}

	for _, i := range intents {
		logger.Debugf("intent %q %d->%d (autoscale=%t)", i.PoolName(), i.CurrentPGNum(), i.NewPGNumTarget, i.autoscaled())
	}
	return intents
}
