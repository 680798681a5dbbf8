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
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (c *Controller) listPoolSets() *Result {
	result := &Result{PoolSets: []*PoolSet{}}
	for _, ps := range c.registry.List() {
		result.PoolSets = append(result.PoolSets, ps.DeepCopy())
	}
	return result
}

func (c *Controller) setPoolSet(cmd *SetCommand) (*Result, error) {
	ps, ok := c.registry.Get(cmd.PoolSet)
	if !ok {
		return nil, newConfigErrorf(ErrNotFound, "Poolset '%s' not found", cmd.PoolSet)
	}
	if cmd.Key != PolicyKey {
		return nil, newConfigErrorf(ErrInvalid, "Unknown key '%s'", cmd.Key)
	}
	policy, err := ParsePolicy(cmd.Value)
	if err != nil {
		return nil, err
	}

	if ps.Policy != policy {
		logger.Infof("setting policy of poolset %q from %q to %q", ps.Name, ps.Policy, policy)
		ps.Policy = policy
		c.registry.MarkDirty()
	}
	return &Result{}, nil
}

// deletePoolSet deletes the pools of the poolset, including those of an incomplete creation,
// and then the poolset itself
func (c *Controller) deletePoolSet(ctx context.Context, cmd *DeleteCommand) (*Result, error) {
	ps, ok := c.registry.Get(cmd.PoolSet)
	if !ok {
		logger.Warningf("poolset delete on non-existent %q", cmd.PoolSet)
		return &Result{Message: fmt.Sprintf("Poolset '%s' already does not exist", cmd.PoolSet)}, nil
	}
	logger.Infof("deleting poolset %q", ps.Name)

	if err := c.refresh(); err != nil {
		return nil, errors.Wrap(err, "failed to refresh cluster state")
	}

	ids := ps.PoolIDs()
	for _, intent := range ps.Intents {
		if intent.PoolID != nil {
			ids = append(ids, *intent.PoolID)
			continue
		}
		// the pool may have been created before its id was recorded
		if pool, ok := c.state.OSDMap.PoolByName(intent.Name); ok {
			ids = append(ids, pool.ID)
		}
	}
	for _, id := range ids {
		pool, ok := c.state.OSDMap.PoolByID(id)
		if !ok {
			continue
		}
		logger.Infof("deleting pool %q", pool.Name)
		if err := c.cluster.DeletePool(pool.Name); err != nil {
			return nil, errors.Wrapf(err, "failed to delete pool %q of poolset %q", pool.Name, ps.Name)
		}
		c.dropAdjustments(pool.Name)
		delete(ps.PoolProperties, id)
		c.registry.MarkDirty()
	}

	c.registry.Remove(ps.Name)
	return &Result{Message: fmt.Sprintf("Deleted poolset %s", ps.Name)}, nil
}

// dropAdjustments stops tracking the adjustments of a deleted pool
func (c *Controller) dropAdjustments(poolName string) {
	for _, adj := range append([]*AdjustmentInProgress(nil), c.adjustments...) {
		if adj.PoolName == poolName {
			c.progress.Fail(adj.ID, fmt.Sprintf("pool %s was deleted", poolName))
			c.removeAdjustment(adj)
		}
	}
}
