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
	"sort"
)

// maybeAdjust is the opportunistic part of the cycle. Health is always updated, but no new
// adjustment starts while another one is in flight.
func (c *Controller) maybeAdjust() {
	if c.state == nil {
		return
	}
	intents := GenerateIntents(c.registry, c.state, c.targetPGsPerOSD, c.config.Threshold, nil)
	c.intents = intents
	c.updateHealth(intents)

	if len(c.adjustments) > 0 {
		logger.Debugf("%d adjustments in progress, not starting new ones", len(c.adjustments))
		return
	}

	byBudget := map[string][]*AdjustmentIntent{}
	for _, i := range intents {
		byBudget[i.Status.Budget] = append(byBudget[i.Status.Budget], i)
	}
	budgets := make([]string, 0, len(byBudget))
	for budget := range byBudget {
		budgets = append(budgets, budget)
	}
	sort.Strings(budgets)

	for _, budget := range budgets {
		c.maybeGrow(byBudget[budget])
	}
}

// maybeGrow starts the most needed growth of a PG budget if it allows, otherwise it shrinks
// other pools of the budget to make room for it
func (c *Controller) maybeGrow(intents []*AdjustmentIntent) {
	var candidate *AdjustmentIntent
	for _, i := range intents {
		if !i.autoscaled() || !i.IsGrowth() {
			continue
		}
		if candidate == nil || i.UndersizeFraction > candidate.UndersizeFraction {
			candidate = i
		}
	}
	if candidate == nil {
		logger.Debugf("no growth intents")
		return
	}

	available := float64(candidate.Status.Available())
	needed := float64(candidate.NewPGNumTarget-candidate.CurrentPGNum()) * candidate.RawUsedRate
	if available >= needed {
		c.startAdjustment(candidate)
		return
	}

	logger.Warningf("insufficient resources to grow pool %q, looking for other pools to shrink", candidate.PoolName())
	c.makeRoomFor(intents, needed-available)
}

// makeRoomFor starts shrinking autoscaled pools to free at least deficit raw PGs, preferring to
// shrink as few pools as possible. It returns the raw PG count freed.
func (c *Controller) makeRoomFor(intents []*AdjustmentIntent, deficit float64) float64 {
	var shrinks []*AdjustmentIntent
	for _, i := range intents {
		if i.autoscaled() && !i.IsGrowth() && !c.adjusting(i.PoolName()) {
			shrinks = append(shrinks, i)
		}
	}
	if len(shrinks) == 0 {
		logger.Warningf("no shrink adjustments available")
		return 0
	}
	sort.SliceStable(shrinks, func(a, b int) bool {
		return shrinks[a].RawPGDelta() < shrinks[b].RawPGDelta()
	})

	logger.Infof("attempting to select pool shrinks to free %v raw pg capacity", deficit)
	var selected []*AdjustmentIntent
	freed := 0.0
	for freed < deficit && len(shrinks) > 0 {
		// the smallest shrink covering what is left, or else the largest one there is
		pick := len(shrinks) - 1
		for idx, s := range shrinks {
			if s.RawPGDelta() >= deficit-freed {
				pick = idx
				break
			}
		}
		selected = append(selected, shrinks[pick])
		freed += shrinks[pick].RawPGDelta()
		shrinks = append(shrinks[:pick], shrinks[pick+1:]...)
	}

	started := 0.0
	for _, s := range selected {
		logger.Infof("shrinking pool %q", s.PoolName())
		if c.startAdjustment(s) {
			started += s.RawPGDelta()
		}
	}
	return started
}

// startAdjustment sets the new pg_num_target and starts tracking its progress. A failed
// mutation is logged and the pool is reconsidered in a later cycle.
func (c *Controller) startAdjustment(intent *AdjustmentIntent) bool {
	adj, err := NewAdjustment(intent.PoolName(), intent.CurrentPGNum(), intent.NewPGNumTarget)
	if err != nil {
		logger.Errorf("failed to start adjustment. %v", err)
		return false
	}
	if err := c.cluster.SetPoolPGNum(intent.PoolName(), intent.NewPGNumTarget); err != nil {
		logger.Errorf("pg_num_target adjustment on pool %q to %d failed. %v", intent.PoolName(), intent.NewPGNumTarget, err)
		return false
	}
	c.state.setPGNumTarget(intent.PoolName(), intent.NewPGNumTarget)

	logger.Infof("%s", adj.Message())
	c.adjustments = append(c.adjustments, adj)
	c.advanceAdjustment(adj)
	return true
}

func (c *Controller) advanceAdjustment(adj *AdjustmentInProgress) {
	result := adj.Advance(c.state)
	switch result.State {
	case Aborted:
		logger.Errorf("adjustment aborted. %s", result.Reason)
		c.progress.Fail(adj.ID, result.Reason)
		c.removeAdjustment(adj)
	case Converged:
		logger.Infof("completed adjustment of pool %q to %d placement groups", adj.PoolName, adj.NewPGNumTarget)
		c.progress.Complete(adj.ID)
		c.removeAdjustment(adj)
	default:
		fraction := adj.Progress(c.state)
		logger.Debugf("adjustment still in progress (%s, %v)", adj.Message(), fraction)
		c.progress.Update(adj.ID, adj.Message(), fraction)
	}
}

// advanceAll advances every in flight adjustment
func (c *Controller) advanceAll() {
	if c.state == nil {
		return
	}
	adjustments := append([]*AdjustmentInProgress(nil), c.adjustments...)
	for _, adj := range adjustments {
		c.advanceAdjustment(adj)
	}
}

func (c *Controller) removeAdjustment(adj *AdjustmentInProgress) {
	for i, a := range c.adjustments {
		if a == adj {
			c.adjustments = append(c.adjustments[:i], c.adjustments[i+1:]...)
			return
		}
	}
}

// adjusting returns true if the pool has an adjustment in flight
func (c *Controller) adjusting(poolName string) bool {
	for _, a := range c.adjustments {
		if a.PoolName == poolName {
			return true
		}
	}
	return false
}

// Adjustments returns a copy of the in flight adjustments
func (c *Controller) Adjustments() []AdjustmentInProgress {
	out := make([]AdjustmentInProgress, 0, len(c.adjustments))
	for _, a := range c.adjustments {
		out = append(out, *a)
	}
	return out
}
