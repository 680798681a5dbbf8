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
	"sort"

	"github.com/pkg/errors"
	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
	"k8s.io/utils/pointer"
)

const (
	// PoolSetMetadataKey is the application metadata key tagging a pool with its poolset
	PoolSetMetadataKey = "poolset"

	ssdFailureDomain = "osd"
)

// Applications that poolsets can be created for
const (
	ApplicationRados  = "rados"
	ApplicationRBD    = "rbd"
	ApplicationCephFS = "cephfs"
	ApplicationRGW    = "rgw"
)

// poolLayout returns the pools to create for an application. The weights are the share of the
// poolset size each pool is expected to use.
func poolLayout(application string) ([]PoolIntent, error) {
	switch application {
	case ApplicationRados, ApplicationRBD:
		return []PoolIntent{
			{Application: application, Weight: 1.0},
		}, nil
	case ApplicationCephFS:
		return []PoolIntent{
			{Application: application, Suffix: "meta", Metadata: true, Weight: 0.1},
			{Application: application, Suffix: "data", Weight: 1.0},
		}, nil
	case ApplicationRGW:
		return []PoolIntent{
			{Application: application, Suffix: "rgw.control", Metadata: true, Weight: 0.001},
			{Application: application, Suffix: "rgw.log", Metadata: true, Weight: 0.001},
			{Application: application, Suffix: "rgw.meta", Metadata: true, Weight: 0.001},
			{Application: application, Suffix: "rgw.buckets.data", Weight: 1.0},
		}, nil
	}
	return nil, newConfigErrorf(ErrInvalid, "invalid application %q", application)
}

// poolName is the name of a pool of the poolset. "." matches the naming of rgw zone pools.
func poolName(poolSet, suffix string) string {
	if suffix == "" {
		return poolSet
	}
	return fmt.Sprintf("%s.%s", poolSet, suffix)
}

// createPoolSet plans the pools of a new poolset, makes room for them in the PG budget and
// creates them
func (c *Controller) createPoolSet(ctx context.Context, cmd *CreateCommand) (*Result, error) {
	if cmd.PoolSet == "" {
		return nil, newConfigErrorf(ErrInvalid, "poolset name must not be empty")
	}
	size, err := ParseSizeSpec(cmd.Size)
	if err != nil {
		return nil, err
	}
	if existing, ok := c.registry.Get(cmd.PoolSet); ok {
		// checking the existing poolset is what we would have created is awkward, so accept it
		// if it serves the same application
		if existing.HasApplication(cmd.Application) {
			if existing.Creating() {
				return c.resumeCreation(ctx, existing)
			}
			return &Result{Message: fmt.Sprintf("Poolset '%s' already exists", cmd.PoolSet)}, nil
		}
		return nil, newConfigErrorf(ErrExists, "Poolset '%s' already exists", cmd.PoolSet)
	}
	intents, err := poolLayout(cmd.Application)
	if err != nil {
		return nil, err
	}

	if err := c.refresh(); err != nil {
		return nil, errors.Wrap(err, "failed to refresh cluster state")
	}
	hddRule, ssdRule, err := c.selectRules()
	if err != nil {
		return nil, err
	}

	ssdCount := c.state.Crush.DeviceClassCount(cephclient.DeviceClassSSD)
	// enough SSDs to place every replica and survive the loss of one
	useSSDs := ssdCount >= c.config.ReplicationSize+1
	logger.Infof("use ssds=%t (count=%d)", useSSDs, ssdCount)

	anySSDs := false
	for i := range intents {
		if intents[i].Metadata && useSSDs {
			intents[i].CrushRule = ssdRule
			anySSDs = true
		} else {
			intents[i].CrushRule = hddRule
		}
	}

	if anySSDs {
		if _, ok := c.state.Crush.RuleByName(ssdRule); !ok {
			logger.Infof("creating crush rule %q for ssd placement", ssdRule)
			if err := c.cluster.CreateReplicatedRule(ssdRule, c.config.DefaultRoot, ssdFailureDomain, cephclient.DeviceClassSSD); err != nil {
				return nil, err
			}
			if err := c.refresh(); err != nil {
				return nil, errors.Wrap(err, "failed to refresh cluster state")
			}
		}
	}

	for i := range intents {
		intents[i].Name = poolName(cmd.PoolSet, intents[i].Suffix)
	}

	rules := []string{hddRule}
	if anySSDs {
		rules = append(rules, ssdRule)
	}
	normalizeWeights(intents, rules)

	statuses := ComputeSubtreeStatus(c.state, rules, c.targetPGsPerOSD)
	for i := range intents {
		if err := c.sizePool(&intents[i], size, statuses); err != nil {
			return nil, err
		}
	}
	c.fitBudget(intents, statuses)

	ps := NewPoolSet(cmd.PoolSet, PolicyAutoscale)
	ps.Application[cmd.Application] = map[string]string{}
	ps.Intents = intents
	c.registry.Add(ps)

	// the intents are saved before any pool exists so an interrupted creation can be resumed
	logger.Debugf("saving new poolset %q", ps.Name)
	if err := c.registry.Save(ctx, c.store, c.config.StoreName); err != nil {
		c.registry.Remove(ps.Name)
		return nil, err
	}

	return c.completeCreation(ctx, ps)
}

// resumeCreation creates the pools an earlier create of the poolset did not get to
func (c *Controller) resumeCreation(ctx context.Context, ps *PoolSet) (*Result, error) {
	logger.Infof("resuming creation of poolset %q", ps.Name)
	if err := c.refresh(); err != nil {
		return nil, errors.Wrap(err, "failed to refresh cluster state")
	}
	return c.completeCreation(ctx, ps)
}

func (c *Controller) completeCreation(ctx context.Context, ps *PoolSet) (*Result, error) {
	if err := c.createPools(ctx, ps); err != nil {
		return nil, errors.Wrapf(err, "failed to create pools of poolset %q", ps.Name)
	}
	c.finishCreation(ps)

	logger.Debugf("re-saving poolset %q with pool ids", ps.Name)
	if err := c.registry.Save(ctx, c.store, c.config.StoreName); err != nil {
		return nil, err
	}

	return &Result{Message: fmt.Sprintf("Created poolset %s", ps.Name)}, nil
}

// selectRules returns the rules for data pools and for metadata pools on SSDs. The SSD rule may
// not exist yet.
func (c *Controller) selectRules() (string, string, error) {
	crush := c.state.Crush
	hddRule := c.config.DefaultRule
	if _, ok := crush.RuleByName(hddRule); !ok {
		// the default rule is missing, use whatever rule targets the default root
		rule, ok := crush.RuleByRoot(c.config.DefaultRoot)
		if !ok {
			return "", "", errors.Errorf("no suitable default crush rule found for root %q", c.config.DefaultRoot)
		}
		hddRule = rule.Name
	}

	ssdRule := c.config.SSDRule
	if rule, ok := crush.RuleByRoot(c.config.ssdRoot()); ok {
		ssdRule = rule.Name
	}
	return hddRule, ssdRule, nil
}

// normalizeWeights scales the weights of the pools sharing a rule so they add up to at most 1.0
func normalizeWeights(intents []PoolIntent, rules []string) {
	for _, rule := range rules {
		total := 0.0
		for _, i := range intents {
			if i.CrushRule == rule {
				total += i.Weight
			}
		}
		if total <= 1.0 {
			continue
		}
		for idx := range intents {
			if intents[idx].CrushRule == rule {
				intents[idx].Weight /= total
			}
		}
	}
}

// sizePool sets the size hints and the initial pg_num of a pool from its share of the subtree
func (c *Controller) sizePool(intent *PoolIntent, size SizeSpec, statuses map[string]*SubtreeStatus) error {
	status, ok := statuses[intent.CrushRule]
	if !ok {
		return errors.Errorf("crush rule %q not found", intent.CrushRule)
	}

	var ratio float64
	if size.Bytes != nil {
		adjusted := float64(*size.Bytes) * intent.Weight
		intent.TargetSize = pointer.Int64(int64(adjusted))
		if status.Capacity > 0 {
			ratio = adjusted / float64(status.Capacity)
			if ratio > 1.0 {
				ratio = 1.0
			}
		}
	} else {
		ratio = *size.Ratio * intent.Weight
		intent.TargetRatio = pointer.Float64(ratio)
	}

	pgNum := NearestPowerOfTwo(ratio * float64(status.PGTarget) / float64(c.config.ReplicationSize))
	if pgNum < MinPGNum {
		pgNum = MinPGNum
	}
	intent.InitialPGNum = pgNum
	logger.Infof("picked pg_num %d for pool %q because it has ratio %v of pg target %d", pgNum, intent.Name, ratio, status.PGTarget)
	return nil
}

// fitBudget shrinks existing pools when the new pools would exceed the PG target of a budget,
// and creates the new pools with the minimum pg_num when even that would exceed the hard limit
func (c *Controller) fitBudget(intents []PoolIntent, statuses map[string]*SubtreeStatus) {
	budgetRules := map[string][]string{}
	for rule, status := range statuses {
		budgetRules[status.Budget] = append(budgetRules[status.Budget], rule)
	}
	budgets := make([]string, 0, len(budgetRules))
	for budget := range budgetRules {
		budgets = append(budgets, budget)
	}
	sort.Strings(budgets)

	for _, budget := range budgets {
		rules := budgetRules[budget]
		sort.Strings(rules)
		status := statuses[rules[0]]
		inBudget := map[string]bool{}
		for _, rule := range rules {
			inBudget[rule] = true
		}

		newPGs := 0
		for _, i := range intents {
			if inBudget[i.CrushRule] {
				newPGs += i.InitialPGNum
			}
		}
		newCount := float64(status.PGCurrent + newPGs*c.config.ReplicationSize)
		logger.Infof("checking proposed pg count %v against target %d of roots %q", newCount, status.PGTarget, budget)
		if newCount <= float64(status.PGTarget) {
			continue
		}

		shrinks := GenerateIntents(c.registry, c.state, c.targetPGsPerOSD, c.config.Threshold, rules)
		freed := c.makeRoomFor(shrinks, newCount-float64(status.PGTarget))

		ceiling := float64(status.PGTarget) * float64(c.maxPGsPerOSD) / float64(c.targetPGsPerOSD)
		if newCount-freed > ceiling {
			logger.Warningf("new pools under roots %q would exceed the max pgs per osd, creating them with %d pgs", budget, MinPGNum)
			for idx := range intents {
				if inBudget[intents[idx].CrushRule] {
					intents[idx].InitialPGNum = MinPGNum
				}
			}
		} else if newCount-freed > float64(status.PGTarget) {
			logger.Infof("could not free enough pgs under roots %q, staying within the max pgs per osd", budget)
		}
	}
}

// createPools creates the pools of the poolset that do not have an id yet. Progress is saved
// after each pool.
func (c *Controller) createPools(ctx context.Context, ps *PoolSet) error {
	for idx := range ps.Intents {
		intent := &ps.Intents[idx]
		if intent.PoolID != nil {
			continue
		}
		logger.Infof("creating pool %q with %d pgs and rule %q", intent.Name, intent.InitialPGNum, intent.CrushRule)
		if err := c.cluster.CreatePool(intent.Name, intent.InitialPGNum, intent.CrushRule); err != nil {
			return err
		}
		if err := c.cluster.EnableApplication(intent.Name, intent.Application); err != nil {
			return err
		}
		if err := c.cluster.SetApplicationMetadata(intent.Name, intent.Application, PoolSetMetadataKey, ps.Name); err != nil {
			return err
		}

		osdMap, err := c.cluster.OSDMap()
		if err != nil {
			return errors.Wrap(err, "failed to load osd map")
		}
		pool, ok := osdMap.PoolByName(intent.Name)
		if !ok {
			return errors.Errorf("pool %q not found after creation", intent.Name)
		}
		if c.state != nil {
			c.state.OSDMap = osdMap
		}
		intent.PoolID = pointer.Int(pool.ID)
		c.registry.MarkDirty()
		c.save(ctx)
	}
	return nil
}

// finishCreation moves the created pools from the intents to the members of the poolset
func (c *Controller) finishCreation(ps *PoolSet) {
	for _, intent := range ps.Intents {
		ps.PoolProperties[*intent.PoolID] = &PoolProperties{
			TargetSize:  intent.TargetSize,
			TargetRatio: intent.TargetRatio,
		}
	}
	ps.Intents = nil
	c.registry.MarkDirty()
	logger.Debugf("poolset %q has %d pools", ps.Name, len(ps.PoolProperties))
}

// recoverCreations resumes the creations that were interrupted before all pools existed
func (c *Controller) recoverCreations(ctx context.Context) {
	for _, ps := range c.registry.List() {
		if !ps.Creating() {
			continue
		}
		logger.Infof("resuming interrupted creation of poolset %q", ps.Name)
		if err := c.createPools(ctx, ps); err != nil {
			logger.Errorf("failed to resume creation of poolset %q. %v", ps.Name, err)
			continue
		}
		c.finishCreation(ps)
	}
}
