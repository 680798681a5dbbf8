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
	"strings"
)

// SubtreeStatus is the PG budget and usage of the crush subtree a rule places data in
type SubtreeStatus struct {
	Rule     string `json:"rule"`
	Root     string `json:"root"`
	OSDs     []int  `json:"osds"`
	OSDCount int    `json:"osd_count"`
	// PGTarget is the ideal raw PG count of the subtree
	PGTarget int `json:"pg_target"`
	// PGCurrent is the raw PG count of the subtree, scaled by pg_num_target/pg_num of each pool
	PGCurrent int `json:"pg_current"`
	// Capacity is the raw device capacity in bytes
	Capacity  int64 `json:"capacity"`
	PoolCount int   `json:"pool_count"`
	// Overlapping is set when subtrees of other roots share OSDs with this one. The counts are
	// then those of the union of the overlapping subtrees.
	Overlapping bool `json:"overlapping"`
	// Budget names the roots whose subtrees share this PG budget, the root itself unless
	// overlapping
	Budget string `json:"budget"`
}

// Available returns the raw PG count that can still be created within the target
func (s *SubtreeStatus) Available() int {
	return s.PGTarget - s.PGCurrent
}

// registryRules returns the crush rules of every pool in the registry
func registryRules(registry *Registry, state *ClusterState) []string {
	rules := map[string]bool{}
	for _, ps := range registry.List() {
		for _, id := range ps.PoolIDs() {
			pool, ok := state.OSDMap.PoolByID(id)
			if !ok {
				logger.Warningf("pool %d of poolset %q missing in osd map", id, ps.Name)
				continue
			}
			rule, ok := state.ruleOf(pool)
			if !ok {
				logger.Warningf("crush rule %d of pool %q not found", pool.CrushRule, pool.Name)
				continue
			}
			rules[rule] = true
		}
	}
	out := make([]string, 0, len(rules))
	for rule := range rules {
		out = append(out, rule)
	}
	sort.Strings(out)
	return out
}

// ComputeSubtreeStatus calculates the PG budget and usage under the root of each named rule.
// Rules missing from the crush map are skipped. Subtrees of distinct roots that share OSDs, like a
// root and its device class shadow tree, are accounted as one shared budget.
func ComputeSubtreeStatus(state *ClusterState, rules []string, targetPGsPerOSD int) map[string]*SubtreeStatus {
	result := map[string]*SubtreeStatus{}
	ruleIDs := map[string]int{}

	// PGs are counted by their pool's target, not the count in flux during a split or merge
	targetFactors := map[int]float64{}
	for _, pool := range state.OSDMap.Pools {
		pgNum := pool.PgNum
		if pgNum <= 0 {
			pgNum = 1
		}
		targetFactors[pool.ID] = float64(pool.PgNumTarget) / float64(pgNum)
	}

	for _, ruleName := range rules {
		rule, ok := state.Crush.RuleByName(ruleName)
		if !ok {
			logger.Warningf("crush rule %q not found", ruleName)
			continue
		}
		root := rule.Root()
		osds := state.Crush.OSDsUnder(root)
		logger.Debugf("root of rule %q is %q with osds %v", ruleName, root, osds)

		status := &SubtreeStatus{Rule: ruleName, Root: root, Budget: root}
		status.account(state, targetFactors, osds, map[int]bool{rule.ID: true}, targetPGsPerOSD)
		result[ruleName] = status
		ruleIDs[ruleName] = rule.ID
	}

	for _, group := range overlappingGroups(result) {
		mergeSubtrees(state, targetFactors, result, ruleIDs, group, targetPGsPerOSD)
	}
	return result
}

// account fills in the counts of the subtree made of the given osds, holding the pools of the
// given rules
func (s *SubtreeStatus) account(state *ClusterState, targetFactors map[int]float64, osds []int, ruleIDs map[int]bool, targetPGsPerOSD int) {
	inSubtree := make(map[int]bool, len(osds))
	for _, osd := range osds {
		inSubtree[osd] = true
	}

	count := 0.0
	for i := range state.PGs.PgStats {
		pg := &state.PGs.PgStats[i]
		poolID, err := pg.PoolID()
		if err != nil {
			continue
		}
		factor, ok := targetFactors[poolID]
		if !ok {
			continue
		}
		// each replica on the subtree counts, giving a raw PG count
		for _, osd := range pg.ActingOsdIDs {
			if inSubtree[osd] {
				count += factor
			}
		}
	}

	var capacity int64
	for _, osd := range osds {
		capacity += state.RawCapacity[osd]
	}

	poolCount := 0
	for _, pool := range state.OSDMap.Pools {
		if ruleIDs[pool.CrushRule] {
			poolCount++
		}
	}

	s.OSDs = osds
	s.OSDCount = len(osds)
	s.PGTarget = len(osds) * targetPGsPerOSD
	s.PGCurrent = int(count)
	s.Capacity = capacity
	s.PoolCount = poolCount
}

// overlappingGroups returns the sets of rules whose subtrees have distinct roots and share OSDs,
// directly or through another subtree of the set
func overlappingGroups(statuses map[string]*SubtreeStatus) [][]string {
	rules := make([]string, 0, len(statuses))
	for rule := range statuses {
		rules = append(rules, rule)
	}
	sort.Strings(rules)

	group := map[string]int{}
	for i, rule := range rules {
		group[rule] = i
	}
	join := func(a, b string) {
		from, to := group[b], group[a]
		if from == to {
			return
		}
		for rule, g := range group {
			if g == from {
				group[rule] = to
			}
		}
	}
	for i, a := range rules {
		for _, b := range rules[i+1:] {
			sa, sb := statuses[a], statuses[b]
			if sa.Root != sb.Root && intersects(sa.OSDs, sb.OSDs) {
				join(a, b)
			}
		}
	}

	members := map[int][]string{}
	for _, rule := range rules {
		members[group[rule]] = append(members[group[rule]], rule)
	}
	var groups [][]string
	for _, rule := range rules {
		if m := members[group[rule]]; len(m) > 1 && m[0] == rule {
			groups = append(groups, m)
		}
	}
	return groups
}

// mergeSubtrees replaces the counts of each subtree of the group with those of their union
func mergeSubtrees(state *ClusterState, targetFactors map[int]float64, statuses map[string]*SubtreeStatus, ruleIDs map[string]int, group []string, targetPGsPerOSD int) {
	osdSet := map[int]bool{}
	roots := map[string]bool{}
	ids := map[int]bool{}
	for _, rule := range group {
		for _, osd := range statuses[rule].OSDs {
			osdSet[osd] = true
		}
		roots[statuses[rule].Root] = true
		ids[ruleIDs[rule]] = true
	}
	osds := make([]int, 0, len(osdSet))
	for osd := range osdSet {
		osds = append(osds, osd)
	}
	sort.Ints(osds)
	rootNames := make([]string, 0, len(roots))
	for root := range roots {
		rootNames = append(rootNames, root)
	}
	sort.Strings(rootNames)
	budget := strings.Join(rootNames, ",")

	var shared SubtreeStatus
	shared.account(state, targetFactors, osds, ids, targetPGsPerOSD)
	for _, rule := range group {
		s := statuses[rule]
		logger.Debugf("rule %q shares the pg budget of roots %q", rule, budget)
		s.OSDs = append([]int(nil), osds...)
		s.OSDCount = shared.OSDCount
		s.PGTarget = shared.PGTarget
		s.PGCurrent = shared.PGCurrent
		s.Capacity = shared.Capacity
		s.PoolCount = shared.PoolCount
		s.Overlapping = true
		s.Budget = budget
	}
}

func intersects(a, b []int) bool {
	set := make(map[int]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if set[id] {
			return true
		}
	}
	return false
}
