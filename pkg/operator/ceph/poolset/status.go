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
	"github.com/pkg/errors"
)

// StatusReport is the resource usage of every subtree holding poolset pools, and the changes the
// autoscaler wants to make or is making
type StatusReport struct {
	Subtrees        map[string]*SubtreeStatus `json:"subtrees"`
	Intents         []IntentStatus            `json:"adjustments"`
	InProgress      []AdjustmentStatus        `json:"in_progress"`
	Health          *HealthCheck              `json:"health,omitempty"`
	TargetPGsPerOSD int                       `json:"target_pgs_per_osd"`
}

// IntentStatus is a pg_num change the autoscaler would like to make
type IntentStatus struct {
	PoolSet  string `json:"poolset"`
	PoolName string `json:"pool_name"`
	Policy   Policy `json:"policy"`
	From     int    `json:"from"`
	To       int    `json:"to"`
}

// AdjustmentStatus is a pg_num change in flight
type AdjustmentStatus struct {
	AdjustmentInProgress
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
}

func (c *Controller) status() (*Result, error) {
	if err := c.refresh(); err != nil {
		return nil, errors.Wrap(err, "failed to refresh cluster state")
	}
	intents := GenerateIntents(c.registry, c.state, c.targetPGsPerOSD, c.config.Threshold, nil)
	return &Result{Status: c.buildStatus(intents)}, nil
}

func (c *Controller) buildStatus(intents []*AdjustmentIntent) *StatusReport {
	report := &StatusReport{
		Subtrees:        ComputeSubtreeStatus(c.state, registryRules(c.registry, c.state), c.targetPGsPerOSD),
		Intents:         []IntentStatus{},
		InProgress:      []AdjustmentStatus{},
		TargetPGsPerOSD: c.targetPGsPerOSD,
	}
	for _, i := range intents {
		report.Intents = append(report.Intents, IntentStatus{
			PoolSet:  i.PoolSet.Name,
			PoolName: i.PoolName(),
			Policy:   i.PoolSet.Policy,
			From:     i.CurrentPGNum(),
			To:       i.NewPGNumTarget,
		})
	}
	for _, a := range c.adjustments {
		report.InProgress = append(report.InProgress, AdjustmentStatus{
			AdjustmentInProgress: *a,
			Message:              a.Message(),
			Progress:             a.Progress(c.state),
		})
	}
	report.Health = healthFromIntents(intents)
	return report
}

// reportSharedBudgets logs when subtrees start or stop sharing a PG budget
func (c *Controller) reportSharedBudgets(subtrees map[string]*SubtreeStatus) {
	shared := map[string]bool{}
	for _, s := range subtrees {
		if s.Overlapping {
			shared[s.Budget] = true
		}
	}
	for budget := range shared {
		if !c.sharedBudgets[budget] {
			logger.Warningf("crush roots %q overlap, their pools are autoscaled within one shared pg budget", budget)
		}
	}
	for budget := range c.sharedBudgets {
		if !shared[budget] {
			logger.Infof("crush roots %q no longer share a pg budget", budget)
		}
	}
	c.sharedBudgets = shared
}
