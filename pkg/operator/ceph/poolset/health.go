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
)

const (
	// HealthTooFewPGs is raised for warn policy pools that should grow
	HealthTooFewPGs = "POOLSETS_TOO_FEW_PGS"
	// HealthSeverityWarning is the severity of the poolset health checks
	HealthSeverityWarning = "warning"
)

// HealthCheck is a health condition raised by the autoscaler
type HealthCheck struct {
	Name     string   `json:"name"`
	Severity string   `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   []string `json:"detail"`
}

// healthFromIntents returns a warning naming every warn policy pool that would like to grow, or
// nil if there are none
func healthFromIntents(intents []*AdjustmentIntent) *HealthCheck {
	var pools []string
	for _, i := range intents {
		if i.IsGrowth() && i.PoolSet.Policy == PolicyWarn {
			pools = append(pools, i.PoolName())
		}
	}
	if len(pools) == 0 {
		return nil
	}

	summary := fmt.Sprintf("%d pools have too few placement groups", len(pools))
	if len(pools) == 1 {
		summary = fmt.Sprintf("Pool %s has too few placement groups", pools[0])
	}
	return &HealthCheck{
		Name:     HealthTooFewPGs,
		Severity: HealthSeverityWarning,
		Summary:  summary,
		Detail:   pools,
	}
}

func (c *Controller) updateHealth(intents []*AdjustmentIntent) {
	health := healthFromIntents(intents)
	if health == nil {
		if c.health != nil {
			logger.Infof("health check %s cleared", c.health.Name)
		}
		c.health = nil
		return
	}
	if c.health == nil || c.health.Summary != health.Summary {
		logger.Warningf("pools requiring growth: %s", strings.Join(health.Detail, " "))
	}
	c.health = health
}
