/*
Copyright 2016 The Rook Authors. All rights reserved.

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

package client

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
)

const (
	crushStepTake = "take"
	// DeviceClassSSD is the crush device class of solid state osds
	DeviceClassSSD = "ssd"
)

// CrushMap is the go representation of a CRUSH map
type CrushMap struct {
	Devices []struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Class string `json:"class"`
	} `json:"devices"`
	Buckets []CrushBucket `json:"buckets"`
	Rules   []CrushRule   `json:"rules"`
}

// CrushBucket is a bucket of the crush hierarchy. Items with a non-negative id are osds.
type CrushBucket struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Items    []struct {
		ID     int `json:"id"`
		Weight int `json:"weight"`
		Pos    int `json:"pos"`
	} `json:"items"`
}

// CrushRule is a placement rule
type CrushRule struct {
	ID    int    `json:"rule_id"`
	Name  string `json:"rule_name"`
	Type  int    `json:"type"`
	Steps []struct {
		Operation string `json:"op"`
		Number    int    `json:"num"`
		Item      int    `json:"item"`
		ItemName  string `json:"item_name"`
		Type      string `json:"type"`
	} `json:"steps"`
}

// Root returns the name of the bucket the rule takes from, including the device class shadow
// suffix (e.g. "default~ssd")
func (r *CrushRule) Root() string {
	for _, step := range r.Steps {
		if step.Operation == crushStepTake {
			return step.ItemName
		}
	}
	return ""
}

// RuleByName returns the rule with the given name
func (c *CrushMap) RuleByName(name string) (*CrushRule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Name == name {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

// RuleByID returns the rule with the given id
func (c *CrushMap) RuleByID(id int) (*CrushRule, bool) {
	for i := range c.Rules {
		if c.Rules[i].ID == id {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

// RuleByRoot returns the first rule taking from the given root
func (c *CrushMap) RuleByRoot(root string) (*CrushRule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Root() == root {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

// OSDsUnder returns the sorted ids of the osds below the named bucket
func (c *CrushMap) OSDsUnder(root string) []int {
	byID := make(map[int]*CrushBucket, len(c.Buckets))
	var start *CrushBucket
	for i := range c.Buckets {
		byID[c.Buckets[i].ID] = &c.Buckets[i]
		if c.Buckets[i].Name == root {
			start = &c.Buckets[i]
		}
	}
	if start == nil {
		return nil
	}

	seen := map[int]bool{}
	var osds []int
	var walk func(b *CrushBucket)
	walk = func(b *CrushBucket) {
		for _, item := range b.Items {
			if item.ID >= 0 {
				if !seen[item.ID] {
					seen[item.ID] = true
					osds = append(osds, item.ID)
				}
				continue
			}
			if child, ok := byID[item.ID]; ok {
				walk(child)
			}
		}
	}
	walk(start)
	sort.Ints(osds)
	return osds
}

// DeviceClassCount returns the number of osd devices of the given class
func (c *CrushMap) DeviceClassCount(class string) int {
	count := 0
	for _, d := range c.Devices {
		if d.Class == class {
			count++
		}
	}
	return count
}

// GetCrushMap returns the current crush map
func GetCrushMap(context *clusterd.Context, clusterInfo *ClusterInfo) (*CrushMap, error) {
	args := []string{"osd", "crush", "dump"}
	buf, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get crush map")
	}

	var c CrushMap
	if err := json.Unmarshal(buf, &c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal crush map")
	}

	return &c, nil
}

// CreateReplicatedCrushRule creates a replicated rule taking from the root, separating replicas
// across the failure domain and restricted to the device class
func CreateReplicatedCrushRule(context *clusterd.Context, clusterInfo *ClusterInfo, ruleName, root, failureDomain, deviceClass string) error {
	args := []string{"osd", "crush", "rule", "create-replicated", ruleName, root, failureDomain}
	if deviceClass != "" {
		args = append(args, deviceClass)
	}

	logger.Infof("creating crush rule %q on root %q with device class %q", ruleName, root, deviceClass)
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to create crush rule %q", ruleName)
	}

	return nil
}
