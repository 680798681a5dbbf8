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

// Package poolset manages groups of ceph pools and keeps their placement group counts in line with
// the capacity they consume.
package poolset

import (
	"time"

	"github.com/coreos/pkg/capnslog"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "op-poolset")

const (
	// MinPGNum is the floor for any pool's pg_num chosen by the autoscaler
	MinPGNum = 8
	// DefaultReplicationSize is the replica count assumed for newly created pools
	DefaultReplicationSize = 3
	// DefaultThreshold is the hysteresis factor before a pool is resized
	DefaultThreshold = 2.0
	// DefaultInterval between opportunistic adjustment cycles
	DefaultInterval = 5 * time.Second
	// DefaultStoreName is the name of the store holding the registry document
	DefaultStoreName = "rook-ceph-poolsets"

	// DefaultRule is the rule used for data pools on spinning disks
	DefaultRule = "replicated_rule"
	// DefaultSSDRule is the name given to the rule created to place metadata pools on SSDs
	DefaultSSDRule = "replicated_rule_ssd"
	// DefaultRoot is the crush root of new pools
	DefaultRoot = "default"

	// TargetPGsPerOSDKey is the mon setting for the ideal PG count per OSD
	TargetPGsPerOSDKey = "mon_target_pg_per_osd"
	// MaxPGsPerOSDKey is the mon setting for the hard PG ceiling per OSD
	MaxPGsPerOSDKey = "mon_max_pg_per_osd"
)

// Policy controls how much the autoscaler may interfere with the pools of a poolset
type Policy string

const (
	// PolicySilent does no pg count management
	PolicySilent Policy = "silent"
	// PolicyWarn raises a health warning when the pools have too few PGs
	PolicyWarn Policy = "warn"
	// PolicyAutoscale adjusts pg_num up and down automatically
	PolicyAutoscale Policy = "autoscale"
)

// Policies lists the valid policies
var Policies = []Policy{PolicySilent, PolicyWarn, PolicyAutoscale}

// ParsePolicy validates a policy name
func ParsePolicy(value string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == value {
			return p, nil
		}
	}
	return "", newConfigErrorf(ErrInvalid, "unknown policy %q, options are %s", value, policyNames())
}

func policyNames() string {
	names := ""
	for i, p := range Policies {
		if i > 0 {
			names += ","
		}
		names += string(p)
	}
	return names
}

// Config holds the tunables of the autoscaler
type Config struct {
	// TargetPGsPerOSD is the ideal PG count per OSD. Zero means read it from the mons.
	TargetPGsPerOSD int `json:"targetPGsPerOSD"`
	// MaxPGsPerOSD is the PG count per OSD above which pool creation fails. Zero means read it
	// from the mons.
	MaxPGsPerOSD    int           `json:"maxPGsPerOSD"`
	ReplicationSize int           `json:"replicationSize"`
	Threshold       float64       `json:"threshold"`
	Interval        time.Duration `json:"interval"`
	DefaultRule     string        `json:"defaultRule"`
	SSDRule         string        `json:"ssdRule"`
	DefaultRoot     string        `json:"defaultRoot"`
	StoreName       string        `json:"storeName"`
}

// DefaultConfig returns the compiled in settings
func DefaultConfig() Config {
	return Config{
		ReplicationSize: DefaultReplicationSize,
		Threshold:       DefaultThreshold,
		Interval:        DefaultInterval,
		DefaultRule:     DefaultRule,
		SSDRule:         DefaultSSDRule,
		DefaultRoot:     DefaultRoot,
		StoreName:       DefaultStoreName,
	}
}

// Validate rejects settings the autoscaler cannot work with
func (c *Config) Validate() error {
	if c.TargetPGsPerOSD < 0 {
		return newConfigErrorf(ErrInvalid, "target pgs per osd must not be negative, got %d", c.TargetPGsPerOSD)
	}
	if c.MaxPGsPerOSD < 0 {
		return newConfigErrorf(ErrInvalid, "max pgs per osd must not be negative, got %d", c.MaxPGsPerOSD)
	}
	if c.TargetPGsPerOSD > 0 && c.MaxPGsPerOSD > 0 && c.MaxPGsPerOSD < c.TargetPGsPerOSD {
		return newConfigErrorf(ErrInvalid, "max pgs per osd %d is below the target %d", c.MaxPGsPerOSD, c.TargetPGsPerOSD)
	}
	if c.ReplicationSize < 1 {
		return newConfigErrorf(ErrInvalid, "replication size must be at least 1, got %d", c.ReplicationSize)
	}
	if c.Threshold <= 1.0 {
		return newConfigErrorf(ErrInvalid, "threshold must be greater than 1.0, got %v", c.Threshold)
	}
	if c.Interval <= 0 {
		return newConfigErrorf(ErrInvalid, "interval must be positive, got %v", c.Interval)
	}
	if c.DefaultRule == "" || c.SSDRule == "" || c.DefaultRoot == "" {
		return newConfigErrorf(ErrInvalid, "crush rule and root names must not be empty")
	}
	if c.StoreName == "" {
		return newConfigErrorf(ErrInvalid, "store name must not be empty")
	}
	return nil
}

// ssdRoot is the name of the device class shadow tree of the default root
func (c *Config) ssdRoot() string {
	return c.DefaultRoot + "~ssd"
}
