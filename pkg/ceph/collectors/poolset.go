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

// Package collectors exports the state of the poolset autoscaler to prometheus.
package collectors

import (
	"strconv"
	"sync"

	"github.com/coreos/pkg/capnslog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "ceph-collectors")

const (
	cephNamespace    = "ceph"
	poolsetSubsystem = "poolset"
)

// SnapshotSource provides the latest state of the autoscaler
type SnapshotSource interface {
	Snapshot() *poolset.Snapshot
}

// A PoolSetCollector exports the PG budget of every crush subtree holding poolset pools, and
// the adjustments the autoscaler wants to make or is making.
type PoolSetCollector struct {
	source SnapshotSource

	// scrapes may run concurrently, the vectors are reset on each one
	mu sync.Mutex

	// PoolSets is the number of poolsets in the registry
	PoolSets prometheus.Gauge

	// Pools is the number of pools of each poolset
	Pools *prometheus.GaugeVec

	// SubtreePGTarget is the ideal raw PG count of a subtree
	SubtreePGTarget *prometheus.GaugeVec

	// SubtreePGCurrent is the raw PG count of a subtree, counting pools by their pg_num target
	SubtreePGCurrent *prometheus.GaugeVec

	// SubtreeCapacity is the raw device capacity of a subtree
	SubtreeCapacity *prometheus.GaugeVec

	// SubtreeOSDs is the number of osds in a subtree
	SubtreeOSDs *prometheus.GaugeVec

	// SubtreeOverlapping is 1 when the subtree shares osds with another root
	SubtreeOverlapping *prometheus.GaugeVec

	// PendingAdjustments is the number of pg_num changes the autoscaler would like to make
	PendingAdjustments prometheus.Gauge

	// AdjustmentProgress is the progress of each pg_num change in flight, from 0 to 1
	AdjustmentProgress *prometheus.GaugeVec

	// TooFewPGs is the number of warn policy pools that should grow
	TooFewPGs prometheus.Gauge
}

// NewPoolSetCollector creates the collector reading from the given source
func NewPoolSetCollector(source SnapshotSource) *PoolSetCollector {
	subtreeLabels := []string{"rule", "root"}
	return &PoolSetCollector{
		source: source,

		PoolSets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "count",
			Help:      "Number of poolsets",
		}),
		Pools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "pools",
			Help:      "Number of pools in the poolset",
		}, []string{"poolset", "policy"}),
		SubtreePGTarget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "subtree_pg_target",
			Help:      "Ideal raw placement group count of the crush subtree",
		}, subtreeLabels),
		SubtreePGCurrent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "subtree_pg_current",
			Help:      "Raw placement group count of the crush subtree",
		}, subtreeLabels),
		SubtreeCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "subtree_capacity_bytes",
			Help:      "Raw device capacity of the crush subtree",
		}, subtreeLabels),
		SubtreeOSDs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "subtree_osds",
			Help:      "Number of osds in the crush subtree",
		}, subtreeLabels),
		SubtreeOverlapping: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "subtree_overlapping",
			Help:      "1 if the crush subtree shares osds with another root",
		}, subtreeLabels),
		PendingAdjustments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "pending_adjustments",
			Help:      "Number of pg_num changes the autoscaler would like to make",
		}),
		AdjustmentProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "adjustment_progress",
			Help:      "Progress of a pg_num change in flight",
		}, []string{"pool", "from", "to"}),
		TooFewPGs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cephNamespace,
			Subsystem: poolsetSubsystem,
			Name:      "too_few_pgs",
			Help:      "Number of warn policy pools with too few placement groups",
		}),
	}
}

func (c *PoolSetCollector) gauges() []prometheus.Gauge {
	return []prometheus.Gauge{
		c.PoolSets,
		c.PendingAdjustments,
		c.TooFewPGs,
	}
}

func (c *PoolSetCollector) gaugeVecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		c.Pools,
		c.SubtreePGTarget,
		c.SubtreePGCurrent,
		c.SubtreeCapacity,
		c.SubtreeOSDs,
		c.SubtreeOverlapping,
		c.AdjustmentProgress,
	}
}

func (c *PoolSetCollector) collect() bool {
	snapshot := c.source.Snapshot()
	if snapshot == nil || snapshot.Status == nil {
		return false
	}

	for _, vec := range c.gaugeVecs() {
		vec.Reset()
	}

	c.PoolSets.Set(float64(len(snapshot.PoolSets)))
	for _, ps := range snapshot.PoolSets {
		c.Pools.WithLabelValues(ps.Name, string(ps.Policy)).Set(float64(len(ps.PoolProperties)))
	}

	status := snapshot.Status
	for _, s := range status.Subtrees {
		c.SubtreePGTarget.WithLabelValues(s.Rule, s.Root).Set(float64(s.PGTarget))
		c.SubtreePGCurrent.WithLabelValues(s.Rule, s.Root).Set(float64(s.PGCurrent))
		c.SubtreeCapacity.WithLabelValues(s.Rule, s.Root).Set(float64(s.Capacity))
		c.SubtreeOSDs.WithLabelValues(s.Rule, s.Root).Set(float64(s.OSDCount))
		overlapping := 0.0
		if s.Overlapping {
			overlapping = 1
		}
		c.SubtreeOverlapping.WithLabelValues(s.Rule, s.Root).Set(overlapping)
	}

	c.PendingAdjustments.Set(float64(len(status.Intents)))
	for _, a := range status.InProgress {
		c.AdjustmentProgress.WithLabelValues(a.PoolName, strconv.Itoa(a.OldPGNumTarget), strconv.Itoa(a.NewPGNumTarget)).Set(a.Progress)
	}

	tooFew := 0
	if status.Health != nil && status.Health.Name == poolset.HealthTooFewPGs {
		tooFew = len(status.Health.Detail)
	}
	c.TooFewPGs.Set(float64(tooFew))
	return true
}

// Describe sends the descriptors of each metric over to the provided channel.
func (c *PoolSetCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range c.gauges() {
		ch <- metric.Desc()
	}
	for _, vec := range c.gaugeVecs() {
		vec.Describe(ch)
	}
}

// Collect sends the poolset metrics over to the provided prometheus Metric channel. Nothing is
// sent until the autoscaler has taken its first snapshot.
func (c *PoolSetCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.collect() {
		logger.Debugf("no poolset snapshot yet")
		return
	}

	for _, metric := range c.gauges() {
		ch <- metric
	}
	for _, vec := range c.gaugeVecs() {
		vec.Collect(ch)
	}
}
