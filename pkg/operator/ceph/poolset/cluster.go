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
	"strconv"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
)

// Cluster is the view of the ceph cluster used by the controller. Every call is a synchronous
// request to the mons.
type Cluster interface {
	OSDMap() (*cephclient.OSDMap, error)
	CrushMap() (*cephclient.CrushMap, error)
	PGDump() (*cephclient.PGDumpBrief, error)
	OSDUsage() (*cephclient.OSDUsage, error)
	PoolStats() (*cephclient.CephStoragePoolStats, error)
	Filesystems() ([]cephclient.CephFilesystem, error)
	ErasureCodeProfile(name string) (cephclient.CephErasureCodeProfile, error)
	MonConfigInt(key string) (int, error)

	CreatePool(name string, pgCount int, rule string) error
	EnableApplication(pool, app string) error
	SetApplicationMetadata(pool, app, key, value string) error
	SetPoolPGNum(pool string, pgNum int) error
	CreateReplicatedRule(name, root, failureDomain, deviceClass string) error
	DeletePool(name string) error
}

// CephCluster runs the ceph CLI against a real cluster
type CephCluster struct {
	context     *clusterd.Context
	clusterInfo *cephclient.ClusterInfo
}

// NewCephCluster returns a Cluster backed by the ceph CLI
func NewCephCluster(context *clusterd.Context, clusterInfo *cephclient.ClusterInfo) *CephCluster {
	return &CephCluster{context: context, clusterInfo: clusterInfo}
}

func (c *CephCluster) OSDMap() (*cephclient.OSDMap, error) {
	return cephclient.GetOSDMap(c.context, c.clusterInfo)
}

func (c *CephCluster) CrushMap() (*cephclient.CrushMap, error) {
	return cephclient.GetCrushMap(c.context, c.clusterInfo)
}

func (c *CephCluster) PGDump() (*cephclient.PGDumpBrief, error) {
	return cephclient.GetPGDumpBrief(c.context, c.clusterInfo)
}

func (c *CephCluster) OSDUsage() (*cephclient.OSDUsage, error) {
	return cephclient.GetOSDUsage(c.context, c.clusterInfo)
}

func (c *CephCluster) PoolStats() (*cephclient.CephStoragePoolStats, error) {
	return cephclient.GetPoolStats(c.context, c.clusterInfo)
}

func (c *CephCluster) Filesystems() ([]cephclient.CephFilesystem, error) {
	return cephclient.ListFilesystems(c.context, c.clusterInfo)
}

func (c *CephCluster) ErasureCodeProfile(name string) (cephclient.CephErasureCodeProfile, error) {
	return cephclient.GetErasureCodeProfileDetails(c.context, c.clusterInfo, name)
}

func (c *CephCluster) MonConfigInt(key string) (int, error) {
	return cephclient.GetMonConfigInt(c.context, c.clusterInfo, key)
}

func (c *CephCluster) CreatePool(name string, pgCount int, rule string) error {
	return cephclient.CreateReplicatedPool(c.context, c.clusterInfo, name, pgCount, rule)
}

func (c *CephCluster) EnableApplication(pool, app string) error {
	return cephclient.EnablePoolApplication(c.context, c.clusterInfo, pool, app)
}

func (c *CephCluster) SetApplicationMetadata(pool, app, key, value string) error {
	return cephclient.SetPoolApplicationMetadata(c.context, c.clusterInfo, pool, app, key, value)
}

// SetPoolPGNum sets pg_num, which the mons turn into pg_num_target for the pool
func (c *CephCluster) SetPoolPGNum(pool string, pgNum int) error {
	return cephclient.SetPoolProperty(c.context, c.clusterInfo, pool, cephclient.PgNumProperty, strconv.Itoa(pgNum))
}

func (c *CephCluster) CreateReplicatedRule(name, root, failureDomain, deviceClass string) error {
	return cephclient.CreateReplicatedCrushRule(c.context, c.clusterInfo, name, root, failureDomain, deviceClass)
}

func (c *CephCluster) DeletePool(name string) error {
	return cephclient.DeletePool(c.context, c.clusterInfo, name)
}

// ClusterState is a point in time snapshot of everything the autoscaler reads from the cluster
type ClusterState struct {
	OSDMap *cephclient.OSDMap
	Crush  *cephclient.CrushMap
	PGs    *cephclient.PGDumpBrief
	// RawCapacity is the raw device capacity in bytes per osd id
	RawCapacity map[int]int64
	// BytesUsed is the logical bytes used per pool id
	BytesUsed map[int]float64
	// RawUsedRate converts logical bytes to raw bytes per pool id
	RawUsedRate map[int]float64
	// PGStates counts the PGs of each pool by compound state
	PGStates map[int]map[string]int
}

// LoadClusterState reads a new snapshot of the cluster
func LoadClusterState(c Cluster) (*ClusterState, error) {
	osdMap, err := c.OSDMap()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load osd map")
	}
	crush, err := c.CrushMap()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load crush map")
	}
	pgs, err := c.PGDump()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pg dump")
	}
	usage, err := c.OSDUsage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load osd usage")
	}
	capacity, err := usage.RawCapacityByID()
	if err != nil {
		return nil, err
	}
	stats, err := c.PoolStats()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pool stats")
	}

	state := &ClusterState{
		OSDMap:      osdMap,
		Crush:       crush,
		PGs:         pgs,
		RawCapacity: capacity,
		BytesUsed:   stats.BytesUsedByID(),
		RawUsedRate: map[int]float64{},
		PGStates:    pgs.StatesByPool(),
	}

	profiles := map[string]float64{}
	for _, pool := range osdMap.Pools {
		if !pool.IsErasureCoded() {
			state.RawUsedRate[pool.ID] = float64(pool.Size)
			continue
		}
		rate, ok := profiles[pool.ErasureCodeProfile]
		if !ok {
			profile, err := c.ErasureCodeProfile(pool.ErasureCodeProfile)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get erasure code profile of pool %q", pool.Name)
			}
			rate = profile.RawUsedRate()
			profiles[pool.ErasureCodeProfile] = rate
		}
		state.RawUsedRate[pool.ID] = rate
	}

	return state, nil
}

func (s *ClusterState) rawUsedRate(poolID int) float64 {
	if rate, ok := s.RawUsedRate[poolID]; ok && rate > 0 {
		return rate
	}
	return 1.0
}

// ruleOf returns the crush rule name of a pool
func (s *ClusterState) ruleOf(pool *cephclient.PoolInfo) (string, bool) {
	rule, ok := s.Crush.RuleByID(pool.CrushRule)
	if !ok {
		return "", false
	}
	return rule.Name, true
}

// setPGNumTarget records a pg_num_target change issued since the snapshot was taken
func (s *ClusterState) setPGNumTarget(poolName string, target int) {
	if pool, ok := s.OSDMap.PoolByName(poolName); ok {
		pool.PgNumTarget = target
	}
}
