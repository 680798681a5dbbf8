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

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
)

const (
	// PoolTypeReplicated is the osd map type of a replicated pool
	PoolTypeReplicated = 1
	// PoolTypeErasure is the osd map type of an erasure coded pool
	PoolTypeErasure = 3
)

// OSDMap is the subset of 'ceph osd dump' read by the poolset controller
type OSDMap struct {
	Epoch int        `json:"epoch"`
	Pools []PoolInfo `json:"pools"`
	OSDs  []struct {
		OSD int `json:"osd"`
		Up  int `json:"up"`
		In  int `json:"in"`
	} `json:"osds"`
}

// PoolInfo is a pool entry of the osd map
type PoolInfo struct {
	ID                  int                          `json:"pool"`
	Name                string                       `json:"pool_name"`
	Type                int                          `json:"type"`
	Size                int                          `json:"size"`
	CrushRule           int                          `json:"crush_rule"`
	PgNum               int                          `json:"pg_num"`
	PgNumTarget         int                          `json:"pg_num_target"`
	ErasureCodeProfile  string                       `json:"erasure_code_profile"`
	ApplicationMetadata map[string]map[string]string `json:"application_metadata"`
}

// IsErasureCoded returns true for erasure coded pools
func (p *PoolInfo) IsErasureCoded() bool {
	return p.Type == PoolTypeErasure
}

// HasApplication returns true if the application is enabled on the pool
func (p *PoolInfo) HasApplication(app string) bool {
	_, ok := p.ApplicationMetadata[app]
	return ok
}

// PoolByID returns the pool with the given id
func (m *OSDMap) PoolByID(id int) (*PoolInfo, bool) {
	for i := range m.Pools {
		if m.Pools[i].ID == id {
			return &m.Pools[i], true
		}
	}
	return nil, false
}

// PoolByName returns the pool with the given name
func (m *OSDMap) PoolByName(name string) (*PoolInfo, bool) {
	for i := range m.Pools {
		if m.Pools[i].Name == name {
			return &m.Pools[i], true
		}
	}
	return nil, false
}

// GetOSDMap returns the current osd map
func GetOSDMap(context *clusterd.Context, clusterInfo *ClusterInfo) (*OSDMap, error) {
	args := []string{"osd", "dump"}
	buf, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get osd dump")
	}

	var osdMap OSDMap
	if err := json.Unmarshal(buf, &osdMap); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal osd dump response")
	}
	return &osdMap, nil
}

// OSDUsage is the output of 'ceph osd df'
type OSDUsage struct {
	OSDNodes []OSDNodeUsage `json:"nodes"`
	Summary  struct {
		TotalKB      json.Number `json:"total_kb"`
		TotalUsedKB  json.Number `json:"total_kb_used"`
		TotalAvailKB json.Number `json:"total_kb_avail"`
		AverageUtil  json.Number `json:"average_utilization"`
	} `json:"summary"`
}

// OSDNodeUsage is the usage of a single osd
type OSDNodeUsage struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	DeviceClass string      `json:"device_class"`
	Reweight    json.Number `json:"reweight"`
	KB          json.Number `json:"kb"`
	UsedKB      json.Number `json:"kb_used"`
	AvailKB     json.Number `json:"kb_avail"`
	Pgs         json.Number `json:"pgs"`
}

// RawCapacityByID returns the raw device capacity of every osd in bytes, ignoring the reweight
func (u *OSDUsage) RawCapacityByID() (map[int]int64, error) {
	capacity := make(map[int]int64, len(u.OSDNodes))
	for _, n := range u.OSDNodes {
		kb, err := n.KB.Int64()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse capacity %q of osd.%d", n.KB.String(), n.ID)
		}
		capacity[n.ID] = kb * 1024
	}
	return capacity, nil
}

// GetOSDUsage returns the per OSD usage
func GetOSDUsage(context *clusterd.Context, clusterInfo *ClusterInfo) (*OSDUsage, error) {
	args := []string{"osd", "df"}
	buf, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get osd df")
	}

	var osdUsage OSDUsage
	if err := json.Unmarshal(buf, &osdUsage); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal osd df response")
	}

	return &osdUsage, nil
}
