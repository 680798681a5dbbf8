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
	"strconv"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
)

const (
	confirmFlag       = "--yes-i-really-mean-it"
	reallyConfirmFlag = "--yes-i-really-really-mean-it"
	// PgNumProperty is the pool property holding the PG count target
	PgNumProperty = "pg_num"
)

type CephStoragePoolStats struct {
	Pools []struct {
		Name  string `json:"name"`
		ID    int    `json:"id"`
		Stats struct {
			BytesUsed   float64 `json:"bytes_used"`
			StoredBytes float64 `json:"stored"`
			MaxAvail    float64 `json:"max_avail"`
			Objects     float64 `json:"objects"`
			PercentUsed float64 `json:"percent_used"`
		} `json:"stats"`
	} `json:"pools"`
}

// BytesUsedByID returns the logical bytes used by each pool
func (s *CephStoragePoolStats) BytesUsedByID() map[int]float64 {
	used := make(map[int]float64, len(s.Pools))
	for _, p := range s.Pools {
		used[p.ID] = p.Stats.BytesUsed
	}
	return used
}

// GetPoolStats returns the usage of every pool
func GetPoolStats(context *clusterd.Context, clusterInfo *ClusterInfo) (*CephStoragePoolStats, error) {
	args := []string{"df"}
	output, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool stats")
	}

	var poolStats CephStoragePoolStats
	if err := json.Unmarshal(output, &poolStats); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal pool stats response")
	}

	return &poolStats, nil
}

// CreateReplicatedPool creates a replicated pool with the given PG count on the crush rule
func CreateReplicatedPool(context *clusterd.Context, clusterInfo *ClusterInfo, poolName string, pgCount int, ruleName string) error {
	pg := strconv.Itoa(pgCount)
	args := []string{"osd", "pool", "create", poolName, pg, pg, "replicated", ruleName}
	logger.Infof("creating pool %q with %d pgs on crush rule %q", poolName, pgCount, ruleName)
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to create pool %q", poolName)
	}

	return nil
}

// EnablePoolApplication enables the application on the pool
func EnablePoolApplication(context *clusterd.Context, clusterInfo *ClusterInfo, poolName, appName string) error {
	args := []string{"osd", "pool", "application", "enable", poolName, appName, confirmFlag}
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to enable application %s on pool %s", appName, poolName)
	}

	return nil
}

// SetPoolApplicationMetadata sets a key of the application metadata of the pool
func SetPoolApplicationMetadata(context *clusterd.Context, clusterInfo *ClusterInfo, poolName, appName, key, value string) error {
	args := []string{"osd", "pool", "application", "set", poolName, appName, key, value}
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to set application metadata %s=%s of %s on pool %s", key, value, appName, poolName)
	}

	return nil
}

// SetPoolProperty sets a property to a given pool
func SetPoolProperty(context *clusterd.Context, clusterInfo *ClusterInfo, name, propName, propVal string) error {
	args := []string{"osd", "pool", "set", name, propName, propVal}
	logger.Infof("setting pool property %q to %q on pool %q", propName, propVal, name)
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to set pool property %q on pool %q", propName, name)
	}
	return nil
}

// DeletePool removes the pool and all of its data
func DeletePool(context *clusterd.Context, clusterInfo *ClusterInfo, name string) error {
	logger.Infof("purging pool %q", name)
	args := []string{"osd", "pool", "delete", name, name, reallyConfirmFlag}
	_, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return errors.Wrapf(err, "failed to delete pool %q", name)
	}

	logger.Infof("purge completed for pool %q", name)
	return nil
}
