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

package client

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
	exectest "github.com/rook/poolsets/pkg/util/exec/test"
	"github.com/stretchr/testify/assert"
)

const (
	testOSDDump = `{
    "epoch": 42,
    "pools": [
        {"pool": 1, "pool_name": "device_health_metrics", "type": 1, "size": 3, "crush_rule": 0,
         "pg_num": 1, "pg_num_target": 1, "erasure_code_profile": "", "application_metadata": {"mgr_devicehealth": {}}},
        {"pool": 2, "pool_name": "rbdpool", "type": 1, "size": 3, "crush_rule": 0,
         "pg_num": 32, "pg_num_target": 64, "erasure_code_profile": "", "application_metadata": {"rbd": {"poolset": "rbdpool"}}},
        {"pool": 3, "pool_name": "ecpool", "type": 3, "size": 6, "crush_rule": 2,
         "pg_num": 8, "pg_num_target": 8, "erasure_code_profile": "ec42", "application_metadata": {}}
    ],
    "osds": [{"osd": 0, "up": 1, "in": 1}, {"osd": 1, "up": 1, "in": 0}]
}`

	testOSDDf = `{
    "nodes": [
        {"id": 0, "device_class": "hdd", "name": "osd.0", "reweight": 1.0, "kb": 104857600, "kb_used": 1024, "kb_avail": 104856576, "pgs": 100},
        {"id": 1, "device_class": "hdd", "name": "osd.1", "reweight": 0.5, "kb": 52428800, "kb_used": 0, "kb_avail": 52428800, "pgs": 50}
    ],
    "stray": [],
    "summary": {"total_kb": 157286400, "total_kb_used": 1024, "total_kb_avail": 157285376, "average_utilization": 0.0006}
}`
)

func TestGetOSDMap(t *testing.T) {
	executor := &exectest.MockExecutor{}
	executor.MockExecuteCommandWithOutput = func(command string, args ...string) (string, error) {
		logger.Infof("Command: %s %v", command, args)
		if args[0] == "osd" && args[1] == "dump" {
			return testOSDDump, nil
		}
		return "", errors.Errorf("unexpected ceph command %q", args)
	}

	osdMap, err := GetOSDMap(&clusterd.Context{Executor: executor}, AdminTestClusterInfo("mycluster"))
	assert.NoError(t, err)
	assert.Equal(t, 42, osdMap.Epoch)
	assert.Equal(t, 3, len(osdMap.Pools))
	assert.Equal(t, 2, len(osdMap.OSDs))

	pool, ok := osdMap.PoolByID(2)
	assert.True(t, ok)
	assert.Equal(t, "rbdpool", pool.Name)
	assert.Equal(t, 32, pool.PgNum)
	assert.Equal(t, 64, pool.PgNumTarget)
	assert.True(t, pool.HasApplication("rbd"))
	assert.Equal(t, "rbdpool", pool.ApplicationMetadata["rbd"]["poolset"])
	assert.False(t, pool.IsErasureCoded())

	pool, ok = osdMap.PoolByName("ecpool")
	assert.True(t, ok)
	assert.True(t, pool.IsErasureCoded())
	assert.Equal(t, "ec42", pool.ErasureCodeProfile)
	assert.False(t, pool.HasApplication("rbd"))

	_, ok = osdMap.PoolByID(9)
	assert.False(t, ok)
	_, ok = osdMap.PoolByName("nope")
	assert.False(t, ok)
}

func TestGetOSDMapFailure(t *testing.T) {
	executor := &exectest.MockExecutor{
		MockExecuteCommandWithOutput: func(command string, args ...string) (string, error) {
			return "not json", nil
		},
	}
	_, err := GetOSDMap(&clusterd.Context{Executor: executor}, AdminTestClusterInfo("mycluster"))
	assert.Error(t, err)
}

func TestGetOSDUsage(t *testing.T) {
	executor := &exectest.MockExecutor{}
	executor.MockExecuteCommandWithOutput = func(command string, args ...string) (string, error) {
		if args[0] == "osd" && args[1] == "df" {
			return testOSDDf, nil
		}
		return "", errors.Errorf("unexpected ceph command %q", args)
	}

	usage, err := GetOSDUsage(&clusterd.Context{Executor: executor}, AdminTestClusterInfo("mycluster"))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(usage.OSDNodes))
	assert.Equal(t, "hdd", usage.OSDNodes[0].DeviceClass)

	capacity, err := usage.RawCapacityByID()
	assert.NoError(t, err)
	// the reweight of osd.1 does not reduce its raw capacity
	assert.Equal(t, int64(104857600*1024), capacity[0])
	assert.Equal(t, int64(52428800*1024), capacity[1])
}
