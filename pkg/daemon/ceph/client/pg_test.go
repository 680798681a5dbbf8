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
	"time"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
	exectest "github.com/rook/poolsets/pkg/util/exec/test"
	"github.com/stretchr/testify/assert"
)

const testPGDump = `{"pg_ready":true,"pg_stats":[
	{"pgid":"2.0","state":"active+clean","up":[0,1,2],"up_primary":0,"acting":[0,1,2],"acting_primary":0},
	{"pgid":"2.1","state":"active+clean","up":[1,2,3],"up_primary":1,"acting":[1,2,3],"acting_primary":1},
	{"pgid":"2.2","state":"active+recovering+repair","up":[3,0,1],"up_primary":3,"acting":[3,0,1],"acting_primary":3},
	{"pgid":"3.0","state":"creating","up":[],"up_primary":-1,"acting":[],"acting_primary":-1},
	{"pgid":"bogus","state":"unknown","up":[],"up_primary":-1,"acting":[],"acting_primary":-1}
]}`

func TestGetPGDumpBrief(t *testing.T) {
	executor := &exectest.MockExecutor{}
	executor.MockExecuteCommandWithTimeout = func(timeout time.Duration, command string, args ...string) (string, error) {
		assert.Equal(t, PGDumpTimeout, timeout)
		if args[0] == "pg" && args[1] == "dump" && args[2] == "pgs_brief" {
			return testPGDump, nil
		}
		return "", errors.Errorf("unexpected ceph command %q", args)
	}

	dump, err := GetPGDumpBrief(&clusterd.Context{Executor: executor}, AdminTestClusterInfo("mycluster"))
	assert.NoError(t, err)
	assert.Equal(t, 5, len(dump.PgStats))
	assert.Equal(t, []int{1, 2, 3}, dump.PgStats[1].ActingOsdIDs)

	id, err := dump.PgStats[3].PoolID()
	assert.NoError(t, err)
	assert.Equal(t, 3, id)
	_, err = dump.PgStats[4].PoolID()
	assert.Error(t, err)

	states := dump.StatesByPool()
	assert.Equal(t, map[int]map[string]int{
		2: {"active+clean": 2, "active+recovering+repair": 1},
		3: {"creating": 1},
	}, states)
}
