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
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
)

// PGDumpTimeout bounds the pg dump, which is much larger than the other command outputs
var PGDumpTimeout = 60 * time.Second

type PGDumpBrief struct {
	PgStats []PgStats `json:"pg_stats"`
}

type PgStats struct {
	ID              string `json:"pgid"`
	State           string `json:"state"`
	UpOsdIDs        []int  `json:"up"`
	UpPrimaryID     int    `json:"up_primary"`
	ActingOsdIDs    []int  `json:"acting"`
	ActingPrimaryID int    `json:"acting_primary"`
}

// PoolID returns the id of the pool owning the PG, parsed from the "<pool>.<seed>" pgid
func (p *PgStats) PoolID() (int, error) {
	i := strings.Index(p.ID, ".")
	if i <= 0 {
		return 0, errors.Errorf("invalid pgid %q", p.ID)
	}
	return strconv.Atoi(p.ID[:i])
}

// StatesByPool returns, for each pool, how many of its PGs are in each compound state string
// (e.g. "active+clean")
func (d *PGDumpBrief) StatesByPool() map[int]map[string]int {
	summary := map[int]map[string]int{}
	for i := range d.PgStats {
		poolID, err := d.PgStats[i].PoolID()
		if err != nil {
			logger.Debugf("skipping pg. %v", err)
			continue
		}
		if _, ok := summary[poolID]; !ok {
			summary[poolID] = map[string]int{}
		}
		summary[poolID][d.PgStats[i].State]++
	}
	return summary
}

// GetPGDumpBrief returns the state and up/acting sets of every PG
func GetPGDumpBrief(context *clusterd.Context, clusterInfo *ClusterInfo) (*PGDumpBrief, error) {
	args := []string{"pg", "dump", "pgs_brief"}
	buf, err := NewCephCommand(context, clusterInfo, args).RunWithTimeout(PGDumpTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pg dump")
	}

	var pgDump PGDumpBrief
	if err := json.Unmarshal(buf, &pgDump); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal pg dump response")
	}

	return &pgDump, nil
}
