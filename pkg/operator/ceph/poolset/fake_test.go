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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
)

// 1 TiB per osd
const testOSDKB = 1024 * 1024 * 1024

type fakePool struct {
	id          int
	name        string
	size        int
	rule        string
	pgNum       int
	pgNumTarget int
	apps        map[string]map[string]string
	bytesUsed   float64
	ecProfile   string
	// pgStates overrides the state histogram of the pool's PGs, which default to active+clean
	pgStates map[string]int
}

type fakeOSD struct {
	id    int
	class string
	host  string
}

type fakeRule struct {
	name string
	root string
}

// fakeCluster is an in memory ceph cluster. The mons never move pg_num towards pg_num_target on
// their own, tests call converge.
type fakeCluster struct {
	pools       []*fakePool
	osds        []fakeOSD
	rules       []fakeRule
	filesystems []cephclient.CephFilesystem
	profiles    map[string]cephclient.CephErasureCodeProfile
	monConfig   map[string]int
	epoch       int
	nextPoolID  int

	// failures makes the named method fail
	failures map[string]error
	commands []string
}

func newFakeCluster(hddOSDs, ssdOSDs int) *fakeCluster {
	f := &fakeCluster{
		profiles:   map[string]cephclient.CephErasureCodeProfile{},
		monConfig:  map[string]int{TargetPGsPerOSDKey: 100, MaxPGsPerOSDKey: 250},
		epoch:      1,
		nextPoolID: 1,
		failures:   map[string]error{},
		rules:      []fakeRule{{name: DefaultRule, root: DefaultRoot}},
	}
	id := 0
	for i := 0; i < hddOSDs; i++ {
		f.osds = append(f.osds, fakeOSD{id: id, class: "hdd", host: fmt.Sprintf("host-%d", id%2)})
		id++
	}
	for i := 0; i < ssdOSDs; i++ {
		f.osds = append(f.osds, fakeOSD{id: id, class: "ssd", host: fmt.Sprintf("host-%d", id%2)})
		id++
	}
	return f
}

func (f *fakeCluster) addPool(name string, pgNum int, apps map[string]map[string]string) *fakePool {
	if apps == nil {
		apps = map[string]map[string]string{}
	}
	p := &fakePool{
		id:          f.nextPoolID,
		name:        name,
		size:        3,
		rule:        DefaultRule,
		pgNum:       pgNum,
		pgNumTarget: pgNum,
		apps:        apps,
	}
	f.nextPoolID++
	f.pools = append(f.pools, p)
	f.epoch++
	return p
}

func (f *fakeCluster) pool(name string) *fakePool {
	for _, p := range f.pools {
		if p.name == name {
			return p
		}
	}
	return nil
}

// converge moves pg_num of every pool to its target and settles all PGs
func (f *fakeCluster) converge() {
	for _, p := range f.pools {
		p.pgNum = p.pgNumTarget
		p.pgStates = nil
	}
	f.epoch++
}

func (f *fakeCluster) ruleID(name string) int {
	for i, r := range f.rules {
		if r.name == name {
			return i
		}
	}
	return -1
}

func (f *fakeCluster) fail(method string) error {
	if err, ok := f.failures[method]; ok {
		return err
	}
	return nil
}

func (f *fakeCluster) record(format string, args ...interface{}) {
	f.commands = append(f.commands, fmt.Sprintf(format, args...))
}

func remarshal(in interface{}, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeCluster) OSDMap() (*cephclient.OSDMap, error) {
	if err := f.fail("OSDMap"); err != nil {
		return nil, err
	}
	pools := []map[string]interface{}{}
	for _, p := range f.pools {
		poolType := cephclient.PoolTypeReplicated
		if p.ecProfile != "" {
			poolType = cephclient.PoolTypeErasure
		}
		pools = append(pools, map[string]interface{}{
			"pool":                 p.id,
			"pool_name":            p.name,
			"type":                 poolType,
			"size":                 p.size,
			"crush_rule":           f.ruleID(p.rule),
			"pg_num":               p.pgNum,
			"pg_num_target":        p.pgNumTarget,
			"erasure_code_profile": p.ecProfile,
			"application_metadata": p.apps,
		})
	}
	var m cephclient.OSDMap
	err := remarshal(map[string]interface{}{"epoch": f.epoch, "pools": pools}, &m)
	return &m, err
}

func (f *fakeCluster) CrushMap() (*cephclient.CrushMap, error) {
	devices := []map[string]interface{}{}
	hosts := map[string][]int{}
	ssdHosts := map[string][]int{}
	for _, o := range f.osds {
		devices = append(devices, map[string]interface{}{"id": o.id, "name": fmt.Sprintf("osd.%d", o.id), "class": o.class})
		hosts[o.host] = append(hosts[o.host], o.id)
		if o.class == "ssd" {
			ssdHosts[o.host] = append(ssdHosts[o.host], o.id)
		}
	}

	buckets := []map[string]interface{}{}
	addTree := func(rootName string, rootID int, suffix string, members map[string][]int) {
		names := make([]string, 0, len(members))
		for h := range members {
			names = append(names, h)
		}
		sort.Strings(names)
		rootItems := []map[string]interface{}{}
		for i, h := range names {
			hostID := rootID - 1 - i
			rootItems = append(rootItems, map[string]interface{}{"id": hostID, "weight": 1, "pos": i})
			items := []map[string]interface{}{}
			for pos, osd := range members[h] {
				items = append(items, map[string]interface{}{"id": osd, "weight": 1, "pos": pos})
			}
			buckets = append(buckets, map[string]interface{}{"id": hostID, "name": h + suffix, "type_name": "host", "items": items})
		}
		buckets = append(buckets, map[string]interface{}{"id": rootID, "name": rootName, "type_name": "root", "items": rootItems})
	}
	addTree(DefaultRoot, -1, "", hosts)
	if len(ssdHosts) > 0 {
		addTree(DefaultRoot+"~ssd", -100, "~ssd", ssdHosts)
	}

	rules := []map[string]interface{}{}
	for i, r := range f.rules {
		rules = append(rules, map[string]interface{}{
			"rule_id":   i,
			"rule_name": r.name,
			"type":      1,
			"steps": []map[string]interface{}{
				{"op": "take", "item_name": r.root},
				{"op": "chooseleaf_firstn", "num": 0, "type": "host"},
				{"op": "emit"},
			},
		})
	}

	var c cephclient.CrushMap
	err := remarshal(map[string]interface{}{"devices": devices, "buckets": buckets, "rules": rules}, &c)
	return &c, err
}

// rootOSDs returns the osds under the root of a rule
func (f *fakeCluster) rootOSDs(rule string) []int {
	root := DefaultRoot
	if id := f.ruleID(rule); id >= 0 {
		root = f.rules[id].root
	}
	var osds []int
	for _, o := range f.osds {
		if root == DefaultRoot || strings.HasSuffix(root, "~"+o.class) {
			osds = append(osds, o.id)
		}
	}
	return osds
}

func (f *fakeCluster) PGDump() (*cephclient.PGDumpBrief, error) {
	stats := []map[string]interface{}{}
	for _, p := range f.pools {
		osds := f.rootOSDs(p.rule)
		states := p.pgStates
		if states == nil {
			states = map[string]int{"active+clean": p.pgNum}
		}
		names := make([]string, 0, len(states))
		for s := range states {
			names = append(names, s)
		}
		sort.Strings(names)

		seed := 0
		for _, state := range names {
			for n := 0; n < states[state]; n++ {
				acting := []int{}
				for r := 0; r < p.size && r < len(osds); r++ {
					acting = append(acting, osds[(seed+r)%len(osds)])
				}
				stats = append(stats, map[string]interface{}{
					"pgid":   fmt.Sprintf("%d.%x", p.id, seed),
					"state":  state,
					"acting": acting,
					"up":     acting,
				})
				seed++
			}
		}
	}
	var d cephclient.PGDumpBrief
	err := remarshal(map[string]interface{}{"pg_stats": stats}, &d)
	return &d, err
}

func (f *fakeCluster) OSDUsage() (*cephclient.OSDUsage, error) {
	nodes := []map[string]interface{}{}
	for _, o := range f.osds {
		nodes = append(nodes, map[string]interface{}{
			"id": o.id, "name": fmt.Sprintf("osd.%d", o.id), "device_class": o.class,
			"reweight": 1, "kb": testOSDKB, "kb_used": 0, "kb_avail": testOSDKB, "pgs": 0,
		})
	}
	var u cephclient.OSDUsage
	err := remarshal(map[string]interface{}{"nodes": nodes}, &u)
	return &u, err
}

func (f *fakeCluster) PoolStats() (*cephclient.CephStoragePoolStats, error) {
	pools := []map[string]interface{}{}
	for _, p := range f.pools {
		pools = append(pools, map[string]interface{}{
			"name": p.name, "id": p.id,
			"stats": map[string]interface{}{"bytes_used": p.bytesUsed, "stored": p.bytesUsed},
		})
	}
	var s cephclient.CephStoragePoolStats
	err := remarshal(map[string]interface{}{"pools": pools}, &s)
	return &s, err
}

func (f *fakeCluster) Filesystems() ([]cephclient.CephFilesystem, error) {
	if err := f.fail("Filesystems"); err != nil {
		return nil, err
	}
	return f.filesystems, nil
}

func (f *fakeCluster) ErasureCodeProfile(name string) (cephclient.CephErasureCodeProfile, error) {
	p, ok := f.profiles[name]
	if !ok {
		return p, errors.Errorf("profile %q not found", name)
	}
	return p, nil
}

func (f *fakeCluster) MonConfigInt(key string) (int, error) {
	v, ok := f.monConfig[key]
	if !ok {
		return 0, errors.Errorf("unknown option %q", key)
	}
	return v, nil
}

func (f *fakeCluster) CreatePool(name string, pgCount int, rule string) error {
	if err := f.fail("CreatePool"); err != nil {
		return err
	}
	f.record("create pool %s %d %s", name, pgCount, rule)
	if f.pool(name) != nil {
		return nil
	}
	if f.ruleID(rule) < 0 {
		return errors.Errorf("rule %q does not exist", rule)
	}
	p := f.addPool(name, pgCount, nil)
	p.rule = rule
	// a new pool reports its PGs as creating until the test says otherwise
	p.pgStates = map[string]int{"creating": pgCount}
	return nil
}

func (f *fakeCluster) EnableApplication(pool, app string) error {
	f.record("enable application %s %s", pool, app)
	p := f.pool(pool)
	if p == nil {
		return errors.Errorf("pool %q not found", pool)
	}
	if _, ok := p.apps[app]; !ok {
		p.apps[app] = map[string]string{}
	}
	return nil
}

func (f *fakeCluster) SetApplicationMetadata(pool, app, key, value string) error {
	f.record("set application %s %s %s=%s", pool, app, key, value)
	p := f.pool(pool)
	if p == nil {
		return errors.Errorf("pool %q not found", pool)
	}
	if _, ok := p.apps[app]; !ok {
		return errors.Errorf("application %q not enabled on pool %q", app, pool)
	}
	p.apps[app][key] = value
	return nil
}

func (f *fakeCluster) SetPoolPGNum(pool string, pgNum int) error {
	if err := f.fail("SetPoolPGNum"); err != nil {
		return err
	}
	f.record("set pg_num %s %d", pool, pgNum)
	p := f.pool(pool)
	if p == nil {
		return errors.Errorf("pool %q not found", pool)
	}
	p.pgNumTarget = pgNum
	f.epoch++
	return nil
}

func (f *fakeCluster) CreateReplicatedRule(name, root, failureDomain, deviceClass string) error {
	if err := f.fail("CreateReplicatedRule"); err != nil {
		return err
	}
	f.record("create rule %s %s %s %s", name, root, failureDomain, deviceClass)
	f.rules = append(f.rules, fakeRule{name: name, root: root + "~" + deviceClass})
	return nil
}

func (f *fakeCluster) DeletePool(name string) error {
	if err := f.fail("DeletePool"); err != nil {
		return err
	}
	f.record("delete pool %s", name)
	for i, p := range f.pools {
		if p.name == name {
			f.pools = append(f.pools[:i], f.pools[i+1:]...)
			f.epoch++
			return nil
		}
	}
	return errors.Errorf("pool %q not found", name)
}

// fakeReporter records progress calls
type fakeReporter struct {
	updates   map[string]float64
	completed []string
	failed    map[string]string
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{updates: map[string]float64{}, failed: map[string]string{}}
}

func (r *fakeReporter) Update(id, message string, fraction float64) {
	r.updates[id] = fraction
}

func (r *fakeReporter) Complete(id string) {
	r.completed = append(r.completed, id)
}

func (r *fakeReporter) Fail(id, reason string) {
	r.failed[id] = reason
}
